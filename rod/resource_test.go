package rod_test

import (
	"testing"

	"github.com/fwojciec/adharvest"
	"github.com/fwojciec/adharvest/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
)

func TestResourceType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind adharvest.ResourceKind
		want proto.NetworkResourceType
	}{
		{adharvest.ResourceImage, proto.NetworkResourceTypeImage},
		{adharvest.ResourceStylesheet, proto.NetworkResourceTypeStylesheet},
		{adharvest.ResourceFont, proto.NetworkResourceTypeFont},
		{adharvest.ResourceMedia, proto.NetworkResourceTypeMedia},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			got, ok := rod.ResourceType(tt.kind)

			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("rejects unknown kinds", func(t *testing.T) {
		t.Parallel()

		_, ok := rod.ResourceType("websocket")

		assert.False(t, ok)
	})
}

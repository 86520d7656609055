package adharvest_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/adharvest"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := adharvest.Errorf(adharvest.ENOTFOUND, "mirror %q not found", "data.csv")

	assert.Equal(t, adharvest.ENOTFOUND, adharvest.ErrorCode(err))
	assert.Equal(t, "mirror \"data.csv\" not found", adharvest.ErrorMessage(err))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("saving batch: %w", adharvest.Errorf(adharvest.ESINK, "disk full"))

	assert.Equal(t, adharvest.ESINK, adharvest.ErrorCode(err))
	assert.Equal(t, "disk full", adharvest.ErrorMessage(err))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")

	assert.Equal(t, adharvest.EINTERNAL, adharvest.ErrorCode(err))
	assert.Equal(t, "Internal error.", adharvest.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, adharvest.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, adharvest.ErrorMessage(nil))
}

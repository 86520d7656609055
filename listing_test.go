package adharvest_test

import (
	"testing"

	"github.com/fwojciec/adharvest"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePrice(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1250000", adharvest.NormalizePrice("1,250,000"))
	assert.Equal(t, "950", adharvest.NormalizePrice("950"))
}

func TestListingRecord_Validate(t *testing.T) {
	t.Parallel()

	t.Run("accepts country-prefixed numbers", func(t *testing.T) {
		t.Parallel()

		for _, phone := range []string{"+923001234567", "923001234567", "+92300123456"} {
			r := &adharvest.ListingRecord{PhoneNumber: phone}
			assert.NoError(t, r.Validate(), phone)
		}
	})

	t.Run("rejects missing or foreign numbers", func(t *testing.T) {
		t.Parallel()

		for _, phone := range []string{"", "03001234567", "+4412345678901", "+92300"} {
			r := &adharvest.ListingRecord{PhoneNumber: phone}
			assert.Equal(t, adharvest.EINVALID, adharvest.ErrorCode(r.Validate()), phone)
		}
	})
}

func TestListingRecord_Row(t *testing.T) {
	t.Parallel()

	r := &adharvest.ListingRecord{
		Title:       "Corolla 2018",
		VehicleType: "Sedan",
		Price:       "4500000",
		Location:    "Lahore",
		ContactName: "Ali",
		PhoneNumber: "+923001234567",
	}

	assert.Equal(t, []string{"title", "carType", "price", "location", "name", "phoneNumber"}, r.Header())
	assert.Equal(t, []string{"Corolla 2018", "Sedan", "4500000", "Lahore", "Ali", "+923001234567"}, r.Row())
}

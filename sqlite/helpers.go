package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/adharvest"
)

// fingerprint identifies a record by its field values.
func fingerprint(r *adharvest.ListingRecord) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(r.Row(), "\x1f")))
}

// parseRFC3339 parses an RFC3339 formatted timestamp string.
// Returns an error if parsing fails with a descriptive message including the field name.
func parseRFC3339(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

package goquery

import (
	"regexp"
	"strconv"

	"github.com/fwojciec/adharvest"
)

// PayloadSchema parses a discovered payload into a record. A new schema
// version is added when the site changes its embedded state layout.
type PayloadSchema interface {
	Version() string

	// Parse returns EINVALID if the payload carries no phone number.
	// VehicleType is left for the caller to fill.
	Parse(payload string) (*adharvest.ListingRecord, error)
}

// SchemaV1 matches the key/value layout of the embedded state object.
type SchemaV1 struct{}

var (
	v1Title    = regexp.MustCompile(`"title":"(.*?)"`)
	v1Phone    = regexp.MustCompile(`"phoneNumber":"(\+?92\d{9,10})"`)
	v1Contact  = regexp.MustCompile(`"contactInfo":.*?"name":"(.*?)"`)
	v1Price    = regexp.MustCompile(`"formattedValue":"(\d{1,3}(?:,\d{3})+)"`)
	v1Location = regexp.MustCompile(`"location\.lvl2":.*?"name":"(.*?)"`)
)

// Version returns "v1".
func (SchemaV1) Version() string { return "v1" }

// Parse applies independent pattern searches to the payload.
func (SchemaV1) Parse(payload string) (*adharvest.ListingRecord, error) {
	phone := submatch(v1Phone, payload)
	if phone == "" {
		return nil, adharvest.Errorf(adharvest.EINVALID, "payload has no phone number")
	}

	record := &adharvest.ListingRecord{
		Title:       orNA(unescape(submatch(v1Title, payload))),
		ContactName: orNA(unescape(submatch(v1Contact, payload))),
		Location:    orNA(unescape(submatch(v1Location, payload))),
		Price:       orNA(adharvest.NormalizePrice(submatch(v1Price, payload))),
		PhoneNumber: phone,
	}
	return record, nil
}

func submatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// unescape decodes \uXXXX style escapes in a matched value. Values that do not
// decode are returned unchanged.
func unescape(s string) string {
	if s == "" {
		return s
	}
	if v, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return v
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return adharvest.NotAvailable
	}
	return s
}

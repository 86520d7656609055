package adharvest

import (
	"context"
	"regexp"
	"strings"
)

// NotAvailable fills optional record fields the payload did not carry.
const NotAvailable = "N/A"

// UnknownVehicleType is used when the details panel has no body type row.
const UnknownVehicleType = "unknown"

// PhonePattern matches country-prefixed phone numbers accepted in records.
var PhonePattern = regexp.MustCompile(`^\+?92\d{9,10}$`)

// ListingRecord is one scraped classified ad.
type ListingRecord struct {
	Title       string `json:"title"`
	VehicleType string `json:"carType"`
	Price       string `json:"price"`
	Location    string `json:"location"`
	ContactName string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// Validate returns an error if the record lacks a well-formed phone number.
func (r *ListingRecord) Validate() error {
	if r.PhoneNumber == "" {
		return Errorf(EINVALID, "listing phone number required")
	}
	if !PhonePattern.MatchString(r.PhoneNumber) {
		return Errorf(EINVALID, "listing phone number %q malformed", r.PhoneNumber)
	}
	return nil
}

// Header returns the column names of a record, in Row order.
func (r *ListingRecord) Header() []string {
	return []string{"title", "carType", "price", "location", "name", "phoneNumber"}
}

// Row returns the record's field values in Header order.
func (r *ListingRecord) Row() []string {
	return []string{r.Title, r.VehicleType, r.Price, r.Location, r.ContactName, r.PhoneNumber}
}

// NormalizePrice strips thousands separators from a formatted price.
func NormalizePrice(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// Extractor parses one listing page into a record.
type Extractor interface {
	// Extract returns ENOPAYLOAD when no structured payload can be located
	// and EINVALID when the payload lacks a phone number. Both are skips,
	// not failures.
	Extract(html string) (*ListingRecord, error)
}

// LinkSelector harvests listing links from a rendered search-results page.
type LinkSelector interface {
	// SelectLinks returns absolute, fragment-free listing URLs resolved
	// against baseURL, in document order and without duplicates.
	SelectLinks(html string, baseURL string) ([]string, error)
}

// RecordSink persists a page's batch of records.
type RecordSink interface {
	// Save persists the whole batch or nothing.
	Save(ctx context.Context, records []*ListingRecord) error
}

// RecordStore is a local append-only record destination whose entire
// content can be read back for mirroring.
type RecordStore interface {
	RecordSink

	// Content returns the full current content of the store.
	Content(ctx context.Context) ([]byte, error)
}

// MirrorState is the remote counterpart of the local record store.
type MirrorState struct {
	Content  []byte
	Revision string
}

// Mirror is a remote durable copy of the record store guarded by
// optimistic concurrency.
type Mirror interface {
	// Get returns the remote content and its revision token.
	// Returns ENOTFOUND if the remote copy does not exist yet.
	Get(ctx context.Context) (*MirrorState, error)

	// Put replaces the remote content. An empty revision creates the copy.
	// Returns ECONFLICT if the revision is stale.
	Put(ctx context.Context, content []byte, revision string, message string) error
}

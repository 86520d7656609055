// Package goquery implements listing extraction and link harvesting on top
// of the goquery HTML query library.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/adharvest"
)

// Ensure Extractor implements adharvest.Extractor at compile time.
var _ adharvest.Extractor = (*Extractor)(nil)

// Extractor locates the structured payload embedded in a listing page,
// parses it with a payload schema, and recovers the body type from the
// rendered details panel.
type Extractor struct {
	// Strategies are tried in order; the first to find content wins.
	Strategies []DiscoveryStrategy

	// Schema parses the discovered payload.
	Schema PayloadSchema
}

// NewExtractor returns an Extractor using the default cascade and SchemaV1.
func NewExtractor() *Extractor {
	return &Extractor{
		Strategies: DefaultStrategies(),
		Schema:     SchemaV1{},
	}
}

// Extract parses one listing page into a validated record.
func (e *Extractor) Extract(html string) (*adharvest.ListingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, adharvest.Errorf(adharvest.ENOPAYLOAD, "failed to parse HTML: %v", err)
	}

	payload, _, ok := Discover(doc, e.Strategies)
	if !ok {
		return nil, adharvest.Errorf(adharvest.ENOPAYLOAD, "no embedded listing payload")
	}

	record, err := e.Schema.Parse(payload)
	if err != nil {
		return nil, err
	}
	record.VehicleType = BodyType(doc)

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// BodyType reads the "Body Type" row of the details panel. Each
// div.undefined under the panel holds the rows as nested divs of two spans.
// Returns adharvest.UnknownVehicleType when the row is absent.
func BodyType(doc *goquery.Document) string {
	bodyType := adharvest.UnknownVehicleType
	doc.Find(`[aria-label="Details"] > div.undefined`).Find("div").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		spans := row.Find("span")
		if strings.TrimSpace(spans.Eq(0).Text()) != "Body Type" {
			return true
		}
		if v := strings.TrimSpace(spans.Eq(1).Text()); v != "" {
			bodyType = v
		}
		return false
	})
	return bodyType
}

package adharvest

import (
	"fmt"
	"iter"
	"strings"
)

// DefaultRegions are the region path segments crawled when none are configured.
var DefaultRegions = []string{
	"punjab_g2003006",
	"islamabad-capital-territory_g2003003",
	"khyber-pakhtunkhwa_g2003005",
}

// Range is an inclusive integer range.
type Range struct {
	Min int `json:"min" mapstructure:"min"`
	Max int `json:"max" mapstructure:"max"`
}

// Contains reports whether n lies within the range.
func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// Len returns the number of integers in the range.
func (r Range) Len() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

// CrawlSpace defines the three nested ranges that make up a crawl:
// regions outermost, then category codes, then page numbers.
type CrawlSpace struct {
	Regions    []string `json:"regions" mapstructure:"regions"`
	Categories Range    `json:"categoryRange" mapstructure:"categories"`
	Pages      Range    `json:"pageRange" mapstructure:"pages"`
}

// DefaultCrawlSpace returns the crawl space used when nothing is configured.
func DefaultCrawlSpace() CrawlSpace {
	return CrawlSpace{
		Regions:    append([]string(nil), DefaultRegions...),
		Categories: Range{Min: 1, Max: 11},
		Pages:      Range{Min: 1, Max: 2},
	}
}

// Validate returns an error if the crawl space is empty or malformed.
func (s CrawlSpace) Validate() error {
	if len(s.Regions) == 0 {
		return Errorf(EINVALID, "crawl space requires at least one region")
	}
	for i, r := range s.Regions {
		if strings.TrimSpace(r) == "" {
			return Errorf(EINVALID, "region %d is blank", i)
		}
	}
	if s.Categories.Len() == 0 {
		return Errorf(EINVALID, "category range %d..%d is empty", s.Categories.Min, s.Categories.Max)
	}
	if s.Pages.Len() == 0 {
		return Errorf(EINVALID, "page range %d..%d is empty", s.Pages.Min, s.Pages.Max)
	}
	return nil
}

// Len returns the total number of units in the crawl space.
func (s CrawlSpace) Len() int {
	return len(s.Regions) * s.Categories.Len() * s.Pages.Len()
}

// Index returns the zero-based position of u in the total order.
func (s CrawlSpace) Index(u CrawlUnit) int {
	perRegion := s.Categories.Len() * s.Pages.Len()
	return u.RegionIndex*perRegion + (u.Category-s.Categories.Min)*s.Pages.Len() + (u.Page - s.Pages.Min)
}

// First returns the lexicographically first unit of the space.
func (s CrawlSpace) First() CrawlUnit {
	return CrawlUnit{
		RegionIndex: 0,
		Region:      s.Regions[0],
		Category:    s.Categories.Min,
		Page:        s.Pages.Min,
	}
}

// Units yields every unit from the checkpoint onward in total order.
// The checkpoint must name a unit inside the space; see Checkpoint.Unit.
func (s CrawlSpace) Units(from Checkpoint) iter.Seq[CrawlUnit] {
	return func(yield func(CrawlUnit) bool) {
		category, page := from.CategoryCode, from.PageNumber
		for ri := from.RegionIndex; ri < len(s.Regions); ri++ {
			for ; category <= s.Categories.Max; category++ {
				for ; page <= s.Pages.Max; page++ {
					u := CrawlUnit{RegionIndex: ri, Region: s.Regions[ri], Category: category, Page: page}
					if !yield(u) {
						return
					}
				}
				page = s.Pages.Min
			}
			category = s.Categories.Min
		}
	}
}

// CrawlUnit is one (region, category, page) work item.
type CrawlUnit struct {
	RegionIndex int
	Region      string
	Category    int
	Page        int
}

// Less reports whether u is ordered before v.
func (u CrawlUnit) Less(v CrawlUnit) bool {
	if u.RegionIndex != v.RegionIndex {
		return u.RegionIndex < v.RegionIndex
	}
	if u.Category != v.Category {
		return u.Category < v.Category
	}
	return u.Page < v.Page
}

// Checkpoint returns the persisted coordinates naming u.
func (u CrawlUnit) Checkpoint() Checkpoint {
	return Checkpoint{RegionIndex: u.RegionIndex, CategoryCode: u.Category, PageNumber: u.Page}
}

func (u CrawlUnit) String() string {
	return fmt.Sprintf("%s/category=%d/page=%d", u.Region, u.Category, u.Page)
}

// Checkpoint is the persisted pointer to the unit a run resumes from.
type Checkpoint struct {
	RegionIndex  int `json:"regionIndex"`
	CategoryCode int `json:"categoryCode"`
	PageNumber   int `json:"pageNumber"`
}

// InitialCheckpoint returns the checkpoint naming the first unit of the space.
func InitialCheckpoint(s CrawlSpace) Checkpoint {
	return Checkpoint{RegionIndex: 0, CategoryCode: s.Categories.Min, PageNumber: s.Pages.Min}
}

// Unit resolves the checkpoint against the space. Coordinates outside the
// space are reported as ECORRUPT.
func (c Checkpoint) Unit(s CrawlSpace) (CrawlUnit, error) {
	if c.RegionIndex < 0 || c.RegionIndex >= len(s.Regions) {
		return CrawlUnit{}, Errorf(ECORRUPT, "checkpoint region index %d outside 0..%d", c.RegionIndex, len(s.Regions)-1)
	}
	if !s.Categories.Contains(c.CategoryCode) {
		return CrawlUnit{}, Errorf(ECORRUPT, "checkpoint category %d outside %d..%d", c.CategoryCode, s.Categories.Min, s.Categories.Max)
	}
	if !s.Pages.Contains(c.PageNumber) {
		return CrawlUnit{}, Errorf(ECORRUPT, "checkpoint page %d outside %d..%d", c.PageNumber, s.Pages.Min, s.Pages.Max)
	}
	return CrawlUnit{
		RegionIndex: c.RegionIndex,
		Region:      s.Regions[c.RegionIndex],
		Category:    c.CategoryCode,
		Page:        c.PageNumber,
	}, nil
}

// DefaultBaseURL is the listings site root.
const DefaultBaseURL = "https://www.olx.com.pk"

// DefaultSegment is the fixed path segment of vehicle listings.
const DefaultSegment = "vehicles_c5"

// URLTemplate builds search-results page URLs for crawl units.
type URLTemplate struct {
	Base    string `mapstructure:"base"`
	Segment string `mapstructure:"segment"`
}

// DefaultURLTemplate returns the template for the default listings site.
func DefaultURLTemplate() URLTemplate {
	return URLTemplate{Base: DefaultBaseURL, Segment: DefaultSegment}
}

// URL renders the search-results page URL for u.
func (t URLTemplate) URL(u CrawlUnit) string {
	return fmt.Sprintf("%s/%s/%s?page=%d&sorting=desc-creation&filter=body_type_eq_%d",
		strings.TrimRight(t.Base, "/"), u.Region, t.Segment, u.Page, u.Category)
}

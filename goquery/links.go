package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/adharvest"
)

// Ensure ListingLinkSelector implements adharvest.LinkSelector at compile time.
var _ adharvest.LinkSelector = (*ListingLinkSelector)(nil)

// ListingLinkSelector harvests listing links using a CSS selector.
type ListingLinkSelector struct {
	Selector string
}

// NewListingLinkSelector creates a selector matching the anchor of each
// listing card on a search-results page.
func NewListingLinkSelector() *ListingLinkSelector {
	return &ListingLinkSelector{Selector: adharvest.DefaultListingSelector}
}

// SelectLinks returns absolute listing URLs in document order.
// Fragments are dropped and duplicates removed.
func (s *ListingLinkSelector) SelectLinks(html string, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, adharvest.Errorf(adharvest.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, adharvest.Errorf(adharvest.EINVALID, "failed to parse HTML: %v", err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find(s.Selector).Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || strings.TrimSpace(href) == "" || isNonHTTPLink(href) {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})
	return links, nil
}

// resolveURL resolves a relative URL against a base URL and drops the fragment.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	return u.String()
}

func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StateMarkers are substrings identifying the script that carries the
// site's embedded application state.
var StateMarkers = []string{"window.state", "__NEXT_DATA__"}

// DiscoveryStrategy locates candidate payload content in a parsed page.
type DiscoveryStrategy struct {
	Name string
	Find func(doc *goquery.Document) (content string, ok bool)
}

// DefaultStrategies returns the discovery cascade in precedence order.
func DefaultStrategies() []DiscoveryStrategy {
	return []DiscoveryStrategy{
		{Name: "anchor", Find: AdjacentScript("#body-wrapper")},
		{Name: "state-marker", Find: InlineScriptContaining(StateMarkers...)},
		{Name: "contact-keys", Find: InlineScriptContaining(`"phoneNumber"`, `"contactInfo"`)},
		{Name: "last-script", Find: LastScript},
		{Name: "contact-mention", Find: InlineScriptMentioning("phone", "contact")},
	}
}

// Discover runs the strategies in order and returns the content found by
// the first that succeeds, along with that strategy's name.
func Discover(doc *goquery.Document, strategies []DiscoveryStrategy) (content string, strategy string, ok bool) {
	for _, s := range strategies {
		if content, ok := s.Find(doc); ok {
			return content, s.Name, true
		}
	}
	return "", "", false
}

// AdjacentScript finds the script element immediately following the
// element matched by anchor.
func AdjacentScript(anchor string) func(*goquery.Document) (string, bool) {
	selector := anchor + " + script"
	return func(doc *goquery.Document) (string, bool) {
		return nonEmpty(doc.Find(selector).First().Text())
	}
}

// InlineScriptContaining finds the first inline script containing any of
// the given substrings.
func InlineScriptContaining(tokens ...string) func(*goquery.Document) (string, bool) {
	return func(doc *goquery.Document) (string, bool) {
		return firstInline(doc, func(text string) bool {
			for _, tok := range tokens {
				if strings.Contains(text, tok) {
					return true
				}
			}
			return false
		})
	}
}

// InlineScriptMentioning is like InlineScriptContaining but matches words
// case-insensitively anywhere in the script.
func InlineScriptMentioning(words ...string) func(*goquery.Document) (string, bool) {
	return func(doc *goquery.Document) (string, bool) {
		return firstInline(doc, func(text string) bool {
			lower := strings.ToLower(text)
			for _, w := range words {
				if strings.Contains(lower, strings.ToLower(w)) {
					return true
				}
			}
			return false
		})
	}
}

// LastScript returns the content of the last script element in document order.
func LastScript(doc *goquery.Document) (string, bool) {
	return nonEmpty(doc.Find("script").Last().Text())
}

func firstInline(doc *goquery.Document, match func(string) bool) (string, bool) {
	var found string
	doc.Find("script:not([src])").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.TrimSpace(text) != "" && match(text) {
			found = text
			return false
		}
		return true
	})
	return nonEmpty(found)
}

func nonEmpty(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

package crawl

import "github.com/fwojciec/adharvest"

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9,ur;q=0.7",
	"en-PK,en;q=0.9,ur-PK;q=0.8",
}

// DefaultIdentities returns the rotation pool of simulated clients, each
// sending referer.
func DefaultIdentities(referer string) []adharvest.Identity {
	ids := make([]adharvest.Identity, len(userAgents))
	for i, ua := range userAgents {
		ids[i] = adharvest.Identity{
			UserAgent:      ua,
			AcceptLanguage: acceptLanguages[i%len(acceptLanguages)],
			Referer:        referer,
		}
	}
	return ids
}

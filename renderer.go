package adharvest

import "context"

// ResourceKind is a class of subresource a render session may block.
type ResourceKind string

// Resource kinds that carry nothing the scanner reads.
const (
	ResourceImage      ResourceKind = "image"
	ResourceStylesheet ResourceKind = "stylesheet"
	ResourceFont       ResourceKind = "font"
	ResourceMedia      ResourceKind = "media"
)

// NonEssentialResources lists the kinds blocked while scanning.
var NonEssentialResources = []ResourceKind{ResourceImage, ResourceStylesheet, ResourceFont, ResourceMedia}

// Renderer opens isolated browser sessions.
type Renderer interface {
	// Open returns a fresh session. The caller must Close it.
	Open(ctx context.Context) (RenderSession, error)

	// Close releases the browser.
	Close() error
}

// RenderSession is one isolated browser tab. Deadlines are carried by the
// context passed to each call.
type RenderSession interface {
	// Block aborts requests for the given resource kinds.
	Block(ctx context.Context, kinds ...ResourceKind) error

	// Navigate loads the URL and returns once the DOM content has loaded.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until an element matching the selector exists.
	WaitFor(ctx context.Context, selector string) error

	// Scroll scrolls the viewport down by one screen.
	Scroll(ctx context.Context) error

	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)

	Close() error
}

// Structural markers of the search-results page.
const (
	DefaultReadySelector   = "#body-wrapper"
	DefaultListingSelector = "#body-wrapper li.undefined article > div:last-child > a"
)

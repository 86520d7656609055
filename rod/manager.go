// Package rod renders pages in headless Chrome through go-rod.
package rod

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/adharvest"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the default number of pages before browser recycling.
const DefaultMaxPages = 75

// BrowserManager owns one Chrome process and replaces it after maxPages
// pages, since Chrome's resident memory only grows over a long crawl.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	pageCount int64
	maxPages  int64
	headless  bool
	noSandbox bool
	bin       string
	mu        sync.Mutex
	closed    atomic.Bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the maximum number of pages before the browser is recycled.
// Defaults to 75 if not specified.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithHeadless controls whether Chrome runs without a window. Defaults to true.
func WithHeadless(headless bool) ManagerOption {
	return func(bm *BrowserManager) {
		bm.headless = headless
	}
}

// WithNoSandbox disables the Chrome sandbox, required when running as root
// inside containers.
func WithNoSandbox(noSandbox bool) ManagerOption {
	return func(bm *BrowserManager) {
		bm.noSandbox = noSandbox
	}
}

// WithBin uses the Chrome binary at path instead of rod's managed download.
func WithBin(path string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.bin = path
	}
}

// NewBrowserManager creates a new BrowserManager that launches Chrome.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		headless: true,
	}
	for _, opt := range opts {
		opt(bm)
	}

	if err := bm.launchBrowser(); err != nil {
		return nil, err
	}

	return bm, nil
}

// Browser returns the current browser instance, recycling if the page count
// has reached maxPages. Returns EINVALID once the manager is closed.
func (bm *BrowserManager) Browser() (*rod.Browser, error) {
	if bm.closed.Load() {
		return nil, adharvest.Errorf(adharvest.EINVALID, "browser manager is closed")
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	if atomic.LoadInt64(&bm.pageCount) >= bm.maxPages {
		bm.recycleBrowser()
	}
	if bm.browser == nil {
		return nil, adharvest.Errorf(adharvest.EINVALID, "browser manager is closed")
	}
	return bm.browser, nil
}

// IncrementPageCount counts one opened page toward the recycling threshold.
func (bm *BrowserManager) IncrementPageCount() {
	atomic.AddInt64(&bm.pageCount, 1)
}

// Close releases browser resources. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	if !bm.closed.CompareAndSwap(false, true) {
		return nil
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	return bm.closeBrowser()
}

// launchBrowser starts a new browser instance with stability and
// automation-masking flags.
func (bm *BrowserManager) launchBrowser() error {
	lnchr := launcher.New().
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		NoSandbox(bm.noSandbox).
		Leakless(true).
		Headless(bm.headless)
	if bm.bin != "" {
		lnchr = lnchr.Bin(bm.bin)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	bm.browser = browser
	bm.launcher = lnchr
	return nil
}

// closeBrowser shuts down the current browser and launcher.
// Must be called with mu held.
func (bm *BrowserManager) closeBrowser() error {
	var err error
	if bm.browser != nil {
		err = bm.browser.Close()
		bm.browser = nil
	}
	if bm.launcher != nil {
		bm.launcher.Kill()
		bm.launcher = nil
	}
	return err
}

// recycleBrowser starts a fresh browser and closes the old one.
// If launching the new browser fails, the old browser is kept.
// Must be called with mu held.
func (bm *BrowserManager) recycleBrowser() {
	oldBrowser := bm.browser
	oldLauncher := bm.launcher
	bm.browser = nil
	bm.launcher = nil

	if err := bm.launchBrowser(); err != nil {
		bm.browser = oldBrowser
		bm.launcher = oldLauncher
		return
	}

	if oldBrowser != nil {
		_ = oldBrowser.Close()
	}
	if oldLauncher != nil {
		oldLauncher.Kill()
	}
	atomic.StoreInt64(&bm.pageCount, 0)
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.launcher == nil {
		return 0
	}
	return bm.launcher.PID()
}

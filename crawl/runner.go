package crawl

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/fwojciec/adharvest"
)

// Ensure GoroutineRunner implements adharvest.ScanRunner at compile time.
var _ adharvest.ScanRunner = (*GoroutineRunner)(nil)

// GoroutineRunner runs each scan on its own goroutine. A panic inside the
// scan is converted into an ESCAN result so it can never take down the
// coordinator.
type GoroutineRunner struct {
	Scanner adharvest.Scanner
}

// Start returns a channel that receives exactly one result and is then
// closed. The send never blocks, so an abandoned scan does not leak.
func (r *GoroutineRunner) Start(ctx context.Context, pageURL string) <-chan adharvest.ScanResult {
	ch := make(chan adharvest.ScanResult, 1)
	go func() {
		defer close(ch)
		defer func() {
			if v := recover(); v != nil {
				ch <- adharvest.ScanResult{
					Err: adharvest.Errorf(adharvest.ESCAN, "scan %s panicked: %v\n%s", pageURL, v, debug.Stack()),
				}
			}
		}()

		records, err := r.Scanner.Scan(ctx, pageURL)
		if err != nil && adharvest.ErrorCode(err) != adharvest.ESCAN {
			err = fmt.Errorf("scan %s: %w", pageURL, err)
		}
		ch <- adharvest.ScanResult{Records: records, Err: err}
	}()
	return ch
}

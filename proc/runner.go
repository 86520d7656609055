// Package proc runs page scans in child processes so a crashed or leaking
// browser session cannot take the coordinator down with it.
package proc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fwojciec/adharvest"
)

// DefaultWaitDelay is how long a canceled worker gets to exit after the
// interrupt signal before it is killed.
const DefaultWaitDelay = 10 * time.Second

// Report is the JSON document a scan worker writes to stdout.
type Report struct {
	Success bool                       `json:"success"`
	Records []*adharvest.ListingRecord `json:"records"`
	Message string                     `json:"message,omitempty"`
	Code    string                     `json:"code,omitempty"`
}

// WriteReport encodes the outcome of a scan to w.
func WriteReport(w io.Writer, records []*adharvest.ListingRecord, err error) error {
	r := Report{Success: err == nil, Records: records}
	if r.Records == nil {
		r.Records = []*adharvest.ListingRecord{}
	}
	if err != nil {
		r.Records = []*adharvest.ListingRecord{}
		r.Code = adharvest.ErrorCode(err)
		r.Message = adharvest.ErrorMessage(err)
		if r.Code == adharvest.EINTERNAL {
			r.Message = err.Error()
		}
	}
	return json.NewEncoder(w).Encode(r)
}

// Ensure Runner implements adharvest.ScanRunner at compile time.
var _ adharvest.ScanRunner = (*Runner)(nil)

// Runner starts one worker process per page: Path Args... scan <url>.
type Runner struct {
	// Path is the worker executable. Defaults to the running binary.
	Path string

	// Args are passed before the scan subcommand.
	Args []string

	// Env replaces the worker environment when non-nil.
	Env []string

	// Stderr receives the worker's log output. Discarded when nil.
	Stderr io.Writer

	// WaitDelay overrides DefaultWaitDelay.
	WaitDelay time.Duration
}

// Start launches the worker and returns a channel that receives exactly one
// result. A non-zero exit status fails the scan even if a report was written.
func (r *Runner) Start(ctx context.Context, pageURL string) <-chan adharvest.ScanResult {
	ch := make(chan adharvest.ScanResult, 1)
	go func() {
		defer close(ch)
		records, err := r.run(ctx, pageURL)
		ch <- adharvest.ScanResult{Records: records, Err: err}
	}()
	return ch
}

func (r *Runner) run(ctx context.Context, pageURL string) ([]*adharvest.ListingRecord, error) {
	path := r.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, adharvest.Errorf(adharvest.ESCAN, "scan %s: locate worker: %v", pageURL, err)
		}
		path = exe
	}

	args := append(append([]string{}, r.Args...), "scan", pageURL)
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	if r.Env != nil {
		cmd.Env = r.Env
	}
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, adharvest.Errorf(adharvest.ESCAN, "scan %s: %v", pageURL, ctx.Err())
	}

	var report Report
	decodeErr := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &report)

	var exitErr *exec.ExitError
	switch {
	case runErr != nil && !errors.As(runErr, &exitErr):
		return nil, adharvest.Errorf(adharvest.ESCAN, "scan %s: start worker: %v", pageURL, runErr)
	case decodeErr == nil && !report.Success:
		return nil, adharvest.Errorf(adharvest.ESCAN, "scan %s: %s", pageURL, strings.TrimSpace(report.Message))
	case runErr != nil:
		return nil, adharvest.Errorf(adharvest.ESCAN, "scan %s: worker exited with status %d", pageURL, exitErr.ExitCode())
	case decodeErr != nil:
		return nil, adharvest.Errorf(adharvest.ESCAN, "scan %s: decode worker report: %v", pageURL, decodeErr)
	}
	return report.Records, nil
}


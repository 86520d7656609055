package crawl

import (
	"fmt"
	"io"

	"github.com/fwojciec/adharvest"
)

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		// Too short for "..." prefix, just return dots
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatPosition renders "[n/total]" padded to the width of total.
func FormatPosition(n, total int) string {
	width := len(fmt.Sprint(total))
	return fmt.Sprintf("[%*d/%d]", width, n, total)
}

// PrintProgress returns a ProgressFunc writing one line per finished unit.
func PrintProgress(w io.Writer) ProgressFunc {
	return func(e ProgressEvent) {
		switch e.Type {
		case ProgressUnitCompleted:
			fmt.Fprintf(w, "%s %s  %d listings\n", FormatPosition(e.Completed, e.Total), e.Unit, e.Records)
		case ProgressUnitFailed:
			fmt.Fprintf(w, "%s %s  failed: %s\n", FormatPosition(e.Completed, e.Total), e.Unit, adharvest.ErrorMessage(e.Error))
		}
	}
}

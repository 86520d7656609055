package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/adharvest"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	checkpoints, _, err := deps.Main.stores(cfg, "")
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adharvest.ErrorMessage(err))
		return err
	}

	cp, err := checkpoints.Load(deps.Ctx)
	if err != nil && adharvest.ErrorCode(err) != adharvest.ECORRUPT {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adharvest.ErrorMessage(err))
		return err
	}
	corrupt := err != nil

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cp)
	}

	if corrupt {
		fmt.Fprintln(deps.Stdout, "Checkpoint unreadable, the next run starts from the first unit")
	}
	fmt.Fprintf(deps.Stdout, "Checkpoint: regionIndex=%d categoryCode=%d pageNumber=%d\n",
		cp.RegionIndex, cp.CategoryCode, cp.PageNumber)

	u, err := cp.Unit(cfg.Crawl.Space)
	if err != nil {
		fmt.Fprintf(deps.Stdout, "Checkpoint is outside the crawl space: %s\n", adharvest.ErrorMessage(err))
		return nil
	}
	fmt.Fprintf(deps.Stdout, "Next: %s (%d of %d)\n", u, cfg.Crawl.Space.Index(u)+1, cfg.Crawl.Space.Len())
	fmt.Fprintf(deps.Stdout, "URL: %s\n", cfg.Crawl.URL.URL(u))

	if s, ok := checkpoints.(interface {
		UpdatedAt(ctx context.Context) (time.Time, error)
	}); ok {
		if at, err := s.UpdatedAt(deps.Ctx); err == nil {
			fmt.Fprintf(deps.Stdout, "Updated: %s\n", at.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

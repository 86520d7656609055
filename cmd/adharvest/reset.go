package main

import (
	"fmt"

	"github.com/fwojciec/adharvest"
)

// Run executes the reset command.
func (c *ResetCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintln(deps.Stderr, "Resetting restarts the next run from the first unit. Use --force to confirm.")
		return adharvest.Errorf(adharvest.EINVALID, "reset requires --force")
	}

	checkpoints, _, err := deps.Main.stores(deps.Config, "")
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adharvest.ErrorMessage(err))
		return err
	}
	if err := checkpoints.Reset(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adharvest.ErrorMessage(err))
		return err
	}

	cp := adharvest.InitialCheckpoint(deps.Config.Crawl.Space)
	fmt.Fprintf(deps.Stdout, "Checkpoint reset to regionIndex=%d categoryCode=%d pageNumber=%d\n",
		cp.RegionIndex, cp.CategoryCode, cp.PageNumber)
	return nil
}

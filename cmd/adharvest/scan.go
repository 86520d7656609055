package main

import (
	"github.com/fwojciec/adharvest/proc"
	adprom "github.com/fwojciec/adharvest/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Run executes the scan command. The JSON report on stdout is the only
// output; logs go to stderr.
func (c *ScanCmd) Run(deps *Dependencies) error {
	ctx := deps.Ctx
	cfg := deps.Config
	m := deps.Main
	logger := deps.Logger.With(zap.String("run_id", c.RunID), zap.String("url", c.URL))

	visited, persist, err := m.visited(ctx, cfg, c.RunID, c.VisitedFile)
	if err != nil {
		_ = proc.WriteReport(deps.Stdout, nil, err)
		return err
	}

	scanner, err := m.scanner(cfg, visited, logger, adprom.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		_ = proc.WriteReport(deps.Stdout, nil, err)
		return err
	}

	records, scanErr := scanner.Scan(ctx, c.URL)
	if err := persist(); err != nil {
		logger.Warn("persist visited set", zap.String("file", c.VisitedFile), zap.Error(err))
	}
	if err := proc.WriteReport(deps.Stdout, records, scanErr); err != nil {
		return err
	}
	return scanErr
}

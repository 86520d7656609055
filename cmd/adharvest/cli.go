package main

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Dependencies holds configuration and services for command execution.
type Dependencies struct {
	Ctx        context.Context
	Stdout     io.Writer
	Stderr     io.Writer
	Config     Config
	ConfigPath string
	Logger     *zap.Logger

	// Main builds the services each command needs.
	Main *Main
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config string `short:"c" type:"path" help:"Config file (YAML, JSON or TOML)"`

	Run    RunCmd    `cmd:"" help:"Crawl every unit from the stored checkpoint"`
	Scan   ScanCmd   `cmd:"" help:"Scan one search-results page and print a JSON report"`
	Status StatusCmd `cmd:"" help:"Show the stored checkpoint and the next page to crawl"`
	Reset  ResetCmd  `cmd:"" help:"Reset the checkpoint to the first unit"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Isolation string `help:"Override crawl.isolation (process or goroutine)"`
}

// ScanCmd is the "scan" subcommand, normally started by "run".
type ScanCmd struct {
	URL         string `arg:"" help:"Search-results page URL"`
	RunID       string `name:"run-id" env:"ADHARVEST_RUN_ID" help:"Run the visited set belongs to"`
	VisitedFile string `name:"visited-file" env:"ADHARVEST_VISITED_FILE" help:"File holding the run's visited set"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct {
	JSON bool `help:"Print the checkpoint as JSON"`
}

// ResetCmd is the "reset" subcommand.
type ResetCmd struct {
	Force bool `help:"Confirm reset"`
}

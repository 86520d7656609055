package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/adharvest"
	adzap "github.com/fwojciec/adharvest/zap"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := SignalContext(context.Background())
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if adharvest.ErrorCode(err) == adharvest.EINTERRUPTED {
			fmt.Fprintln(os.Stderr, adharvest.ErrorMessage(err))
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SignalContext returns a context canceled by the first SIGINT or SIGTERM.
// The default handlers are restored as soon as it is canceled, so a second
// signal terminates the process while shutdown is still running.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

// Main represents the program.
type Main struct {
	// Config, when non-nil, replaces loading from file and environment.
	Config *Config

	// Logger, when non-nil, replaces the configured logger.
	Logger *zap.Logger

	// Services for end-to-end testing. Nil fields are built from Config.
	Checkpoints adharvest.CheckpointStore
	Records     adharvest.RecordStore
	Runner      adharvest.ScanRunner

	// NewScanner, when non-nil, replaces the browser-backed scanner.
	NewScanner func(visited adharvest.VisitedSet) adharvest.Scanner

	closers []func() error
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close releases everything opened while wiring a command.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

func (m *Main) onClose(fn func() error) {
	m.closers = append(m.closers, fn)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Main:   m,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("adharvest"),
		kong.Description("Crawl vehicle classified ads into a local CSV and its remote mirror."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'adharvest --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if m.Config != nil {
		deps.Config = *m.Config
	} else {
		cfg, err := LoadConfig(cli.Config)
		if err != nil {
			fmt.Fprintf(stderr, "Hint: settings can be overridden with ADHARVEST_* environment variables\n")
			return err
		}
		deps.Config = cfg
	}
	deps.ConfigPath = cli.Config

	deps.Logger = m.Logger
	if deps.Logger == nil {
		logger, err := adzap.NewLogger(deps.Config.Log.Development)
		if err != nil {
			return err
		}
		deps.Logger = logger
		defer func() { _ = logger.Sync() }()
	}
	defer m.Close()

	return kongCtx.Run(deps)
}

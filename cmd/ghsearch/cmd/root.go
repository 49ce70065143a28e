// Package cmd provides the ghsearch command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ghsearch/internal/alert"
	"ghsearch/internal/config"
	"ghsearch/internal/eventbus"
	"ghsearch/internal/github"
	"ghsearch/internal/logging"
	"ghsearch/internal/search"
	"ghsearch/internal/ui"
)

type rootOptions struct {
	configPath  string
	debounce    time.Duration
	alert       time.Duration
	endpoint    string
	plain       bool
	debug       bool
	writeConfig bool
}

// NewRootCmd creates the root command for the ghsearch CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ghsearch [query]",
		Short: "Search GitHub users as you type",
		Long: `ghsearch searches GitHub users while you type. A search starts once
typing pauses, and only the answer for the latest query is shown.

When stdout is not a terminal, or with --plain, each line read from stdin is
treated as the query and every settled result is printed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			return run(cmd, opts, query)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "Quiet period before a query is searched")
	cmd.Flags().DurationVar(&opts.alert, "alert", 0, "How long an error alert stays visible")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "User search endpoint")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Line mode: read queries from stdin, print results")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.writeConfig, "write-config", false, "Write the effective config to the config file and exit")

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func run(cmd *cobra.Command, opts *rootOptions, query string) error {
	// Config events are held on the bus until the event log starts
	bus := eventbus.New(nil)
	defer bus.Close()
	events := newEventLog()
	events.subscribe(bus)
	defer events.start(slog.Default())

	svc := config.NewConfigServiceWithBus(opts.configPath, bus)
	cfg, err := svc.Load()
	if err != nil {
		return err
	}
	applyFlags(cfg, opts, cmd.Flags())
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if opts.writeConfig {
		if err := svc.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", svc.Path())
		return nil
	}

	plain := opts.plain || !isTerminal(cmd.OutOrStdout())

	logger, cleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Log.Level,
		FilePath:      cfg.Log.File,
		WriteToStderr: plain && opts.debug,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)
	events.start(logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	client, err := github.NewClient(cfg.Search.Endpoint,
		github.WithToken(cfg.Search.Token),
		github.WithUserAgent(cfg.Search.UserAgent),
		github.WithRequestsPerMinute(cfg.Search.RequestsPerMinute),
		github.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctrl := search.NewController(client, alert.New(cfg.AlertWindow()), bus,
		search.WithDebounce(cfg.DebounceDelay()),
		search.WithLogger(logger),
		search.WithContext(ctx),
	)
	defer ctrl.Close()

	logger.Info("ghsearch starting",
		slog.String("endpoint", client.Endpoint()),
		slog.Duration("debounce", ctrl.DebounceDelay()),
		slog.Bool("plain", plain),
	)

	if plain {
		var in io.Reader = cmd.InOrStdin()
		if query != "" {
			in = io.MultiReader(strings.NewReader(query+"\n"), in)
		}
		err := ui.RunPlain(ctx, ctrl, in, cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	model := ui.NewModel(ctrl, cfg, logger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.SetProgram(p)

	unsubscribe := ctrl.Subscribe(ui.Forward(p))
	defer unsubscribe()
	model.SetQuery(query)

	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// applyFlags overrides config values with flags set on the command line
func applyFlags(cfg *config.Config, opts *rootOptions, flags *pflag.FlagSet) {
	if flags.Changed("debounce") {
		cfg.Timing.DebounceMS = int(opts.debounce / time.Millisecond)
	}
	if flags.Changed("alert") {
		cfg.Timing.AlertMS = int(opts.alert / time.Millisecond)
	}
	if flags.Changed("endpoint") {
		cfg.Search.Endpoint = opts.endpoint
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
}

// eventLog records bus activity at debug level. Handlers block until start
// is called; events published before then are logged once it is.
type eventLog struct {
	ready  chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newEventLog() *eventLog {
	return &eventLog{ready: make(chan struct{})}
}

func (l *eventLog) subscribe(bus eventbus.EventBus) {
	for _, t := range []eventbus.EventType{
		eventbus.EventConfigLoaded,
		eventbus.EventConfigSaved,
		eventbus.EventQuerySettled,
		eventbus.EventSearchStarted,
		eventbus.EventSearchCompleted,
		eventbus.EventSearchFailed,
		eventbus.EventSearchDiscarded,
		eventbus.EventAlertExpired,
	} {
		bus.Subscribe(t, l.handle)
	}
}

// start releases held events to logger. Later calls are no-ops.
func (l *eventLog) start(logger *slog.Logger) {
	l.once.Do(func() {
		l.logger = logger
		close(l.ready)
	})
}

func (l *eventLog) handle(e eventbus.DomainEvent) {
	<-l.ready
	l.logger.Debug("event", slog.String("type", string(e.Type())), slog.Any("event", e))
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/ferry/internal/attrs"
	"github.com/bamsammich/ferry/internal/config"
	"github.com/bamsammich/ferry/internal/engine"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/ledger"
	"github.com/bamsammich/ferry/internal/meta"
	"github.com/bamsammich/ferry/internal/stats"
	"github.com/bamsammich/ferry/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// excludeFlag is a custom pflag.Value that appends each --exclude pattern
// to a shared filter.Chain as it is parsed.
type excludeFlag struct {
	chain *filter.Chain
}

var _ pflag.Value = (*excludeFlag)(nil)

func (*excludeFlag) String() string { return "" }
func (*excludeFlag) Type() string   { return "pattern" }

func (f *excludeFlag) Set(val string) error {
	return f.chain.AddExclude(val)
}

// options holds every flag of the root command.
type options struct {
	reset       bool
	compare     bool
	shallow     bool
	noLedger    bool
	ledgerDir   string
	attempts    int
	excludeFrom []string
	attrRetries int
	maxPasses   int
	invalidate  string
	copier      string
	verbose     bool
	quiet       bool
	noProgress  bool
	logFile     string
	showVersion bool
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: main CLI entry point wires every component
func run() int {
	var opts options
	chain := filter.NewChain()

	rootCmd := &cobra.Command{
		Use:   "ferry [flags] <source> <destination>",
		Short: "Resumable copy of large directory trees",
		Long: `Copy a directory tree to a new location, keeping a ledger of entries that
failed so an interrupted or partially failed transfer can be run again and
pick up where it left off.

Files are copied first, then directories. Entries that failed are retried
until they succeed or reach the attempt limit. Extended metadata (extended
attributes, Finder tags, the stationery flag) is then reconciled for every
entry that made it across.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(os.Stdout, "ferry %s\n", version)
				return nil
			}

			// Load optional config file.
			cfg, cfgErr := config.Load()
			applyConfigDefaults(cmd, cfg.Defaults, &opts)
			for _, p := range cfg.Defaults.Exclude {
				if err := chain.AddExclude(p); err != nil {
					return fmt.Errorf("config exclude: %w", err)
				}
			}
			ui.ApplyTheme(cfg.Theme)

			// Configure logging.
			logLevel := slog.LevelInfo
			if opts.verbose {
				logLevel = slog.LevelDebug
			} else if opts.quiet {
				logLevel = slog.LevelWarn
			}
			textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			var logHandler slog.Handler = textHandler
			if opts.logFile != "" {
				lf, lfErr := os.Create(opts.logFile)
				if lfErr != nil {
					return fmt.Errorf("open log file: %w", lfErr)
				}
				defer lf.Close()
				jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})
				logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
			}
			logger := slog.New(logHandler)
			slog.SetDefault(logger)

			if cfgErr != nil {
				slog.Warn("failed to load config", "path", config.Path(), "error", cfgErr)
			}

			invalidate, err := engine.ParseInvalidation(opts.invalidate)
			if err != nil {
				return fmt.Errorf("invalid --invalidate: %w", err)
			}
			copier, err := newCopier(opts.copier, logger)
			if err != nil {
				return err
			}

			for _, f := range opts.excludeFrom {
				if err := chain.LoadFile(f); err != nil {
					return fmt.Errorf("load exclude file: %w", err)
				}
			}

			src, dst, ledgerPath, err := ledgerLocation(args[0], args[1], opts.ledgerDir)
			if err != nil {
				return err
			}

			var store ledger.Store
			if opts.noLedger {
				store = ledger.NewMemory()
			} else {
				sq, err := ledger.OpenSQLite(ledgerPath, src, dst)
				if err != nil {
					return fmt.Errorf("open ledger: %w", err)
				}
				store = sq
				slog.Debug("ledger opened", "path", ledgerPath)
			}
			defer store.Close()

			for _, p := range ledgerExcludes(opts.ledgerDir) {
				if err := chain.AddExclude(p); err != nil {
					return fmt.Errorf("ledger exclude: %w", err)
				}
			}

			// Set up context with signal handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer func() {
				if n := engine.CleanupTmpFiles(); n > 0 {
					slog.Debug("removed partial files", "count", n)
				}
			}()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)

			// When --log is set, tee events into the structured log
			// before forwarding them to the presenter.
			var presenterEvents <-chan event.Event = events
			if opts.logFile != "" {
				presenterEvents = ui.TeeEvents(events, logger)
			}

			presenter := ui.NewPresenter(ui.Config{
				Writer:     os.Stdout,
				ErrWriter:  os.Stderr,
				Stats:      collector,
				SrcRoot:    src,
				IsTTY:      ui.IsTTY(os.Stderr.Fd()),
				Width:      ui.Width(os.Stderr),
				Quiet:      opts.quiet,
				Verbose:    opts.verbose,
				NoProgress: opts.noProgress,
			})

			engineCfg := engine.Config{
				Src: src,
				Dst: dst,
				Options: engine.Options{
					Attempts:    opts.attempts,
					Compare:     opts.compare,
					Shallow:     opts.shallow,
					AttrRetries: opts.attrRetries,
					MaxPasses:   opts.maxPasses,
					Invalidate:  invalidate,
				},
				Reset:  opts.reset,
				Filter: chain,
				Ledger: store,
				Copier: copier,
				Meta:   &meta.XattrProvider{},
				AttrFS: attrs.OS{},
				Stats:  collector,
				Events: events,
				Logger: logger,
			}

			slog.Debug("starting transfer",
				"src", src,
				"dst", dst,
				"attempts", opts.attempts,
				"compare", opts.compare,
				"shallow", opts.shallow,
				"copier", opts.copier,
				"excludes", chain.Patterns(),
			)

			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			result := engine.Run(ctx, engineCfg)
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if !opts.quiet {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
				ui.WriteReport(os.Stderr, ui.FinalReport{
					Unresolved: result.Unresolved,
					Meta:       result.Meta,
					Attempts:   opts.attempts,
					SrcRoot:    src,
				})
			}
			slog.Debug("transfer finished", "stats", result.Stats.String(), "passes", result.Passes)

			switch {
			case errors.Is(result.Err, context.Canceled):
				slog.Warn("interrupted; run again to resume", "ledger", ledgerPath)
				return &exitError{code: 2}
			case result.Err != nil:
				slog.Error("transfer failed", "error", result.Err)
				return &exitError{code: 2}
			case len(result.Unresolved) > 0:
				return &exitError{code: 1}
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&opts.showVersion, "version", false, "print version and exit")

	rootCmd.Flags().BoolVarP(&opts.reset, "reset", "r", false, "forget recorded failures before starting")
	rootCmd.Flags().
		BoolVarP(&opts.compare, "compare", "c", false, "recreate destination files that differ from their source")
	rootCmd.Flags().
		BoolVarP(&opts.shallow, "shallow", "s", false, "compare files by size and mtime before reading contents")
	rootCmd.Flags().BoolVar(&opts.noLedger, "no-ledger", false, "keep failures in memory only")
	rootCmd.Flags().
		StringVar(&opts.ledgerDir, "ledger-dir", "", "directory for ledger databases (default: <source>/"+ledger.DirName+")")
	rootCmd.Flags().
		IntVarP(&opts.attempts, "attempts", "a", engine.DefaultAttempts, "attempts per entry before giving up")
	rootCmd.Flags().
		VarP(&excludeFlag{chain: chain}, "exclude", "e", "exclude paths matching PATTERN (repeatable)")
	rootCmd.Flags().
		StringArrayVar(&opts.excludeFrom, "exclude-from", nil, "read exclude patterns from FILE (repeatable)")
	rootCmd.Flags().
		IntVar(&opts.attrRetries, "attr-retries", attrs.DefaultRetries, "apply-and-verify cycles for timestamps and flags")
	rootCmd.Flags().
		IntVar(&opts.maxPasses, "max-passes", 0, "limit retry passes (0: until every entry succeeds or gives up)")
	rootCmd.Flags().
		StringVar(&opts.invalidate, "invalidate", string(engine.InvalidateNone), "drop ledger records whose source changed (none or changed)")
	rootCmd.Flags().StringVar(&opts.copier, "copier", "native", "copy mechanism (native or cp)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the live progress line")
	rootCmd.Flags().StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Register subcommands.
	rootCmd.AddCommand(newLedgerCmd())
	rootCmd.AddCommand(newDocsCmd())

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	return 0
}

func newCopier(name string, logger *slog.Logger) (engine.Copier, error) { //nolint:ireturn // selects an implementation
	switch name {
	case "", "native":
		return &engine.NativeCopier{Logger: logger}, nil
	case "cp":
		return &engine.ExecCopier{}, nil
	default:
		return nil, fmt.Errorf("unknown --copier %q (use native or cp)", name)
	}
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) {
	changed := cmd.Flags().Changed
	if !changed("attempts") && defaults.Attempts != nil {
		opts.attempts = *defaults.Attempts
	}
	if !changed("compare") && defaults.Compare != nil {
		opts.compare = *defaults.Compare
	}
	if !changed("shallow") && defaults.Shallow != nil {
		opts.shallow = *defaults.Shallow
	}
	if !changed("ledger-dir") && defaults.LedgerDir != nil {
		opts.ledgerDir = *defaults.LedgerDir
	}
	if !changed("attr-retries") && defaults.AttrRetries != nil {
		opts.attrRetries = *defaults.AttrRetries
	}
	if !changed("max-passes") && defaults.MaxPasses != nil {
		opts.maxPasses = *defaults.MaxPasses
	}
	if !changed("invalidate") && defaults.Invalidate != nil {
		opts.invalidate = *defaults.Invalidate
	}
	if !changed("copier") && defaults.Copier != nil {
		opts.copier = *defaults.Copier
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/morphic/internal/config"
	"github.com/roach88/morphic/internal/ir"
)

// RootOptions holds global flags for all commands, plus the configuration
// and logger built from them before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg    *config.Config
	Logger *zap.Logger
}

// Config returns the loaded configuration, or the defaults when the root
// pre-run hook has not executed.
func (o *RootOptions) Config() config.Config {
	if o.cfg == nil {
		return config.Default()
	}
	return *o.cfg
}

// Log returns the command logger, never nil.
func (o *RootOptions) Log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the morphic CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "morphic",
		Short:   "morphic - adaptive mutation engine",
		Version: ir.EngineVersion,
		Long: `Evolve organism configuration graphs from observed usage.

Each cycle classifies usage patterns, proposes mutations, measures their
drift and applies the batch only when the drift clears the threshold.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.cfg = &cfg

			logger, err := newLogger(cfg.Log.Level, opts.Verbose)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize logger", err)
			}
			opts.Logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (YAML)")

	// Add subcommands
	cmd.AddCommand(NewClassifyCommand(opts))
	cmd.AddCommand(NewFitnessCommand(opts))
	cmd.AddCommand(NewEvolveCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// newLogger builds a production zap logger writing to stderr. Verbose forces
// debug level regardless of the configured level.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.OutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

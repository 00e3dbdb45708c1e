package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/morphic/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	EvolveOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{EvolveOptions: EvolveOptions{RootOptions: rootOpts, Cycles: 1}}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Evolve whenever patterns or feedback change",
		Long: `Run one evolve cycle now, then another each time the patterns or
feedback file is saved.

Without --id the organism file is rewritten after every cycle so that
generations accumulate. With --id every cycle is committed to the
database. Stop with Ctrl-C.

Examples:
  morphic watch --organism seed.yaml -p patterns.yaml -f feedback.yaml
  morphic watch --db morphic.db --id glow -p patterns.yaml -f feedback.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	addEvolveFlags(cmd, &opts.EvolveOptions)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "quiet period before a change triggers a cycle")
	_ = cmd.MarkFlagRequired("patterns")
	_ = cmd.MarkFlagRequired("feedback")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	evolve := opts.EvolveOptions
	if evolve.ID == "" {
		if evolve.Organism == "" {
			return formatter.Fail(NewExitError(ExitCommandError, "either --organism or --id is required"))
		}
		evolve.InPlace = true
	}
	log := opts.Log()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func(ctx context.Context) {
		result, err := runEvolve(ctx, &evolve)
		if err != nil {
			// Keep watching: the next save may fix the input.
			_ = formatter.Fail(err)
			log.Warn("evolve failed", zap.Error(err))
			return
		}
		_ = formatter.Success(result)
	}

	w, err := watch.New([]string{evolve.Patterns, evolve.Feedback}, func(ctx context.Context, paths []string) {
		log.Info("inputs changed", zap.Strings("paths", paths))
		runOnce(ctx)
	}, watch.WithDebounce(opts.Debounce), watch.WithLogger(log))
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to create watcher", err))
	}

	runOnce(ctx)

	if err := w.Start(ctx); err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to start watcher", err))
	}
	defer w.Stop()
	formatter.VerboseLog("watching %s and %s", evolve.Patterns, evolve.Feedback)

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	return nil
}

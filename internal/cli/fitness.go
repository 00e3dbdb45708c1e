package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/store"
)

// FitnessOptions holds flags for the fitness command.
type FitnessOptions struct {
	*RootOptions
	Patterns string
	Feedback string
	DBPath   string
	ID       string
	NowMs    int64
}

// FitnessResult is the fitness command payload.
type FitnessResult struct {
	Fitness    float64 `json:"fitness"`
	OrganismID string  `json:"organism_id,omitempty"`
	Generation int64   `json:"generation,omitempty"`
	Recorded   bool    `json:"recorded"`
}

// RenderText prints the score and, if recorded, where it went.
func (r FitnessResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "fitness: %.6f\n", r.Fitness)
	if r.Recorded {
		fmt.Fprintf(w, "recorded for %s at generation %d\n", r.OrganismID, r.Generation)
	}
}

// NewFitnessCommand creates the fitness command.
func NewFitnessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FitnessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "Score usage and feedback",
		Long: `Compute the fitness score in [0, 1] for a window of usage patterns and
ecosystem feedback.

With --db and --id the score is also recorded against the organism's
current generation.

Exit codes:
  0 - Fitness computed
  1 - Invalid input (for example, no patterns)
  2 - Command error

Examples:
  morphic fitness --patterns patterns.yaml --feedback feedback.yaml
  morphic fitness -p patterns.yaml -f feedback.yaml --db morphic.db --id glow`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFitness(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Patterns, "patterns", "p", "", "usage patterns file (required)")
	cmd.Flags().StringVarP(&opts.Feedback, "feedback", "f", "", "ecosystem feedback file (required)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database to record the score in (default: store.path from config)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "organism to record the score for")
	cmd.Flags().Int64Var(&opts.NowMs, "now", 0, "record timestamp in epoch milliseconds (default: current time)")
	_ = cmd.MarkFlagRequired("patterns")
	_ = cmd.MarkFlagRequired("feedback")

	return cmd
}

func runFitness(cmd *cobra.Command, opts *FitnessOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	patterns, err := readPatterns(opts.Patterns)
	if err != nil {
		return formatter.Fail(err)
	}
	fb, err := readFeedback(opts.Feedback)
	if err != nil {
		return formatter.Fail(err)
	}

	f, err := engine.Fitness(patterns, fb)
	if err != nil {
		return formatter.Fail(classifyError("fitness evaluation failed", err))
	}
	result := FitnessResult{Fitness: f}

	if opts.ID == "" {
		return formatter.Success(result)
	}

	dbPath := resolveDB(opts.DBPath, opts.RootOptions)
	if dbPath == "" {
		return formatter.Fail(NewExitError(ExitCommandError, "--id requires --db or store.path in config"))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(storeErr("failed to open database", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	org, err := st.LoadOrganism(ctx, opts.ID)
	if err != nil {
		return formatter.Fail(classifyError(fmt.Sprintf("failed to load organism %s", opts.ID), err))
	}
	ts := clockFor(opts.NowMs).Now().UnixMilli()
	if err := st.RecordFitness(ctx, opts.ID, org.Generation, f, ts); err != nil {
		return formatter.Fail(storeErr("failed to record fitness", err))
	}
	opts.Log().Info("fitness recorded",
		zap.String("organism", opts.ID),
		zap.Int64("generation", org.Generation),
		zap.Float64("fitness", f))

	result.OrganismID = opts.ID
	result.Generation = org.Generation
	result.Recorded = true
	return formatter.Success(result)
}

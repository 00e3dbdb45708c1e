package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/ir"
	"github.com/roach88/morphic/internal/loader"
	"github.com/roach88/morphic/internal/store"
)

// EvolveOptions holds flags for the evolve command.
type EvolveOptions struct {
	*RootOptions
	Organism string // seed or working organism file
	Patterns string
	Feedback string
	DBPath   string
	ID       string
	Out      string // write the evolved organism here
	InPlace  bool   // write the evolved organism back to Organism
	Cycles   int
	Seed     uint64
	NowMs    int64
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	Cycle          int                   `json:"cycle"`
	Classification engine.Classification `json:"classification"`
	Proposed       int                   `json:"proposed"`
	Magnitude      float64               `json:"magnitude"`
	Applied        bool                  `json:"applied"`
	Mutations      []ir.Mutation         `json:"mutations"`
	BatchID        string                `json:"batch_id,omitempty"`
}

// EvolveResult is the evolve command payload.
type EvolveResult struct {
	OrganismID      string        `json:"organism_id,omitempty"`
	StartGeneration int64         `json:"start_generation"`
	Generation      int64         `json:"generation"`
	Digest          string        `json:"digest"`
	Cycles          []CycleReport `json:"cycles"`
	Fitness         *float64      `json:"fitness,omitempty"`
	Output          string        `json:"output,omitempty"`
}

// RenderText prints one line per cycle and a summary.
func (r *EvolveResult) RenderText(w io.Writer) {
	for _, c := range r.Cycles {
		mark := "·"
		if c.Applied {
			mark = "✓"
		}
		targets := make([]string, len(c.Mutations))
		for i, m := range c.Mutations {
			targets[i] = fmt.Sprintf("%s %s", m.Type, m.Target)
		}
		fmt.Fprintf(w, "%s cycle %d: %d proposed, magnitude %.4f", mark, c.Cycle, c.Proposed, c.Magnitude)
		if len(targets) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(targets, "; "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "generation %d -> %d\n", r.StartGeneration, r.Generation)
	if r.Fitness != nil {
		fmt.Fprintf(w, "fitness %.6f\n", *r.Fitness)
	}
	if r.Output != "" {
		fmt.Fprintf(w, "wrote %s\n", r.Output)
	}
}

// NewEvolveCommand creates the evolve command.
func NewEvolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Run mutation cycles against an organism",
		Long: `Run one or more mutation cycles: classify patterns, generate mutations,
compute drift and apply the batch when it clears the drift threshold.

The organism comes from a file (--organism) or from the database
(--db with --id). Given both, the file seeds the database the first
time the id is seen; later runs continue from the stored state.

Exit codes:
  0 - Cycles completed (whether or not a batch was applied)
  1 - Invalid input, path conflict, or a concurrent writer moved the organism
  2 - Command error

Examples:
  morphic evolve --organism seed.yaml -p patterns.yaml -f feedback.yaml
  morphic evolve --organism seed.json -p patterns.json -f feedback.json --in-place
  morphic evolve --db morphic.db --id glow -p patterns.yaml -f feedback.yaml --cycles 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			result, err := runEvolve(cmd.Context(), opts)
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Success(result)
		},
	}

	addEvolveFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the evolved organism to this file")
	cmd.Flags().BoolVar(&opts.InPlace, "in-place", false, "write the evolved organism back to --organism")
	cmd.Flags().IntVarP(&opts.Cycles, "cycles", "n", 1, "number of cycles to run")
	_ = cmd.MarkFlagRequired("patterns")
	_ = cmd.MarkFlagRequired("feedback")

	return cmd
}

// addEvolveFlags registers the flags evolve and watch share.
func addEvolveFlags(cmd *cobra.Command, opts *EvolveOptions) {
	cmd.Flags().StringVar(&opts.Organism, "organism", "", "organism file (JSON, YAML or CUE)")
	cmd.Flags().StringVarP(&opts.Patterns, "patterns", "p", "", "usage patterns file (required)")
	cmd.Flags().StringVarP(&opts.Feedback, "feedback", "f", "", "ecosystem feedback file (required)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database path (default: store.path from config)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "organism id in the database")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default: seed from config, else time-based)")
	cmd.Flags().Int64Var(&opts.NowMs, "now", 0, "evaluation time in epoch milliseconds (default: current time)")
}

// runEvolve executes opts.Cycles cycles and persists the outcome.
func runEvolve(ctx context.Context, opts *EvolveOptions) (*EvolveResult, error) {
	if opts.Cycles < 1 {
		return nil, NewExitError(ExitCommandError, "--cycles must be at least 1")
	}
	useDB := opts.ID != ""
	if !useDB && opts.Organism == "" {
		return nil, NewExitError(ExitCommandError, "either --organism or --id is required")
	}
	if opts.InPlace && opts.Out != "" {
		return nil, NewExitError(ExitCommandError, "--in-place and --out are mutually exclusive")
	}
	if opts.InPlace && opts.Organism == "" {
		return nil, NewExitError(ExitCommandError, "--in-place requires --organism")
	}

	patterns, err := readPatterns(opts.Patterns)
	if err != nil {
		return nil, err
	}
	fb, err := readFeedback(opts.Feedback)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config()
	seed := seedFor(opts.Seed, cfg.Seed)
	clock := clockFor(opts.NowMs)
	log := opts.Log().With(zap.Uint64("seed", seed))
	if useDB {
		log = log.With(zap.String("organism", opts.ID))
	}

	var st *store.Store
	var org *ir.Organism
	if useDB {
		dbPath := resolveDB(opts.DBPath, opts.RootOptions)
		if dbPath == "" {
			return nil, NewExitError(ExitCommandError, "--id requires --db or store.path in config")
		}
		st, err = store.Open(dbPath, store.WithClock(clock))
		if err != nil {
			return nil, storeErr("failed to open database", err)
		}
		defer st.Close()

		org, err = loadStored(ctx, st, opts, log)
	} else {
		org, err = loader.LoadOrganism(opts.Organism)
		if err != nil {
			err = loadErr("organism", opts.Organism, err)
		}
	}
	if err != nil {
		return nil, err
	}

	eng := engine.New(
		engine.WithThresholds(cfg.Engine),
		engine.WithRand(engine.NewSeededRand(seed)),
		engine.WithClock(clock),
		engine.WithLogger(log),
	)

	result := &EvolveResult{
		OrganismID:      opts.ID,
		StartGeneration: org.Generation,
		Cycles:          make([]CycleReport, 0, opts.Cycles),
	}

	for i := 1; i <= opts.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapExitError(ExitCommandError, "interrupted", err)
		}

		prev := org.Generation
		res, err := eng.Cycle(org, patterns, fb)
		if err != nil {
			return nil, classifyError(fmt.Sprintf("cycle %d failed", i), err)
		}

		report := CycleReport{
			Cycle:          i,
			Classification: res.Classification,
			Proposed:       len(res.Proposed),
			Magnitude:      res.Vector.Magnitude,
			Applied:        res.Applied,
			Mutations:      res.Mutations,
		}
		if report.Mutations == nil {
			report.Mutations = []ir.Mutation{}
		}
		if res.Applied && st != nil {
			report.BatchID, err = st.CommitCycle(ctx, opts.ID, org, prev)
			if err != nil {
				if errors.Is(err, store.ErrGenerationConflict) {
					return nil, classifyError("organism changed during evolve", err)
				}
				return nil, storeErr("failed to commit cycle", err)
			}
		}
		result.Cycles = append(result.Cycles, report)
	}

	result.Generation = org.Generation
	if result.Digest, err = ir.OrganismDigest(org); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to digest organism", err)
	}

	if f, err := eng.Evaluate(patterns, fb); err != nil {
		log.Warn("fitness not evaluated", zap.Error(err))
	} else {
		result.Fitness = &f
		if st != nil {
			if err := st.RecordFitness(ctx, opts.ID, org.Generation, f, clock.Now().UnixMilli()); err != nil {
				return nil, storeErr("failed to record fitness", err)
			}
		}
	}

	out := opts.Out
	if opts.InPlace {
		out = opts.Organism
	}
	if out != "" {
		if err := loader.WriteOrganism(out, org); err != nil {
			return nil, &ExitError{Code: ExitCommandError, ErrCode: ErrCodeWriteFailed, Message: "failed to write organism", Err: err}
		}
		result.Output = out
	}

	return result, nil
}

// loadStored loads opts.ID from st. When the id is unknown and an organism
// file was given, the file seeds the database first.
func loadStored(ctx context.Context, st *store.Store, opts *EvolveOptions, log *zap.Logger) (*ir.Organism, error) {
	org, err := st.LoadOrganism(ctx, opts.ID)
	if err == nil {
		if opts.Organism != "" {
			log.Debug("organism already stored; seed file ignored", zap.String("file", opts.Organism))
		}
		return org, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr("failed to load organism", err)
	}
	if opts.Organism == "" {
		return nil, classifyError(fmt.Sprintf("organism %s not found", opts.ID), err)
	}

	seed, err := loader.LoadOrganism(opts.Organism)
	if err != nil {
		return nil, loadErr("organism", opts.Organism, err)
	}
	if err := st.CreateOrganism(ctx, opts.ID, seed); err != nil {
		return nil, storeErr("failed to store organism", err)
	}
	log.Info("organism stored", zap.Int64("generation", seed.Generation))
	return seed, nil
}

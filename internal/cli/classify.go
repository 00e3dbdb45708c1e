package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/morphic/internal/engine"
)

// ClassifyOptions holds flags for the classify command.
type ClassifyOptions struct {
	*RootOptions
	Patterns string
	NowMs    int64
}

// PatternScore is one pattern's weighted score.
type PatternScore struct {
	Event string  `json:"event"`
	Score float64 `json:"score"`
}

// ClassifyResult is the classify command payload.
type ClassifyResult struct {
	engine.Classification
	Scores []PatternScore `json:"scores"`
}

// RenderText prints one line per category followed by the scores.
func (r ClassifyResult) RenderText(w io.Writer) {
	fmt.Fprintf(w, "dominant:  %s\n", strings.Join(r.Dominant, ", "))
	fmt.Fprintf(w, "recessive: %s\n", strings.Join(r.Recessive, ", "))
	fmt.Fprintf(w, "emerging:  %s\n", strings.Join(r.Emerging, ", "))
	for _, s := range r.Scores {
		fmt.Fprintf(w, "  %-24s %.4f\n", s.Event, s.Score)
	}
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify usage patterns",
		Long: `Sort usage patterns into dominant, recessive and emerging events.

Patterns may be JSON, YAML or CUE.

Examples:
  morphic classify --patterns patterns.yaml
  morphic classify --patterns patterns.json --now 1700000000000 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Patterns, "patterns", "p", "", "usage patterns file (required)")
	cmd.Flags().Int64Var(&opts.NowMs, "now", 0, "evaluation time in epoch milliseconds (default: current time)")
	_ = cmd.MarkFlagRequired("patterns")

	return cmd
}

func runClassify(cmd *cobra.Command, opts *ClassifyOptions) error {
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

	now := clockFor(opts.NowMs).Now()
	class, err := engine.Classify(patterns, now, opts.Config().Engine)
	if err != nil {
		return formatter.Fail(classifyError("classification failed", err))
	}
	opts.Log().Debug("patterns classified", zap.Int("patterns", len(patterns)))

	result := ClassifyResult{Classification: class, Scores: make([]PatternScore, 0, len(patterns))}
	for _, p := range patterns {
		result.Scores = append(result.Scores, PatternScore{Event: p.Event, Score: engine.Score(p)})
	}
	return formatter.Success(result)
}

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/morphic/internal/ir"
	"github.com/roach88/morphic/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	ID     string
}

// OrganismList is the history payload when no id is given.
type OrganismList struct {
	Organisms []store.OrganismInfo `json:"organisms"`
}

// RenderText prints one organism per line.
func (l OrganismList) RenderText(w io.Writer) {
	if len(l.Organisms) == 0 {
		fmt.Fprintln(w, "No organisms stored.")
		return
	}
	for _, o := range l.Organisms {
		fmt.Fprintf(w, "%-24s generation %-6d %s\n", o.ID, o.Generation, o.Digest)
	}
}

// OrganismHistory is the history payload for one organism.
type OrganismHistory struct {
	OrganismID string                `json:"organism_id"`
	Generation int64                 `json:"generation"`
	Digest     string                `json:"digest"`
	Batches    []store.Batch         `json:"batches"`
	Fitness    []store.FitnessSample `json:"fitness"`
}

// RenderText prints accepted batches then fitness samples.
func (h OrganismHistory) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s at generation %d (%s)\n", h.OrganismID, h.Generation, h.Digest)
	for _, b := range h.Batches {
		fmt.Fprintf(w, "  gen %-4d %s magnitude %.4f\n", b.Generation, b.ID, b.Record.Vector.Magnitude)
		for _, m := range b.Record.Mutations {
			fmt.Fprintf(w, "           %-13s %s (%.2f)\n", m.Type, m.Target, m.Strength)
		}
	}
	if len(h.Fitness) > 0 {
		fmt.Fprintln(w, "fitness:")
		for _, f := range h.Fitness {
			fmt.Fprintf(w, "  gen %-4d %.6f\n", f.Generation, f.Value)
		}
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored organisms and their mutation history",
		Long: `Without --id, list every stored organism. With --id, show the
organism's accepted mutation batches and recorded fitness.

Examples:
  morphic history --db morphic.db
  morphic history --db morphic.db --id glow --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database path (default: store.path from config)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "organism id")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dbPath := resolveDB(opts.DBPath, opts.RootOptions)
	if dbPath == "" {
		return formatter.Fail(NewExitError(ExitCommandError, "--db or store.path in config is required"))
	}
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(&ExitError{Code: ExitCommandError, ErrCode: ErrCodeNotFound, Message: "database not found", Err: err})
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(storeErr("failed to open database", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.ID == "" {
		organisms, err := st.ListOrganisms(ctx)
		if err != nil {
			return formatter.Fail(storeErr("failed to list organisms", err))
		}
		return formatter.Success(OrganismList{Organisms: organisms})
	}

	org, err := st.LoadOrganism(ctx, opts.ID)
	if err != nil {
		return formatter.Fail(classifyError(fmt.Sprintf("failed to load organism %s", opts.ID), err))
	}
	digest, err := ir.OrganismDigest(org)
	if err != nil {
		return formatter.Fail(err)
	}
	batches, err := st.ListBatches(ctx, opts.ID)
	if err != nil {
		return formatter.Fail(storeErr("failed to list batches", err))
	}
	fitness, err := st.FitnessHistory(ctx, opts.ID)
	if err != nil {
		return formatter.Fail(storeErr("failed to read fitness", err))
	}

	return formatter.Success(OrganismHistory{
		OrganismID: opts.ID,
		Generation: org.Generation,
		Digest:     digest,
		Batches:    batches,
		Fitness:    fitness,
	})
}

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/infra/sqlite"
	"github.com/relembraq/relembraq/pkg/config"
)

// RunsCmd returns the runs command
func RunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs recorded in the checkpoint store",
	}
	cmd.AddCommand(runsShowCmd())
	return cmd
}

func runsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the status of a run and how many of its chunks are checkpointed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseID(args[0])
			if err != nil {
				return core.InvalidConfiguration("run_id", "%v", err)
			}
			cfg, _, err := loadConfig(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			return showRun(cmd, cfg, id)
		},
	}
	cmd.Flags().String("checkpoint-path", config.Default().Checkpoint.Path, "Checkpoint database path")
	return cmd
}

func showRun(cmd *cobra.Command, cfg *config.Config, id core.ID) error {
	ctx := cmd.Context()
	store, err := sqlite.NewStore(ctx, &sqlite.Config{Path: cfg.Checkpoint.Path})
	if err != nil {
		return err
	}
	defer store.Close()
	repo := sqlite.NewCheckpointRepo(store.DB())
	run, err := repo.GetRun(ctx, id)
	if err != nil {
		return err
	}
	stored, err := repo.CountChunks(ctx, run.Document)
	if err != nil {
		return err
	}
	return writeRun(cmd.OutOrStdout(), run, stored)
}

func writeRun(w io.Writer, run *sqlite.Run, stored int) error {
	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Local().Format(time.DateTime)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", run.ID)
	fmt.Fprintf(tw, "Status\t%s\n", run.Status)
	fmt.Fprintf(tw, "Document\t%s\n", run.Document)
	fmt.Fprintf(tw, "Chunks\t%d/%d checkpointed\n", stored, run.ChunkTotal)
	fmt.Fprintf(tw, "Started\t%s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(tw, "Finished\t%s\n", finished)
	return tw.Flush()
}

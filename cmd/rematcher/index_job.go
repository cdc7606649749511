package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	indexAll   bool
	indexLimit int
)

var indexJobCmd = &cobra.Command{
	Use:   "index-job [job-id...]",
	Short: "Queue embedding rebuilds for job records",
	Long: `Queue a rebuild of the skills, experience and profile embeddings of the given jobs.
With --all every open job is queued; duplicates of jobs already waiting are skipped by the queue.`,
	RunE: runIndexJob,
}

func init() {
	indexJobCmd.Flags().BoolVar(&indexAll, "all", false, "Queue every open job")
	indexJobCmd.Flags().IntVar(&indexLimit, "limit", 1000, "Maximum number of jobs queued by --all")
	rootCmd.AddCommand(indexJobCmd)
}

// parseJobIDs validates explicit job id arguments against the --all flag
func parseJobIDs(args []string, all bool) ([]uuid.UUID, error) {
	if all && len(args) > 0 {
		return nil, fmt.Errorf("job ids and --all are mutually exclusive")
	}
	if !all && len(args) == 0 {
		return nil, fmt.Errorf("provide at least one job id or --all")
	}

	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid job id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runIndexJob(cmd *cobra.Command, args []string) error {
	ids, err := parseJobIDs(args, indexAll)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openQueue(ctx, false); err != nil {
		return err
	}

	if indexAll {
		if ids, err = a.db.ListOpenJobIDs(ctx, indexLimit); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	queued := 0
	for _, id := range ids {
		queueJobID, err := a.service.IndexJob(ctx, id)
		if err != nil {
			a.logger.Warn("failed to queue indexing", zap.Stringer("job_id", id), zap.Error(err))
			continue
		}
		queued++
		fmt.Fprintf(out, "%s  queue_job=%d\n", id, queueJobID)
	}
	fmt.Fprintf(out, "Queued %d of %d jobs\n", queued, len(ids))
	return nil
}

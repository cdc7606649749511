package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-rematcher/internal/db"
	"github.com/jonathan/job-rematcher/internal/observability"
	"github.com/jonathan/job-rematcher/internal/types"
)

var (
	statusShowMatches  bool
	statusShowAnalysis bool
	statusJSON         bool

	listCandidateID string
	listStatus      string
	listLimit       int
)

var statusCmd = &cobra.Command{
	Use:   "status <execution-id>",
	Short: "Show the status of a re-matching execution",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent re-matching executions",
	RunE:  runList,
}

func init() {
	statusCmd.Flags().BoolVar(&statusShowMatches, "matches", false, "Also print the ranked matches")
	statusCmd.Flags().BoolVar(&statusShowAnalysis, "analysis", false, "Also print the markdown report")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print JSON instead of formatted boxes")

	listCmd.Flags().StringVar(&listCandidateID, "candidate-id", "", "Only executions of this candidate")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only executions in this status")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of executions")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid execution id: %w", err)
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

	view, err := a.service.GetStatus(ctx, id)
	if err != nil {
		return err
	}

	var matches []db.MatchResult
	if statusShowMatches {
		if matches, err = a.service.Matches(ctx, id); err != nil {
			return err
		}
	}
	var analysis string
	if statusShowAnalysis {
		if analysis, err = a.service.Analysis(ctx, id); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		payload := map[string]any{"status": view}
		if statusShowMatches {
			payload["matches"] = matches
		}
		if statusShowAnalysis {
			payload["analysis"] = analysis
		}
		return printJSON(out, payload)
	}

	printer := observability.NewPrinter(out)
	printer.PrintStatus(view)
	if statusShowMatches {
		printer.PrintMatches(matches)
	}
	if statusShowAnalysis {
		printer.PrintAnalysis(analysis)
	}
	return nil
}

// buildListFilters validates the list flags
func buildListFilters(candidateID, status string, limit int) (db.ExecutionFilters, error) {
	filters := db.ExecutionFilters{Limit: limit}
	if candidateID != "" {
		id, err := uuid.Parse(candidateID)
		if err != nil {
			return filters, fmt.Errorf("invalid --candidate-id: %w", err)
		}
		filters.CandidateID = id
	}
	if status != "" {
		s := types.ExecutionStatus(status)
		if !s.Valid() {
			return filters, fmt.Errorf("invalid --status %q", status)
		}
		filters.Status = s
	}
	return filters, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	filters, err := buildListFilters(listCandidateID, listStatus, listLimit)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	executions, err := a.db.ListExecutions(ctx, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(executions) == 0 {
		fmt.Fprintln(out, "No executions found")
		return nil
	}
	for _, e := range executions {
		fmt.Fprintf(out, "%s  %-11s  candidate=%s  matches=%d  created=%s\n",
			e.ID, e.Status, e.CandidateID, len(e.MatchedJobIDs), e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

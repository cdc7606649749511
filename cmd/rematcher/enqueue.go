package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-rematcher/internal/ingestion"
	"github.com/jonathan/job-rematcher/internal/types"
)

var (
	enqueueExecutionID   string
	enqueueCandidateID   string
	enqueueApplicationID string
	enqueueJobID         string
	enqueueCVFile        string
	enqueuePriority      int
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a re-matching run for a rejected application",
	Long: `Queue a re-matching run. The CV is read from a text or HTML file.
Without --execution-id the id is derived from the candidate and application, so repeating the command is safe.`,
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueExecutionID, "execution-id", "", "Explicit execution id")
	enqueueCmd.Flags().StringVar(&enqueueCandidateID, "candidate-id", "", "Candidate id (required)")
	enqueueCmd.Flags().StringVar(&enqueueApplicationID, "application-id", "", "Rejected application id (required)")
	enqueueCmd.Flags().StringVar(&enqueueJobID, "job-id", "", "Rejected job id (required)")
	enqueueCmd.Flags().StringVar(&enqueueCVFile, "cv-file", "", "Path to the CV text or HTML file (required)")
	enqueueCmd.Flags().IntVar(&enqueuePriority, "priority", types.PriorityDefault, "Queue priority, 1 (highest) to 4 (lowest)")

	_ = enqueueCmd.MarkFlagRequired("candidate-id")
	_ = enqueueCmd.MarkFlagRequired("application-id")
	_ = enqueueCmd.MarkFlagRequired("job-id")
	_ = enqueueCmd.MarkFlagRequired("cv-file")

	rootCmd.AddCommand(enqueueCmd)
}

// enqueueFlags are the raw flag values of the enqueue command
type enqueueFlags struct {
	ExecutionID   string
	CandidateID   string
	ApplicationID string
	JobID         string
	Priority      int
}

// buildEnqueueRequest parses the id flags. The execution id stays nil when not given.
func buildEnqueueRequest(f enqueueFlags, cvText string) (types.EnqueueRequest, error) {
	req := types.EnqueueRequest{CVText: cvText, Priority: f.Priority}

	ids := []struct {
		flag  string
		value string
		dst   *uuid.UUID
	}{
		{"candidate-id", f.CandidateID, &req.CandidateID},
		{"application-id", f.ApplicationID, &req.ApplicationID},
		{"job-id", f.JobID, &req.JobID},
	}
	for _, id := range ids {
		parsed, err := uuid.Parse(id.value)
		if err != nil {
			return req, fmt.Errorf("invalid --%s: %w", id.flag, err)
		}
		*id.dst = parsed
	}

	if f.ExecutionID != "" {
		parsed, err := uuid.Parse(f.ExecutionID)
		if err != nil {
			return req, fmt.Errorf("invalid --execution-id: %w", err)
		}
		req.ExecutionID = parsed
	}
	return req, nil
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	cvText, meta, err := ingestion.IngestFromFile(enqueueCVFile)
	if err != nil {
		return fmt.Errorf("failed to read CV: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Read %s: %d characters, %s, sha256 %s\n", meta.Source, meta.Chars, meta.Format, meta.Hash[:12])

	req, err := buildEnqueueRequest(enqueueFlags{
		ExecutionID:   enqueueExecutionID,
		CandidateID:   enqueueCandidateID,
		ApplicationID: enqueueApplicationID,
		JobID:         enqueueJobID,
		Priority:      enqueuePriority,
	}, cvText)
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

	if req.ExecutionID == uuid.Nil {
		result, err := a.service.Submit(ctx, types.SubmitRequest{
			CandidateID:   req.CandidateID,
			ApplicationID: req.ApplicationID,
			JobID:         req.JobID,
			CVText:        req.CVText,
			Priority:      req.Priority,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}

	result, err := a.service.Enqueue(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

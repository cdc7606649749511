package main

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-rematcher/internal/types"
)

func TestBuildEnqueueRequest(t *testing.T) {
	candidate, application, job := uuid.New(), uuid.New(), uuid.New()

	req, err := buildEnqueueRequest(enqueueFlags{
		CandidateID:   candidate.String(),
		ApplicationID: application.String(),
		JobID:         job.String(),
		Priority:      types.PriorityHighest,
	}, "cv text")
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, req.ExecutionID)
	assert.Equal(t, candidate, req.CandidateID)
	assert.Equal(t, application, req.ApplicationID)
	assert.Equal(t, job, req.JobID)
	assert.Equal(t, "cv text", req.CVText)
	assert.Equal(t, types.PriorityHighest, req.Priority)

	execution := uuid.New()
	req, err = buildEnqueueRequest(enqueueFlags{
		ExecutionID:   execution.String(),
		CandidateID:   candidate.String(),
		ApplicationID: application.String(),
		JobID:         job.String(),
	}, "cv text")
	require.NoError(t, err)
	assert.Equal(t, execution, req.ExecutionID)
}

func TestBuildEnqueueRequest_InvalidIDs(t *testing.T) {
	valid := uuid.NewString()

	tests := []struct {
		name  string
		flags enqueueFlags
		want  string
	}{
		{"candidate", enqueueFlags{CandidateID: "x", ApplicationID: valid, JobID: valid}, "--candidate-id"},
		{"application", enqueueFlags{CandidateID: valid, ApplicationID: "", JobID: valid}, "--application-id"},
		{"job", enqueueFlags{CandidateID: valid, ApplicationID: valid, JobID: "42"}, "--job-id"},
		{"execution", enqueueFlags{ExecutionID: "nope", CandidateID: valid, ApplicationID: valid, JobID: valid}, "--execution-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildEnqueueRequest(tt.flags, "cv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseJobIDs(t *testing.T) {
	id := uuid.New()

	ids, err := parseJobIDs([]string{id.String()}, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	ids, err = parseJobIDs(nil, true)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseJobIDs(nil, false)
	assert.ErrorContains(t, err, "at least one job id")

	_, err = parseJobIDs([]string{id.String()}, true)
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = parseJobIDs([]string{"not-a-uuid"}, false)
	assert.ErrorContains(t, err, "invalid job id")
}

func TestBuildListFilters(t *testing.T) {
	candidate := uuid.New()

	filters, err := buildListFilters(candidate.String(), "failed", 5)
	require.NoError(t, err)
	assert.Equal(t, candidate, filters.CandidateID)
	assert.Equal(t, types.StatusFailed, filters.Status)
	assert.Equal(t, 5, filters.Limit)

	_, err = buildListFilters("", "sleeping", 5)
	assert.ErrorContains(t, err, "invalid --status")

	_, err = buildListFilters("abc", "", 5)
	assert.ErrorContains(t, err, "invalid --candidate-id")
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "worker", "migrate", "enqueue", "status", "list", "index-job", "parse-cv"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestStatusCommand_RejectsBadID(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"status", "not-a-uuid"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "invalid execution id")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
}

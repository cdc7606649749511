//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/job-rematcher/internal/types"
)

// setupTestDB connects to and migrates the database named by DATABASE_URL.
// Skipped if DATABASE_URL is not set or the connection fails.
func setupTestDB(t *testing.T) *DB {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.Migrate(ctx, zap.NewNop()))
	return db
}

func createTestJob(t *testing.T, db *DB, title, status string) uuid.UUID {
	var id uuid.UUID
	err := db.pool.QueryRow(context.Background(),
		`INSERT INTO jobs (title, company, description, requirements, status)
		 VALUES ($1, 'Acme', 'Build services', 'Go, PostgreSQL', $2) RETURNING id`,
		title, status,
	).Scan(&id)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.pool.Exec(context.Background(), `DELETE FROM jobs WHERE id = $1`, id)
	})
	return id
}

func unitVector(hot int) []float32 {
	v := make([]float32, 768)
	v[hot] = 1
	return v
}

func TestCreateExecution_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	input := &ExecutionInput{ID: uuid.New(), CandidateID: uuid.New(), ApplicationID: uuid.New(), JobID: uuid.New()}

	exec, created, err := db.CreateExecution(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, input.ID, exec.ID)
	assert.Equal(t, types.StatusQueued, exec.Status)
	assert.Empty(t, exec.MatchedJobIDs)

	// Same pair with a different id returns the original row
	again, created, err := db.CreateExecution(ctx, &ExecutionInput{
		ID: uuid.New(), CandidateID: input.CandidateID, ApplicationID: input.ApplicationID, JobID: input.JobID,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, input.ID, again.ID)

	missing, err := db.GetExecution(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateExecutionWithMatches_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	jobA := createTestJob(t, db, "Platform Engineer", types.JobStatusOpen)
	jobB := createTestJob(t, db, "Data Engineer", types.JobStatusOpen)

	exec, _, err := db.CreateExecution(ctx, &ExecutionInput{ID: uuid.New(), CandidateID: uuid.New(), ApplicationID: uuid.New(), JobID: uuid.New()})
	require.NoError(t, err)

	parsing := types.StatusParsing
	require.NoError(t, db.UpdateExecution(ctx, exec.ID, ExecutionPatch{Status: &parsing, MarkStarted: true}))

	matches := []types.ConsolidatedMatch{
		{JobID: jobA, CompositeScore: 0.9, HitCount: 2, Rank: 1, SourceScores: map[types.Source]float64{types.SourceSkills: 0.9, types.SourceProfile: 0.8}},
		{JobID: jobB, CompositeScore: 0.75, HitCount: 1, Rank: 2, SourceScores: map[types.Source]float64{types.SourceSkills: 0.75}},
	}
	analyzing := types.StatusAnalyzing
	require.NoError(t, db.UpdateExecutionWithMatches(ctx, exec.ID, ExecutionPatch{
		Status: &analyzing, MatchedJobIDs: types.JobIDs(matches),
	}, matches))

	// A second write replaces rows from the earlier attempt
	require.NoError(t, db.UpdateExecutionWithMatches(ctx, exec.ID, ExecutionPatch{Status: &analyzing}, matches[:1]))

	results, err := db.ListMatchResults(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, jobA, results[0].JobID)
	assert.Equal(t, "Platform Engineer", results[0].JobTitle)
	assert.InDelta(t, 0.8, results[0].SourceScores[types.SourceProfile], 1e-9)

	completed := types.StatusCompleted
	require.NoError(t, db.UpdateExecution(ctx, exec.ID, ExecutionPatch{Status: &completed, MarkCompleted: true}))

	got, err := db.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, []uuid.UUID{jobA, jobB}, got.MatchedJobIDs)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.DurationMs)
	assert.GreaterOrEqual(t, *got.DurationMs, int64(0))

	err = db.UpdateExecution(ctx, uuid.New(), ExecutionPatch{Status: &completed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchSimilar_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	near := createTestJob(t, db, "Near", types.JobStatusOpen)
	far := createTestJob(t, db, "Far", types.JobStatusOpen)
	closed := createTestJob(t, db, "Closed", "closed")
	rejected := createTestJob(t, db, "Rejected", types.JobStatusOpen)

	nearVec := unitVector(0)
	nearVec[1] = 0.1
	require.NoError(t, db.UpsertJobEmbedding(ctx, near, types.SourceSkills, "Go", nearVec))
	require.NoError(t, db.UpsertJobEmbedding(ctx, far, types.SourceSkills, "Cooking", unitVector(5)))
	require.NoError(t, db.UpsertJobEmbedding(ctx, closed, types.SourceSkills, "Go", unitVector(0)))
	require.NoError(t, db.UpsertJobEmbedding(ctx, rejected, types.SourceSkills, "Go", unitVector(0)))

	matches, err := db.SearchSimilar(ctx, unitVector(0), types.SourceSkills, 0.72, 10, []uuid.UUID{rejected})
	require.NoError(t, err)

	var ids []uuid.UUID
	for _, m := range matches {
		ids = append(ids, m.JobID)
		assert.Equal(t, types.SourceSkills, m.Source)
		assert.GreaterOrEqual(t, m.SimilarityScore, 0.72)
		assert.LessOrEqual(t, m.SimilarityScore, 1.0)
	}
	assert.Contains(t, ids, near)
	assert.NotContains(t, ids, far)
	assert.NotContains(t, ids, closed)
	assert.NotContains(t, ids, rejected)

	none, err := db.SearchSimilar(ctx, unitVector(0), types.SourceExperience, 0.72, 10, nil)
	require.NoError(t, err)
	for _, m := range none {
		assert.NotEqual(t, near, m.JobID)
	}

	_, err = db.SearchSimilar(ctx, unitVector(0), types.Source("education"), 0.72, 10, nil)
	assert.Error(t, err)

	// dropping the skills facet removes the job from skills searches
	require.NoError(t, db.DeleteJobEmbeddingsExcept(ctx, near, []types.Source{types.SourceProfile}))
	matches, err = db.SearchSimilar(ctx, unitVector(0), types.SourceSkills, 0.72, 10, []uuid.UUID{rejected})
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, near, m.JobID)
	}
}

func TestGetJobsByIDs_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	id := createTestJob(t, db, "Backend Engineer", types.JobStatusOpen)

	jobs, err := db.GetJobsByIDs(ctx, []uuid.UUID{id, uuid.New()})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Backend Engineer", jobs[id].Title)

	empty, err := db.GetJobsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

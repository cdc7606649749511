package db

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/jonathan/job-rematcher/internal/types"
)

// -----------------------------------------------------------------------------
// Job Embedding Methods (vector index)
// -----------------------------------------------------------------------------

// SearchSimilar returns open jobs whose embedding of the given kind is at least threshold-similar
// to the query vector, most similar first. Ties are ordered by job id.
func (db *DB) SearchSimilar(ctx context.Context, vector []float32, kind types.Source, threshold float64, limit int, excludeIDs []uuid.UUID) ([]types.RetrievalMatch, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown embedding kind %q", kind)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		return nil, nil
	}
	if excludeIDs == nil {
		excludeIDs = []uuid.UUID{}
	}

	rows, err := db.pool.Query(ctx,
		`SELECT j.id, j.title, j.description, 1 - (e.embedding <=> $1) AS similarity
		 FROM job_embeddings e
		 JOIN jobs j ON j.id = e.job_id
		 WHERE e.kind = $2
		   AND j.status = $3
		   AND NOT (j.id = ANY($4::uuid[]))
		   AND 1 - (e.embedding <=> $1) >= $5
		 ORDER BY similarity DESC, j.id ASC
		 LIMIT $6`,
		pgvector.NewVector(vector), string(kind), types.JobStatusOpen, excludeIDs, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s embeddings: %w", kind, err)
	}
	defer rows.Close()

	var matches []types.RetrievalMatch
	for rows.Next() {
		m := types.RetrievalMatch{Source: kind}
		if err := rows.Scan(&m.JobID, &m.JobTitle, &m.JobDescription, &m.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan %s match: %w", kind, err)
		}
		m.SimilarityScore = math.Max(0, math.Min(1, m.SimilarityScore))
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// UpsertJobEmbedding stores the embedding of one facet of a job, replacing any previous one
func (db *DB) UpsertJobEmbedding(ctx context.Context, jobID uuid.UUID, kind types.Source, content string, vector []float32) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown embedding kind %q", kind)
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO job_embeddings (job_id, kind, content, embedding)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (job_id, kind) DO UPDATE
		 SET content = EXCLUDED.content, embedding = EXCLUDED.embedding, updated_at = NOW()`,
		jobID, string(kind), content, pgvector.NewVector(vector),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s embedding for job %s: %w", kind, jobID, err)
	}
	return nil
}

// DeleteJobEmbeddingsExcept removes the stored facets of a job whose kind is not in keep.
// An empty keep removes every facet.
func (db *DB) DeleteJobEmbeddingsExcept(ctx context.Context, jobID uuid.UUID, keep []types.Source) error {
	kinds := make([]string, 0, len(keep))
	for _, k := range keep {
		kinds = append(kinds, string(k))
	}
	if _, err := db.pool.Exec(ctx,
		`DELETE FROM job_embeddings WHERE job_id = $1 AND NOT (kind = ANY($2))`,
		jobID, kinds,
	); err != nil {
		return fmt.Errorf("failed to delete embeddings for job %s: %w", jobID, err)
	}
	return nil
}

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/job-rematcher/internal/types"
)

// -----------------------------------------------------------------------------
// Job Record Methods (read-only; the jobs table is owned by the admin layer)
// -----------------------------------------------------------------------------

const jobColumns = `id, title, company, description, requirements, location, status`

func scanJob(row pgx.Row) (*types.JobRecord, error) {
	var j types.JobRecord
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Description, &j.Requirements, &j.Location, &j.Status); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJob retrieves a job by ID, returning nil when it does not exist
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.JobRecord, error) {
	job, err := scanJob(db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// GetJobsByIDs retrieves the given jobs keyed by ID. Unknown ids are absent from the map.
func (db *DB) GetJobsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.JobRecord, error) {
	jobs := make(map[uuid.UUID]*types.JobRecord, len(ids))
	if len(ids) == 0 {
		return jobs, nil
	}

	rows, err := db.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs[job.ID] = job
	}
	return jobs, rows.Err()
}

// ListOpenJobIDs returns the ids of open jobs, oldest first
func (db *DB) ListOpenJobIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id FROM jobs WHERE status = $1 ORDER BY created_at, id LIMIT $2`,
		types.JobStatusOpen, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open jobs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Package jobs queues workflow executions and job-indexing work on River and runs their workers.
package jobs

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/jonathan/job-rematcher/internal/types"
)

// Queue names
const (
	QueueWorkflow = "workflow"
	QueueIndexing = "indexing"
)

// Job kinds
const (
	KindRematch  = "rematch_workflow"
	KindIndexJob = "index_job"
)

// RematchArgs is stored in river_job.args. The execution id doubles as the uniqueness key,
// so re-enqueuing an execution never starts a second run.
type RematchArgs struct {
	ExecutionID   uuid.UUID `json:"execution_id" river:"unique"`
	CandidateID   uuid.UUID `json:"candidate_id"`
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
	CVText        string    `json:"cv_text"`
}

// Kind returns the job kind for River registration.
func (RematchArgs) Kind() string {
	return KindRematch
}

// InsertOpts returns the default insert options for this job type.
func (RematchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:      QueueWorkflow,
		Priority:   types.PriorityDefault,
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	}
}

// IndexJobArgs asks for the embeddings of one job to be (re)built
type IndexJobArgs struct {
	JobID uuid.UUID `json:"job_id" river:"unique"`
}

// Kind returns the job kind for River registration.
func (IndexJobArgs) Kind() string {
	return KindIndexJob
}

// InsertOpts returns the default insert options for this job type. Finished index jobs do not
// block a later re-index of the same job.
func (IndexJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:    QueueIndexing,
		Priority: types.PriorityLowest,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRetryable,
				rivertype.JobStateRunning,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// ClampPriority maps a caller priority onto River's 1..4 range. Zero selects the default.
func ClampPriority(p int) int {
	switch {
	case p == 0:
		return types.PriorityDefault
	case p < types.PriorityHighest:
		return types.PriorityHighest
	case p > types.PriorityLowest:
		return types.PriorityLowest
	}
	return p
}

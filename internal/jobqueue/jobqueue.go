// Package jobqueue runs the River-backed background queue that re-polls the
// evidence store for uploads whose extraction outlived the synchronous retry
// budget of a conversational turn.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/claimflow/internal/fnol"
)

// EvidencePollArgs identifies one pending evidence item to re-check.
type EvidencePollArgs struct {
	ThreadID     string `json:"thread_id"`
	EvidenceID   string `json:"evidence_id"`
	EvidenceType string `json:"evidence_type"`
}

// Kind returns the job kind for River.
func (EvidencePollArgs) Kind() string { return "evidence_poll" }

// EvidencePollWorker re-delivers a pending evidence item to the session
// machine. A still-processing item schedules its own successor through the
// machine's poller hook, so each job runs exactly one check.
type EvidencePollWorker struct {
	river.WorkerDefaults[EvidencePollArgs]
	machine *fnol.Machine
	config  *QueueConfig
}

func (w *EvidencePollWorker) Timeout(*river.Job[EvidencePollArgs]) time.Duration {
	return w.config.JobTimeout
}

func (w *EvidencePollWorker) Work(ctx context.Context, job *river.Job[EvidencePollArgs]) error {
	args := job.Args
	_, err := w.machine.AttachEvidence(ctx, args.ThreadID, args.EvidenceID, args.EvidenceType)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fnol.ErrSessionBusy):
		// The claimant is mid-turn; come back shortly.
		return river.JobSnooze(w.config.PollInterval)
	case errors.Is(err, fnol.ErrSessionNotFound), errors.Is(err, fnol.ErrSessionTerminated):
		// The session moved on without this upload; drop the job.
		log.Debug().Str("thread_id", args.ThreadID).Str("evidence_id", args.EvidenceID).
			Msg("dropping evidence poll for finished session")
		return nil
	default:
		return fmt.Errorf("evidence poll for thread %s: %w", args.ThreadID, err)
	}
}

// JobQueue manages the River client and its workers.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	config *QueueConfig
}

// New builds the queue on the shared connection pool and wires its poller
// into the session machine.
func New(pool *pgxpool.Pool, machine *fnol.Machine) (*JobQueue, error) {
	config := DefaultQueueConfig()

	workers := river.NewWorkers()
	river.AddWorker(workers, &EvidencePollWorker{machine: machine, config: config})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	jq := &JobQueue{client: client, config: config}
	machine.SetEvidencePoller(jq.ScheduleEvidencePoll)
	return jq, nil
}

// Start begins processing jobs.
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop drains the workers.
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// ScheduleEvidencePoll queues one delayed re-check for a pending upload.
func (jq *JobQueue) ScheduleEvidencePoll(ctx context.Context, threadID, evidenceID, evidenceType string) error {
	args := EvidencePollArgs{ThreadID: threadID, EvidenceID: evidenceID, EvidenceType: evidenceType}
	_, err := jq.client.Insert(ctx, args, &river.InsertOpts{
		ScheduledAt: time.Now().Add(jq.config.PollInterval),
		MaxAttempts: jq.config.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to queue evidence poll: %w", err)
	}
	return nil
}

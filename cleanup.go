package folio

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Reaper deletes media host assets in the background. Document updates
// enqueue and move on: deletion is best-effort cleanup, never a
// precondition for the document write, so a failed or slow destroy can
// never block or fail an edit. Outcomes are published on a results
// channel so the decoupling is observable rather than incidental.
type Reaper struct {
	media *MediaClient

	jobs    chan deletionJob
	results chan DeletionResult

	stopOnce sync.Once
	wg       sync.WaitGroup
}

type deletionJob struct {
	id       string
	publicID string
}

// DeletionResult is the outcome of one background destroy attempt.
type DeletionResult struct {
	ID       string // job id returned by Enqueue
	PublicID string
	Status   int // media host status, 0 when the call never completed
	Err      error
}

// NewReaper starts the background worker with the given queue capacity.
func NewReaper(media *MediaClient, queueSize int) *Reaper {
	if queueSize <= 0 {
		queueSize = 64
	}
	r := &Reaper{
		media:   media,
		jobs:    make(chan deletionJob, queueSize),
		results: make(chan DeletionResult, queueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Enqueue schedules an asset for deletion and returns the job id.
// A full queue drops the job: losing an orphaned asset is acceptable,
// blocking an edit is not.
func (r *Reaper) Enqueue(publicID string) string {
	job := deletionJob{id: uuid.NewString(), publicID: publicID}
	select {
	case r.jobs <- job:
		return job.id
	default:
		log.Printf("reaper: queue full, dropping deletion of %s", publicID)
		return ""
	}
}

// Results exposes deletion outcomes. The channel is buffered; outcomes
// are dropped when nobody drains it.
func (r *Reaper) Results() <-chan DeletionResult {
	return r.results
}

// Stop drains queued jobs and waits for the worker to exit.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.jobs)
	})
	r.wg.Wait()
}

func (r *Reaper) run() {
	defer r.wg.Done()
	for job := range r.jobs {
		status, body, err := r.media.Destroy(context.Background(), job.publicID)
		if err != nil {
			log.Printf("reaper: delete %s failed: %v", job.publicID, err)
		} else {
			log.Printf("reaper: delete %s -> %d %s", job.publicID, status, body)
		}
		select {
		case r.results <- DeletionResult{ID: job.id, PublicID: job.publicID, Status: status, Err: err}:
		default:
		}
	}
	close(r.results)
}

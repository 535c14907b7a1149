package lotmatch

import (
	"context"
	"sync"
)

// workerPool fans per-key matching jobs out to a fixed number of worker
// goroutines. Each security key is an independent unit of work with no
// shared mutable state, so workers need no locking; results are merged
// only after all workers finish.
type workerPool struct {
	numWorkers int
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &workerPool{numWorkers: numWorkers}
}

// keyJob is the full transaction slice of one security key, in input order.
type keyJob struct {
	index int
	key   SecurityKey
	txs   []sequenced
}

// keyResult is the outcome of replaying one key.
type keyResult struct {
	index    int
	matches  []MatchedLot
	failures []KeyFailure
	warnings []KeyFailure
	open     []OpenPosition
}

// run replays every job and returns results indexed like the input, so the
// merged output is deterministic regardless of completion order. When the
// context is cancelled, remaining jobs are skipped; keys already replayed
// are discarded by the caller, which returns the context error instead.
func (wp *workerPool) run(ctx context.Context, jobs []keyJob, replay func(keyJob) keyResult) []keyResult {
	numJobs := len(jobs)
	if numJobs == 0 {
		return nil
	}

	jobCh := make(chan keyJob, numJobs)
	resultCh := make(chan keyResult, numJobs)

	numActualWorkers := wp.numWorkers
	if numJobs < numActualWorkers {
		numActualWorkers = numJobs
	}

	var wg sync.WaitGroup
	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				select {
				case <-ctx.Done():
					// Cancellation happens between key units only: a key is
					// either fully replayed or not started.
					resultCh <- keyResult{index: job.index}
					continue
				default:
				}
				resultCh <- replay(job)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]keyResult, numJobs)
	for result := range resultCh {
		results[result.index] = result
	}
	return results
}

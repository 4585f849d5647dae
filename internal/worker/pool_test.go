package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	counter *atomic.Int64
	fail    bool
}

type countingResult struct {
	err error
}

func (r *countingResult) GetError() error { return r.err }

func (j *countingJob) Execute(ctx context.Context) Result {
	time.Sleep(time.Millisecond)
	j.counter.Add(1)
	if j.fail {
		return &countingResult{err: errors.New("job failed")}
	}
	return &countingResult{}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var counter atomic.Int64
	pool := NewPool(3)
	pool.Start()

	for i := 0; i < 10; i++ {
		pool.Submit(&countingJob{counter: &counter})
	}
	results := pool.Wait()

	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	if counter.Load() != 10 {
		t.Errorf("expected 10 executions, got %d", counter.Load())
	}
	for _, r := range results {
		if r.GetError() != nil {
			t.Errorf("unexpected error: %v", r.GetError())
		}
	}
}

func TestPool_CollectsFailures(t *testing.T) {
	var counter atomic.Int64
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&countingJob{counter: &counter})
	pool.Submit(&countingJob{counter: &counter, fail: true})
	results := pool.Wait()

	failures := 0
	for _, r := range results {
		if r.GetError() != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

func TestPool_LargeBatchSmallPool(t *testing.T) {
	// Far more jobs than the channel buffers can hold: submission must
	// not wedge against unread results.
	var counter atomic.Int64
	pool := NewPool(2)
	pool.Start()

	const jobs = 100
	for i := 0; i < jobs; i++ {
		pool.Submit(&countingJob{counter: &counter})
	}
	results := pool.Wait()

	if len(results) != jobs {
		t.Fatalf("expected %d results, got %d", jobs, len(results))
	}
	if counter.Load() != jobs {
		t.Errorf("expected %d executions, got %d", jobs, counter.Load())
	}
}

func TestPool_ZeroWorkersClamped(t *testing.T) {
	var counter atomic.Int64
	pool := NewPool(0)
	pool.Start()

	pool.Submit(&countingJob{counter: &counter})
	results := pool.Wait()

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestPool_EmptyWait(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	if results := pool.Wait(); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

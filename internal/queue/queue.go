// Package queue bounds how many API requests run at once.
package queue

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency serializes requests.
const DefaultConcurrency = 1

// Queue admits work in FIFO order with bounded concurrency.
// Completion order is not guaranteed when the bound is above one.
type Queue struct {
	sem         *semaphore.Weighted
	pending     atomic.Int64
	concurrency int
}

// New creates a Queue running at most concurrency functions at once.
func New(concurrency int) *Queue {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Queue{
		sem:         semaphore.NewWeighted(int64(concurrency)),
		concurrency: concurrency,
	}
}

// Add waits for a slot, runs fn, and returns fn's error unchanged.
// If ctx ends while waiting, fn is not run and ctx.Err() is returned.
func (q *Queue) Add(ctx context.Context, fn func(context.Context) error) error {
	q.pending.Add(1)
	defer q.pending.Add(-1)

	if err := q.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer q.sem.Release(1)

	return fn(ctx)
}

// Submit is the typed form of Add.
func Submit[T any](ctx context.Context, q *Queue, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := q.Add(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// Pending returns the number of calls waiting or running.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// Concurrency returns the configured bound.
func (q *Queue) Concurrency() int {
	return q.concurrency
}

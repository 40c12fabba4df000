// Package persist posts confirmed transactions on a background worker so the event
// path never waits for the database.
package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// DefaultBuffer is the number of writes that may wait for the worker.
const DefaultBuffer = 32

var (
	// ErrClosed is returned when dispatching to a closed queue.
	ErrClosed = errors.New("persist queue closed")
	// ErrFull is returned when the queue buffer is exhausted.
	ErrFull = errors.New("persist queue full")
)

type job struct {
	txn  *model.Transaction
	done func(error)
}

// Options configures a Queue.
type Options struct {
	// Buffer is the number of writes that may wait. Non-positive uses DefaultBuffer.
	Buffer int
	// Blocking makes Dispatch wait for a free slot instead of failing with ErrFull.
	Blocking bool
}

// Queue serializes writes to a Ledger on a single worker goroutine.
type Queue struct {
	ledger   service.Ledger
	jobs     chan job
	retry    service.RetryOptions
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	blocking bool
}

// NewQueue starts a queue in front of ledger.
func NewQueue(ledger service.Ledger, opts Options) *Queue {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	q := &Queue{
		ledger:   ledger,
		jobs:     make(chan job, opts.Buffer),
		blocking: opts.Blocking,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
		},
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Dispatch enqueues txn. A full buffer fails with ErrFull unless the queue is blocking,
// in which case Dispatch waits for the worker. done, when non-nil, is called from the
// worker with the outcome of the write.
func (q *Queue) Dispatch(txn *model.Transaction, done func(error)) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if q.blocking {
		// The worker never takes mu, so it keeps draining while Close waits for us.
		q.jobs <- job{txn: txn, done: done}
		return nil
	}
	select {
	case q.jobs <- job{txn: txn, done: done}:
		return nil
	default:
		return ErrFull
	}
}

// Close stops accepting writes and waits until every queued write has finished.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()

	for j := range q.jobs {
		err := q.post(j.txn)
		if err != nil {
			common.LogError(err, "Failed to persist transaction", common.Fields{
				"amount":   j.txn.Amount.String(),
				"type":     j.txn.Type.String(),
				"category": j.txn.Category,
			})
		}
		if j.done != nil {
			j.done(err)
		}
	}
}

func (q *Queue) post(txn *model.Transaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("ledger panicked while posting")
		}
	}()

	ctx := context.Background()
	return common.WithRetry(ctx, func() error {
		return q.ledger.PostTransaction(ctx, txn)
	}, q.retry)
}

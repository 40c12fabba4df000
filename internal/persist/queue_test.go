package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

type fakeLedger struct {
	block  chan struct{}
	err    error
	posted []*model.Transaction
	busy   int
	mu     sync.Mutex
}

func (l *fakeLedger) PostTransaction(_ context.Context, txn *model.Transaction) error {
	if l.block != nil {
		<-l.block
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy > 0 {
		l.busy--
		return fmt.Errorf("insert: %w", common.ErrDatabaseBusy)
	}
	if l.err != nil {
		return l.err
	}
	txn.ID = int64(len(l.posted) + 1)
	l.posted = append(l.posted, txn)
	return nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posted)
}

func txn(amount string) *model.Transaction {
	return &model.Transaction{
		Date:   time.Now(),
		Amount: decimal.RequireFromString(amount),
	}
}

func TestQueue_DispatchAndDrain(t *testing.T) {
	ledger := &fakeLedger{}
	q := NewQueue(ledger, Options{Buffer: 8})

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Dispatch(txn("1.00"), nil))
	}
	q.Close()

	assert.Equal(t, 5, ledger.count())
	assert.ErrorIs(t, q.Dispatch(txn("1.00"), nil), ErrClosed)

	// Closing twice is harmless.
	q.Close()
}

func TestQueue_ReportsOutcome(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("disk full")}
	q := NewQueue(ledger, Options{Buffer: 1})
	defer q.Close()

	done := make(chan error, 1)
	require.NoError(t, q.Dispatch(txn("3.00"), func(err error) { done <- err }))

	select {
	case err := <-done:
		assert.EqualError(t, err, "disk full")
	case <-time.After(2 * time.Second):
		t.Fatal("write never completed")
	}
}

func TestQueue_RetriesBusyDatabase(t *testing.T) {
	ledger := &fakeLedger{busy: 2}
	q := NewQueue(ledger, Options{Buffer: 1})

	done := make(chan error, 1)
	require.NoError(t, q.Dispatch(txn("3.00"), func(err error) { done <- err }))
	q.Close()

	assert.NoError(t, <-done)
	assert.Equal(t, 1, ledger.count())
}

func TestQueue_Full(t *testing.T) {
	ledger := &fakeLedger{block: make(chan struct{})}
	q := NewQueue(ledger, Options{Buffer: 1})

	require.NoError(t, q.Dispatch(txn("1.00"), nil))
	// Let the worker pick up the first job and block on the ledger.
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, q.Dispatch(txn("2.00"), nil))
	assert.ErrorIs(t, q.Dispatch(txn("3.00"), nil), ErrFull)

	close(ledger.block)
	q.Close()
	assert.Equal(t, 2, ledger.count())
}

func TestQueue_BlockingWaitsForCapacity(t *testing.T) {
	ledger := &fakeLedger{block: make(chan struct{})}
	q := NewQueue(ledger, Options{Buffer: 1, Blocking: true})

	require.NoError(t, q.Dispatch(txn("1.00"), nil))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Dispatch(txn("2.00"), nil))

	dispatched := make(chan error, 1)
	go func() { dispatched <- q.Dispatch(txn("3.00"), nil) }()

	select {
	case <-dispatched:
		t.Fatal("dispatch returned while the buffer was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(ledger.block)
	select {
	case err := <-dispatched:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never got a slot")
	}

	q.Close()
	assert.Equal(t, 3, ledger.count())
}

func TestQueue_BlockingKeepsEveryWrite(t *testing.T) {
	ledger := &fakeLedger{}
	q := NewQueue(ledger, Options{Buffer: 2, Blocking: true})

	for i := 0; i < 200; i++ {
		require.NoError(t, q.Dispatch(txn("1.00"), nil))
	}
	q.Close()

	assert.Equal(t, 200, ledger.count())
}

package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_LastJobWins(t *testing.T) {
	s := New(100 * time.Millisecond)
	defer s.Stop()

	var (
		mu  sync.Mutex
		ran []int
	)
	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, s.Schedule(func() {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
			done <- struct{}{}
		}))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job never ran")
	}
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{4}, ran)
}

func TestScheduler_Cancel(t *testing.T) {
	s := New(20 * time.Millisecond)
	defer s.Stop()

	var ran atomic.Bool
	s.Schedule(func() { ran.Store(true) })
	assert.True(t, s.Pending())

	s.Cancel()
	assert.False(t, s.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New(10 * time.Millisecond)
	defer s.Stop()

	s.Schedule(func() { panic("malformed tree") })
	time.Sleep(40 * time.Millisecond)

	done := make(chan struct{})
	require.True(t, s.Schedule(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped working after a panic")
	}
}

func TestScheduler_Stop(t *testing.T) {
	s := New(10 * time.Millisecond)

	started := make(chan struct{})
	var finished atomic.Bool
	s.Schedule(func() {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})
	<-started

	s.Stop()
	assert.True(t, finished.Load(), "stop waits for the running job")
	assert.False(t, s.Schedule(func() {}))
}

func TestScheduler_DefaultDelay(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultDelay, s.delay)
	s.SetDelay(-1)
	assert.Equal(t, DefaultDelay, s.delay)
}

func TestScheduler_Flush(t *testing.T) {
	s := New(time.Hour)
	defer s.Stop()

	var ran atomic.Int32
	s.Schedule(func() { ran.Add(1) })
	s.Flush()
	assert.Equal(t, int32(1), ran.Load())
	assert.False(t, s.Pending())

	// Nothing pending is a no-op.
	s.Flush()
	assert.Equal(t, int32(1), ran.Load())
}

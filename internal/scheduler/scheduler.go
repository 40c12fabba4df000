// Package scheduler debounces bursts of screen snapshots so only the last one is analyzed.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/tally/internal/common"
)

// DefaultDelay is the debounce delay used when none is configured.
const DefaultDelay = 300 * time.Millisecond

// Scheduler runs the most recently scheduled job after a quiet period.
// Scheduling replaces any pending job. Jobs never run concurrently with each other.
type Scheduler struct {
	timer   *time.Timer
	pending func()
	delay   time.Duration
	seq     uint64
	stopped bool
	mu      sync.Mutex
	runMu   sync.Mutex
	wg      sync.WaitGroup
}

// New creates a scheduler. A non-positive delay uses DefaultDelay.
func New(delay time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{delay: delay}
}

// Schedule cancels any pending job and arms job to run after the delay.
// It reports false once the scheduler has been stopped.
func (s *Scheduler) Schedule(job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	s.cancelLocked()

	s.seq++
	seq := s.seq
	s.pending = job
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.fire(seq, job)
	})
	return true
}

// Cancel drops the pending job, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Pending reports whether a job is armed and has not started yet.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Flush runs the pending job now, on the calling goroutine.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.timer == nil || !s.timer.Stop() {
		s.mu.Unlock()
		return
	}
	job := s.pending
	s.timer = nil
	s.pending = nil
	s.seq++
	s.mu.Unlock()

	defer s.wg.Done()
	s.run(job)
}

// SetDelay changes the delay for jobs scheduled from now on.
func (s *Scheduler) SetDelay(delay time.Duration) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	s.mu.Lock()
	s.delay = delay
	s.mu.Unlock()
}

// Stop cancels the pending job, rejects new ones and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancelLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) cancelLocked() {
	if s.timer == nil {
		return
	}
	if s.timer.Stop() {
		// The callback will never run, so it cannot release its slot.
		s.wg.Done()
	}
	s.timer = nil
	s.pending = nil
	s.seq++
}

func (s *Scheduler) fire(seq uint64, job func()) {
	s.mu.Lock()
	if seq != s.seq || s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.pending = nil
	s.mu.Unlock()

	s.run(job)
}

func (s *Scheduler) run(job func()) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			common.LogError(fmt.Errorf("scan panicked: %v", r), "scheduled scan failed", nil)
		}
	}()
	job()
}

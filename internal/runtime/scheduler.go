package runtime

import (
	"context"
	"fmt"
	"sync"
)

const (
	// DefaultWorkers sizes the shared worker pool
	DefaultWorkers = 8
	// DefaultMaxInflight bounds in-flight work per session
	DefaultMaxInflight = 32
)

// Task is one unit of scheduled work
type Task func(ctx context.Context)

// Scheduler is a single-process work pool shared by the orchestrator and
// the device fan-out. Work is queued per session and drained round-robin so
// one busy session cannot starve the others; each session is bounded to
// maxInflight queued-or-running tasks.
type Scheduler struct {
	workers     int
	maxInflight int

	mu       sync.Mutex
	queues   map[string][]queued // session id -> FIFO
	order    []string            // round-robin order of sessions with work
	inflight map[string]int
	wake     chan struct{}
	done     chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

type queued struct {
	ctx  context.Context
	task Task
}

// NewScheduler creates and starts a scheduler
func NewScheduler(workers, maxInflight int) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if maxInflight <= 0 {
		maxInflight = DefaultMaxInflight
	}
	s := &Scheduler{
		workers:     workers,
		maxInflight: maxInflight,
		queues:      make(map[string][]queued),
		inflight:    make(map[string]int),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Submit queues task under sessionID. It returns an error when the session
// already has maxInflight tasks queued or running, or when the scheduler is
// shut down.
func (s *Scheduler) Submit(ctx context.Context, sessionID string, task Task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is shut down")
	}
	if s.inflight[sessionID] >= s.maxInflight {
		s.mu.Unlock()
		return fmt.Errorf("session %s has %d tasks in flight", sessionID, s.maxInflight)
	}
	if len(s.queues[sessionID]) == 0 {
		s.order = append(s.order, sessionID)
	}
	s.queues[sessionID] = append(s.queues[sessionID], queued{ctx: ctx, task: task})
	s.inflight[sessionID]++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// next pops one task, rotating across sessions
func (s *Scheduler) next() (string, queued, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.order) > 0 {
		sessionID := s.order[0]
		s.order = s.order[1:]

		queue := s.queues[sessionID]
		if len(queue) == 0 {
			delete(s.queues, sessionID)
			continue
		}
		item := queue[0]
		s.queues[sessionID] = queue[1:]
		if len(queue) > 1 {
			s.order = append(s.order, sessionID)
		} else {
			delete(s.queues, sessionID)
		}
		return sessionID, item, true
	}
	return "", queued{}, false
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		sessionID, item, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		// Tasks always run, even with a cancelled context: callers like the
		// device fan-out rely on one terminal outcome per submission, so the
		// task observes cancellation itself.
		item.task(item.ctx)

		s.mu.Lock()
		s.inflight[sessionID]--
		if s.inflight[sessionID] <= 0 {
			delete(s.inflight, sessionID)
		}
		s.mu.Unlock()
	}
}

// Shutdown stops accepting work and waits for workers to drain
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
}

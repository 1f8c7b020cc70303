package resource

import "sync"

// serialExecutor runs submitted tasks one at a time on a single dedicated
// goroutine, so lifecycle operations of one context are strictly ordered
// relative to each other regardless of the calling goroutine.
type serialExecutor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
}

func newSerialExecutor() *serialExecutor {
	s := &serialExecutor{}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

func (s *serialExecutor) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.stopped {
			s.mu.Unlock()
			return
		}
		task := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		task()
	}
}

// Execute enqueues task for serial execution. It fails once the executor has
// been shut down.
func (s *serialExecutor) Execute(task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}
	s.queue = append(s.queue, task)
	s.cond.Signal()
	return nil
}

// Shutdown stops the executor after draining already queued tasks.
func (s *serialExecutor) Shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

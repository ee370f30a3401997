package engine

import (
	"log"
	"sync"
)

// background runs fire-and-forget remote syncs. Each task is an explicit
// handle whose error lands on a channel drained by a logging goroutine —
// failures are observed, never silently swallowed, and never surfaced to
// the caller that scheduled them.
type background struct {
	wg   sync.WaitGroup
	errs chan taskErr
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type taskErr struct {
	name string
	err  error
}

func newBackground(logger *log.Logger) *background {
	if logger == nil {
		logger = log.Default()
	}
	b := &background{errs: make(chan taskErr, 16)}
	go func() {
		for te := range b.errs {
			logger.Printf("background %s: %v", te.name, te.err)
		}
	}()
	return b
}

// Go schedules fn without making the caller wait on it. After Wait has
// begun, scheduling is a no-op: the error channel is on its way to being
// closed and a late task must not send on it.
func (b *background) Go(name string, fn func() error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		if err := fn(); err != nil {
			b.errs <- taskErr{name: name, err: err}
		}
	}()
}

// Wait blocks until all in-flight tasks finish and stops the drain.
// Safe to call more than once. The closed flag flips before wg.Wait so
// no task can be added between the drain of the last one and the close.
func (b *background) Wait() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.once.Do(func() { close(b.errs) })
}

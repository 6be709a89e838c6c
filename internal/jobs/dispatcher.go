package jobs

import "sync"

// Dispatcher runs detached pipeline tasks. Each task gets its own goroutine;
// there is deliberately no admission cap, and nothing on the trigger path
// ever waits for a task to finish. Stop exists so shutdown and tests can
// drain in-flight tasks.
type Dispatcher struct {
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch schedules fn on its own goroutine. Returns false if the
// dispatcher has been stopped.
func (d *Dispatcher) Dispatch(fn func()) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		fn()
	}()
	return true
}

// Stop rejects new tasks and waits for in-flight ones.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.wg.Wait()
}

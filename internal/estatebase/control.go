package estatebase

import "sync"

// Controller is the pause/resume/stop switch for a running sync. Pausing
// holds the run between rows without losing its position.
type Controller struct {
	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	stopped bool
}

func NewController() *Controller {
	c := &Controller{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Controller) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Stop requests termination. A paused sync wakes up and observes the stop.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// WaitIfPaused blocks while the controller is paused and reports whether a
// stop has been requested. Called between rows, never mid-row.
func (c *Controller) WaitIfPaused() (stopped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.paused && !c.stopped {
		c.cond.Wait()
	}
	return c.stopped
}

func (c *Controller) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

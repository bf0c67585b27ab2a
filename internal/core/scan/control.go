package scan

import (
	"errors"
	"sync"
)

// ErrPaused is the checkpoint result for "stop and preserve state": the
// walk unwinds but descriptors and queue stay intact for resumption.
var ErrPaused = errors.New("scan paused")

// ErrCancelled unwinds the walk without admitting further files; the
// already-populated queue remains servable.
var ErrCancelled = errors.New("scan cancelled")

// Control is the pause/cancel signal checked at every cooperative
// checkpoint, always immediately before a remote listing call.
type Control struct {
	mu        sync.Mutex
	paused    bool
	cancelled bool
}

func NewControl() *Control { return &Control{} }

func (c *Control) Pause() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Control) Resume() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

func (c *Control) Cancel() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
}

// Rearm clears both flags so a control handed over to a new consumer can
// drive a resumed scan.
func (c *Control) Rearm() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.paused = false
	c.cancelled = false
	c.mu.Unlock()
}

// Check reports the pending signal, cancel taking precedence over pause.
func (c *Control) Check() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return ErrCancelled
	}
	if c.paused {
		return ErrPaused
	}
	return nil
}

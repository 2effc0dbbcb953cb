package reconcile

import (
	"sync"
	"time"
)

// DefaultConfirmWindow is how long a requester may re-display an unchanged
// result.
const DefaultConfirmWindow = time.Minute

// Confirmations tracks one pending re-display token per requester. Expired
// tokens are deleted lazily at lookup time; there is no background sweep.
type Confirmations struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]time.Time
}

func NewConfirmations(window time.Duration) *Confirmations {
	if window <= 0 {
		window = DefaultConfirmWindow
	}
	return &Confirmations{
		window:  window,
		pending: make(map[string]time.Time),
	}
}

// Arm grants requester a fresh window, replacing any pending token, and
// returns the expiry.
func (c *Confirmations) Arm(requester string, now time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiry := now.Add(c.window)
	c.pending[requester] = expiry
	return expiry
}

// TryConsume removes the requester's token and reports whether it was still
// live. Absent and expired tokens both report false.
func (c *Confirmations) TryConsume(requester string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiry, ok := c.pending[requester]
	if !ok {
		return false
	}
	delete(c.pending, requester)
	return !now.After(expiry)
}

// Window returns the configured confirmation window.
func (c *Confirmations) Window() time.Duration {
	return c.window
}

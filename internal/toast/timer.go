package toast

import (
	"time"

	"github.com/devaloi/toastbox/internal/clock"
)

// remaining returns how much of d is left at now for a countdown that
// started at since. It never goes below zero.
func remaining(d time.Duration, since, now time.Time) time.Duration {
	left := d - now.Sub(since)
	if left < 0 {
		return 0
	}
	return left
}

// countdown is the single-use removal timer owned by one toast.
type countdown struct {
	handle clock.Timer
}

// startCountdown schedules fire once t's display duration has elapsed,
// measured from the moment it became visible.
func startCountdown(c clock.Clock, t Toast, fire func()) *countdown {
	return &countdown{handle: c.AfterFunc(remaining(t.Duration, t.ShownAt, c.Now()), fire)}
}

// cancel stops the timer. Callers must still tolerate a late fire, since a
// callback that already started cannot be recalled.
func (c *countdown) cancel() {
	if c == nil || c.handle == nil {
		return
	}
	c.handle.Stop()
}

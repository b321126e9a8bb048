package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeAdvanceFiresInDeadlineOrder(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	var firedAt []time.Time
	c.AfterFunc(300*time.Millisecond, func() {
		fired = append(fired, "late")
		firedAt = append(firedAt, c.Now())
	})
	c.AfterFunc(100*time.Millisecond, func() {
		fired = append(fired, "early")
		firedAt = append(firedAt, c.Now())
	})

	c.Advance(50 * time.Millisecond)
	assert.Empty(t, fired)
	assert.Equal(t, 2, c.Pending())

	c.Advance(time.Second)
	require.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, start.Add(100*time.Millisecond), firedAt[0])
	assert.Equal(t, start.Add(300*time.Millisecond), firedAt[1])
	assert.Equal(t, start.Add(1050*time.Millisecond), c.Now())
	assert.Zero(t, c.Pending())
}

func TestFakeStop(t *testing.T) {
	t.Parallel()
	c := NewFake(time.Unix(0, 0))

	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports false")

	c.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestFakeTimerScheduledFromCallback(t *testing.T) {
	t.Parallel()
	c := NewFake(time.Unix(0, 0))

	var order []int
	c.AfterFunc(time.Second, func() {
		order = append(order, 1)
		c.AfterFunc(time.Second, func() { order = append(order, 2) })
	})

	c.Advance(3 * time.Second)
	assert.Equal(t, []int{1, 2}, order)
}

func TestFakeZeroDurationFiresOnAdvance(t *testing.T) {
	t.Parallel()
	c := NewFake(time.Unix(0, 0))

	called := false
	c.AfterFunc(0, func() { called = true })
	assert.False(t, called)

	c.Advance(0)
	assert.True(t, called)
}

func TestRealAfterFunc(t *testing.T) {
	t.Parallel()
	done := make(chan struct{})
	Real().AfterFunc(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real timer did not fire")
	}
}

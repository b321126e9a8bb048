package toast

import (
	"fmt"
	"strings"
	"time"
)

// Variant selects how a toast is styled by the renderer.
type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

// ParseVariant maps a wire value to a Variant. The empty string selects
// VariantDefault.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantDefault:
		return VariantDefault, nil
	case VariantSuccess:
		return VariantSuccess, nil
	case VariantError:
		return VariantError, nil
	default:
		return "", fmt.Errorf("%w: unknown variant %q", ErrInvalidArgument, s)
	}
}

const (
	DefaultDuration    = time.Second
	DefaultMaxSnackBar = 3
)

// Toast is a read-only view of a live toast.
type Toast struct {
	ID        int64
	Message   string
	Variant   Variant
	Duration  time.Duration
	CreatedAt time.Time
	// ShownAt is when the toast became visible. It is zero while the toast
	// waits in the pending queue.
	ShownAt time.Time
}

// Visible reports whether the toast has been displayed.
func (t Toast) Visible() bool {
	return !t.ShownAt.IsZero()
}

// Spec describes a toast to add.
type Spec struct {
	Message string
	// Variant defaults to VariantDefault.
	Variant Variant
	// Duration defaults to the store's configured default when zero and
	// DurationSet is false.
	Duration time.Duration
	// DurationSet marks Duration as given by the caller. A set zero
	// duration removes the toast on the next clock tick.
	DurationSet bool
	// OnClose is called once with the toast id when the toast leaves the
	// store by expiry, manual close or eviction.
	OnClose func(id int64)
}

// Reason records why a toast left the store.
type Reason string

const (
	ReasonExpired Reason = "expired"
	ReasonClosed  Reason = "closed"
	ReasonEvicted Reason = "evicted"
)

// Policy decides what happens when a toast is added while MaxSnackBar
// toasts are already visible.
type Policy string

const (
	// PolicyDropOldest evicts the oldest visible toast.
	PolicyDropOldest Policy = "drop-oldest"
	// PolicyRejectNew refuses the new toast with ErrCapacity.
	PolicyRejectNew Policy = "reject-new"
	// PolicyQueue holds the new toast until a visible one is removed.
	PolicyQueue Policy = "queue"
)

// ParsePolicy maps a configuration value to a Policy. The empty string
// selects PolicyDropOldest.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDropOldest:
		return PolicyDropOldest, nil
	case PolicyRejectNew:
		return PolicyRejectNew, nil
	case PolicyQueue:
		return PolicyQueue, nil
	default:
		return "", fmt.Errorf("%w: unknown capacity policy %q", ErrInvalidArgument, s)
	}
}

// Config configures a Store.
type Config struct {
	// MaxSnackBar bounds the number of visible toasts. Values <= 0 select
	// DefaultMaxSnackBar.
	MaxSnackBar int
	// DefaultDuration applies to toasts added without a duration. Values
	// <= 0 select DefaultDuration.
	DefaultDuration time.Duration
	Policy          Policy
}

func (c Config) withDefaults() Config {
	if c.MaxSnackBar <= 0 {
		c.MaxSnackBar = DefaultMaxSnackBar
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = DefaultDuration
	}
	if c.Policy == "" {
		c.Policy = PolicyDropOldest
	}
	return c
}

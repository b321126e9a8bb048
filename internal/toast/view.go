package toast

import (
	"fmt"
	"slices"
	"strings"
)

// Order is the display order of a rendered toast list.
type Order int

const (
	// OldestFirst renders toasts in insertion order.
	OldestFirst Order = iota
	// NewestFirst renders the most recent toast on top.
	NewestFirst
)

// ParseOrder maps "oldest" or "newest" to an Order. The empty string
// selects NewestFirst.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newest":
		return NewestFirst, nil
	case "oldest":
		return OldestFirst, nil
	default:
		return 0, fmt.Errorf("%w: unknown order %q", ErrInvalidArgument, s)
	}
}

// Source is what a renderer needs from a store.
type Source interface {
	List() []Toast
	Remove(id int64) bool
}

// ViewItem is one rendered toast with its close affordance.
type ViewItem struct {
	Toast Toast
	Close func()
}

// View projects the visible toasts of src into display order.
func View(src Source, order Order) []ViewItem {
	toasts := src.List()
	items := make([]ViewItem, len(toasts))
	for i, t := range Arrange(toasts, order) {
		id := t.ID
		items[i] = ViewItem{
			Toast: t,
			Close: func() { src.Remove(id) },
		}
	}
	return items
}

// Arrange returns a copy of toasts, which must be in insertion order,
// rearranged into the given display order.
func Arrange(toasts []Toast, order Order) []Toast {
	out := slices.Clone(toasts)
	if order == NewestFirst {
		slices.Reverse(out)
	}
	return out
}

// Package toast implements an ordered store of auto-dismissing toast
// notifications with a bounded number of visible entries.
package toast

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/devaloi/toastbox/internal/clock"
)

// EventKind identifies a store change.
type EventKind string

const (
	// EventAdded reports a toast that became visible as soon as it was added.
	EventAdded EventKind = "added"
	// EventQueued reports a toast held back by PolicyQueue.
	EventQueued EventKind = "queued"
	// EventShown reports a queued toast that became visible.
	EventShown EventKind = "shown"
	// EventRemoved reports a toast that left the store.
	EventRemoved EventKind = "removed"
)

// Event describes one change to a store.
type Event struct {
	Kind  EventKind
	Toast Toast
	// Reason is set for EventRemoved.
	Reason Reason
	// Version increases with every mutation. Toasts is the visible
	// collection as of Version.
	Version uint64
	Toasts  []Toast
}

type entry struct {
	toast   Toast
	onClose func(id int64)
	timer   *countdown
}

// Store owns the ordered collection of live toasts for one provider.
// All methods are safe for concurrent use. Observer and OnClose callbacks
// run outside the store lock, in the goroutine that caused the change.
type Store struct {
	mu        sync.Mutex
	cfg       Config
	clock     clock.Clock
	logger    *slog.Logger
	nextID    func() int64
	version   uint64
	visible   []*entry
	pending   []*entry
	live      map[int64]*entry
	observers map[int]func(Event)
	nextObs   int
	closed    bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source. Defaults to clock.Real().
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDSource sets the function that assigns toast ids. It is called with
// the store lock held and must return a value not returned before. Stores
// sharing one source never hand out the same id twice. Defaults to a
// per-store counter starting at 1.
func WithIDSource(next func() int64) Option {
	return func(s *Store) {
		if next != nil {
			s.nextID = next
		}
	}
}

// NewStore creates an empty store.
func NewStore(cfg Config, opts ...Option) *Store {
	var seq int64
	s := &Store{
		nextID:    func() int64 { seq++; return seq },
		cfg:       cfg.withDefaults(),
		clock:     clock.Real(),
		logger:    slog.New(slog.DiscardHandler),
		live:      make(map[int64]*entry),
		observers: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// Add validates spec, appends a new toast and starts its timer. It returns
// the id assigned to the toast.
func (s *Store) Add(spec Spec) (int64, error) {
	if spec.Message == "" {
		return 0, fmt.Errorf("%w: message must not be empty", ErrInvalidArgument)
	}
	if spec.Duration < 0 {
		return 0, fmt.Errorf("%w: duration must not be negative", ErrInvalidArgument)
	}
	variant, err := ParseVariant(string(spec.Variant))
	if err != nil {
		return 0, err
	}
	duration := spec.Duration
	if duration == 0 && !spec.DurationSet {
		duration = s.cfg.DefaultDuration
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	full := len(s.visible) >= s.cfg.MaxSnackBar
	if full && s.cfg.Policy == PolicyRejectNew {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %d toasts visible", ErrCapacity, len(s.visible))
	}

	e := &entry{
		toast: Toast{
			ID:        s.nextID(),
			Message:   spec.Message,
			Variant:   variant,
			Duration:  duration,
			CreatedAt: s.clock.Now(),
		},
		onClose: spec.OnClose,
	}
	s.live[e.toast.ID] = e

	var (
		events  []Event
		evicted *entry
	)
	switch {
	case !full:
		s.showLocked(e)
		events = append(events, Event{Kind: EventAdded, Toast: e.toast})
	case s.cfg.Policy == PolicyQueue:
		s.pending = append(s.pending, e)
		events = append(events, Event{Kind: EventQueued, Toast: e.toast})
	default:
		evicted = s.visible[0]
		s.detachLocked(evicted)
		events = append(events, Event{Kind: EventRemoved, Toast: evicted.toast, Reason: ReasonEvicted})
		s.showLocked(e)
		events = append(events, Event{Kind: EventAdded, Toast: e.toast})
	}
	observers := s.commitLocked(events)
	s.mu.Unlock()

	s.logger.Debug("toast added",
		slog.Int64("id", e.toast.ID),
		slog.String("variant", string(variant)),
		slog.Duration("duration", duration),
		slog.Bool("visible", e.toast.Visible()),
	)
	if evicted != nil {
		s.logger.Debug("toast evicted", slog.Int64("id", evicted.toast.ID))
		notifyClose(evicted)
	}
	dispatch(observers, events)
	return e.toast.ID, nil
}

// Remove closes the toast with the given id. Unknown ids, including ids
// already removed, are ignored. It reports whether a toast was removed.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	e, ok := s.live[id]
	if !ok || s.closed {
		s.mu.Unlock()
		return false
	}
	s.removeLocked(e, ReasonClosed)
	return true
}

// expire is the timer callback. The identity check makes a fire that lost
// the race against Remove or Close a no-op.
func (s *Store) expire(e *entry) {
	s.mu.Lock()
	if s.closed || s.live[e.toast.ID] != e {
		s.mu.Unlock()
		return
	}
	s.removeLocked(e, ReasonExpired)
}

// removeLocked detaches e, promotes queued toasts and releases the lock
// before running callbacks.
func (s *Store) removeLocked(e *entry, reason Reason) {
	s.detachLocked(e)
	events := []Event{{Kind: EventRemoved, Toast: e.toast, Reason: reason}}
	for len(s.pending) > 0 && len(s.visible) < s.cfg.MaxSnackBar {
		next := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.showLocked(next)
		events = append(events, Event{Kind: EventShown, Toast: next.toast})
	}
	observers := s.commitLocked(events)
	s.mu.Unlock()

	s.logger.Debug("toast removed", slog.Int64("id", e.toast.ID), slog.String("reason", string(reason)))
	notifyClose(e)
	dispatch(observers, events)
}

// List returns the visible toasts in insertion order.
func (s *Store) List() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.visible)
}

// Pending returns the queued toasts in arrival order.
func (s *Store) Pending() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.pending)
}

// Get returns the live toast with the given id.
func (s *Store) Get(id int64) (Toast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live[id]
	if !ok {
		return Toast{}, false
	}
	return e.toast, true
}

// Len returns the number of live toasts, visible and queued.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Subscribe registers fn for every subsequent change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || fn == nil {
		return func() {}
	}
	s.nextObs++
	key := s.nextObs
	s.observers[key] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, key)
		s.mu.Unlock()
	}
}

// Close cancels every pending timer and discards all toasts and observers.
// OnClose callbacks are not invoked. Close is idempotent; after it Add
// fails with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, e := range s.live {
		e.timer.cancel()
	}
	s.logger.Debug("toast store closed", slog.Int("discarded", len(s.live)))
	clear(s.live)
	s.visible = nil
	s.pending = nil
	clear(s.observers)
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) showLocked(e *entry) {
	e.toast.ShownAt = s.clock.Now()
	s.visible = append(s.visible, e)
	e.timer = startCountdown(s.clock, e.toast, func() { s.expire(e) })
}

func (s *Store) detachLocked(e *entry) {
	e.timer.cancel()
	delete(s.live, e.toast.ID)
	s.visible = without(s.visible, e)
	s.pending = without(s.pending, e)
}

// commitLocked stamps events with a new version and the current visible
// snapshot, and returns the observers to notify.
func (s *Store) commitLocked(events []Event) []func(Event) {
	s.version++
	toasts := snapshot(s.visible)
	for i := range events {
		events[i].Version = s.version
		events[i].Toasts = toasts
	}
	if len(s.observers) == 0 {
		return nil
	}
	keys := make([]int, 0, len(s.observers))
	for k := range s.observers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]func(Event), len(keys))
	for i, k := range keys {
		out[i] = s.observers[k]
	}
	return out
}

func notifyClose(e *entry) {
	if e.onClose != nil {
		e.onClose(e.toast.ID)
	}
}

func dispatch(observers []func(Event), events []Event) {
	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}

func snapshot(entries []*entry) []Toast {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Toast, len(entries))
	for i, e := range entries {
		out[i] = e.toast
	}
	return out
}

func without(entries []*entry, target *entry) []*entry {
	for i, e := range entries {
		if e == target {
			copy(entries[i:], entries[i+1:])
			entries[len(entries)-1] = nil
			return entries[:len(entries)-1]
		}
	}
	return entries
}

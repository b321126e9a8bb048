package hub

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/devaloi/toastbox/internal/domain"
	"github.com/devaloi/toastbox/internal/metrics"
	"github.com/devaloi/toastbox/internal/store"
	"github.com/devaloi/toastbox/internal/toast"
)

// Client is the interface that hub/provider expects from a WebSocket client.
type Client interface {
	Name() string
	Send(data []byte)
}

// Provider owns one toast store and fans its changes out to the attached
// clients.
type Provider struct {
	name        string
	store       *toast.Store
	history     store.History
	logger      *slog.Logger
	clients     map[Client]bool
	mu          sync.RWMutex
	sendMu      sync.Mutex
	version     uint64
	broadcast   chan []byte
	quit        chan struct{}
	stopOnce    sync.Once
	unsubscribe func()
	onIdle      func(name string)

	// gaugeMu guards the provider's share of the toast gauges. Once stopped
	// is set, late events from the closed store no longer move them.
	gaugeMu sync.Mutex
	stopped bool
	visible int
	queued  int
}

// NewProvider wraps s. History may be nil.
func NewProvider(name string, s *toast.Store, history store.History, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Provider{
		name:      name,
		store:     s,
		history:   history,
		logger:    logger.With(slog.String("provider", name)),
		clients:   make(map[Client]bool),
		broadcast: make(chan []byte, 256),
		quit:      make(chan struct{}),
	}
	p.unsubscribe = s.Subscribe(p.handleEvent)
	return p
}

// Run starts the provider's broadcast loop. Should be called as a goroutine.
func (p *Provider) Run() {
	for {
		select {
		case msg := <-p.broadcast:
			p.mu.RLock()
			for c := range p.clients {
				c.Send(msg)
			}
			p.mu.RUnlock()
		case <-p.quit:
			return
		}
	}
}

// Stop tears down the store, cancelling every pending timer, and ends the
// broadcast loop.
func (p *Provider) Stop() {
	p.stopOnce.Do(func() {
		p.unsubscribe()
		p.store.Close()

		p.gaugeMu.Lock()
		p.stopped = true
		metrics.ActiveToasts.Sub(float64(p.visible))
		metrics.QueuedToasts.Sub(float64(p.queued))
		p.visible, p.queued = 0, 0
		p.gaugeMu.Unlock()

		close(p.quit)
	})
}

// Join attaches a client and sends it the current snapshot.
func (p *Provider) Join(c Client) {
	p.mu.Lock()
	p.clients[c] = true
	p.mu.Unlock()

	p.sendMu.Lock()
	version := p.version
	p.sendMu.Unlock()
	if data, err := domain.Encode(p.snapshotMessage(version, p.store.List())); err == nil {
		c.Send(data)
	}
}

// Leave detaches a client.
func (p *Provider) Leave(c Client) {
	p.mu.Lock()
	delete(p.clients, c)
	p.mu.Unlock()
}

// Broadcast sends a raw JSON message to all attached clients.
func (p *Provider) Broadcast(data []byte) {
	select {
	case p.broadcast <- data:
	case <-p.quit:
	}
}

// Add creates a toast in the provider's store.
func (p *Provider) Add(spec toast.Spec) (int64, error) {
	id, err := p.store.Add(spec)
	if err != nil {
		metrics.ToastsRejected.WithLabelValues(errorClass(err)).Inc()
		return 0, err
	}
	return id, nil
}

// CloseToast removes a toast. Unknown ids are ignored.
func (p *Provider) CloseToast(id int64) bool {
	return p.store.Remove(id)
}

// Toasts returns the visible toasts in insertion order.
func (p *Provider) Toasts() []toast.Toast {
	return p.store.List()
}

// Store exposes the underlying toast store.
func (p *Provider) Store() *toast.Store {
	return p.store
}

// ClientCount returns the number of attached clients.
func (p *Provider) ClientCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// ToastCount returns the number of live toasts, visible and queued.
func (p *Provider) ToastCount() int {
	return p.store.Len()
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// Info summarizes the provider.
func (p *Provider) Info() domain.Provider {
	return domain.Provider{
		Name:        p.name,
		ClientCount: p.ClientCount(),
		ToastCount:  len(p.store.List()),
		QueuedCount: len(p.store.Pending()),
		MaxSnackBar: p.store.Config().MaxSnackBar,
	}
}

func (p *Provider) idle() bool {
	return p.ClientCount() == 0 && p.ToastCount() == 0
}

func (p *Provider) handleEvent(ev toast.Event) {
	p.track(ev)

	switch ev.Kind {
	case toast.EventAdded:
		metrics.ToastsAdded.WithLabelValues(string(ev.Toast.Variant)).Inc()
		p.send(domain.AddedMessage{Type: domain.MsgAdded, Provider: p.name, Toast: domain.NewToast(ev.Toast)})
	case toast.EventQueued:
		metrics.ToastsAdded.WithLabelValues(string(ev.Toast.Variant)).Inc()
	case toast.EventShown:
		p.send(domain.AddedMessage{Type: domain.MsgAdded, Provider: p.name, Toast: domain.NewToast(ev.Toast)})
	case toast.EventRemoved:
		metrics.ToastsRemoved.WithLabelValues(string(ev.Reason)).Inc()
		p.record(ev)
		p.send(domain.RemovedMessage{Type: domain.MsgRemoved, Provider: p.name, ID: ev.Toast.ID, Reason: string(ev.Reason)})
	}

	p.sendSnapshot(ev.Version, ev.Toasts)

	if ev.Kind == toast.EventRemoved && p.onIdle != nil {
		p.onIdle(p.name)
	}
}

// track moves the active and queued gauges for ev. Stop removes whatever
// the provider still holds, so events dispatched after it are dropped.
func (p *Provider) track(ev toast.Event) {
	p.gaugeMu.Lock()
	defer p.gaugeMu.Unlock()
	if p.stopped {
		return
	}
	var dv, dq int
	switch ev.Kind {
	case toast.EventAdded:
		dv = 1
	case toast.EventQueued:
		dq = 1
	case toast.EventShown:
		dv, dq = 1, -1
	case toast.EventRemoved:
		if ev.Toast.Visible() {
			dv = -1
		} else {
			dq = -1
		}
	}
	p.visible += dv
	p.queued += dq
	metrics.ActiveToasts.Add(float64(dv))
	metrics.QueuedToasts.Add(float64(dq))
}

// gauges returns the provider's current share of the active and queued
// gauges.
func (p *Provider) gauges() (visible, queued int) {
	p.gaugeMu.Lock()
	defer p.gaugeMu.Unlock()
	return p.visible, p.queued
}

// sendSnapshot broadcasts the collection at version unless a newer one has
// already gone out.
func (p *Provider) sendSnapshot(version uint64, toasts []toast.Toast) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if version <= p.version {
		return
	}
	p.version = version
	p.send(p.snapshotMessage(version, toasts))
}

func (p *Provider) snapshotMessage(version uint64, toasts []toast.Toast) domain.SnapshotMessage {
	return domain.SnapshotMessage{
		Type:     domain.MsgSnapshot,
		Provider: p.name,
		Version:  version,
		Toasts:   domain.NewToasts(toasts),
	}
}

func (p *Provider) send(v any) {
	data, err := domain.Encode(v)
	if err != nil {
		p.logger.Error("encode frame", slog.Any("error", err))
		return
	}
	p.Broadcast(data)
}

func (p *Provider) record(ev toast.Event) {
	if p.history == nil {
		return
	}
	err := p.history.Record(domain.HistoryEntry{
		Provider: p.name,
		ToastID:  ev.Toast.ID,
		Message:  ev.Toast.Message,
		Type:     string(ev.Toast.Variant),
		Duration: ev.Toast.Duration.Milliseconds(),
		Reason:   string(ev.Reason),
		Created:  ev.Toast.CreatedAt,
		Closed:   time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("history record failed", slog.Int64("toast_id", ev.Toast.ID), slog.Any("error", err))
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, toast.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, toast.ErrCapacity):
		return "capacity"
	case errors.Is(err, toast.ErrClosed):
		return "closed"
	default:
		return "other"
	}
}

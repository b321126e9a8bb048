package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/devaloi/toastbox/internal/clock"
	"github.com/devaloi/toastbox/internal/domain"
	"github.com/devaloi/toastbox/internal/metrics"
	"github.com/devaloi/toastbox/internal/store"
	"github.com/devaloi/toastbox/internal/toast"
)

// RegisterRequest asks the hub to attach a client to a provider.
type RegisterRequest struct {
	Client   Client
	Provider string
}

// UnregisterRequest asks the hub to detach a client from a provider.
type UnregisterRequest struct {
	Client   Client
	Provider string
}

// Config bounds the hub and configures every provider's store.
type Config struct {
	MaxProviders int
	Toast        toast.Config
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock sets the time source handed to every provider's store.
func WithClock(c clock.Clock) Option {
	return func(h *Hub) {
		if c != nil {
			h.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// Hub manages all providers. Providers are created on demand and torn
// down once they have neither clients nor live toasts.
type Hub struct {
	providers  map[string]*Provider
	mu         sync.RWMutex
	register   chan RegisterRequest
	unregister chan UnregisterRequest
	idle       chan string
	history    store.History
	cfg        Config
	clock      clock.Clock
	logger     *slog.Logger
	quit       chan struct{}
	stopOnce   sync.Once
	// ids numbers toasts across every provider, so an id is never reused
	// when a provider is torn down and created again.
	ids atomic.Int64
}

// New creates a new Hub. History may be nil.
func New(history store.History, cfg Config, opts ...Option) *Hub {
	h := &Hub{
		providers:  make(map[string]*Provider),
		register:   make(chan RegisterRequest, 256),
		unregister: make(chan UnregisterRequest, 256),
		idle:       make(chan string, 256),
		history:    history,
		cfg:        cfg,
		clock:      clock.Real(),
		logger:     slog.New(slog.DiscardHandler),
		quit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's main event loop. Should be called as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case req := <-h.register:
			h.handleRegister(req)
		case req := <-h.unregister:
			h.handleUnregister(req)
		case name := <-h.idle:
			h.removeIfIdle(name)
		case <-h.quit:
			return
		}
	}
}

// Stop signals the hub's event loop to exit and tears down all providers.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		h.mu.Lock()
		defer h.mu.Unlock()
		for name, p := range h.providers {
			p.Stop()
			delete(h.providers, name)
			metrics.ActiveProviders.Dec()
		}
	})
}

// Register queues a client registration request.
func (h *Hub) Register(client Client, provider string) {
	select {
	case h.register <- RegisterRequest{Client: client, Provider: provider}:
	case <-h.quit:
	}
}

// Unregister queues a client unregistration request.
func (h *Hub) Unregister(client Client, provider string) {
	select {
	case h.unregister <- UnregisterRequest{Client: client, Provider: provider}:
	case <-h.quit:
	}
}

// AddToast adds a toast to the named provider, creating the provider if
// needed.
func (h *Hub) AddToast(name string, spec toast.Spec) (int64, error) {
	for attempt := 0; ; attempt++ {
		p, err := h.obtain(name)
		if err != nil {
			return 0, err
		}
		id, err := p.Add(spec)
		// The provider may have been torn down between obtain and Add.
		if errors.Is(err, toast.ErrClosed) && attempt == 0 {
			continue
		}
		if err != nil && p.idle() {
			// Do not keep a provider that a rejected add created.
			h.requestCleanup(name)
		}
		return id, err
	}
}

// CloseToast removes a toast from the named provider. Closing an unknown
// toast is not an error.
func (h *Hub) CloseToast(name string, id int64) (bool, error) {
	p, ok := h.Provider(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p.CloseToast(id), nil
}

// Toasts returns the visible toasts of the named provider.
func (h *Hub) Toasts(name string) ([]toast.Toast, error) {
	p, ok := h.Provider(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p.Toasts(), nil
}

// Provider returns the named provider.
func (h *Hub) Provider(name string) (*Provider, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.providers[name]
	return p, ok
}

// ListProviders returns info about all live providers, sorted by name.
func (h *Hub) ListProviders() []domain.Provider {
	h.mu.RLock()
	defer h.mu.RUnlock()
	providers := make([]domain.Provider, 0, len(h.providers))
	for _, p := range h.providers {
		providers = append(providers, p.Info())
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].Name < providers[j].Name })
	return providers
}

// ProviderInfo returns details about a specific provider, or nil if not found.
func (h *Hub) ProviderInfo(name string) *domain.Provider {
	p, ok := h.Provider(name)
	if !ok {
		return nil
	}
	info := p.Info()
	return &info
}

// obtain returns the named provider, creating it if there is room.
func (h *Hub) obtain(name string) (*Provider, error) {
	if name == "" {
		return nil, ErrInvalidProviderName
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.providers[name]; ok {
		return p, nil
	}
	select {
	case <-h.quit:
		return nil, toast.ErrClosed
	default:
	}
	if len(h.providers) >= h.cfg.MaxProviders {
		return nil, ErrTooManyProviders
	}

	s := toast.NewStore(h.cfg.Toast,
		toast.WithClock(h.clock),
		toast.WithLogger(h.logger.With(slog.String("provider", name))),
		toast.WithIDSource(h.nextID),
	)
	p := NewProvider(name, s, h.history, h.logger)
	p.onIdle = h.requestCleanup
	h.providers[name] = p
	go p.Run()
	metrics.ActiveProviders.Inc()
	h.logger.Info("provider created", slog.String("provider", name))
	return p, nil
}

func (h *Hub) nextID() int64 {
	return h.ids.Add(1)
}

func (h *Hub) requestCleanup(name string) {
	select {
	case h.idle <- name:
	case <-h.quit:
	default:
		// The next removal or unregister retries the check.
	}
}

func (h *Hub) handleRegister(req RegisterRequest) {
	p, err := h.obtain(req.Provider)
	if err != nil {
		errMsg := domain.ErrorMessage{Type: domain.MsgError, Message: err.Error()}
		if data, err := domain.Encode(errMsg); err == nil {
			req.Client.Send(data)
		}
		return
	}
	p.Join(req.Client)
}

func (h *Hub) handleUnregister(req UnregisterRequest) {
	p, ok := h.Provider(req.Provider)
	if !ok {
		return
	}
	p.Leave(req.Client)
	h.removeIfIdle(req.Provider)
}

func (h *Hub) removeIfIdle(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.providers[name]
	// Double-check after acquiring write lock.
	if !ok || !p.idle() {
		return
	}
	p.Stop()
	delete(h.providers, name)
	metrics.ActiveProviders.Dec()
	h.logger.Info("provider removed", slog.String("provider", name))
}

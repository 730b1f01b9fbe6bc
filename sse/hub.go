package sse

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

const defaultKeepAlive = 30 * time.Second

var (
	_ component.Component   = (*Hub)(nil)
	_ component.Describable = (*Hub)(nil)
)

// Hub tracks connected SSE clients.
type Hub struct {
	keepAlive time.Duration
	path      string
	log       *logger.Logger

	mu      sync.Mutex
	clients map[string]context.CancelFunc
	stopped bool

	served atomic.Int64
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithKeepAlive sets the interval of keep-alive comments. Keep it below
// proxy idle timeouts.
func WithKeepAlive(d time.Duration) HubOption {
	return func(h *Hub) { h.keepAlive = d }
}

// WithPath records the mount path for the startup summary.
func WithPath(path string) HubOption {
	return func(h *Hub) { h.path = path }
}

// WithLogger sets the hub logger.
func WithLogger(l *logger.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

// NewHub creates a Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		keepAlive: defaultKeepAlive,
		clients:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get("sse")
	}
	return h
}

// register adds a client. It fails once the hub is stopped.
func (h *Hub) register(cancel context.CancelFunc) (string, bool) {
	id := uuid.NewString()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return "", false
	}
	h.clients[id] = cancel
	h.served.Add(1)
	return id, true
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Served returns the number of clients accepted so far.
func (h *Hub) Served() int64 { return h.served.Load() }

func (h *Hub) Name() string { return "sse" }

// Start reopens a stopped hub.
func (h *Hub) Start(context.Context) error {
	h.mu.Lock()
	h.stopped = false
	h.mu.Unlock()
	return nil
}

// Stop rejects new clients and ends every open stream.
func (h *Hub) Stop(context.Context) error {
	h.mu.Lock()
	h.stopped = true
	cancels := make([]context.CancelFunc, 0, len(h.clients))
	for _, cancel := range h.clients {
		cancels = append(cancels, cancel)
	}
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	h.log.Debug("SSE hub stopped", logger.Fields("closed", len(cancels)))
	return nil
}

func (h *Hub) Health(context.Context) component.Health {
	h.mu.Lock()
	defer h.mu.Unlock()

	health := component.Health{
		Name:   h.Name(),
		Status: component.StatusHealthy,
		Details: map[string]string{
			"clients": strconv.Itoa(len(h.clients)),
			"served":  strconv.FormatInt(h.served.Load(), 10),
		},
	}
	if h.stopped {
		health.Status, health.Message = component.StatusUnhealthy, "stopped"
	}
	return health
}

func (h *Hub) Describe() component.Description {
	return component.Description{
		Name:    "SSE Hub",
		Type:    "sse",
		Details: fmt.Sprintf("Path: %s, keep-alive %s", h.path, h.keepAlive),
	}
}

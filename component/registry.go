package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/demandflow/logger"
)

// stopTimeout bounds each component's Stop call.
const stopTimeout = 10 * time.Second

type entry struct {
	c       Component
	started bool
}

// Registry starts components in registration order and stops them in
// reverse. Component methods are never called with the registry lock held,
// so a component may query the registry (e.g. HealthAll from a health
// endpoint) while it is being started or stopped.
type Registry struct {
	// lifecycle serializes StartAll and StopAll.
	lifecycle sync.Mutex

	mu      sync.RWMutex
	entries []*entry
	byName  map[string]*entry

	log *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		log:    logger.Get("component"),
	}
}

// Register adds a component. Register dependencies first: an executor
// before the pipelines scheduled on it.
func (r *Registry) Register(c Component) error {
	name := c.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}
	e := &entry{c: c}
	r.entries = append(r.entries, e)
	r.byName[name] = e

	r.log.Debug("Component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component not yet started. On failure the ones it
// started are stopped again, newest first, and the start error is returned.
func (r *Registry) StartAll(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	pending := r.snapshot(func(e *entry) bool { return !e.started })
	for _, e := range pending {
		name := e.c.Name()
		begin := time.Now()
		if err := e.c.Start(ctx); err != nil {
			r.log.Error("Component start failed", logger.ErrorFields("start "+name, err))
			r.stopEntries(ctx, reversed(r.snapshot(func(e *entry) bool { return e.started })))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		r.setStarted(e, true)
		r.log.Debug("Component started", logger.Fields(
			logger.FieldComponent, name,
			"duration_ms", time.Since(begin).Milliseconds(),
		))
	}

	r.log.Info("All components started", logger.Fields("count", len(pending)))
	return nil
}

// StopAll stops every started component in reverse registration order and
// joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	return r.stopEntries(ctx, reversed(r.snapshot(func(e *entry) bool { return e.started })))
}

func (r *Registry) stopEntries(ctx context.Context, entries []*entry) error {
	var errs []error
	for _, e := range entries {
		name := e.c.Name()
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		err := e.c.Stop(stopCtx)
		cancel()
		r.setStarted(e, false)

		if err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("Component stop failed", logger.ErrorFields("stop "+name, err))
			continue
		}
		r.log.Debug("Component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return errors.Join(errs...)
}

// HealthAll returns the health of every registered component, in
// registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	entries := r.snapshot(nil)
	out := make([]Health, len(entries))
	for i, e := range entries {
		out[i] = e.c.Health(ctx)
	}
	return out
}

// Get returns a registered component by name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byName[name]; ok {
		return e.c
	}
	return nil
}

// All returns the registered components in registration order.
func (r *Registry) All() []Component {
	entries := r.snapshot(nil)
	out := make([]Component, len(entries))
	for i, e := range entries {
		out[i] = e.c
	}
	return out
}

// snapshot copies the entries matching keep (all when keep is nil).
func (r *Registry) snapshot(keep func(*entry) bool) []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) setStarted(e *entry, started bool) {
	r.mu.Lock()
	e.started = started
	r.mu.Unlock()
}

func reversed(entries []*entry) []*entry {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

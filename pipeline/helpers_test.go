package pipeline

import (
	"slices"
	"sync"
)

// recorder is a test Subscriber that records everything it sees.
type recorder[T any] struct {
	initial Demand
	// onValue, if set, runs on every delivery and its result is returned
	// upstream.
	onValue func(r *recorder[T], v T) Demand

	mu        sync.Mutex
	sub       Subscription
	values    []T
	err       error
	completed int
}

func newRecorder[T any](initial Demand) *recorder[T] {
	return &recorder[T]{initial: initial}
}

func (r *recorder[T]) OnSubscribe(sub Subscription) {
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	if r.initial.Positive() {
		sub.Request(r.initial)
	}
}

func (r *recorder[T]) OnValue(v T) Demand {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	if r.onValue != nil {
		return r.onValue(r, v)
	}
	return 0
}

func (r *recorder[T]) OnComplete(err error) {
	r.mu.Lock()
	r.err = err
	r.completed++
	r.mu.Unlock()
}

func (r *recorder[T]) request(n Demand) {
	r.mu.Lock()
	sub := r.sub
	r.mu.Unlock()
	sub.Request(n)
}

func (r *recorder[T]) cancel() {
	r.mu.Lock()
	sub := r.sub
	r.mu.Unlock()
	sub.Cancel()
}

func (r *recorder[T]) got() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.values)
}

func (r *recorder[T]) completions() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed, r.err
}

// probe sits between two stages and counts what crosses it.
type probe[T any] struct {
	upstream Stream[T]

	mu        sync.Mutex
	requested Demand
	delivered int
	maxOpen   Demand
	canceled  bool
}

func (p *probe[T]) Subscribe(s Subscriber[T]) {
	p.upstream.Subscribe(&probeSubscriber[T]{probe: p, down: s})
}

// outstanding returns requested minus delivered.
func (p *probe[T]) outstanding() Demand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requested - Demand(p.delivered)
}

func (p *probe[T]) stats() (requested Demand, delivered int, maxOpen Demand, canceled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requested, p.delivered, p.maxOpen, p.canceled
}

type probeSubscriber[T any] struct {
	probe *probe[T]
	down  Subscriber[T]
	up    Subscription
}

func (s *probeSubscriber[T]) OnSubscribe(up Subscription) {
	s.up = up
	s.down.OnSubscribe(s)
}

func (s *probeSubscriber[T]) OnValue(v T) Demand {
	s.probe.mu.Lock()
	s.probe.delivered++
	s.probe.mu.Unlock()
	more := s.down.OnValue(v)
	if more > 0 {
		s.record(more)
	}
	return more
}

func (s *probeSubscriber[T]) OnComplete(err error) { s.down.OnComplete(err) }

func (s *probeSubscriber[T]) Request(n Demand) {
	if n > 0 {
		s.record(n)
	}
	s.up.Request(n)
}

func (s *probeSubscriber[T]) Cancel() {
	s.probe.mu.Lock()
	s.probe.canceled = true
	s.probe.mu.Unlock()
	s.up.Cancel()
}

func (s *probeSubscriber[T]) record(n Demand) {
	p := s.probe
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requested = p.requested.Add(n)
	if open := p.requested - Demand(p.delivered); open > p.maxOpen {
		p.maxOpen = open
	}
}

// panics reports whether fn panicked.
func panics(fn func()) (panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	fn()
	return false
}

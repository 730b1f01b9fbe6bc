package pipeline

import (
	"context"
	"sync"

	"github.com/kbukum/demandflow/errors"
)

// Sink is a terminal Subscriber built from callbacks.
type Sink[T any] struct {
	initial    Demand
	onValue    func(T) Demand
	onComplete func(error)

	mu       sync.Mutex
	sub      Subscription
	canceled bool
	err      error
	once     sync.Once
	done     chan struct{}
}

// NewSink creates a Sink that requests initial as soon as it is subscribed.
// onValue's return value is added to the outstanding demand; either callback
// may be nil.
func NewSink[T any](initial Demand, onValue func(T) Demand, onComplete func(error)) *Sink[T] {
	return &Sink[T]{
		initial:    initial,
		onValue:    onValue,
		onComplete: onComplete,
		done:       make(chan struct{}),
	}
}

func (s *Sink[T]) OnSubscribe(sub Subscription) {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	if s.initial.Positive() {
		sub.Request(s.initial)
	}
}

func (s *Sink[T]) OnValue(v T) Demand {
	if s.onValue == nil {
		return 0
	}
	return s.onValue(v)
}

func (s *Sink[T]) OnComplete(err error) {
	s.mu.Lock()
	s.sub = nil
	s.err = err
	s.mu.Unlock()

	if s.onComplete != nil {
		s.onComplete(err)
	}
	s.once.Do(func() { close(s.done) })
}

// Request grants more demand upstream.
func (s *Sink[T]) Request(n Demand) {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		sub.Request(n)
	}
}

// Cancel cancels the upstream connection. Safe to call from inside onValue.
func (s *Sink[T]) Cancel() {
	s.mu.Lock()
	s.canceled = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	s.once.Do(func() { close(s.done) })
}

// Done is closed once the stream completes or the sink is canceled.
func (s *Sink[T]) Done() <-chan struct{} { return s.done }

// Err returns the failure the stream completed with, if any.
func (s *Sink[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Collect requests n values from stream and returns them once n have arrived
// or the stream completed. It cancels the stream when done. The stream must
// make progress without the calling goroutine: use FromSlice or stages on a
// Serial executor, not a Manual one.
func Collect[T any](ctx context.Context, stream Stream[T], n int) ([]T, error) {
	if n <= 0 {
		return nil, errors.InvalidArgument("n", "must be > 0")
	}

	var mu sync.Mutex
	out := make([]T, 0, n)
	var sink *Sink[T]
	sink = NewSink(Demand(n), func(v T) Demand {
		mu.Lock()
		out = append(out, v)
		full := len(out) >= n
		mu.Unlock()
		if full {
			sink.Cancel()
		}
		return 0
	}, nil)
	stream.Subscribe(sink)

	snapshot := func() []T {
		mu.Lock()
		defer mu.Unlock()
		return append([]T(nil), out...)
	}

	select {
	case <-sink.Done():
		return snapshot(), sink.Err()
	case <-ctx.Done():
		sink.Cancel()
		return snapshot(), ctx.Err()
	}
}

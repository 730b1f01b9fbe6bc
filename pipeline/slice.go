package pipeline

import (
	"sync"

	"github.com/kbukum/demandflow/logger"
)

// SliceStream emits a fixed sequence of values and then completes.
type SliceStream[T any] struct {
	items []T
	err   error
	opts  stageOptions
}

// FromSlice creates a stream that delivers items in order, honouring demand,
// then completes successfully. Delivery happens synchronously inside Request;
// re-entrant requests from OnValue are folded into the running loop rather
// than recursing.
func FromSlice[T any](items []T, opts ...Option) *SliceStream[T] {
	return &SliceStream[T]{items: items, opts: resolveOptions("slice", opts)}
}

// FromSliceErr is FromSlice terminating with err instead of success.
func FromSliceErr[T any](items []T, err error, opts ...Option) *SliceStream[T] {
	return &SliceStream[T]{items: items, err: err, opts: resolveOptions("slice", opts)}
}

// Subscribe attaches s. Each subscriber replays the whole slice.
func (p *SliceStream[T]) Subscribe(s Subscriber[T]) {
	id := newSubscriptionID()
	sub := &sliceSubscription[T]{
		id:     id,
		stream: p,
		down:   s,
		log:    p.opts.connLogger(id),
	}
	sub.log.Debug("Subscribed", logger.Fields("items", len(p.items)))
	s.OnSubscribe(sub)
	sub.drain()
}

type sliceSubscription[T any] struct {
	id     string
	stream *SliceStream[T]
	log    *logger.Logger

	mu       sync.Mutex
	down     Subscriber[T]
	demand   Demand
	next     int
	draining bool
	done     bool
}

func (s *sliceSubscription[T]) Request(n Demand) {
	if n <= 0 {
		ignoredRequest(s.log, n)
		return
	}
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.demand = s.demand.Add(n)
	s.mu.Unlock()

	s.stream.opts.observer.OnRequest(s.stream.opts.name, n)
	s.drain()
}

func (s *sliceSubscription[T]) Cancel() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.demand = 0
	s.down = nil
	s.mu.Unlock()

	s.stream.opts.observer.OnCancel(s.stream.opts.name)
	s.log.Debug("Canceled")
}

// drain delivers while demand lasts. Only one drain loop runs at a time.
func (s *sliceSubscription[T]) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for {
		if s.done {
			s.draining = false
			s.mu.Unlock()
			return
		}
		if s.next == len(s.stream.items) {
			s.done = true
			s.draining = false
			down := s.down
			s.down = nil
			s.mu.Unlock()

			s.stream.opts.observer.OnComplete(s.stream.opts.name, s.stream.err)
			down.OnComplete(s.stream.err)
			return
		}
		if !s.demand.Positive() {
			s.draining = false
			s.mu.Unlock()
			return
		}

		v := s.stream.items[s.next]
		s.next++
		s.demand = s.demand.Dec()
		down := s.down
		s.mu.Unlock()

		s.stream.opts.observer.OnEmit(s.stream.opts.name)
		more := down.OnValue(v)

		s.mu.Lock()
		if !s.done {
			s.demand = s.demand.Add(more)
		}
	}
}

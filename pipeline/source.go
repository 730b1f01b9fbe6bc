package pipeline

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/logger"
)

// Number is the set of numeric types a RandomSource can produce.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Range is the half-open interval [Low, High).
type Range[T Number] struct {
	Low  T
	High T
}

// Validate rejects empty ranges (including NaN bounds).
func (r Range[T]) Validate() error {
	if !(r.Low < r.High) {
		return errors.InvalidArgument("range", fmt.Sprintf("low (%v) must be less than high (%v)", r.Low, r.High))
	}
	return nil
}

// Contains reports whether v lies in [Low, High).
func (r Range[T]) Contains(v T) bool {
	return v >= r.Low && v < r.High
}

// Sample draws a uniformly distributed value from the range.
func (r Range[T]) Sample(rng *rand.Rand) T {
	var zero T
	switch {
	case isFloat[T]():
		u := rng.Float64()
		lo, hi := float64(r.Low), float64(r.High)
		v := T(lo*(1-u) + hi*u)
		if !(v < r.High) {
			v = r.Low
		}
		return v
	case zero-1 < zero:
		span := uint64(int64(r.High)) - uint64(int64(r.Low))
		return T(int64(r.Low) + int64(rng.Uint64N(span)))
	default:
		span := uint64(r.High) - uint64(r.Low)
		return T(uint64(r.Low) + rng.Uint64N(span))
	}
}

func isFloat[T Number]() bool {
	half := T(1) / T(2)
	return half != 0
}

// RandomSource is a Stream of random values. It never completes and never
// fails; each subscription generates on the executor, one value per
// scheduled callback, so Unlimited demand cannot grow the call stack.
type RandomSource[T Number] struct {
	rng    Range[T]
	exec   executor.Executor
	opts   stageOptions
	seeder *seeder
}

// NewRandomSource creates a random source over r scheduling on exec.
func NewRandomSource[T Number](r Range[T], exec executor.Executor, opts ...Option) (*RandomSource[T], error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, errors.InvalidArgument("executor", "must not be nil")
	}
	o := resolveOptions("random", opts)
	return &RandomSource[T]{
		rng:    r,
		exec:   exec,
		opts:   o,
		seeder: newSeeder(o.seed),
	}, nil
}

// Range returns the configured range.
func (p *RandomSource[T]) Range() Range[T] { return p.rng }

// Subscribe attaches s with zero initial demand.
func (p *RandomSource[T]) Subscribe(s Subscriber[T]) {
	id := newSubscriptionID()
	sub := &randomSubscription[T]{
		id:   id,
		src:  p,
		rand: p.seeder.next(),
		log:  p.opts.connLogger(id),
		down: s,
	}
	sub.log.Debug("Subscribed")
	s.OnSubscribe(sub)
}

type randomSubscription[T Number] struct {
	id   string
	src  *RandomSource[T]
	log  *logger.Logger
	rand *rand.Rand

	mu     sync.Mutex
	status status
	demand Demand
	down   Subscriber[T]
}

func (s *randomSubscription[T]) Request(n Demand) {
	if n <= 0 {
		ignoredRequest(s.log, n)
		return
	}
	s.mu.Lock()
	if s.status.terminal() {
		s.mu.Unlock()
		return
	}
	s.demand = s.demand.Add(n)
	resume := s.status == statusIdle
	if resume {
		s.status = statusScheduled
	}
	s.mu.Unlock()

	s.src.opts.observer.OnRequest(s.src.opts.name, n)
	if resume {
		s.src.exec.Schedule(s.generate)
	}
}

func (s *randomSubscription[T]) Cancel() {
	s.mu.Lock()
	if s.status.terminal() {
		s.mu.Unlock()
		return
	}
	s.status = statusCanceled
	s.demand = 0
	s.down = nil
	s.mu.Unlock()

	s.src.opts.observer.OnCancel(s.src.opts.name)
	s.log.Debug("Canceled")
}

// generate produces one value and reschedules itself while demand lasts.
func (s *randomSubscription[T]) generate() {
	s.mu.Lock()
	if s.status != statusScheduled {
		s.mu.Unlock()
		return
	}
	if !s.demand.Positive() {
		s.status = statusIdle
		s.mu.Unlock()
		return
	}
	v := s.src.rng.Sample(s.rand)
	s.demand = s.demand.Dec()
	down := s.down
	s.mu.Unlock()

	s.src.opts.observer.OnEmit(s.src.opts.name)
	more := deliver(s.log, s, down, v)

	s.mu.Lock()
	if s.status != statusScheduled {
		s.mu.Unlock()
		return
	}
	s.demand = s.demand.Add(more)
	again := s.demand.Positive()
	if !again {
		s.status = statusIdle
	}
	s.mu.Unlock()

	if again {
		s.src.exec.Schedule(s.generate)
	}
}

package pipeline

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/demandflow/logger"
)

// Subscription is the live link between one producer and one consumer. It is
// handed to the consumer in OnSubscribe.
type Subscription interface {
	// Request adds n to the outstanding demand. Non-positive n is ignored.
	Request(n Demand)
	// Cancel zeroes demand and releases the consumer. It is idempotent and
	// takes effect before it returns; callbacks already scheduled observe it
	// and do nothing.
	Cancel()
}

// Subscriber consumes a stream.
type Subscriber[T any] interface {
	// OnSubscribe hands over the connection. It is called exactly once,
	// before any other method.
	OnSubscribe(sub Subscription)
	// OnValue delivers one item and returns additional demand (possibly zero).
	OnValue(v T) Demand
	// OnComplete terminates the stream. A nil err means success.
	OnComplete(err error)
}

// Stream is anything a Subscriber can attach to.
type Stream[T any] interface {
	Subscribe(s Subscriber[T])
}

// Observer receives per-stage protocol events. Implementations must be safe
// for concurrent use; observability.StreamMetrics is the standard one.
type Observer interface {
	OnRequest(stage string, n Demand)
	OnEmit(stage string)
	OnCancel(stage string)
	OnComplete(stage string, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnRequest(string, Demand) {}
func (NopObserver) OnEmit(string)            {}
func (NopObserver) OnCancel(string)          {}
func (NopObserver) OnComplete(string, error) {}

// Option configures a stage.
type Option func(*stageOptions)

type stageOptions struct {
	name     string
	observer Observer
	log      *logger.Logger
	seed     *uint64
}

// WithName overrides the stage name used in logs and metrics.
func WithName(name string) Option {
	return func(o *stageOptions) { o.name = name }
}

// WithObserver attaches an Observer to the stage.
func WithObserver(obs Observer) Option {
	return func(o *stageOptions) { o.observer = obs }
}

// WithLogger sets the stage logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *stageOptions) { o.log = l }
}

// WithSeed makes the stage's random draws reproducible. It affects
// RandomSource values and Paced jitter.
func WithSeed(seed uint64) Option {
	return func(o *stageOptions) { o.seed = &seed }
}

func resolveOptions(defaultName string, opts []Option) stageOptions {
	o := stageOptions{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	if o.log == nil {
		o.log = logger.Get("pipeline")
	}
	return o
}

// connLogger returns a logger for one connection of the stage.
func (o stageOptions) connLogger(id string) *logger.Logger {
	return o.log.WithStage(o.name, id)
}

// seeder hands out per-connection random generators. With a seed the sequence
// of generators, and so of draws, is reproducible.
type seeder struct {
	mu   sync.Mutex
	root *rand.Rand
}

func newSeeder(seed *uint64) *seeder {
	if seed == nil {
		return &seeder{root: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &seeder{root: rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))}
}

func (s *seeder) next() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewPCG(s.root.Uint64(), s.root.Uint64()))
}

// status is the lifecycle of a connection that schedules its own work.
type status int

const (
	statusIdle status = iota
	statusScheduled
	statusCanceled
	statusCompleted
)

func (s status) terminal() bool {
	return s == statusCanceled || s == statusCompleted
}

func (s status) String() string {
	switch s {
	case statusIdle:
		return "idle"
	case statusScheduled:
		return "scheduled"
	case statusCanceled:
		return "canceled"
	case statusCompleted:
		return "completed"
	}
	return "unknown"
}

func newSubscriptionID() string {
	return uuid.NewString()
}

func ignoredRequest(log *logger.Logger, n Demand) {
	log.Debug("Ignoring non-positive request", logger.Fields(logger.FieldDemand, int64(n)))
}

// deliver hands v to down from a stage's own callback. A panic in down
// cancels conn before it propagates.
func deliver[T any](log *logger.Logger, conn Subscription, down Subscriber[T], v T) Demand {
	ok := false
	defer func() {
		if !ok {
			log.Warn("Consumer panicked; canceling connection")
			conn.Cancel()
		}
	}()
	more := down.OnValue(v)
	ok = true
	return more
}

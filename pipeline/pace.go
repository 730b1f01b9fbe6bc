package pipeline

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/logger"
)

// PaceConfig is the immutable configuration of a Paced stage.
type PaceConfig struct {
	// Interval is the nominal time between ticks.
	Interval time.Duration
	// Jitter is the fraction of Interval by which each tick may deviate,
	// in [0, 1]. Zero gives an exact cadence.
	Jitter float64
	// Executor runs the ticks.
	Executor executor.Executor
}

// Validate checks the configuration.
func (c PaceConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.InvalidArgument("interval", fmt.Sprintf("must be positive (got %s)", c.Interval))
	}
	if math.IsNaN(c.Jitter) || c.Jitter < 0 || c.Jitter > 1 {
		return errors.InvalidArgument("jitter", fmt.Sprintf("must be within [0, 1] (got %v)", c.Jitter))
	}
	if c.Executor == nil {
		return errors.InvalidArgument("executor", "must not be nil")
	}
	return nil
}

// NextInterval returns the delay before the next tick:
// Interval ± Interval×Jitter×U with U uniform in [0, 1). The sign is drawn
// first, then U. With zero jitter rng is not touched and the result is
// exactly Interval.
func (c PaceConfig) NextInterval(rng *rand.Rand) time.Duration {
	if c.Jitter == 0 {
		return c.Interval
	}
	sign := 1.0
	if rng.IntN(2) == 0 {
		sign = -1.0
	}
	offset := float64(c.Interval) * c.Jitter * rng.Float64()
	return time.Duration(float64(c.Interval) + sign*offset)
}

// PacedStream re-emits the latest upstream value on a jittered timer.
type PacedStream[T any] struct {
	upstream Stream[T]
	cfg      PaceConfig
	opts     stageOptions
	seeder   *seeder
}

// Paced creates the pacing stage. Upstream is kept at one outstanding
// request; each tick with downstream demand re-emits the most recent value
// and asks upstream for a fresh one. Ticks before the first value, or
// without demand, emit nothing. Completion and failure pass through at once.
func Paced[T any](upstream Stream[T], interval time.Duration, jitter float64, exec executor.Executor, opts ...Option) (*PacedStream[T], error) {
	if upstream == nil {
		return nil, errors.InvalidArgument("upstream", "must not be nil")
	}
	cfg := PaceConfig{Interval: interval, Jitter: jitter, Executor: exec}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := resolveOptions("paced", opts)
	return &PacedStream[T]{upstream: upstream, cfg: cfg, opts: o, seeder: newSeeder(o.seed)}, nil
}

// Config returns the pacing configuration.
func (p *PacedStream[T]) Config() PaceConfig { return p.cfg }

// Subscribe attaches s.
func (p *PacedStream[T]) Subscribe(s Subscriber[T]) {
	id := newSubscriptionID()
	c := &pacer[T]{
		id:     id,
		stream: p,
		log:    p.opts.connLogger(id),
		rand:   p.seeder.next(),
		down:   s,
	}
	p.upstream.Subscribe(c)
}

// pacer is one Paced connection: Subscriber upstream, Subscription downstream.
type pacer[T any] struct {
	id     string
	stream *PacedStream[T]
	log    *logger.Logger

	mu       sync.Mutex
	rand     *rand.Rand
	status   status
	demand   Demand
	cached   T
	hasValue bool
	// awaiting is set while the one upstream request is outstanding.
	awaiting bool
	up       Subscription
	down     Subscriber[T]
	stopTick executor.CancelFunc
}

func (c *pacer[T]) OnSubscribe(up Subscription) {
	c.mu.Lock()
	if c.status.terminal() {
		c.mu.Unlock()
		up.Cancel()
		return
	}
	c.up = up
	down := c.down
	c.mu.Unlock()

	c.log.Debug("Subscribed", logger.Fields("interval", c.stream.cfg.Interval.String(), "jitter", c.stream.cfg.Jitter))
	down.OnSubscribe(c)
}

func (c *pacer[T]) OnValue(v T) Demand {
	c.mu.Lock()
	if !c.status.terminal() {
		c.cached = v
		c.hasValue = true
		c.awaiting = false
	}
	c.mu.Unlock()
	return 0
}

func (c *pacer[T]) OnComplete(err error) {
	c.mu.Lock()
	if c.status.terminal() {
		c.mu.Unlock()
		return
	}
	c.status = statusCompleted
	down := c.release()
	c.mu.Unlock()

	c.stream.opts.observer.OnComplete(c.stream.opts.name, err)
	c.log.Debug("Completed", logger.Fields(logger.FieldStatus, c.status.String()))
	down.OnComplete(err)
}

func (c *pacer[T]) Request(n Demand) {
	if n <= 0 {
		ignoredRequest(c.log, n)
		return
	}
	c.mu.Lock()
	if c.status.terminal() {
		c.mu.Unlock()
		return
	}
	c.demand = c.demand.Add(n)
	arm := c.status == statusIdle
	var up Subscription
	if arm {
		c.status = statusScheduled
		c.scheduleTick()
		up = c.claimRequest()
	}
	c.mu.Unlock()

	c.stream.opts.observer.OnRequest(c.stream.opts.name, n)
	if up != nil {
		up.Request(1)
	}
}

func (c *pacer[T]) Cancel() {
	c.mu.Lock()
	if c.status.terminal() {
		c.mu.Unlock()
		return
	}
	c.status = statusCanceled
	up := c.up
	c.release()
	c.mu.Unlock()

	c.stream.opts.observer.OnCancel(c.stream.opts.name)
	c.log.Debug("Canceled")
	if up != nil {
		up.Cancel()
	}
}

// tick emits the cached value if there is demand for it, refreshes the cache
// and schedules the next tick.
func (c *pacer[T]) tick() {
	c.mu.Lock()
	if c.status != statusScheduled {
		c.mu.Unlock()
		return
	}
	emit := c.demand.Positive() && c.hasValue
	var v T
	var down Subscriber[T]
	if emit {
		v = c.cached
		c.demand = c.demand.Dec()
		down = c.down
	}
	c.mu.Unlock()

	if emit {
		c.stream.opts.observer.OnEmit(c.stream.opts.name)
		more := deliver(c.log, c, down, v)

		c.mu.Lock()
		if c.status != statusScheduled {
			c.mu.Unlock()
			return
		}
		c.demand = c.demand.Add(more)
		up := c.claimRequest()
		c.mu.Unlock()

		if up != nil {
			up.Request(1)
		}
	}

	c.mu.Lock()
	if c.status == statusScheduled {
		c.scheduleTick()
	}
	c.mu.Unlock()
}

// scheduleTick arms the timer. Called with mu held.
func (c *pacer[T]) scheduleTick() {
	d := c.stream.cfg.NextInterval(c.rand)
	c.stopTick = c.stream.cfg.Executor.ScheduleAfter(d, c.tick)
}

// claimRequest returns the upstream connection if no request is outstanding
// and marks one as outstanding. Called with mu held.
func (c *pacer[T]) claimRequest() Subscription {
	if c.awaiting || c.up == nil {
		return nil
	}
	c.awaiting = true
	return c.up
}

// release stops the timer and drops every reference. Called with mu held;
// returns the former downstream.
func (c *pacer[T]) release() Subscriber[T] {
	if c.stopTick != nil {
		c.stopTick()
		c.stopTick = nil
	}
	var zero T
	down := c.down
	c.cached = zero
	c.hasValue = false
	c.demand = 0
	c.up = nil
	c.down = nil
	return down
}

package executor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

var _ component.Component = (*Serial)(nil)

// Serial runs callbacks one at a time on a dedicated goroutine.
type Serial struct {
	name string
	log  *logger.Logger

	mu      sync.Mutex
	queue   []func()
	running bool
	stopped bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	executed atomic.Int64
	panics   atomic.Int64
}

// Option configures a Serial executor.
type Option func(*Serial)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(l *logger.Logger) Option {
	return func(s *Serial) { s.log = l }
}

// NewSerial creates a serial executor. Tasks scheduled before Start are
// queued and run once the executor starts.
func NewSerial(name string, opts ...Option) *Serial {
	s := &Serial{
		name: name,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("executor")
	}
	s.log = s.log.WithFields(logger.Fields(logger.FieldExecutor, name))
	return s
}

// Schedule queues task. Tasks scheduled after Stop are dropped.
func (s *Serial) Schedule(task func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ScheduleAfter queues task once d has elapsed.
func (s *Serial) ScheduleAfter(d time.Duration, task func()) CancelFunc {
	var canceled atomic.Bool
	guarded := func() {
		if !canceled.Load() {
			task()
		}
	}
	if d <= 0 {
		s.Schedule(guarded)
		return func() { canceled.Store(true) }
	}
	t := time.AfterFunc(d, func() { s.Schedule(guarded) })
	return func() {
		canceled.Store(true)
		t.Stop()
	}
}

// Name returns the component name.
func (s *Serial) Name() string { return "executor:" + s.name }

// Start launches the worker goroutine.
func (s *Serial) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("executor %s already stopped", s.name)
	}
	if s.running {
		return nil
	}
	s.running = true
	go s.loop()
	return nil
}

// Stop halts the worker after the task in flight, dropping queued tasks.
func (s *Serial) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	wasRunning := s.running
	dropped := len(s.queue)
	s.queue = nil
	close(s.stop)
	s.mu.Unlock()

	if !wasRunning {
		return nil
	}
	select {
	case <-s.done:
		s.log.Debug("Executor stopped", logger.Fields("dropped", dropped, "executed", s.executed.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports whether the worker is accepting tasks.
func (s *Serial) Health(ctx context.Context) component.Health {
	s.mu.Lock()
	running, stopped, pending := s.running, s.stopped, len(s.queue)
	s.mu.Unlock()

	h := component.Health{
		Name:   s.Name(),
		Status: component.StatusHealthy,
		Details: map[string]string{
			"pending":  strconv.Itoa(pending),
			"executed": strconv.FormatInt(s.executed.Load(), 10),
			"panics":   strconv.FormatInt(s.panics.Load(), 10),
		},
	}
	switch {
	case stopped:
		h.Status, h.Message = component.StatusUnhealthy, "stopped"
	case !running:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case s.panics.Load() > 0:
		h.Status, h.Message = component.StatusDegraded, "recovered task panics"
	}
	return h
}

// Executed returns the number of tasks run so far.
func (s *Serial) Executed() int64 { return s.executed.Load() }

func (s *Serial) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		task, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
			case <-s.stop:
				return
			}
			continue
		}
		s.run(task)
	}
}

func (s *Serial) next() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	task := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return task, true
}

func (s *Serial) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			s.log.Error("Task panicked", logger.Fields("panic", fmt.Sprint(r)))
		}
	}()
	task()
	s.executed.Add(1)
}

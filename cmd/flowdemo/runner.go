package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/server"
)

const runnerName = "pipeline"

var (
	_ component.Component   = (*Runner)(nil)
	_ component.Describable = (*Runner)(nil)
	_ server.StatusSource   = (*Runner)(nil)
)

// Runner owns one source -> rounded -> windowed -> paced pipeline and the
// sink at its end. Start subscribes, Stop cancels.
type Runner struct {
	cfg      PipelineConfig
	exec     executor.Executor
	observer pipeline.Observer
	log      *logger.Logger
	now      func() time.Time

	mu      sync.RWMutex
	sink    *pipeline.Sink[[]float64]
	latest  []float64
	at      time.Time
	emitted int64
	err     error
	stopped bool
}

// NewRunner creates a Runner. observer may be nil.
func NewRunner(cfg PipelineConfig, exec executor.Executor, observer pipeline.Observer, log *logger.Logger) *Runner {
	if observer == nil {
		observer = pipeline.NopObserver{}
	}
	if log == nil {
		log = logger.Get(runnerName)
	}
	return &Runner{cfg: cfg, exec: exec, observer: observer, log: log, now: time.Now}
}

// Build assembles the stage chain without subscribing to it.
func (r *Runner) Build() (pipeline.Stream[[]float64], error) {
	common := []pipeline.Option{pipeline.WithObserver(r.observer), pipeline.WithLogger(r.log)}

	srcOpts := append([]pipeline.Option{pipeline.WithName("source")}, common...)
	if r.cfg.Seed != 0 {
		srcOpts = append(srcOpts, pipeline.WithSeed(r.cfg.Seed))
	}
	src, err := pipeline.NewRandomSource(pipeline.Range[float64]{Low: r.cfg.Range.Low, High: r.cfg.Range.High}, r.exec, srcOpts...)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	rounded, err := pipeline.Rounded[float64](src, r.cfg.Place, append([]pipeline.Option{pipeline.WithName("rounded")}, common...)...)
	if err != nil {
		return nil, fmt.Errorf("rounded: %w", err)
	}
	windowed, err := pipeline.Windowed[float64](rounded, r.cfg.Window, append([]pipeline.Option{pipeline.WithName("windowed")}, common...)...)
	if err != nil {
		return nil, fmt.Errorf("windowed: %w", err)
	}
	paced, err := pipeline.Paced[[]float64](windowed, r.cfg.Interval, r.cfg.Jitter, r.exec, append([]pipeline.Option{pipeline.WithName("paced")}, common...)...)
	if err != nil {
		return nil, fmt.Errorf("paced: %w", err)
	}
	return paced, nil
}

func (r *Runner) Name() string { return runnerName }

// Start builds the pipeline and subscribes a sink with unlimited demand.
func (r *Runner) Start(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineStart, trace.WithAttributes(
		attribute.Float64("pipeline.range.low", r.cfg.Range.Low),
		attribute.Float64("pipeline.range.high", r.cfg.Range.High),
		attribute.Float64("pipeline.place", r.cfg.Place),
		attribute.Int("pipeline.window", r.cfg.Window),
		attribute.String("pipeline.interval", r.cfg.Interval.String()),
		attribute.Float64("pipeline.jitter", r.cfg.Jitter),
	))
	defer span.End()

	stream, err := r.Build()
	if err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}

	sink := pipeline.NewSink(pipeline.Unlimited, r.onWindow, r.onComplete)
	r.mu.Lock()
	r.sink = sink
	r.stopped = false
	r.mu.Unlock()

	stream.Subscribe(sink)
	r.log.Info("Pipeline started", logger.Fields(
		"window", r.cfg.Window,
		"interval", r.cfg.Interval.String(),
		"jitter", r.cfg.Jitter,
	))
	return nil
}

// Stop cancels the sink, which cancels every stage upstream.
func (r *Runner) Stop(ctx context.Context) error {
	_, span := observability.StartSpan(ctx, observability.SpanPipelineStop)
	defer span.End()

	r.mu.Lock()
	sink := r.sink
	r.stopped = true
	emitted := r.emitted
	r.mu.Unlock()

	if sink != nil {
		sink.Cancel()
	}
	span.SetAttributes(attribute.Int64("pipeline.emitted", emitted))
	r.log.Info("Pipeline stopped", logger.Fields("emitted", emitted))
	return nil
}

func (r *Runner) Health(context.Context) component.Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := component.Health{
		Name:    runnerName,
		Status:  component.StatusHealthy,
		Details: map[string]string{"emitted": strconv.FormatInt(r.emitted, 10)},
	}
	switch {
	case r.err != nil:
		h.Status, h.Message = component.StatusUnhealthy, r.err.Error()
	case r.sink == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case r.stopped:
		h.Status, h.Message = component.StatusUnhealthy, "stopped"
	case r.emitted == 0:
		h.Status, h.Message = component.StatusDegraded, "waiting for first window"
	}
	return h
}

func (r *Runner) Describe() component.Description {
	return component.Description{
		Name: "Pipeline",
		Type: "stream",
		Details: fmt.Sprintf("source[%g,%g) -> rounded(%g) -> windowed(%d) -> paced(%s, %g)",
			r.cfg.Range.Low, r.cfg.Range.High, r.cfg.Place, r.cfg.Window, r.cfg.Interval, r.cfg.Jitter),
	}
}

// Latest returns the most recent window delivered to the sink.
func (r *Runner) Latest() (server.Latest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.emitted == 0 {
		return server.Latest{}, false
	}
	return server.Latest{Value: r.latest, Emitted: r.emitted, At: r.at}, true
}

func (r *Runner) onWindow(w []float64) pipeline.Demand {
	r.mu.Lock()
	r.latest = w
	r.at = r.now()
	r.emitted++
	n := r.emitted
	r.mu.Unlock()

	r.log.Info("Window", logger.Fields("n", n, "values", w))
	return 0
}

func (r *Runner) onComplete(err error) {
	r.mu.Lock()
	if err != nil {
		r.err = errors.UpstreamFailed(runnerName, err)
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error("Pipeline failed", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	r.log.Info("Pipeline completed")
}

package main

import (
	"context"
	"math"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
)

func testPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Range:    RangeConfig{Low: 0, High: 100},
		Place:    0.5,
		Window:   3,
		Interval: time.Second,
		Seed:     42,
	}
}

func newTestRunner(exec *executor.Manual) *Runner {
	r := NewRunner(testPipelineConfig(), exec, nil, logger.Nop())
	r.now = exec.Now
	return r
}

func latestWindow(t *testing.T, r *Runner) []float64 {
	t.Helper()
	l, ok := r.Latest()
	if !ok {
		t.Fatal("expected a latest value")
	}
	w, ok := l.Value.([]float64)
	if !ok {
		t.Fatalf("unexpected value type %T", l.Value)
	}
	return w
}

func TestRunner_PacedWindows(t *testing.T) {
	exec := executor.NewManual()
	r := newTestRunner(exec)
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	exec.RunPending()
	if _, ok := r.Latest(); ok {
		t.Fatal("nothing should be emitted before the first tick")
	}
	if h := r.Health(ctx); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded before first window, got %s", h.Status)
	}

	exec.Advance(time.Second)
	if w := latestWindow(t, r); len(w) != 1 {
		t.Fatalf("first window should hold one value, got %v", w)
	}

	exec.Advance(3 * time.Second)
	l, _ := r.Latest()
	if l.Emitted != 4 {
		t.Errorf("expected 4 emissions after 4s, got %d", l.Emitted)
	}
	if !l.At.Equal(time.Unix(4, 0)) {
		t.Errorf("expected last emission at 4s, got %v", l.At)
	}
	w := latestWindow(t, r)
	if len(w) != 3 {
		t.Fatalf("window should be full, got %v", w)
	}
	for _, v := range w {
		if v < 0 || v > 100 {
			t.Errorf("value %v outside range", v)
		}
		if q := v / 0.5; q != math.Trunc(q) {
			t.Errorf("value %v is not a multiple of 0.5", v)
		}
	}
	if h := r.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}
}

func TestRunner_SeedReproducible(t *testing.T) {
	run := func() []float64 {
		exec := executor.NewManual()
		r := newTestRunner(exec)
		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
		exec.Advance(5 * time.Second)
		return latestWindow(t, r)
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded runs differ: %v vs %v", a, b)
		}
	}
}

func TestRunner_StopCancels(t *testing.T) {
	exec := executor.NewManual()
	r := newTestRunner(exec)
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	exec.Advance(2 * time.Second)
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	before, _ := r.Latest()

	exec.Advance(10 * time.Second)
	after, _ := r.Latest()
	if after.Emitted != before.Emitted {
		t.Errorf("emissions continued after stop: %d -> %d", before.Emitted, after.Emitted)
	}
	if exec.Pending() != 0 {
		t.Errorf("expected no pending tasks after stop, got %d", exec.Pending())
	}
	if h := r.Health(ctx); h.Status != component.StatusUnhealthy || h.Message != "stopped" {
		t.Errorf("unexpected health after stop: %+v", h)
	}
}

func TestRunner_InvalidConfig(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Window = 0
	r := NewRunner(cfg, executor.NewManual(), nil, logger.Nop())
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail for window 0")
	}
	if h := r.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", h.Status)
	}
}

func TestRunner_StreamMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := observability.NewStreamMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	exec := executor.NewManual()
	r := NewRunner(testPipelineConfig(), exec, metrics, logger.Nop())
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	exec.Advance(3 * time.Second)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	emitted := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "stream.emitted" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				stage, _ := dp.Attributes.Value(observability.AttrStage)
				emitted[stage.AsString()] += dp.Value
			}
		}
	}
	if emitted["paced"] != 3 {
		t.Errorf("expected 3 paced emissions, got %v", emitted)
	}
	for _, stage := range []string{"source", "rounded", "windowed"} {
		if emitted[stage] < 3 {
			t.Errorf("expected at least 3 %s emissions, got %v", stage, emitted)
		}
	}
}

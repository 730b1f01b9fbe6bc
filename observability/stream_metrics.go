package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/demandflow/pipeline"
)

var _ pipeline.Observer = (*StreamMetrics)(nil)

// StreamMetrics records demand protocol events as OpenTelemetry counters.
// Attach it to stages with pipeline.WithObserver.
type StreamMetrics struct {
	requests  metric.Int64Counter
	demand    metric.Int64Counter
	emitted   metric.Int64Counter
	canceled  metric.Int64Counter
	completed metric.Int64Counter
}

// NewStreamMetrics creates the stream instruments on the given meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	requests, err := meter.Int64Counter("stream.requests",
		metric.WithDescription("Number of Request calls received by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.requests counter: %w", err)
	}

	demand, err := meter.Int64Counter("stream.demand",
		metric.WithDescription("Finite demand granted to a stage; unlimited requests are only counted in stream.requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.demand counter: %w", err)
	}

	emitted, err := meter.Int64Counter("stream.emitted",
		metric.WithDescription("Values delivered downstream by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.emitted counter: %w", err)
	}

	canceled, err := meter.Int64Counter("stream.canceled",
		metric.WithDescription("Connections canceled by their consumer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.canceled counter: %w", err)
	}

	completed, err := meter.Int64Counter("stream.completed",
		metric.WithDescription("Terminal completions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.completed counter: %w", err)
	}

	return &StreamMetrics{
		requests:  requests,
		demand:    demand,
		emitted:   emitted,
		canceled:  canceled,
		completed: completed,
	}, nil
}

// OnRequest records a Request call.
func (m *StreamMetrics) OnRequest(stage string, n pipeline.Demand) {
	ctx := context.Background()
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.Bool("unlimited", n.IsUnlimited()),
	))
	if !n.IsUnlimited() {
		m.demand.Add(ctx, int64(n), stageAttr(stage))
	}
}

// OnEmit records one delivery.
func (m *StreamMetrics) OnEmit(stage string) {
	m.emitted.Add(context.Background(), 1, stageAttr(stage))
}

// OnCancel records a cancellation.
func (m *StreamMetrics) OnCancel(stage string) {
	m.canceled.Add(context.Background(), 1, stageAttr(stage))
}

// OnComplete records a completion, tagged "ok" or "failed".
func (m *StreamMetrics) OnComplete(stage string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.completed.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrOutcome, outcome),
	))
}

func stageAttr(stage string) metric.AddOption {
	return metric.WithAttributes(attribute.String(AttrStage, stage))
}

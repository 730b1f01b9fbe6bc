package component

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startErr == nil && m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockComponent{name: "executor"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "executor"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "executor"})

	got := r.Get("executor")
	if got == nil || got.Name() != "executor" {
		t.Fatalf("expected executor, got %v", got)
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartStopOrder(t *testing.T) {
	r := NewRegistry()
	var started, stopped []string
	for _, name := range []string{"executor", "pipeline", "status"} {
		r.Register(&mockComponent{name: name, startOrder: &started, stopOrder: &stopped})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	if fmt.Sprint(started) != "[executor pipeline status]" {
		t.Errorf("unexpected start order %v", started)
	}
	if fmt.Sprint(stopped) != "[status pipeline executor]" {
		t.Errorf("unexpected stop order %v", stopped)
	}
}

func TestStartAllRollsBackOnFailure(t *testing.T) {
	r := NewRegistry()
	var started, stopped []string
	r.Register(&mockComponent{name: "executor", startOrder: &started, stopOrder: &stopped})
	r.Register(&mockComponent{name: "pipeline", startErr: fmt.Errorf("bad config"), stopOrder: &stopped})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected error from StartAll")
	}
	if fmt.Sprint(stopped) != "[executor]" {
		t.Errorf("expected only executor to be stopped, got %v", stopped)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry()
	var stopped []string
	r.Register(&mockComponent{name: "executor", stopOrder: &stopped})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(stopped) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(stopped))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "executor", stopErr: fmt.Errorf("stop failed")})
	r.StartAll(context.Background())

	if err := r.StopAll(context.Background()); err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "a", health: Health{Name: "a", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "b", health: Health{Name: "b", Status: StatusUnhealthy, Message: "stopped"}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Status != StatusUnhealthy || results[1].Message != "stopped" {
		t.Errorf("unexpected health %+v", results[1])
	}
	if len(r.All()) != 2 {
		t.Errorf("expected 2 components, got %d", len(r.All()))
	}
}

// healthProbe queries the registry from inside Stop, on another goroutine,
// the way a health endpoint does while the server shuts down.
type healthProbe struct {
	mockComponent
	registry *Registry
	seen     int
}

func (p *healthProbe) Stop(ctx context.Context) error {
	done := make(chan int, 1)
	go func() { done <- len(p.registry.HealthAll(ctx)) }()
	select {
	case p.seen = <-done:
		return nil
	case <-time.After(time.Second):
		return errors.New("HealthAll blocked during Stop")
	}
}

func TestHealthAllDuringStop(t *testing.T) {
	r := NewRegistry()
	probe := &healthProbe{mockComponent: mockComponent{name: "status"}, registry: r}
	r.Register(&mockComponent{name: "executor"})
	r.Register(probe)

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if probe.seen != 2 {
		t.Errorf("expected HealthAll to report 2 components, got %d", probe.seen)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := NewRegistry()
	errA, errB := errors.New("a failed"), errors.New("b failed")
	r.Register(&mockComponent{name: "a", stopErr: errA})
	r.Register(&mockComponent{name: "b", stopErr: errB})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both stop errors, got %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Errorf("second StopAll should be a no-op, got %v", err)
	}
}

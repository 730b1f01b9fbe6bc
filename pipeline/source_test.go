package pipeline

import (
	"math/rand/v2"
	"slices"
	"testing"

	"pgregory.net/rapid"

	apperrors "github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/executor"
)

func TestNewRandomSource_Preconditions(t *testing.T) {
	m := executor.NewManual()
	tests := []struct {
		name string
		r    Range[float64]
		exec executor.Executor
	}{
		{"empty range", Range[float64]{Low: 1, High: 1}, m},
		{"inverted range", Range[float64]{Low: 2, High: 1}, m},
		{"nil executor", Range[float64]{Low: 0, High: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRandomSource(tt.r, tt.exec)
			if !apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument) {
				t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestRandomSource_NeverDeliversInsideRequest(t *testing.T) {
	m := executor.NewManual()
	src, err := NewRandomSource(Range[int]{Low: 0, High: 10}, m)
	if err != nil {
		t.Fatal(err)
	}
	rec := newRecorder[int](3)
	src.Subscribe(rec)

	if got := rec.got(); len(got) != 0 {
		t.Fatalf("expected no synchronous delivery, got %v", got)
	}
	if ran := m.RunPending(); ran != 3 {
		t.Errorf("expected one callback per value, got %d", ran)
	}
	got := rec.got()
	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %v", got)
	}
	for _, v := range got {
		if v < 0 || v >= 10 {
			t.Errorf("value %d out of range", v)
		}
	}
}

func TestRandomSource_ResumesOnRequest(t *testing.T) {
	m := executor.NewManual()
	src, _ := NewRandomSource(Range[float64]{Low: -1, High: 1}, m)
	rec := newRecorder[float64](1)
	src.Subscribe(rec)
	m.RunPending()

	rec.request(2)
	m.RunPending()
	if got := rec.got(); len(got) != 3 {
		t.Fatalf("expected 3 values, got %d", len(got))
	}
	if m.Pending() != 0 {
		t.Errorf("expected the source to go idle, %d tasks pending", m.Pending())
	}
}

func TestRandomSource_DemandFromOnValue(t *testing.T) {
	m := executor.NewManual()
	src, _ := NewRandomSource(Range[uint8]{Low: 10, High: 20}, m)
	rec := newRecorder[uint8](1)
	rec.onValue = func(r *recorder[uint8], _ uint8) Demand {
		if len(r.values) < 5 {
			return 1
		}
		return 0
	}
	src.Subscribe(rec)
	m.RunPending()

	if got := rec.got(); len(got) != 5 {
		t.Fatalf("expected 5 values, got %d", len(got))
	}
}

func TestRandomSource_CancelDropsPendingGeneration(t *testing.T) {
	m := executor.NewManual()
	src, _ := NewRandomSource(Range[int]{Low: 0, High: 100}, m)
	rec := newRecorder[int](Unlimited)
	src.Subscribe(rec)

	// One generation is queued; cancel before it runs.
	rec.cancel()
	m.RunPending()

	if got := rec.got(); len(got) != 0 {
		t.Fatalf("expected nothing after cancel, got %v", got)
	}
	rec.request(5)
	m.RunPending()
	if got := rec.got(); len(got) != 0 {
		t.Fatalf("requests after cancel must be ignored, got %v", got)
	}
}

func TestRandomSource_ConsumerPanicEndsConnection(t *testing.T) {
	m := executor.NewManual()
	src, err := NewRandomSource(Range[int]{Low: 0, High: 10}, m)
	if err != nil {
		t.Fatal(err)
	}
	rec := newRecorder[int](1)
	rec.onValue = func(*recorder[int], int) Demand { panic("consumer bug") }
	src.Subscribe(rec)

	if !panics(func() { m.RunPending() }) {
		t.Fatal("expected the consumer panic to reach the executor")
	}
	conn := rec.sub.(*randomSubscription[int])
	conn.mu.Lock()
	st := conn.status
	conn.mu.Unlock()
	if st != statusCanceled {
		t.Fatalf("expected connection canceled after panic, got %v", st)
	}

	rec.request(1)
	if m.Pending() != 0 {
		t.Fatalf("expected no work after the connection ended, got %d", m.Pending())
	}
}

func TestRandomSource_UnlimitedDemandStepwise(t *testing.T) {
	m := executor.NewManual()
	src, _ := NewRandomSource(Range[int64]{Low: -5, High: 5}, m)
	rec := newRecorder[int64](Unlimited)
	rec.onValue = func(r *recorder[int64], _ int64) Demand {
		if len(r.values) == 1000 {
			r.cancel()
		}
		return 0
	}
	src.Subscribe(rec)

	for m.Step() {
	}
	if got := rec.got(); len(got) != 1000 {
		t.Fatalf("expected 1000 values, got %d", len(got))
	}
}

func TestRandomSource_SeedIsReproducible(t *testing.T) {
	draw := func() []int {
		m := executor.NewManual()
		src, _ := NewRandomSource(Range[int]{Low: 0, High: 1 << 20}, m, WithSeed(42))
		rec := newRecorder[int](8)
		src.Subscribe(rec)
		m.RunPending()
		return rec.got()
	}
	a, b := draw(), draw()
	if !slices.Equal(a, b) {
		t.Errorf("expected identical sequences, got %v and %v", a, b)
	}
}

func TestRange_SampleWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.IntRange(-1000, 1000).Draw(t, "lo")
		width := rapid.IntRange(1, 1000).Draw(t, "width")
		seed := rapid.Uint64().Draw(t, "seed")
		rng := rand.New(rand.NewPCG(seed, seed))

		ri := Range[int]{Low: lo, High: lo + width}
		if v := ri.Sample(rng); !ri.Contains(v) {
			t.Fatalf("int %d outside %v", v, ri)
		}
		rf := Range[float64]{Low: float64(lo), High: float64(lo) + float64(width)/7}
		if v := rf.Sample(rng); !rf.Contains(v) {
			t.Fatalf("float %v outside %v", v, rf)
		}
		ru := Range[uint16]{Low: uint16(width), High: uint16(width) + 3}
		if v := ru.Sample(rng); !ru.Contains(v) {
			t.Fatalf("uint %d outside %v", v, ru)
		}
	})
}

func TestRange_SampleCoversIntegerRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	r := Range[int8]{Low: -2, High: 2}
	seen := map[int8]bool{}
	for i := 0; i < 1000; i++ {
		seen[r.Sample(rng)] = true
	}
	for v := int8(-2); v < 2; v++ {
		if !seen[v] {
			t.Errorf("value %d never sampled", v)
		}
	}
}

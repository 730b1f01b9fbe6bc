package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	apperrors "github.com/kbukum/demandflow/errors"
)

func TestFromSlice_HonoursDemand(t *testing.T) {
	rec := newRecorder[int](0)
	FromSlice([]int{1, 2, 3, 4}).Subscribe(rec)

	if got := rec.got(); len(got) != 0 {
		t.Fatalf("expected nothing before a request, got %v", got)
	}
	rec.request(2)
	if got := rec.got(); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("expected [1 2], got %v", got)
	}
	if n, _ := rec.completions(); n != 0 {
		t.Fatal("completed early")
	}
	rec.request(5)
	if got := rec.got(); !slices.Equal(got, []int{1, 2, 3, 4}) {
		t.Fatalf("expected [1 2 3 4], got %v", got)
	}
	n, err := rec.completions()
	if n != 1 || err != nil {
		t.Fatalf("expected one successful completion, got %d (%v)", n, err)
	}
}

func TestFromSlice_DemandReturnedFromOnValue(t *testing.T) {
	rec := newRecorder[int](1)
	rec.onValue = func(*recorder[int], int) Demand { return 1 }
	FromSlice([]int{1, 2, 3}).Subscribe(rec)

	if got := rec.got(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestFromSlice_CancelInsideOnValue(t *testing.T) {
	rec := newRecorder[int](Unlimited)
	rec.onValue = func(r *recorder[int], v int) Demand {
		if v == 2 {
			r.cancel()
		}
		return 0
	}
	FromSlice([]int{1, 2, 3, 4}).Subscribe(rec)

	if got := rec.got(); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("expected [1 2], got %v", got)
	}
	if n, _ := rec.completions(); n != 0 {
		t.Fatal("a canceled stream must not complete")
	}
}

func TestFromSliceErr_CompletesWithFailure(t *testing.T) {
	boom := errors.New("boom")
	rec := newRecorder[int](Unlimited)
	FromSliceErr([]int{1}, boom).Subscribe(rec)

	n, err := rec.completions()
	if n != 1 || err != boom {
		t.Fatalf("expected one failure, got %d (%v)", n, err)
	}
}

func TestFromSlice_EmptyCompletesWithoutDemand(t *testing.T) {
	rec := newRecorder[int](0)
	FromSlice([]int{}).Subscribe(rec)

	if n, err := rec.completions(); n != 1 || err != nil {
		t.Fatalf("expected completion, got %d (%v)", n, err)
	}
}

func TestCollect(t *testing.T) {
	got, err := Collect[int](context.Background(), FromSlice([]int{1, 2, 3, 4, 5}), 3)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}

func TestCollect_ShortStream(t *testing.T) {
	got, err := Collect[int](context.Background(), FromSlice([]int{1}), 3)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{1}) {
		t.Errorf("expected [1], got %v", got)
	}
}

func TestCollect_ContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// A stream that never delivers.
	never := streamFunc[int](func(s Subscriber[int]) { s.OnSubscribe(nopSubscription{}) })
	_, err := Collect[int](ctx, never, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCollect_InvalidCount(t *testing.T) {
	_, err := Collect[int](context.Background(), FromSlice([]int{1}), 0)
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestSink_CancelBeforeSubscribe(t *testing.T) {
	sink := NewSink[int](Unlimited, func(int) Demand {
		t.Fatal("no value expected")
		return 0
	}, nil)
	sink.Cancel()
	FromSlice([]int{1, 2}).Subscribe(sink)

	select {
	case <-sink.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

type streamFunc[T any] func(Subscriber[T])

func (f streamFunc[T]) Subscribe(s Subscriber[T]) { f(s) }

type nopSubscription struct{}

func (nopSubscription) Request(Demand) {}
func (nopSubscription) Cancel()        {}

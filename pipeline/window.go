package pipeline

import (
	"fmt"
	"slices"

	"github.com/kbukum/demandflow/errors"
)

// WindowedStream emits, for every upstream value, the most recent size values
// oldest-first.
type WindowedStream[T any] struct {
	upstream Stream[T]
	size     int
	opts     stageOptions
}

// Windowed creates the rolling-window stage. size must be at least 1. Until
// size values have arrived the snapshots are simply shorter.
func Windowed[T any](upstream Stream[T], size int, opts ...Option) (*WindowedStream[T], error) {
	if upstream == nil {
		return nil, errors.InvalidArgument("upstream", "must not be nil")
	}
	if size < 1 {
		return nil, errors.InvalidArgument("size", fmt.Sprintf("must be at least 1 (got %d)", size))
	}
	return &WindowedStream[T]{upstream: upstream, size: size, opts: resolveOptions("windowed", opts)}, nil
}

// Size returns the window capacity.
func (p *WindowedStream[T]) Size() int { return p.size }

// Subscribe attaches s with its own buffer. Each snapshot is a fresh slice
// the subscriber may keep.
func (p *WindowedStream[T]) Subscribe(s Subscriber[[]T]) {
	buf := &window[T]{size: p.size}
	p.upstream.Subscribe(newRelay(p.opts, s, buf.push, buf.reset))
}

// window holds the most recent size values. It grows with arrivals, so a
// large size costs nothing until values actually arrive.
type window[T any] struct {
	items []T
	size  int
}

func (w *window[T]) push(v T) []T {
	if len(w.items) == w.size {
		copy(w.items, w.items[1:])
		w.items[w.size-1] = v
	} else {
		w.items = append(w.items, v)
	}
	return slices.Clone(w.items)
}

func (w *window[T]) reset() {
	clear(w.items)
	w.items = nil
}

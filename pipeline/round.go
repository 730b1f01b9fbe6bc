package pipeline

import (
	"math"

	"github.com/kbukum/demandflow/errors"
)

// RoundedStream maps every value to the nearest multiple of place.
type RoundedStream[T Number] struct {
	upstream Stream[T]
	place    T
	opts     stageOptions
}

// Rounded creates the rounding stage. place must be positive. The stage is
// stateless and passes demand, cancellation and completion through 1:1.
func Rounded[T Number](upstream Stream[T], place T, opts ...Option) (*RoundedStream[T], error) {
	if upstream == nil {
		return nil, errors.InvalidArgument("upstream", "must not be nil")
	}
	if !(place > 0) {
		return nil, errors.InvalidArgument("place", "must be greater than zero")
	}
	return &RoundedStream[T]{upstream: upstream, place: place, opts: resolveOptions("rounded", opts)}, nil
}

// Subscribe attaches s through a fresh connection.
func (p *RoundedStream[T]) Subscribe(s Subscriber[T]) {
	place := p.place
	p.upstream.Subscribe(newRelay(p.opts, s, func(v T) T { return RoundTo(v, place) }, nil))
}

// RoundTo returns round(x/place)*place. Halves round away from zero, so
// RoundTo(2.5, 1) == 3 and RoundTo(-2.5, 1) == -3. Integer kinds are rounded
// exactly in their own arithmetic; when the nearest multiple does not fit
// in T the next multiple toward zero is returned instead.
func RoundTo[T Number](x, place T) T {
	if isFloat[T]() {
		return T(math.Round(float64(x)/float64(place)) * float64(place))
	}
	return roundInteger(x, place)
}

// roundInteger expects place > 0.
func roundInteger[T Number](x, place T) T {
	q := x / place
	r := x - q*place
	switch {
	case r > 0 && r >= place-r:
		q++
	case r < 0 && -r >= place+r:
		q--
	default:
		return q * place
	}
	if m := q * place; m/place == q {
		return m
	}
	if r > 0 {
		return (q - 1) * place
	}
	return (q + 1) * place
}

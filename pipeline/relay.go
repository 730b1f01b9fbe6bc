package pipeline

import (
	"sync"

	"github.com/kbukum/demandflow/logger"
)

// relay is the connection for synchronous one-in-one-out stages. It is both
// the Subscriber attached upstream and the Subscription handed downstream, so
// demand crosses it unchanged in both directions.
type relay[I, O any] struct {
	id   string
	opts stageOptions
	log  *logger.Logger

	mu   sync.Mutex
	up   Subscription
	down Subscriber[O]
	done bool
	// apply maps one upstream value; it runs under mu.
	apply func(I) O
	// reset releases stage state; it runs under mu.
	reset func()
}

func newRelay[I, O any](opts stageOptions, down Subscriber[O], apply func(I) O, reset func()) *relay[I, O] {
	id := newSubscriptionID()
	return &relay[I, O]{
		id:    id,
		opts:  opts,
		log:   opts.connLogger(id),
		down:  down,
		apply: apply,
		reset: reset,
	}
}

func (r *relay[I, O]) OnSubscribe(up Subscription) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		up.Cancel()
		return
	}
	r.up = up
	down := r.down
	r.mu.Unlock()

	r.log.Debug("Subscribed")
	down.OnSubscribe(r)
}

func (r *relay[I, O]) OnValue(v I) Demand {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return 0
	}
	out := r.apply(v)
	down := r.down
	r.mu.Unlock()

	r.opts.observer.OnEmit(r.opts.name)
	return down.OnValue(out)
}

func (r *relay[I, O]) OnComplete(err error) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	down := r.release()
	r.mu.Unlock()

	r.opts.observer.OnComplete(r.opts.name, err)
	if err != nil {
		r.log.Debug("Upstream failed", logger.Fields(logger.FieldError, err.Error()))
	}
	down.OnComplete(err)
}

func (r *relay[I, O]) Request(n Demand) {
	if n <= 0 {
		ignoredRequest(r.log, n)
		return
	}
	r.mu.Lock()
	up := r.up
	r.mu.Unlock()
	if up == nil {
		return
	}
	r.opts.observer.OnRequest(r.opts.name, n)
	up.Request(n)
}

func (r *relay[I, O]) Cancel() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	up := r.up
	r.release()
	r.mu.Unlock()

	r.opts.observer.OnCancel(r.opts.name)
	r.log.Debug("Canceled")
	if up != nil {
		up.Cancel()
	}
}

// release marks the relay terminated and drops every reference. Called with
// mu held; returns the former downstream.
func (r *relay[I, O]) release() Subscriber[O] {
	down := r.down
	r.done = true
	r.up = nil
	r.down = nil
	if r.reset != nil {
		r.reset()
	}
	return down
}

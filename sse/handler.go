package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
)

// Serve subscribes to stream and writes its values to w until the client
// disconnects, the hub stops or the stream completes. It blocks for the
// lifetime of the connection.
func Serve[T any](h *Hub, w http.ResponseWriter, r *http.Request, stream pipeline.Stream[T]) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	id, ok := h.register(cancel)
	if !ok {
		http.Error(w, "stream hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer h.unregister(id)
	log := h.log.WithFields(logger.Fields("client_id", id))

	// SSE connections outlive the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("Could not clear write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	b := newBridge[T](log)
	stream.Subscribe(b)
	defer b.cancel()

	writeEvent(w, EventConnected, ConnectedEvent{ClientID: id})
	flusher.Flush()
	log.Debug("SSE client connected", logger.Fields("remote_addr", r.RemoteAddr))
	b.request()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Debug("SSE client gone", logger.Fields("sent", sent, "reason", ctx.Err().Error()))
			return

		case v := <-b.values:
			writeEvent(w, EventValue, v)
			flusher.Flush()
			sent++
			b.request()

		case err := <-b.done:
			// A final value may have arrived together with completion.
			select {
			case v := <-b.values:
				writeEvent(w, EventValue, v)
				sent++
			default:
			}
			if err != nil {
				body := apperrors.UpstreamFailed("stream", err).ToResponse()
				writeEvent(w, EventError, body)
			} else {
				writeEvent(w, EventComplete, struct {
					Sent int `json:"sent"`
				}{sent})
			}
			flusher.Flush()
			log.Debug("SSE stream ended", logger.Fields("sent", sent))
			return

		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload, _ = json.Marshal(apperrors.Internal(err).ToResponse())
		event = EventError
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

// bridge hands values from the stream's execution context to the HTTP
// goroutine. At most one value is requested at a time, so the one-slot
// channel never blocks the sender.
type bridge[T any] struct {
	values chan T
	done   chan error
	log    *logger.Logger

	mu       sync.Mutex
	sub      pipeline.Subscription
	pending  pipeline.Demand
	canceled bool
	once     sync.Once
}

func newBridge[T any](log *logger.Logger) *bridge[T] {
	return &bridge[T]{values: make(chan T, 1), done: make(chan error, 1), log: log}
}

func (b *bridge[T]) OnSubscribe(sub pipeline.Subscription) {
	b.mu.Lock()
	if b.canceled {
		b.mu.Unlock()
		sub.Cancel()
		return
	}
	b.sub = sub
	n := b.pending
	b.pending = 0
	b.mu.Unlock()

	if n.Positive() {
		sub.Request(n)
	}
}

func (b *bridge[T]) OnValue(v T) pipeline.Demand {
	select {
	case b.values <- v:
	default:
		// Only a producer that ignores demand can get here.
		b.log.Warn("Dropped value delivered beyond demand")
	}
	return 0
}

func (b *bridge[T]) OnComplete(err error) {
	b.mu.Lock()
	b.sub = nil
	b.mu.Unlock()
	b.once.Do(func() { b.done <- err })
}

func (b *bridge[T]) request() {
	b.mu.Lock()
	sub := b.sub
	if sub == nil {
		b.pending = b.pending.Add(1)
	}
	b.mu.Unlock()
	if sub != nil {
		sub.Request(1)
	}
}

func (b *bridge[T]) cancel() {
	b.mu.Lock()
	b.canceled = true
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Package pipeline provides composable push-based stream stages connected by a
// demand (backpressure) protocol.
//
// A producer only emits values its consumer has asked for. The consumer
// receives a Subscription in OnSubscribe and grants demand with Request;
// every OnValue call consumes one unit and may return an additional
// increment. Completion, carrying an optional failure, is delivered at most
// once, after which all references are released. Cancel is immediate and
// idempotent.
//
// # Stages
//
//   - RandomSource: random numbers in [low, high), generated on an executor
//   - Rounded: round(x/place)*place, demand passed through 1:1
//   - Windowed: rolling window of the N most recent values, demand 1:1
//   - Paced: re-emits the latest upstream value on a jittered timer
//
// FromSlice and FromSliceErr provide finite sources; Sink and Collect are
// terminal consumers.
//
// # Usage
//
//	exec := executor.NewSerial("demo")
//	src, _ := pipeline.NewRandomSource(pipeline.Range[float64]{Low: 0, High: 100}, exec)
//	rounded, _ := pipeline.Rounded[float64](src, 0.5)
//	windows, _ := pipeline.Windowed[float64](rounded, 5)
//	paced, _ := pipeline.Paced[[]float64](windows, time.Second, 0, exec)
//
//	sink := pipeline.NewSink(pipeline.Unlimited, func(w []float64) pipeline.Demand {
//	    fmt.Println(w)
//	    return 0
//	}, nil)
//	paced.Subscribe(sink)
//	defer sink.Cancel()
package pipeline

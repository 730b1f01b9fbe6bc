// Package errors provides the structured error type used across demandflow.
//
// Construction-time precondition failures (window size < 1, non-positive
// pacing interval, empty random range) are reported as *AppError values with
// machine-readable codes. Failures travelling through a stream are plain error
// values and are passed downstream unchanged; UpstreamFailed and Canceled exist
// for callers that want to classify a terminated stream.
package errors

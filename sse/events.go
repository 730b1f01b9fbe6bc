package sse

// Event types written on the wire.
const (
	// EventConnected is the first event of every stream.
	EventConnected = "connected"
	// EventValue carries one JSON-encoded stream value.
	EventValue = "value"
	// EventComplete ends a stream that completed successfully.
	EventComplete = "complete"
	// EventError ends a stream that failed; data is an error response body.
	EventError = "error"
)

// ConnectedEvent is the data of EventConnected.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
}

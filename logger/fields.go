package logger

import "time"

// Field keys shared by every package so log lines can be grepped and
// aggregated by stage or subscription.
const (
	FieldComponent      = "component"
	FieldExecutor       = "executor"
	FieldStage          = "stage"
	FieldSubscriptionID = "subscription_id"
	FieldDemand         = "demand"
	FieldOperation      = "operation"
	FieldStatus         = "status"
	FieldError          = "error"
	FieldDuration       = "duration_ms"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
//
//	log.Debug("window emitted", logger.Fields("size", 5))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for len(kvs) >= 2 {
		if key, ok := kvs[0].(string); ok {
			m[key] = kvs[1]
		}
		kvs = kvs[2:]
	}
	return m
}

// ErrorFields tags a failed operation.
func ErrorFields(op string, err error) map[string]interface{} {
	return Fields(FieldOperation, op, FieldError, err.Error())
}

// DurationFields tags a timed operation in milliseconds.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return Fields(FieldOperation, op, FieldDuration, d.Milliseconds())
}

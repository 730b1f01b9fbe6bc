package errors

import (
	stderrors "errors"
	"net/http"
)

// Response is the JSON body served for an error, by the status server and
// in SSE error events.
type Response struct {
	Error Body `json:"error"`
}

// Body is the client-visible part of an AppError. The cause stays
// server-side unless it was copied into Details.
type Body struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse builds the response body for e.
func (e *AppError) ToResponse() Response {
	return Response{Error: Body{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}}
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// IsAppError reports whether err's chain holds an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// Normalize returns err as an AppError, wrapping anything else as INTERNAL_ERROR.
func Normalize(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// HTTPStatusOf returns the status an error is served with.
func HTTPStatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

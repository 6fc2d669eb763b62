// Package errors provides custom error types.

package errors

type (
	HandlersFoundNilArgument struct {
		Msg string
	}
	// APIError is an error reported by the paydesk server in its JSON error body.
	APIError struct {
		Status  int
		Message string
	}
)

func (e *HandlersFoundNilArgument) Error() string {
	return e.Msg
}

func (e *APIError) Error() string {
	return e.Message
}

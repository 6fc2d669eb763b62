// Package errors provides custom service error types.

package errors

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	ServiceInvalidInput struct {
		Msg string
	}
	ServiceIllegalAccountDetails struct {
		Msg string
	}
	ServiceIllegalTransition struct {
		Msg string
	}
	ServiceInsufficientBalance struct {
		Msg string
	}
	ServiceOrphanedRequest struct {
		Msg string
	}
	ServiceInvalidCredentials struct {
		Msg string
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *ServiceInvalidInput) Error() string {
	return e.Msg
}

func (e *ServiceIllegalAccountDetails) Error() string {
	return e.Msg
}

func (e *ServiceIllegalTransition) Error() string {
	return e.Msg
}

func (e *ServiceInsufficientBalance) Error() string {
	return e.Msg
}

func (e *ServiceOrphanedRequest) Error() string {
	return e.Msg
}

func (e *ServiceInvalidCredentials) Error() string {
	return e.Msg
}

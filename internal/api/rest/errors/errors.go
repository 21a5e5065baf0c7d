package errors

type (
	HandlersFoundNilArgument struct {
		Msg string
	}
	InvalidBodyError struct {
		Err error
	}
)

func (e *HandlersFoundNilArgument) Error() string {
	return e.Msg
}

func (e *InvalidBodyError) Error() string {
	if e.Err == nil {
		return "invalid request body"
	}
	return "invalid request body: " + e.Err.Error()
}

func (e *InvalidBodyError) Unwrap() error {
	return e.Err
}

package errors

import (
	"fmt"
	"strings"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
)

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	ValidationError struct {
		Fields []modeldto.FieldError
	}
	InvalidCredentialsError struct{}
	UnauthorizedError       struct {
		Err error
	}
	ForbiddenError struct {
		Msg string
	}
	BadRequestError struct {
		Msg string
	}
	NotFoundError struct {
		Msg string
	}
	StateNotFoundError struct {
		ID string
	}
	BadStateError struct {
		Msg string
	}
	AuthorityError struct {
		Op  string
		Err error
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *InvalidCredentialsError) Error() string {
	return "invalid credentials"
}

func (e *UnauthorizedError) Error() string {
	if e.Err == nil {
		return "not authenticated"
	}
	return fmt.Sprintf("not authenticated: %s", e.Err.Error())
}

func (e *ForbiddenError) Error() string {
	return e.Msg
}

func (e *BadRequestError) Error() string {
	return e.Msg
}

func (e *NotFoundError) Error() string {
	return e.Msg
}

func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("donation %s not found or not initiated", e.ID)
}

func (e *BadStateError) Error() string {
	return e.Msg
}

func (e *AuthorityError) Error() string {
	return fmt.Sprintf("payment authority %s failed: %s", e.Op, e.Err.Error())
}

func (e *AuthorityError) Unwrap() error { return e.Err }

func (e *UnauthorizedError) Unwrap() error { return e.Err }

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []modeldto.FieldError{{Field: field, Message: message}}}
}

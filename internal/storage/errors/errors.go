package errors

import (
	"fmt"
)

type (
	StatementPSQLError struct {
		Err error
	}
	AlreadyExistsError struct {
		Err error
		ID  string
	}
	ExecutionPSQLError struct {
		Err error
	}
	ScanningPSQLError struct {
		Err error
	}
	NotFoundError struct {
		Err error
		ID  string
	}
	ContextTimeoutExceededError struct {
		Err error
	}
	VersionConflictError struct {
		ID       string
		Expected int64
	}
)

func (e *StatementPSQLError) Error() string {
	return fmt.Sprintf("%s: could not compile", e.Err.Error())
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: already exists", e.ID)
}

func (e *ExecutionPSQLError) Error() string {
	return fmt.Sprintf("%s: could not execute", e.Err.Error())
}

func (e *ScanningPSQLError) Error() string {
	return fmt.Sprintf("%s: could not scan", e.Err.Error())
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found", e.ID)
}

func (e *ContextTimeoutExceededError) Error() string {
	return fmt.Sprintf("%s: context timeout exceeded", e.Err.Error())
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: version %d is stale", e.ID, e.Expected)
}

func (e *StatementPSQLError) Unwrap() error          { return e.Err }
func (e *AlreadyExistsError) Unwrap() error          { return e.Err }
func (e *ExecutionPSQLError) Unwrap() error          { return e.Err }
func (e *ScanningPSQLError) Unwrap() error           { return e.Err }
func (e *NotFoundError) Unwrap() error               { return e.Err }
func (e *ContextTimeoutExceededError) Unwrap() error { return e.Err }

package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotEnoughItems = errors.New("not enough items")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidConfig  = errors.New("invalid config")
	ErrSinkFailed     = errors.New("sink write failed")
	ErrDependencyDown = errors.New("dependency unavailable")
	ErrTimeout        = errors.New("operation timed out")
)

// Process exit codes reported by the CLI.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInput       = 3
	ExitUnavailable = 4
	ExitInterrupted = 130
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, ErrInvalidConfig):
		return ExitUsage
	case errors.Is(err, ErrNotEnoughItems), errors.Is(err, ErrInvalidInput):
		return ExitInput
	case errors.Is(err, ErrDependencyDown), errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitUnavailable
	default:
		return ExitFailure
	}
}

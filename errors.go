package quizmaker

import (
	"errors"
	"fmt"
)

// Error kinds. Each typed error below matches its kind with errors.Is.
var (
	ErrMalformed      = errors.New("malformed response")
	ErrEmptyResponse  = errors.New("empty response")
	ErrTransport      = errors.New("transport failure")
	ErrLengthMismatch = errors.New("length mismatch")
	ErrUnavailable    = errors.New("store unavailable")
	ErrWriteFailed    = errors.New("write failed")
	ErrRender         = errors.New("render failed")

	ErrInvalidTransition = errors.New("action not allowed in current phase")
	ErrInvalidOption     = errors.New("option out of range")
	ErrInvalidInput      = errors.New("invalid quiz setup")
)

// GenerationError is returned when the model call does not yield a usable question list.
type GenerationError struct {
	Kind   error
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	return formatKindError("generate questions", e.Kind, e.Detail, e.Err)
}

func (e *GenerationError) Is(target error) bool { return target == e.Kind }
func (e *GenerationError) Unwrap() error        { return e.Err }

// ScoringError is returned by Score.
type ScoringError struct {
	Kind   error
	Detail string
}

func (e *ScoringError) Error() string {
	return formatKindError("score quiz", e.Kind, e.Detail, nil)
}

func (e *ScoringError) Is(target error) bool { return target == e.Kind }

// StoreError is returned by the history store.
type StoreError struct {
	Kind error
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return formatKindError(e.Op, e.Kind, "", e.Err)
}

func (e *StoreError) Is(target error) bool { return target == e.Kind }
func (e *StoreError) Unwrap() error        { return e.Err }

// ExportError is returned when a report cannot be rendered.
type ExportError struct {
	Kind   error
	Detail string
	Err    error
}

func (e *ExportError) Error() string {
	return formatKindError("export report", e.Kind, e.Detail, e.Err)
}

func (e *ExportError) Is(target error) bool { return target == e.Kind }
func (e *ExportError) Unwrap() error        { return e.Err }

func formatKindError(op string, kind error, detail string, cause error) string {
	msg := fmt.Sprintf("failed to %s: %v", op, kind)
	if detail != "" {
		msg += ": " + detail
	}
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return msg
}

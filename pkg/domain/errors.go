package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session ID is not open.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when opening a session ID that is already open.
var ErrSessionExists = errors.New("session already open")

// ErrDocumentNotFound is returned by document loaders for unknown IDs.
var ErrDocumentNotFound = errors.New("document not found")

// ErrNoPendingForm is returned by SubmitForm when the session is not paused at a form.
var ErrNoPendingForm = errors.New("no pending form")

// ErrFormMismatch is returned when answers target a different form than the pending one.
var ErrFormMismatch = errors.New("answers do not match the pending form")

// ErrInvalidName is returned for variable names outside [A-Za-z_][A-Za-z0-9_]*.
var ErrInvalidName = errors.New("invalid variable name")

// ErrInvalidValue is returned when a decoded value is not a string, number or boolean.
var ErrInvalidValue = errors.New("invalid value")

// ErrUnknownBlock is returned when a single block is requested with an unrecognized kind.
var ErrUnknownBlock = errors.New("unknown block kind")

// ErrInvalidSettings is returned when runtime ceilings are malformed or non-positive.
var ErrInvalidSettings = errors.New("invalid runtime settings")

// ErrNoLoader is returned when a document is requested by ID without a loader.
var ErrNoLoader = errors.New("no document loader configured")

// ErrorKind classifies block-scoped errors for annotations and metrics.
type ErrorKind string

const (
	ErrorParse         ErrorKind = "parse_error"
	ErrorTypeMismatch  ErrorKind = "type_mismatch"
	ErrorStateOverflow ErrorKind = "state_overflow"
	ErrorTimeout       ErrorKind = "timeout"
	ErrorUndefined     ErrorKind = "undefined_variable"
	ErrorRange         ErrorKind = "number_range"
	ErrorInternal      ErrorKind = "internal"
)

// ParseError reports a malformed block body or statement.
type ParseError struct {
	BlockID string      `json:"block_id,omitempty"`
	Range   SourceRange `json:"range"`
	Msg     string      `json:"message"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Range, e.Msg)
}

// TypeMismatchError reports an operation applied to a value of the wrong type.
type TypeMismatchError struct {
	Name string    `json:"name"`
	Op   string    `json:"op"`
	Want ValueKind `json:"want"`
	Got  ValueKind `json:"got"`
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s $%s: expected %s, got %s", e.Op, e.Name, e.Want, e.Got)
}

// StateOverflowError reports a write rejected by the state size ceiling.
// The store is left exactly as it was before the write.
type StateOverflowError struct {
	Name  string `json:"name,omitempty"`
	Limit int    `json:"limit"`
	Size  int    `json:"size"`
}

func (e *StateOverflowError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("state overflow: batch would grow state to %d bytes (limit %d)", e.Size, e.Limit)
	}
	return fmt.Sprintf("state overflow: writing $%s would grow state to %d bytes (limit %d)", e.Name, e.Size, e.Limit)
}

// UndefinedVariableError reports a $ref operand that names no variable.
type UndefinedVariableError struct {
	Name string `json:"name"`
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable $%s", e.Name)
}

// RangeError reports arithmetic whose result is not a finite number.
type RangeError struct {
	Name string `json:"name"`
	Op   string `json:"op"`
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s $%s: result is out of range", e.Op, e.Name)
}

// TimeoutError reports that the guard deadline expired during a pass.
type TimeoutError struct {
	Timeout time.Duration `json:"timeout_ns"`
	BlockID string        `json:"block_id,omitempty"`
	Skipped int           `json:"skipped"`
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out after %s (%d blocks skipped)", e.Timeout, e.Skipped)
}

// BlockError anchors an error to the block that produced it.
type BlockError struct {
	BlockID string      `json:"block_id"`
	Kind    ErrorKind   `json:"kind"`
	Range   SourceRange `json:"range"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// NewBlockError classifies err and anchors it at rng.
func NewBlockError(blockID string, rng SourceRange, err error) *BlockError {
	return &BlockError{
		BlockID: blockID,
		Kind:    Classify(err),
		Range:   rng,
		Message: message(err),
		Err:     err,
	}
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%s (%s, %s): %s", e.Kind, e.BlockID, e.Range, e.Message)
}

func (e *BlockError) Unwrap() error { return e.Err }

// Classify maps an error to its ErrorKind.
func Classify(err error) ErrorKind {
	var (
		pe *ParseError
		te *TypeMismatchError
		oe *StateOverflowError
		to *TimeoutError
		ue *UndefinedVariableError
		re *RangeError
	)
	switch {
	case errors.As(err, &pe):
		return ErrorParse
	case errors.As(err, &te):
		return ErrorTypeMismatch
	case errors.As(err, &oe):
		return ErrorStateOverflow
	case errors.As(err, &ue):
		return ErrorUndefined
	case errors.As(err, &re):
		return ErrorRange
	case errors.As(err, &to):
		return ErrorTimeout
	default:
		return ErrorInternal
	}
}

func message(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Msg
	}
	return err.Error()
}

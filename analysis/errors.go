package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrBatchSizeMismatch means the requested batch size differs from the one persisted with the run.
	ErrBatchSizeMismatch = errors.New("batch size mismatch")

	// ErrParse is wrapped by every *ParseError.
	ErrParse = errors.New("unparseable model response")
)

// ConfigError is a fatal configuration problem detected before any state is written.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ParseError reports a model response that couldn't be turned into an Extraction.
type ParseError struct {
	Reason string
	// Raw is the response text as received (possibly truncated by callers when logging).
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse model response: %s: %v", e.Reason, e.Err)
	}
	return "parse model response: " + e.Reason
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// BatchError records which batch failed and at which stage. The cursor is never advanced past it.
type BatchError struct {
	Batch Batch
	Stage State
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s failed during %s: %v", e.Batch, e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

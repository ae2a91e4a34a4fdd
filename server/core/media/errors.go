package media

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies why an extraction failed.
type ErrorKind int

const (
	// KindSpawn means the ffmpeg program could not be started
	KindSpawn ErrorKind = iota + 1
	// KindTimeout means the process exceeded the hard deadline and was killed
	KindTimeout
	// KindJoin means the wait on the process failed for reasons other than its exit status
	KindJoin
	// KindExecutionFailed means the process exited unsuccessfully
	KindExecutionFailed
	// KindOutputMissing means the process succeeded but wrote no output file
	KindOutputMissing
	// KindOutputEmpty means the output file exists but has zero length
	KindOutputEmpty
	// KindIO means a local filesystem operation failed
	KindIO
	// KindCanceled means the caller canceled the context before the process finished
	KindCanceled
	// KindValidation means the request parameters were rejected before any process was started
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindSpawn:
		return "spawn_error"
	case KindTimeout:
		return "timeout"
	case KindJoin:
		return "join_error"
	case KindExecutionFailed:
		return "execution_failed"
	case KindOutputMissing:
		return "output_missing"
	case KindOutputEmpty:
		return "output_empty"
	case KindIO:
		return "io_error"
	case KindCanceled:
		return "canceled"
	case KindValidation:
		return "validation_error"
	default:
		return "unknown"
	}
}

// ExtractionError is the single error type returned by the media pipeline.
type ExtractionError struct {
	Kind    ErrorKind
	Message string
	// Stderr holds the diagnostic output of ffmpeg for KindExecutionFailed
	Stderr string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// helper functions for error handling

// KindOf returns the ErrorKind carried by err, or 0 when err is not an ExtractionError
func KindOf(err error) ErrorKind {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return extractionErr.Kind
	}
	return 0
}

// IsKind reports whether err is an ExtractionError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func IsTimeoutError(err error) bool {
	return IsKind(err, KindTimeout)
}

func IsValidationError(err error) bool {
	return IsKind(err, KindValidation)
}

func NewSpawnError(err error) error {
	return &ExtractionError{Kind: KindSpawn, Message: "failed to start ffmpeg", Err: err}
}

func NewTimeoutError(limit time.Duration) error {
	return &ExtractionError{Kind: KindTimeout, Message: "ffmpeg did not finish within " + limit.String()}
}

func NewJoinError(err error) error {
	return &ExtractionError{Kind: KindJoin, Message: "failed to wait for ffmpeg", Err: err}
}

func NewExecutionFailedError(exitCode int, stderr string) error {
	return &ExtractionError{
		Kind:    KindExecutionFailed,
		Message: fmt.Sprintf("ffmpeg exited with status %d", exitCode),
		Stderr:  stderr,
	}
}

func NewOutputMissingError(path string) error {
	return &ExtractionError{Kind: KindOutputMissing, Message: "output file was not created: " + path}
}

func NewOutputEmptyError(path string) error {
	return &ExtractionError{Kind: KindOutputEmpty, Message: "output file is empty: " + path}
}

func NewIOError(op string, err error) error {
	return &ExtractionError{Kind: KindIO, Message: op, Err: err}
}

func NewCanceledError(err error) error {
	return &ExtractionError{Kind: KindCanceled, Message: "extraction canceled", Err: err}
}

func NewValidationError(message string) error {
	return &ExtractionError{Kind: KindValidation, Message: message}
}

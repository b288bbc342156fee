package domain

import (
	"errors"
	"fmt"
	"strings"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ValidationError rejects a malformed request before it enters the
// pipeline. Details carries one message per failed field check.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

// ExecutionError represents a routing or swap failure on a venue.
// These are transient and drive the pipeline's retry policy.
type ExecutionError struct {
	Op       string   // "quote", "swap"
	Provider Provider // empty when no venue was selected yet
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Provider, e.Err)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ExecutionError) IsRetriable() bool {
	return true
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a retriable execution error
func NewExecutionError(op string, provider Provider, err error) *ExecutionError {
	return &ExecutionError{Op: op, Provider: provider, Err: err}
}

// PersistenceError represents a store or cache write failure. It is
// fatal to the current pipeline attempt and never retried.
type PersistenceError struct {
	Op  string // e.g. "save", "cache"
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence error [" + e.Op + "]: " + e.Err.Error()
}

func (e *PersistenceError) IsRetriable() bool {
	return false
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// TerminalError signals that the retry budget is exhausted and the
// order was durably marked failed.
type TerminalError struct {
	OrderID  string
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("order %s failed after %d retries: %v", e.OrderID, e.Attempts, e.Err)
}

func (e *TerminalError) IsRetriable() bool {
	return false
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

var (
	// ErrOrderNotFound is returned when a pipeline run references an unknown order id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrQueueClosed is returned when enqueueing after shutdown began.
	ErrQueueClosed = errors.New("queue closed")

	// ErrNoQuotes is returned when no venue produced a usable quote.
	ErrNoQuotes = errors.New("no quotes available")
)

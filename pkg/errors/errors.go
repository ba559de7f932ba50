package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents fetch/transport errors during collection
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeExtraction represents completion-response parse failures
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeStorage represents scan/deal store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypePublish represents hot-list publish errors
	ErrorTypePublish ErrorType = "publish"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents a pipeline-stage error with its origin
type PipelineError struct {
	Type    ErrorType
	Target  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Target, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Target, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a later sweep may succeed where this one
// failed. Extraction parse failures are terminal: the record is still
// marked processed and never re-analyzed.
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeStorage, ErrorTypePublish:
		return true
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, target, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Target:  target,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(target, message string, err error) *PipelineError {
	return New(ErrorTypeNetwork, target, message, err)
}

// NewExtraction creates a new extraction parse error
func NewExtraction(target, message string, err error) *PipelineError {
	return New(ErrorTypeExtraction, target, message, err)
}

// NewStorage creates a new storage error
func NewStorage(target, message string, err error) *PipelineError {
	return New(ErrorTypeStorage, target, message, err)
}

// NewPublish creates a new publish error
func NewPublish(target, message string, err error) *PipelineError {
	return New(ErrorTypePublish, target, message, err)
}

// NewValidation creates a new validation error
func NewValidation(target, message string) *PipelineError {
	return New(ErrorTypeValidation, target, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// Package errors provides structured error types and handling utilities
// for the pulsemon monitoring engine.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents a specific error condition
type ErrorCode string

// Error codes for different types of failures
const (
	// Sampling errors: a collector cannot reach its monitored subsystem
	ErrCodeSamplingFailed  ErrorCode = "SAMPLING_FAILED"
	ErrCodeSamplingTimeout ErrorCode = "SAMPLING_TIMEOUT"

	// Evaluation errors: a rule references a metric with no data
	ErrCodeNoMetricData ErrorCode = "NO_METRIC_DATA"

	// Notification errors: a sink failed to deliver
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"

	// Configuration errors: rejected synchronously at registration time
	ErrCodeDuplicateRule    ErrorCode = "DUPLICATE_RULE"
	ErrCodeInvalidCondition ErrorCode = "INVALID_CONDITION"
	ErrCodeInvalidThreshold ErrorCode = "INVALID_THRESHOLD"
	ErrCodeInvalidRule      ErrorCode = "INVALID_RULE"

	// Query-side errors
	ErrCodeMetricNotFound ErrorCode = "METRIC_NOT_FOUND"
	ErrCodeAlertNotFound  ErrorCode = "ALERT_NOT_FOUND"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// Server errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the type of error for handling strategy
type ErrorCategory string

const (
	// CategorySampling represents collector sampling failures; the loop continues
	CategorySampling ErrorCategory = "SAMPLING_ERROR"
	// CategoryEvaluation represents per-rule evaluation skips
	CategoryEvaluation ErrorCategory = "EVALUATION_ERROR"
	// CategoryNotification represents sink delivery failures, isolated per sink
	CategoryNotification ErrorCategory = "NOTIFICATION_ERROR"
	// CategoryConfiguration represents fail-fast registration errors
	CategoryConfiguration ErrorCategory = "CONFIGURATION_ERROR"
	// CategoryNotFound represents explicit not-found query results
	CategoryNotFound ErrorCategory = "NOT_FOUND"
	// CategoryInternal represents our system errors
	CategoryInternal ErrorCategory = "INTERNAL_ERROR"
)

// ServiceError represents a structured error with context
type ServiceError struct {
	Code      ErrorCode              `json:"code"`
	Category  ErrorCategory          `json:"category"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"` // Original error, not serialized
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with wrapped errors
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// IsNotFound returns true if the error is an explicit not-found result
func (e *ServiceError) IsNotFound() bool {
	return e.Category == CategoryNotFound
}

// HTTPStatusCode returns the appropriate HTTP status code for the error
func (e *ServiceError) HTTPStatusCode() int {
	switch e.Category {
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConfiguration:
		return http.StatusBadRequest
	case CategorySampling, CategoryNotification:
		return http.StatusBadGateway
	default:
		if e.Code == ErrCodeInvalidRequest {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}

// MarshalJSON implements json.Marshaler for structured logging
func (e *ServiceError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code      ErrorCode              `json:"code"`
		Category  ErrorCategory          `json:"category"`
		Message   string                 `json:"message"`
		Context   map[string]interface{} `json:"context,omitempty"`
		Timestamp time.Time              `json:"timestamp"`
	}
	return json.Marshal(alias{e.Code, e.Category, e.Message, e.Context, e.Timestamp})
}

// New creates a ServiceError with the given code and message
func New(code ErrorCode, message string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Category:  defaultCategory(code),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a ServiceError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ServiceError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a ServiceError wrapping a cause
func Wrap(code ErrorCode, message string, cause error) *ServiceError {
	e := New(code, message)
	e.Cause = cause
	return e
}

// WithContext attaches context information and returns the error
func (e *ServiceError) WithContext(key string, value interface{}) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsNotFound reports whether err (or any wrapped error) is a not-found result
func IsNotFound(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.IsNotFound()
	}
	return false
}

// defaultCategory returns default category for error code
func defaultCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeSamplingFailed, ErrCodeSamplingTimeout:
		return CategorySampling
	case ErrCodeNoMetricData:
		return CategoryEvaluation
	case ErrCodeNotificationFailed:
		return CategoryNotification
	case ErrCodeDuplicateRule, ErrCodeInvalidCondition, ErrCodeInvalidThreshold, ErrCodeInvalidRule:
		return CategoryConfiguration
	case ErrCodeMetricNotFound, ErrCodeAlertNotFound:
		return CategoryNotFound
	default:
		return CategoryInternal
	}
}

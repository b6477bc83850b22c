// Package errors provides standardized error codes and retry policy for
// BPMN workflow integration.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeChannelUnavailable        ErrorCode = "CHANNEL_UNAVAILABLE"
	ErrCodeChannelTimeout            ErrorCode = "CHANNEL_TIMEOUT"
	ErrCodeChannelOperationFailed    ErrorCode = "CHANNEL_OPERATION_FAILED"
	ErrCodeSessionEstablishFailed    ErrorCode = "SESSION_ESTABLISH_FAILED"
	ErrCodeMessageSendFailed         ErrorCode = "MESSAGE_SEND_FAILED"
	ErrCodeMessageNotFound           ErrorCode = "MESSAGE_NOT_FOUND"
	ErrCodeClassificationUnavailable ErrorCode = "CLASSIFICATION_UNAVAILABLE"

	ErrCodeOTPExpired          ErrorCode = "OTP_EXPIRED"
	ErrCodeOTPAttemptsExceeded ErrorCode = "OTP_ATTEMPTS_EXCEEDED"
	ErrCodeOTPInvalid          ErrorCode = "OTP_INVALID"
	ErrCodeOTPNotFound         ErrorCode = "OTP_NOT_FOUND"
	ErrCodeOTPDeliveryFailed   ErrorCode = "OTP_DELIVERY_FAILED"

	ErrCodeBookingNotFound      ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeBookingStateConflict ErrorCode = "BOOKING_STATE_CONFLICT"
	ErrCodeLockerUnavailable    ErrorCode = "LOCKER_UNAVAILABLE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeTemplateNotFound       ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Generic constructors used when mapping transport-level failures.

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count per error code. Workers
// use it to decide between failing a job back to the engine with remaining
// retries and throwing a BPMN error that routes to an error boundary.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeMessageSendFailed,
		ErrCodeOTPDeliveryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeChannelOperationFailed,
		ErrCodeSessionEstablishFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeChannelTimeout,
		ErrCodeChannelUnavailable:
		return 2 // Partial retry for timeouts

	case ErrCodeClassificationUnavailable:
		return 1 // One retry before keyword fallback takes over

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// Package errors provides the standardized error taxonomy for the delivery
// pipeline. Every error carries a Retryable flag; the failure handler uses it
// to decide between scheduling a retry and routing straight to the dead
// letter store.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Admission errors are client-correctable and never retried.
const (
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeRecipientNotFound ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrCodeChannelOptedOut   ErrorCode = "CHANNEL_OPTED_OUT"
	ErrCodeQuietHours        ErrorCode = "QUIET_HOURS"
	ErrCodeMissingBody       ErrorCode = "MISSING_BODY"
	ErrCodeTemplateNotFound  ErrorCode = "TEMPLATE_NOT_FOUND"
)

// Configuration and delivery errors surface at send time.
const (
	ErrCodeProviderNotConfigured ErrorCode = "PROVIDER_NOT_CONFIGURED"
	ErrCodeAddressMissing        ErrorCode = "ADDRESS_MISSING"
	ErrCodeProviderSendFailed    ErrorCode = "PROVIDER_SEND_FAILED"
	ErrCodeProviderTimeout       ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeHardBounce            ErrorCode = "HARD_BOUNCE"
)

// Infrastructure errors propagate; the supervised process restarts and at
// least once redelivery recovers the work in flight.
const (
	ErrCodeDatabaseUnavailable ErrorCode = "DATABASE_UNAVAILABLE"
	ErrCodeQueueUnavailable    ErrorCode = "QUEUE_UNAVAILABLE"
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

// IsRetryable reports whether err is a StandardError marked retryable.
// Unknown error types are treated as retryable so that transient faults from
// lower layers are not silently dead-lettered.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return true
}

// Code extracts the ErrorCode from err, or empty for foreign errors.
func Code(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Notification request failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRecipientNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientNotFound,
		Message:   "Recipient could not be resolved",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewChannelOptedOutError(recipientID, channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelOptedOut,
		Message:   "Recipient has disabled this channel",
		Details:   fmt.Sprintf("recipientId: %s, channel: %s", recipientID, channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewQuietHoursError(recipientID, window string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuietHours,
		Message:   "Recipient is inside their quiet hours window",
		Details:   fmt.Sprintf("recipientId: %s, window: %s", recipientID, window),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMissingBodyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingBody,
		Message:   "Notification has neither a body nor a template",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found for tenant",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderNotConfiguredError is an operator-correctable configuration
// error. Retrying cannot fix it, so it is non-retryable.
func NewProviderNotConfiguredError(channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderNotConfigured,
		Message:   "No provider registered for channel",
		Details:   fmt.Sprintf("channel: %s", channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAddressMissingError is terminal: no number of retries will conjure a
// contact address.
func NewAddressMissingError(recipientID, channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAddressMissing,
		Message:   "Recipient has no contact address for channel",
		Details:   fmt.Sprintf("recipientId: %s, channel: %s", recipientID, channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewProviderSendFailedError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderSendFailed,
		Message:   "Provider send failed",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewProviderTimeoutError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   "Provider send timed out",
		Details:   fmt.Sprintf("provider: %s", provider),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewHardBounceError(provider string, statusCode int) *StandardError {
	return &StandardError{
		Code:      ErrCodeHardBounce,
		Message:   "Provider rejected the address permanently",
		Details:   fmt.Sprintf("provider: %s, statusCode: %d", provider, statusCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseUnavailable,
		Message:   "Database operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewQueueUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueUnavailable,
		Message:   "Queue publish failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

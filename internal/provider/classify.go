// internal/provider/classify.go
package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
)

// RetryableStatus classifies an HTTP-ish status code. Client errors are
// permanent except for request timeout and rate limiting; server errors are
// transient.
func RetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	case code >= 400:
		return false
	default:
		// Unknown or missing status: assume transient.
		return true
	}
}

// failureFromError converts a transport/SDK error into a Failure result.
func failureFromError(name string, err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Failure(name, http.StatusGatewayTimeout, "send timed out: "+err.Error(), true)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorFault() {
		case smithy.FaultClient:
			return Failure(name, http.StatusBadRequest, apiErr.ErrorCode()+": "+apiErr.ErrorMessage(), false)
		case smithy.FaultServer:
			return Failure(name, http.StatusInternalServerError, apiErr.ErrorCode()+": "+apiErr.ErrorMessage(), true)
		}
	}

	return Failure(name, 0, err.Error(), true)
}

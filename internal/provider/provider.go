// internal/provider/provider.go

// Package provider implements the uniform send contract over the channel
// backends. Ordinary send failures (auth rejection, invalid recipient, rate
// limit) are Failure results, never Go errors; only transport-level faults
// propagate, and the worker converts those to synthetic failures.
package provider

import "context"

// Message is the rendered notification handed to a channel backend.
type Message struct {
	To       string
	Subject  string
	Body     string
	Metadata map[string]string
}

// Result is the tagged outcome of a send attempt. Retryable is the error
// classification hint: false means retrying cannot help (hard bounce,
// invalid address) and the failure handler should dead-letter immediately.
type Result struct {
	Success    bool
	Provider   string
	StatusCode int
	Response   string
	Err        string
	Retryable  bool
}

// Provider is implemented once per channel backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) Result
}

// Success builds a successful result.
func Success(name string, statusCode int, response string) Result {
	return Result{Success: true, Provider: name, StatusCode: statusCode, Response: response}
}

// Failure builds a failed result with an explicit retryability hint.
func Failure(name string, statusCode int, errMsg string, retryable bool) Result {
	return Result{Provider: name, StatusCode: statusCode, Err: errMsg, Retryable: retryable}
}

package upload

import (
	"errors"
	"fmt"
)

// ErrBusy is returned by Submit under the Serialized policy while an upload is in flight.
var ErrBusy = errors.New("an upload is already in progress")

// ValidationError is a local precondition failure; no request was sent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// RequestError means the service answered with a non-success status.
// The message is generic on purpose; the response body is not consulted.
type RequestError struct {
	StatusCode int
	RequestID  string
}

const requestErrorMessage = "server responded with an error"

func (e *RequestError) Error() string {
	return requestErrorMessage
}

// Detail includes the status code for logs.
func (e *RequestError) Detail() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: status=%d request_id=%s", requestErrorMessage, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("%s: status=%d", requestErrorMessage, e.StatusCode)
}

// ConnectionError indicates no response was received.
type ConnectionError struct {
	Endpoint string
	Err      error
}

const connectionErrorMessage = "connection failed"

func (e *ConnectionError) Error() string {
	if e == nil || e.Err == nil || e.Err.Error() == "" {
		return connectionErrorMessage
	}
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRequest reports whether err is a *RequestError.
func IsRequest(err error) bool {
	var r *RequestError
	return errors.As(err, &r)
}

// IsConnection reports whether err is a *ConnectionError.
func IsConnection(err error) bool {
	var c *ConnectionError
	return errors.As(err, &c)
}

package notify

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyInProgress = errors.New("a notification is already being sent")
)

// RemoteRejectedError is a non-2xx answer from the messaging API.
type RemoteRejectedError struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("remote rejected the message with status %d: %s", e.StatusCode, e.Body)
}

// TransportError means no response was obtained at all.
type TransportError struct {
	Cause string
	Err   error
}

func (e *TransportError) Error() string {
	return "transport failure: " + e.Cause
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

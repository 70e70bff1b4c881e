package client

import (
	"errors"
	"strconv"
)

// Failure classes for backend calls. The chat transcript collapses all of
// them into one message; they stay distinct for logging and for callers
// like `forgepilot health` that want to explain what went wrong.
var (
	// ErrTransport covers dial failures, resets and timeouts
	ErrTransport = errors.New("backend unreachable")
	// ErrStatus is a response outside 2xx
	ErrStatus = errors.New("backend returned an error status")
	// ErrParse is a body that is not JSON or doesn't have the expected shape
	ErrParse = errors.New("malformed backend response")
)

// StatusError carries the HTTP status and a short body excerpt
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "HTTP " + strconv.Itoa(e.Code)
	}
	return "HTTP " + strconv.Itoa(e.Code) + ": " + e.Body
}

// Unwrap lets errors.Is(err, ErrStatus) match
func (e *StatusError) Unwrap() error { return ErrStatus }

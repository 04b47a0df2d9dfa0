package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks malformed or empty input (document, text to embed).
	ErrInput = errors.New("invalid input")
	// ErrService marks any failure reported by an upstream capability.
	ErrService = errors.New("upstream service failure")
	// ErrConfig marks a missing or invalid configuration value.
	ErrConfig = errors.New("configuration error")
	// ErrSchema marks a vector dimensionality that does not match the index.
	ErrSchema = errors.New("index schema mismatch")
)

// ServiceError describes a failed call to an embedding, completion or
// search service.
type ServiceError struct {
	Service    string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Service + " " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
		if e.Body != "" {
			msg += ": " + e.Body
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports ServiceError values as ErrService.
func (e *ServiceError) Is(target error) bool { return target == ErrService }

package store

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload is returned for payloads that cannot be keyed.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrClosed is returned by mutating operations after Close.
	ErrClosed = errors.New("memory store is closed")
)

// ProviderError reports a failed embedding request. It is soft: the
// operation still produced a usable result, the affected entry or query just
// has no similarity capability.
type ProviderError struct {
	Key string // empty for query embeddings
	Err error
}

func (e *ProviderError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("embedding provider failed for query: %v", e.Err)
	}
	return fmt.Sprintf("embedding provider failed for %s: %v", e.Key, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// DurabilityError reports a failed durable write. The in-memory state
// holds the update; Flush retries the write.
type DurabilityError struct {
	Op  string
	Err error
}

func (e *DurabilityError) Error() string {
	return fmt.Sprintf("durable write failed during %s: %v", e.Op, e.Err)
}

func (e *DurabilityError) Unwrap() error { return e.Err }

// IsSoft reports whether err consists only of ProviderErrors.
func IsSoft(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		if len(errs) == 0 {
			return false
		}
		for _, e := range errs {
			if !IsSoft(e) {
				return false
			}
		}
		return true
	}
	var pe *ProviderError
	return errors.As(err, &pe)
}

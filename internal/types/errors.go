package types

import (
	"errors"
	"fmt"
)

// FailureKind categorizes why a fetch produced no document.
type FailureKind string

const (
	// FailTimeout means the request exceeded its deadline.
	FailTimeout FailureKind = "timeout"

	// FailHTTP means the server answered with a non-2xx status.
	FailHTTP FailureKind = "http_error"

	// FailOther covers DNS, TLS, connection resets, malformed responses
	// and any body that could not be parsed at all.
	FailOther FailureKind = "other"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidURL   = errors.New("invalid URL")
	ErrInvalidRate  = errors.New("rate must be a positive number")
	ErrUnknownStore = errors.New("unknown storage backend")
)

// FetchError describes a failed page fetch. It is consumed as data by the
// extraction chains (which fold it into the sentinels), never surfaced to
// the service caller.
type FetchError struct {
	URL        string
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s failed (%s, status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError wraps errors from the order store backends.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RatesError wraps errors from the exchange-rate file store.
type RatesError struct {
	Path string
	Err  error
}

func (e *RatesError) Error() string {
	return fmt.Sprintf("rates file %s: %v", e.Path, e.Err)
}

func (e *RatesError) Unwrap() error { return e.Err }

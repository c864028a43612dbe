package model

import "errors"

var (
	// ErrTransport marks network failures: unreachable host, timeout, non-2xx, missing object.
	ErrTransport = errors.New("transport error")
	// ErrDecode marks a malformed or invalid snapshot document.
	ErrDecode = errors.New("decode error")
	// ErrStore marks a local persistence failure.
	ErrStore = errors.New("store error")
	// ErrNotFound is returned by point reads for unknown identifiers.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCoordinate is returned for latitude/longitude outside WGS84 bounds.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// FetchError reports a failed remote fetch with no cached data to fall back to.
type FetchError struct {
	Cause error
}

func (e *FetchError) Error() string {
	if e.Cause == nil {
		return "fetch failed"
	}
	return "fetch failed: " + e.Cause.Error()
}

func (e *FetchError) Unwrap() error { return e.Cause }

// StoreReadError reports a failed local read.
type StoreReadError struct {
	Cause error
}

func (e *StoreReadError) Error() string {
	if e.Cause == nil {
		return "store read failed"
	}
	return "store read failed: " + e.Cause.Error()
}

func (e *StoreReadError) Unwrap() error { return e.Cause }

// StoreWriteError reports a failed cache replace. The refresh that produced it
// did not persist the data it fetched.
type StoreWriteError struct {
	Cause error
}

func (e *StoreWriteError) Error() string {
	if e.Cause == nil {
		return "store write failed"
	}
	return "store write failed: " + e.Cause.Error()
}

func (e *StoreWriteError) Unwrap() error { return e.Cause }

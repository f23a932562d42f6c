// Package runerror defines the typed errors a connector run can end with and
// the policy deciding which of them halt the pipeline.
package runerror

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a run error.
type Kind int

const (
	// KindUnknown is any error not produced by this package.
	KindUnknown Kind = iota
	KindBadCredentials
	KindFetch
	KindParse
	KindSave
	KindStore
	KindStall
)

func (k Kind) String() string {
	switch k {
	case KindBadCredentials:
		return "bad_credentials"
	case KindFetch:
		return "fetch"
	case KindParse:
		return "parse"
	case KindSave:
		return "save"
	case KindStore:
		return "store"
	case KindStall:
		return "stall"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind halts the run. Only document
// persistence failures are recorded and skipped.
func (k Kind) Fatal() bool {
	return k != KindSave
}

// BadCredentialsError is returned before any fetch when credentials are
// missing or rejected by the vendor portal.
type BadCredentialsError struct {
	Vendor string
	Reason string
}

func (e *BadCredentialsError) Error() string {
	return fmt.Sprintf("%s: bad credentials: %s", e.Vendor, e.Reason)
}

// FetchError wraps a network failure, timeout or unexpected HTTP status.
type FetchError struct {
	Vendor     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: fetch %s: unexpected status %d", e.Vendor, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: fetch %s: %v", e.Vendor, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch failed because the run deadline expired.
func (e *FetchError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ParseError is returned when portal markup cannot be turned into bills.
type ParseError struct {
	Vendor string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Vendor, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SaveError records a document that could not be downloaded or written. The
// bill metadata is stored regardless.
type SaveError struct {
	Vendor   string
	Document string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%s: document %s not saved: %v", e.Vendor, e.Document, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failure of the bill metadata store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StallError is produced by the executor when a stage returns without
// signalling success or failure.
type StallError struct {
	Stage string
}

func (e *StallError) Error() string {
	return fmt.Sprintf("stage %q returned without a result", e.Stage)
}

// KindOf classifies err, looking through wrapped errors.
func KindOf(err error) Kind {
	var (
		badCreds *BadCredentialsError
		fetchErr *FetchError
		parseErr *ParseError
		saveErr  *SaveError
		storeErr *StoreError
		stallErr *StallError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &badCreds):
		return KindBadCredentials
	case errors.As(err, &stallErr):
		return KindStall
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &saveErr):
		return KindSave
	case errors.As(err, &storeErr):
		return KindStore
	case errors.As(err, &fetchErr):
		return KindFetch
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindFetch
	default:
		return KindUnknown
	}
}

// IsFatal reports whether err must halt the run.
func IsFatal(err error) bool {
	return err != nil && KindOf(err).Fatal()
}

package geko

import (
	"fmt"
)

// FetchError covers network failures, timeouts and non-2xx responses from the
// supplier endpoint. A fetch error aborts the run before any item is processed.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError covers malformed XML and unrecognized document schemas. A parse
// error aborts the run.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse catalog: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse catalog: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransactionError covers whole-transaction failures after the bounded retry
// budget is exhausted. The run is marked failed.
type TransactionError struct {
	Attempts int
	Err      error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

package client

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("crawl client closed")

// ForbiddenError is a 403 from the platform. It is not retried: a 403
// almost always means the account itself is banned, and hammering the
// endpoint only burns the rest of the pool.
type ForbiddenError struct {
	URI  string
	Body string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.URI)
}

// DataFetchError is the terminal failure for one logical request, after
// local retries and the rotated-session attempt are both spent.
type DataFetchError struct {
	URI string
	Err error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("data fetch failed: %s: %v", e.URI, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// ProtocolError means a page arrived but its shape made cursor advancement
// impossible (for example, paging metadata missing on a paginated
// endpoint). It aborts the current walk only.
type ProtocolError struct {
	URI    string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %s", e.URI, e.Reason)
}

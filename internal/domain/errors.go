package domain

import (
	"errors"
	"fmt"
)

// ErrSyncRunning is returned when a trigger fires for a source that already
// has a run in flight.
var ErrSyncRunning = errors.New("sync already running for source")

// ErrUnauthorized is returned for a bad webhook token or admin key.
var ErrUnauthorized = errors.New("unauthorized")

// ConfigError is fatal for the whole run: no records are processed and the
// cursor does not move.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Msg
}

// TransportError covers network failures, timeouts, non-2xx responses and
// unparseable bodies from the remote feed. It aborts the fetch it occurred
// in without advancing the cursor.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RecordError is a per-record mapping or store failure. It is counted and
// logged but never aborts the batch.
type RecordError struct {
	ExternalKey string
	Err         error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.ExternalKey, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// MediaError is a per-asset download or attach failure, recorded as a
// warning against the owning listing.
type MediaError struct {
	URL string
	Err error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media %s: %v", e.URL, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

package domain

import (
	"fmt"
	"time"
)

// Cadence is the recurring pull interval for one source.
type Cadence string

const (
	CadenceRealtime Cadence = "realtime"
	CadenceEvery15m Cadence = "15min"
	CadenceHourly   Cadence = "hourly"
	CadenceDaily    Cadence = "daily"
)

// ParseCadence validates a configured cadence string.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case CadenceRealtime, CadenceEvery15m, CadenceHourly, CadenceDaily:
		return Cadence(s), nil
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}

// Interval returns the polling interval for the cadence. Realtime sources
// are webhook-only and report ok=false.
func (c Cadence) Interval() (time.Duration, bool) {
	switch c {
	case CadenceEvery15m:
		return 15 * time.Minute, true
	case CadenceHourly:
		return time.Hour, true
	case CadenceDaily:
		return 24 * time.Hour, true
	}
	return 0, false
}

// Trigger identifies which entry point started a sync run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerWebhook  Trigger = "webhook"
)

// Action is the reconciliation outcome for one record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Outcome summarizes what reconciling one record did.
type Outcome struct {
	Action        Action
	ListingID     int64
	MediaWarnings int
	Published     bool
}

// SyncStats accumulates the outcome of one sync run.
type SyncStats struct {
	RunID         string
	SourceID      string
	Trigger       Trigger
	Fetched       int
	Created       int
	Updated       int
	Skipped       int
	Errors        int
	MediaWarnings int
	Published     int
	FailedKeys    []string
	StartedAt     time.Time
	Duration      time.Duration
}

// SyncRun is one persisted ledger entry. The ledger keeps the most recent
// 30 entries per source.
type SyncRun struct {
	ID            int64         `db:"id"`
	RunID         string        `db:"run_id"`
	SourceID      string        `db:"source_id"`
	Trigger       Trigger       `db:"triggered_by"`
	RecordType    string        `db:"record_type"`
	Created       int           `db:"created"`
	Updated       int           `db:"updated"`
	Skipped       int           `db:"skipped"`
	Errors        int           `db:"errors"`
	MediaWarnings int           `db:"media_warnings"`
	FatalError    *string       `db:"fatal_error"`
	StartedAt     time.Time     `db:"started_at"`
	Duration      time.Duration `db:"duration"`
}

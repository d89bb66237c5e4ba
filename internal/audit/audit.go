// Package audit records one structured entry per processed chat message:
// the activation outcome, the rate-limit decision, the raw and formatted
// response text, and whether anything was actually sent. Blocked and failed
// attempts are recorded too, with sent=false.
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is the audit entry for one processed message.
type Record struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Username          string    `json:"username"`
	TriggerKind       string    `json:"trigger_kind"`
	TriggerName       string    `json:"trigger_name,omitempty"`
	Allowed           bool      `json:"allowed"`
	Reason            string    `json:"reason,omitempty"`
	RetryAfterSeconds float64   `json:"retry_after_seconds,omitempty"`
	Message           string    `json:"message"`
	RawResponse       string    `json:"raw_response,omitempty"`
	Parts             []string  `json:"parts,omitempty"`
	Provider          string    `json:"provider,omitempty"`
	Sent              bool      `json:"sent"`
}

// NewRecord stamps a record with a fresh ID and the current time.
func NewRecord() Record {
	return Record{ID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

// Sink persists audit records.
type Sink interface {
	Write(rec Record) error
	Close() error
}

// Open creates the sink selected by backend ("jsonl" or "sqlite").
func Open(backend, path string) (Sink, error) {
	switch backend {
	case "", "jsonl":
		return NewJSONL(path)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", backend)
	}
}

// Discard is a no-op sink, used when response logging is disabled.
type Discard struct{}

func (Discard) Write(Record) error { return nil }
func (Discard) Close() error       { return nil }

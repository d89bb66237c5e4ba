package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	id TEXT PRIMARY KEY,
	ts TEXT NOT NULL,
	username TEXT NOT NULL,
	trigger_kind TEXT NOT NULL,
	trigger_name TEXT,
	allowed INTEGER NOT NULL,
	reason TEXT,
	retry_after_seconds REAL,
	message TEXT NOT NULL,
	raw_response TEXT,
	parts TEXT,
	provider TEXT,
	sent INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_responses_ts ON responses(ts);
CREATE INDEX IF NOT EXISTS idx_responses_username ON responses(username);
`

// SQLiteSink stores audit records in a local SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens the database and ensures the schema exists.
func NewSQLite(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: init schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(rec Record) error {
	parts, err := json.Marshal(rec.Parts)
	if err != nil {
		return fmt.Errorf("audit: marshal parts: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO responses
		(id, ts, username, trigger_kind, trigger_name, allowed, reason, retry_after_seconds, message, raw_response, parts, provider, sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		rec.Username, rec.TriggerKind, rec.TriggerName,
		boolInt(rec.Allowed), rec.Reason, rec.RetryAfterSeconds,
		rec.Message, rec.RawResponse, string(parts), rec.Provider, boolInt(rec.Sent))
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

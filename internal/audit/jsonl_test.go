package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONLSink_WriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "responses.jsonl")
	sink, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}
	defer sink.Close()

	rec := NewRecord()
	rec.Username = "alice"
	rec.TriggerKind = "mention"
	rec.TriggerName = "cynthia"
	rec.Allowed = true
	rec.Message = "hey cynthia"
	rec.RawResponse = "Hi there!"
	rec.Parts = []string{"Hi there!"}
	rec.Sent = true

	blocked := NewRecord()
	blocked.Username = "bob"
	blocked.TriggerKind = "trigger_word"
	blocked.Reason = "global-per-minute"
	blocked.RetryAfterSeconds = 42.5
	blocked.Message = "praise toddy"

	for _, r := range []Record{rec, blocked} {
		if err := sink.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].Username != "alice" || !got[0].Sent || got[0].ID == "" {
		t.Errorf("first record = %+v", got[0])
	}
	if got[1].Reason != "global-per-minute" || got[1].Sent {
		t.Errorf("second record = %+v", got[1])
	}
	if got[0].ID == got[1].ID {
		t.Error("records share an ID")
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("postgres", "x"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

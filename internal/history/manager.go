package history

import (
	"strings"
	"sync"
	"time"

	"github.com/moviebarn/rothbot/internal/bus"
)

// Entry is one remembered chat line.
type Entry struct {
	Username string
	Message  string
}

// Video is the room's current now-playing item.
type Video struct {
	Title      string
	Duration   int // seconds
	Type       string
	QueuedBy   string
	ObservedAt time.Time
}

// Manager owns the rolling chat buffer and the current video snapshot.
// Both are updated by asynchronous room events and read when building a
// generation request, so every access goes through one mutex. Callers
// always receive copies, never internal references.
type Manager struct {
	mu            sync.Mutex
	characterName string // own messages are kept out of the buffer
	capacity      int
	maxTitleLen   int

	entries []Entry
	video   *Video
}

// Snapshot is an independent copy of the conversational state.
type Snapshot struct {
	Video   *Video  // nil when no media event has been seen
	History []Entry // chronological, oldest first
}

// New creates a manager with an empty buffer.
func New(characterName string, capacity, maxTitleLen int) *Manager {
	return &Manager{
		characterName: characterName,
		capacity:      capacity,
		maxTitleLen:   maxTitleLen,
	}
}

// OnMediaChange replaces the current video wholesale. Missing fields take
// defaults; an overlong title is truncated, not rejected.
func (m *Manager) OnMediaChange(ev bus.MediaChange) {
	v := Video{
		Title:      ev.Title,
		Duration:   ev.Seconds,
		Type:       ev.Type,
		QueuedBy:   ev.QueuedBy,
		ObservedAt: time.Now(),
	}
	if v.Type == "" {
		v.Type = "unknown"
	}
	if v.QueuedBy == "" {
		v.QueuedBy = "unknown"
	}
	// Truncation counts characters, not bytes.
	if r := []rune(v.Title); m.maxTitleLen > 0 && len(r) > m.maxTitleLen {
		v.Title = string(r[:m.maxTitleLen])
	}

	m.mu.Lock()
	m.video = &v
	m.mu.Unlock()
}

// RecordChat appends a chat line, evicting the oldest entry when the buffer
// is full. The bot's own messages are excluded.
func (m *Manager) RecordChat(username, message string) {
	if m.capacity <= 0 || strings.EqualFold(username, m.characterName) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity+1:]
	}
	m.entries = append(m.entries, Entry{Username: username, Message: message})
}

// Snapshot returns a copy of the current video and the most recent maxItems
// history entries in chronological order. Mutating the result never affects
// the manager.
func (m *Manager) Snapshot(maxItems int) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snap Snapshot
	if m.video != nil {
		v := *m.video
		snap.Video = &v
	}

	n := len(m.entries)
	if maxItems >= 0 && maxItems < n {
		n = maxItems
	}
	snap.History = make([]Entry, n)
	copy(snap.History, m.entries[len(m.entries)-n:])
	return snap
}

// ClearHistory empties the chat buffer. The video snapshot is kept.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
}

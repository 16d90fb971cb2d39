package monitoring

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// feedCapacity bounds the activity feed; the oldest entry is dropped when
// a new one would exceed it.
const feedCapacity = 100

// Level classifies feed entries.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Entry is one activity-feed record.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	LeadName  string         `json:"lead_name,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Feed is a bounded, newest-first activity log.
type Feed struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

// Add prepends an entry, evicting the oldest once the feed is full.
func (f *Feed) Add(level Level, message, leadName string, details map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: f.now().UTC(),
		Level:     level,
		Message:   message,
		LeadName:  leadName,
		Details:   details,
	}
	f.entries = append([]Entry{entry}, f.entries...)
	if len(f.entries) > feedCapacity {
		f.entries = f.entries[:feedCapacity]
	}
}

// Recent returns up to limit entries, newest first.
func (f *Feed) Recent(limit int) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]Entry, limit)
	copy(out, f.entries[:limit])
	return out
}

// Len reports the current number of entries.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

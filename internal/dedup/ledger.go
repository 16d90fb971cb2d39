// Package dedup suppresses duplicate deliveries of the same lead within a
// short window. Slack retries webhook deliveries and may deliver the same
// event on concurrent connections, so the check-and-record step is a single
// critical section.
package dedup

import (
	"sync"
	"time"
)

// DefaultWindow is how long an identifier stays suppressed after admission.
const DefaultWindow = 5 * time.Minute

// Ledger maps contact identifiers (emails, case-sensitive as received) to
// the time they were last admitted for processing. Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	window  time.Duration
	now     func() time.Time
}

// Option configures the ledger.
type Option func(*Ledger)

// WithWindow overrides the suppression window.
func WithWindow(w time.Duration) Option {
	return func(l *Ledger) {
		if w > 0 {
			l.window = w
		}
	}
}

// WithClock overrides the time source. Tests use this to advance time
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates an empty ledger with a 5-minute window.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		entries: make(map[string]time.Time),
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Admit reports whether processing may begin for the identifier. An empty
// identifier is always admitted (nothing to key on). Otherwise the
// identifier is rejected while a prior admission is younger than the
// window; a fresh admission is recorded immediately, before processing
// completes, so a near-simultaneous duplicate loses the race.
func (l *Ledger) Admit(id string) bool {
	if id == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if at, ok := l.entries[id]; ok && l.now().Sub(at) < l.window {
		return false
	}
	l.entries[id] = l.now()
	return true
}

// Sweep evicts entries older than the window. Called opportunistically at
// the end of each successful processing run; there is no background timer.
func (l *Ledger) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now()
	for id, at := range l.entries {
		if cutoff.Sub(at) > l.window {
			delete(l.entries, id)
		}
	}
}

// Len returns the number of live ledger entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

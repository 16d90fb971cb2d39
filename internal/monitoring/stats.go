// Package monitoring keeps in-process counters and a bounded activity feed
// for the operational endpoints. Nothing here survives a restart.
package monitoring

import "sync"

// Snapshot is a point-in-time copy of the pipeline counters.
type Snapshot struct {
	TotalProcessed int64 `json:"total_processed"`
	Qualified      int64 `json:"qualified"`
	NotQualified   int64 `json:"not_qualified"`
	Spam           int64 `json:"spam"`
	Errors         int64 `json:"errors"`
	Duplicates     int64 `json:"duplicates"`
	CrmChecked     int64 `json:"crm_checked"`
	CrmExists      int64 `json:"crm_exists"`
}

// Stats accumulates pipeline counters under a single mutex.
type Stats struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{}
}

// RecordVerdict accounts one completed qualification.
func (s *Stats) RecordVerdict(qualified, spam bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.TotalProcessed++
	switch {
	case spam:
		s.snap.Spam++
	case qualified:
		s.snap.Qualified++
	default:
		s.snap.NotQualified++
	}
}

// RecordError accounts a processing run that failed before producing a
// verdict.
func (s *Stats) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Errors++
}

// RecordDuplicate accounts an event suppressed by the dedup ledger.
func (s *Stats) RecordDuplicate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Duplicates++
}

// RecordCrmCheck accounts a CRM lookup and whether the contact existed.
func (s *Stats) RecordCrmCheck(exists bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.CrmChecked++
	if exists {
		s.snap.CrmExists++
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

package db

import (
	"sync"

	"nbme-dashboard-go/report"
)

// ReportStore keeps the most recently generated risk reports in memory so
// their downloads can be served. Reports are never written to disk.
type ReportStore struct {
	mu       sync.Mutex
	capacity int
	order    []string // oldest first
	reports  map[string]*report.Report
}

// NewReportStore creates a store holding at most capacity reports.
func NewReportStore(capacity int) *ReportStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &ReportStore{
		capacity: capacity,
		reports:  make(map[string]*report.Report, capacity),
	}
}

// Put stores the report under its ID, evicting the oldest when full.
func (s *ReportStore) Put(r *report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.reports[r.ID] = r
	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.reports, oldest)
	}
}

// Get returns the report, or nil if it was never stored or was evicted.
func (s *ReportStore) Get(id string) *report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[id]
}

package store

import (
	"errors"
	"sync"

	"github.com/pawwatch/api/internal/model"
)

var ErrReportNotFound = errors.New("report not found")

// ReportStore is the ordered, in-memory collection of reports. It is the only
// authoritative copy; every view is projected from it.
type ReportStore struct {
	mu      sync.RWMutex
	reports []model.Report
	maxID   int64
}

func New() *ReportStore {
	return &ReportStore{}
}

// Append assigns the next id and adds the report at the end.
//
// The id is the next integer after the highest id seen so far. This stays
// unique only because nothing is ever removed from the store; revisit it if a
// delete operation is added.
func (s *ReportStore) Append(r model.Report) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxID++
	r.ID = s.maxID
	s.reports = append(s.reports, r)
	return r
}

// Seed loads reports keeping their ids. Used once at startup.
func (s *ReportStore) Seed(reports []model.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reports {
		if r.ID <= s.maxID {
			s.maxID++
			r.ID = s.maxID
		} else {
			s.maxID = r.ID
		}
		s.reports = append(s.reports, r)
	}
}

// All returns a copy of the reports in insertion order.
func (s *ReportStore) All() []model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

func (s *ReportStore) ByID(id int64) (model.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return model.Report{}, false
}

func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Counts returns the number of reports per status. Every known status is
// present in the map, zero or not.
func (s *ReportStore) Counts() map[model.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.Status]int, len(model.Statuses))
	for _, st := range model.Statuses {
		counts[st] = 0
	}
	for _, r := range s.reports {
		counts[r.Status]++
	}
	return counts
}

package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nrenier/ICorNet-sub000/model"
)

// StoredReport is a report plus what only the backend knows about it.
type StoredReport struct {
	model.Report
	Owner string
	Data  []byte
}

// ReportStore is an in-memory store for generated reports
type ReportStore struct {
	reports    map[int64]*StoredReport
	nextID     int64
	mu         sync.RWMutex
	maxReports int // Maximum reports to keep, 0 = unlimited
}

func NewReportStore(maxReports int) *ReportStore {
	if maxReports < 0 {
		maxReports = 0
	}
	return &ReportStore{
		reports:    make(map[int64]*StoredReport),
		maxReports: maxReports,
	}
}

// Create stores a new pending report and returns a copy of it.
func (s *ReportStore) Create(owner, companyName, reportType string) model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r := &StoredReport{
		Report: model.Report{
			ID:          s.nextID,
			CompanyName: companyName,
			Status:      model.StatusPending,
			CreatedAt:   time.Now().UTC(),
			ReportType:  reportType,
		},
		Owner: owner,
	}
	s.reports[r.ID] = r

	s.cleanupIfNeeded()
	return r.Report
}

// Get returns a copy of the report with the given id.
func (s *ReportStore) Get(id int64) (StoredReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return StoredReport{}, false
	}
	return *r, true
}

// ListByOwner returns the reports of owner, newest first. A non-empty
// dataset keeps only reports generated for it.
func (s *ReportStore) ListByOwner(owner string, ds Dataset) []model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Report{}
	for _, r := range s.reports {
		if r.Owner != owner {
			continue
		}
		if ds != "" && DatasetForReportType(r.ReportType) != ds {
			continue
		}
		result = append(result, r.Report)
	}
	model.SortNewestFirst(result)
	return result
}

// Recent returns up to n reports of owner, newest first.
func (s *ReportStore) Recent(owner string, n int) []model.Report {
	all := s.ListByOwner(owner, "")
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// CountSince counts reports created at or after t.
func (s *ReportStore) CountSince(t time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.reports {
		if !r.CreatedAt.Before(t) {
			n++
		}
	}
	return n
}

// Complete marks a report completed and attaches its file.
func (s *ReportStore) Complete(id int64, fileName string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[id]; ok {
		r.Status = model.StatusCompleted
		r.FileName = fileName
		r.Data = data
	}
}

// Fail marks a report failed.
func (s *ReportStore) Fail(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[id]; ok {
		r.Status = model.StatusFailed
	}
}

// Delete removes the given reports of owner and returns how many were
// removed. Ids that do not exist or belong to someone else are skipped.
func (s *ReportStore) Delete(owner string, ids []int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if r, ok := s.reports[id]; ok && r.Owner == owner {
			delete(s.reports, id)
			n++
		}
	}
	return n
}

// cleanupIfNeeded removes oldest reports if store exceeds maxReports
// Must be called with lock held
func (s *ReportStore) cleanupIfNeeded() {
	if s.maxReports <= 0 || len(s.reports) <= s.maxReports {
		return
	}

	reports := make([]*StoredReport, 0, len(s.reports))
	for _, r := range s.reports {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ID < reports[j].ID
	})

	removeCount := len(reports) - s.maxReports
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old report",
			"report_id", reports[i].ID,
			"created_at", reports[i].CreatedAt,
		)
		delete(s.reports, reports[i].ID)
	}
}

// Count returns the number of reports in the store
func (s *ReportStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

package model

import (
	"fmt"
	"sort"
	"time"
)

// Report represents an asynchronously generated PDF report for one company
// (or, for supply-chain reports, a whole domain).
type Report struct {
	ID          int64     `json:"id"`
	CompanyName string    `json:"company_name"`
	Status      string    `json:"status"` // pending, completed, failed
	CreatedAt   time.Time `json:"created_at"`
	FileName    string    `json:"file_name,omitempty"`
	ReportType  string    `json:"report_type,omitempty"`
}

// Report status constants
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Report types accepted by POST /reports/generate
const (
	ReportTypeDefault             = ""
	ReportTypeStartup             = "startup"
	ReportTypeFederterziario      = "federterziario"
	ReportTypeFederterziarioChain = "federterziario_filiera"
)

// IsTerminal reports whether the server will not move the report any further.
func (r *Report) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// DownloadName returns the file name to save the report under.
func (r *Report) DownloadName() string {
	if r.FileName != "" {
		return r.FileName
	}
	return DefaultReportFileName(r.ID)
}

// DefaultReportFileName is used when the server gives no file name.
func DefaultReportFileName(id int64) string {
	return fmt.Sprintf("report_%d.pdf", id)
}

// SortNewestFirst orders reports by creation time, newest first. Reports
// created at the same instant are ordered by descending id.
func SortNewestFirst(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].ID > reports[j].ID
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}

// GenerateRequest is the body of POST /reports/generate
type GenerateRequest struct {
	CompanyName string `json:"company_name"`
	ReportType  string `json:"report_type,omitempty"`
}

// GenerateResponse acknowledges an accepted generation request. Backends
// report the new id either as id or as report_id.
type GenerateResponse struct {
	ID      int64  `json:"id,omitempty"`
	AltID   int64  `json:"report_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// ReportID returns the id of the accepted report, 0 when unknown.
func (r *GenerateResponse) ReportID() int64 {
	if r.ID != 0 {
		return r.ID
	}
	return r.AltID
}

// StatusResponse is the body returned by GET /reports/status/{id}
type StatusResponse struct {
	ID       int64  `json:"id,omitempty"`
	Status   string `json:"status"`
	FileName string `json:"file_name,omitempty"`
}

// HistoryResponse is the body returned by GET /reports/history
type HistoryResponse struct {
	Reports []Report `json:"reports"`
}

// BulkDeleteRequest is the body of DELETE /reports/bulk-delete
type BulkDeleteRequest struct {
	ReportIDs []int64 `json:"report_ids"`
}

// BulkDeleteResponse acknowledges a bulk delete
type BulkDeleteResponse struct {
	Message      string `json:"message,omitempty"`
	DeletedCount int    `json:"deleted_count"`
}

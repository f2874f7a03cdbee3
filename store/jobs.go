package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"

	"github.com/nrenier/ICorNet-sub000/model"
)

// ReportJobs simulates the report pipeline: every job stays pending for a
// fixed delay, then completes with a generated PDF or fails when the company
// is not in its dataset.
type ReportJobs struct {
	store    *ReportStore
	fixtures *Fixtures
	delay    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReportJobs(store *ReportStore, fixtures *Fixtures, delay time.Duration) *ReportJobs {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReportJobs{
		store:    store,
		fixtures: fixtures,
		delay:    delay,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start schedules the job of a freshly created report.
func (j *ReportJobs) Start(r model.Report) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.run(r)
	}()
}

func (j *ReportJobs) run(r model.Report) {
	slog.Info("report job started", "report_id", r.ID, "company", r.CompanyName, "report_type", r.ReportType)

	timer := time.NewTimer(j.delay)
	defer timer.Stop()
	select {
	case <-j.ctx.Done():
		slog.Warn("report job aborted", "report_id", r.ID)
		j.store.Fail(r.ID)
		return
	case <-timer.C:
	}

	if r.ReportType != model.ReportTypeFederterziarioChain {
		if _, ok := j.fixtures.Find(DatasetForReportType(r.ReportType), r.CompanyName); !ok {
			slog.Warn("report job failed: unknown company", "report_id", r.ID, "company", r.CompanyName)
			j.store.Fail(r.ID)
			return
		}
	}

	data, err := RenderPDF(r)
	if err != nil {
		slog.Error("report job failed", "report_id", r.ID, "error", err)
		j.store.Fail(r.ID)
		return
	}
	fileName := ReportFileName(r)
	j.store.Complete(r.ID, fileName, data)
	slog.Info("report job completed", "report_id", r.ID, "file_name", fileName)
}

// Wait blocks until every started job has finished.
func (j *ReportJobs) Wait() {
	j.wg.Wait()
}

// Close aborts pending jobs and waits for them.
func (j *ReportJobs) Close() {
	j.cancel()
	j.wg.Wait()
}

// ReportFileName derives the download name of a report from its company.
func ReportFileName(r model.Report) string {
	slug := strings.Map(func(c rune) rune {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			return c
		case c == ' ' || c == '-' || c == '_':
			return '_'
		}
		return -1
	}, r.CompanyName)
	if slug == "" {
		return model.DefaultReportFileName(r.ID)
	}
	return fmt.Sprintf("report_%s_%d.pdf", slug, r.ID)
}

// RenderPDF produces a one-page PDF naming the report's company.
func RenderPDF(r model.Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Report %d - %s", r.ID, r.CompanyName), true)
	pdf.SetCreator("icornet", false)
	if !r.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.CreatedAt)
	}
	// Uncompressed content keeps the dev reports inspectable.
	pdf.SetCompression(false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, tr(fmt.Sprintf("Report %d - %s", r.ID, r.CompanyName)))
	pdf.Ln(16)
	pdf.SetFont("Helvetica", "", 11)
	kind := r.ReportType
	if kind == "" {
		kind = "generico"
	}
	pdf.Cell(0, 8, tr("Tipo: "+kind))
	pdf.Ln(8)
	if !r.CreatedAt.IsZero() {
		pdf.Cell(0, 8, tr("Richiesto il "+r.CreatedAt.Format("02/01/2006 15:04")))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

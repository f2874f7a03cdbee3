package service

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrenier/ICorNet-sub000/model"
)

// fakeReportBackend serves the report endpoints from a mutable list.
type fakeReportBackend struct {
	mu          sync.Mutex
	reports     []model.Report
	status      map[int64]model.StatusResponse
	deleteFails bool
	requests    int32
	deleted     []int64
	historyType string
	generated   []model.GenerateRequest
}

func (b *fakeReportBackend) handler() http.Handler {
	mux := http.NewServeMux()
	count := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&b.requests, 1)
			next(w, r)
		}
	}
	mux.HandleFunc("POST /api/reports/generate", count(func(w http.ResponseWriter, r *http.Request) {
		var req model.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.generated = append(b.generated, req)
		id := int64(100 + len(b.generated))
		b.reports = append(b.reports, model.Report{ID: id, CompanyName: req.CompanyName, Status: model.StatusPending, CreatedAt: time.Now()})
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": model.StatusPending})
	}))
	mux.HandleFunc("GET /api/reports/history", count(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.historyType = r.URL.Query().Get("type")
		writeJSON(w, http.StatusOK, model.HistoryResponse{Reports: append([]model.Report(nil), b.reports...)})
	}))
	mux.HandleFunc("GET /api/reports/status/{id}", count(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for id, st := range b.status {
			if r.PathValue("id") == jsonID(id) {
				writeJSON(w, http.StatusOK, st)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "Report non trovato"})
	}))
	mux.HandleFunc("DELETE /api/reports/bulk-delete", count(func(w http.ResponseWriter, r *http.Request) {
		if b.deleteFails {
			writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "Errore database"})
			return
		}
		var req model.BulkDeleteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.deleted = req.ReportIDs
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, model.BulkDeleteResponse{DeletedCount: len(req.ReportIDs)})
	}))
	mux.HandleFunc("GET /api/reports/download/{id}", count(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "42" {
			w.Header().Set("Content-Disposition", `attachment; filename="report_42.pdf"`)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 " + r.PathValue("id")))
	}))
	mux.HandleFunc("GET /api/reports/view/{id}", count(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	return mux
}

func jsonID(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}

func newTestManager(t *testing.T, backend *fakeReportBackend, domain ReportDomain, reload time.Duration) (*ReportManager, *recordingNotify) {
	t.Helper()
	client := newTestClient(t, backend.handler())
	notify := &recordingNotify{}
	m := NewReportManager(domain, client, NewSessionContext(&model.User{Username: "mario"}), notify, newTestScope(t), reload)
	return m, notify
}

func seedReports(ids ...int64) []model.Report {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	out := make([]model.Report, len(ids))
	for i, id := range ids {
		out[i] = model.Report{ID: id, CompanyName: "Acme", Status: model.StatusCompleted, CreatedAt: base.Add(time.Duration(id) * time.Minute)}
	}
	return out
}

func TestSubmitWithoutEntityMakesNoRequest(t *testing.T) {
	backend := &fakeReportBackend{}
	m, notify := newTestManager(t, backend, GenericDomain, time.Hour)

	_, err := m.Submit(context.Background(), "  ")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int32(0), atomic.LoadInt32(&backend.requests))
	assert.Equal(t, []NotificationKind{NotifyError}, notify.kinds())
}

func TestSubmitSchedulesSingleHistoryReload(t *testing.T) {
	backend := &fakeReportBackend{}
	m, notify := newTestManager(t, backend, StartupDomain, 20*time.Millisecond)

	states := make(chan ReportState, 4)
	m.OnChange(func(s ReportState) { states <- s })

	resp, err := m.Submit(context.Background(), "AlphaTech")
	require.NoError(t, err)
	assert.Equal(t, int64(101), resp.ReportID())
	assert.Equal(t, NotifySuccess, notify.last().Kind)
	assert.Contains(t, notify.last().Message, "AlphaTech")

	// The new record only appears once the deferred reload ran.
	assert.Empty(t, m.State().Reports)

	select {
	case st := <-states:
		require.Len(t, st.Reports, 1)
		assert.Equal(t, int64(101), st.Reports[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("history was not reloaded")
	}

	backend.mu.Lock()
	assert.Equal(t, model.ReportTypeStartup, backend.generated[0].ReportType)
	assert.Equal(t, model.ReportTypeStartup, backend.historyType)
	backend.mu.Unlock()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.requests))
}

func TestSubmitReloadDroppedAfterScopeClose(t *testing.T) {
	backend := &fakeReportBackend{}
	client := newTestClient(t, backend.handler())
	scope := NewScope(context.Background())
	m := NewReportManager(GenericDomain, client, NewSessionContext(nil), &recordingNotify{}, scope, 50*time.Millisecond)

	_, err := m.Submit(context.Background(), "Acme")
	require.NoError(t, err)
	scope.Close()
	scope.Wait()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.requests))
	assert.Empty(t, m.State().Reports)
}

func TestSubmitFiliera(t *testing.T) {
	backend := &fakeReportBackend{}
	m, _ := newTestManager(t, backend, FederterziarioDomain, time.Hour)

	_, err := m.SubmitFiliera(context.Background())
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.generated, 1)
	assert.Equal(t, "Filiera Federterziario", backend.generated[0].CompanyName)
	assert.Equal(t, model.ReportTypeFederterziarioChain, backend.generated[0].ReportType)

	generic, _ := newTestManager(t, &fakeReportBackend{}, GenericDomain, time.Hour)
	_, err = generic.SubmitFiliera(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoadHistorySortsNewestFirst(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(1, 3, 2)}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)

	require.NoError(t, m.LoadHistory(context.Background()))

	st := m.State()
	require.Len(t, st.Reports, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{st.Reports[0].ID, st.Reports[1].ID, st.Reports[2].ID})
	assert.Empty(t, backend.historyType)
}

func TestRefreshStatusMergesOnlyMatchingRecord(t *testing.T) {
	reports := seedReports(1, 2, 3)
	reports[1].Status = model.StatusPending
	backend := &fakeReportBackend{
		reports: reports,
		status: map[int64]model.StatusResponse{
			2: {Status: "completed908", FileName: "x.pdf"},
		},
	}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))
	before := m.State().Reports

	_, err := m.RefreshStatus(context.Background(), 2)
	require.NoError(t, err)

	after := m.State().Reports
	require.Len(t, after, 3)
	for i := range after {
		if after[i].ID == 2 {
			assert.Equal(t, "completed908", after[i].Status)
			assert.Equal(t, "x.pdf", after[i].FileName)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
}

func TestRefreshStatusUnknownIDIsNoop(t *testing.T) {
	backend := &fakeReportBackend{
		reports: seedReports(1),
		status: map[int64]model.StatusResponse{
			1: {ID: 9, Status: model.StatusFailed},
			5: {Status: model.StatusCompleted},
		},
	}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	_, err := m.RefreshStatus(context.Background(), 1)
	require.NoError(t, err)
	_, err = m.RefreshStatus(context.Background(), 5)
	require.NoError(t, err)

	r, ok := m.Report(1)
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, r.Status)
	_, ok = m.Report(5)
	assert.False(t, ok)
}

func TestRefreshStatusFailureIsNotNotified(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(1)}
	m, notify := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	_, err := m.RefreshStatus(context.Background(), 1)

	assert.Error(t, err)
	assert.Empty(t, notify.kinds())
}

func TestWatchPendingStopsWhenTerminal(t *testing.T) {
	reports := seedReports(1)
	reports[0].Status = model.StatusPending
	backend := &fakeReportBackend{
		reports: reports,
		status:  map[int64]model.StatusResponse{1: {Status: model.StatusCompleted, FileName: "Acme.pdf"}},
	}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.WatchPending(ctx, 10*time.Millisecond))

	r, _ := m.Report(1)
	assert.Equal(t, model.StatusCompleted, r.Status)
	assert.Equal(t, "Acme.pdf", r.FileName)
}

func TestWatchPendingHonoursContext(t *testing.T) {
	reports := seedReports(1)
	reports[0].Status = model.StatusPending
	backend := &fakeReportBackend{
		reports: reports,
		status:  map[int64]model.StatusResponse{1: {Status: model.StatusPending}},
	}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.WatchPending(ctx, 10*time.Millisecond), context.DeadlineExceeded)
}

func TestBulkDeletePrunesAndClearsAtomically(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(1, 2, 3, 5, 9)}
	m, notify := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	for _, id := range []int64{2, 5, 9} {
		m.Toggle(id)
	}
	require.NoError(t, m.RequestDelete())
	require.True(t, m.State().ConfirmOpen)

	var states []ReportState
	m.OnChange(func(s ReportState) { states = append(states, s) })

	require.NoError(t, m.ConfirmDelete(context.Background()))

	require.Len(t, states, 1)
	final := states[0]
	assert.Empty(t, final.Selected)
	assert.False(t, final.ConfirmOpen)
	for _, r := range final.Reports {
		assert.NotContains(t, []int64{2, 5, 9}, r.ID)
	}
	assert.Len(t, final.Reports, 2)
	assert.Equal(t, []int64{2, 5, 9}, backend.deleted)
	assert.Equal(t, NotifySuccess, notify.last().Kind)
}

func TestBulkDeleteFailureKeepsSelection(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(1, 2), deleteFails: true}
	m, notify := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	m.SelectAll()
	require.NoError(t, m.RequestDelete())

	err := m.ConfirmDelete(context.Background())

	require.Error(t, err)
	st := m.State()
	assert.Equal(t, []int64{1, 2}, st.Selected)
	assert.False(t, st.ConfirmOpen)
	assert.Len(t, st.Reports, 2)
	assert.Equal(t, Notification{Kind: NotifyError, Message: "Errore database"}, notify.last())
}

func TestRequestDeleteWithEmptySelection(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(1)}
	m, notify := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))
	before := atomic.LoadInt32(&backend.requests)

	assert.ErrorIs(t, m.RequestDelete(), ErrValidation)
	assert.ErrorIs(t, m.ConfirmDelete(context.Background()), ErrValidation)
	assert.False(t, m.State().ConfirmOpen)
	assert.Equal(t, before, atomic.LoadInt32(&backend.requests))
	assert.Equal(t, NotifyError, notify.last().Kind)
}

func TestSelection(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(1, 2, 3)}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	m.Toggle(2)
	m.Toggle(99)
	assert.Equal(t, []int64{2}, m.Selected())
	m.Toggle(2)
	assert.Empty(t, m.Selected())

	m.SelectAll()
	assert.Equal(t, []int64{1, 2, 3}, m.Selected())
	m.SelectNone()
	assert.Empty(t, m.Selected())

	m.Toggle(3)
	require.NoError(t, m.RequestDelete())
	m.CancelDelete()
	assert.False(t, m.State().ConfirmOpen)
	assert.Equal(t, []int64{3}, m.Selected())
}

func TestDownloadUsesHeaderFileNameOrFallback(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(42, 7)}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))
	dir := t.TempDir()

	loc, err := m.Download(context.Background(), 42, FileSaver{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_42.pdf"), loc)

	loc, err = m.Download(context.Background(), 7, FileSaver{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_7.pdf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 7", string(data))
}

func TestDownloadRequiresCompleted(t *testing.T) {
	reports := seedReports(1)
	reports[0].Status = model.StatusPending
	backend := &fakeReportBackend{reports: reports}
	m, notify := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))
	before := atomic.LoadInt32(&backend.requests)

	_, err := m.Download(context.Background(), 1, FileSaver{Dir: t.TempDir()})
	assert.ErrorIs(t, err, ErrValidation)

	err = m.View(context.Background(), 1, &recordingOpener{})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, before, atomic.LoadInt32(&backend.requests))
	assert.Equal(t, NotifyError, notify.last().Kind)
}

func TestViewHandsBytesToOpener(t *testing.T) {
	backend := &fakeReportBackend{reports: seedReports(3)}
	m, _ := newTestManager(t, backend, GenericDomain, time.Hour)
	require.NoError(t, m.LoadHistory(context.Background()))

	opener := &recordingOpener{}
	require.NoError(t, m.View(context.Background(), 3, opener))
	assert.Equal(t, "report_3.pdf", opener.name)
	assert.Equal(t, []byte("%PDF-1.4"), opener.data)
}

type recordingOpener struct {
	name string
	data []byte
}

func (o *recordingOpener) Open(_ context.Context, name string, data []byte) error {
	o.name, o.data = name, data
	return nil
}

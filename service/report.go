package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

// ReportState is a consistent snapshot of a report page.
type ReportState struct {
	Reports     []model.Report
	Selected    []int64
	ConfirmOpen bool
}

// ReportManager owns the generate, poll, download and delete flow of one
// report domain. Independent managers share nothing.
//
// The local list only ever holds records returned by the server: a submit
// schedules a history reload instead of inserting the new record.
type ReportManager struct {
	domain      ReportDomain
	client      *APIClient
	session     *SessionContext
	notify      Notify
	scope       *Scope
	reloadDelay time.Duration

	mu          sync.Mutex
	reports     []model.Report
	selected    map[int64]struct{}
	confirmOpen bool
	onChange    func(ReportState)
}

func NewReportManager(domain ReportDomain, client *APIClient, session *SessionContext, notify Notify, scope *Scope, reloadDelay time.Duration) *ReportManager {
	return &ReportManager{
		domain:      domain,
		client:      client,
		session:     session,
		notify:      notify,
		scope:       scope,
		reloadDelay: reloadDelay,
		selected:    make(map[int64]struct{}),
	}
}

// Domain returns the configuration the manager was built with.
func (m *ReportManager) Domain() ReportDomain {
	return m.domain
}

// OnChange registers fn to receive a snapshot after every state change.
func (m *ReportManager) OnChange(fn func(ReportState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *ReportManager) ctx(ctx context.Context) context.Context {
	return m.session.Context(ctx, m.domain.Tag)
}

// Submit asks the backend to generate a report for entityName.
func (m *ReportManager) Submit(ctx context.Context, entityName string) (*model.GenerateResponse, error) {
	entityName = strings.TrimSpace(entityName)
	if entityName == "" {
		m.notify.Push(NotifyError, m.domain.Labels.NoEntity)
		return nil, validationError(m.domain.Labels.NoEntity)
	}
	return m.submit(ctx, entityName, m.domain.ReportType)
}

// SubmitFiliera requests the whole-supply-chain report of the domain.
func (m *ReportManager) SubmitFiliera(ctx context.Context) (*model.GenerateResponse, error) {
	if m.domain.FilieraName == "" {
		msg := fmt.Sprintf("Il dominio %s non prevede il report di filiera", m.domain.Tag)
		m.notify.Push(NotifyError, msg)
		return nil, validationError(msg)
	}
	return m.submit(ctx, m.domain.FilieraName, model.ReportTypeFederterziarioChain)
}

func (m *ReportManager) submit(ctx context.Context, entityName, reportType string) (*model.GenerateResponse, error) {
	ctx = m.ctx(ctx)

	var resp model.GenerateResponse
	err := m.client.Post(ctx, "/reports/generate", model.GenerateRequest{
		CompanyName: entityName,
		ReportType:  reportType,
	}, &resp)
	if err != nil {
		logger.Error(ctx, "report generation request failed", "company", entityName, "error", err)
		m.notify.Push(NotifyError, err.Error())
		return nil, err
	}

	logger.Info(ctx, "report generation requested", "company", entityName, "report_id", resp.ReportID())
	m.notify.Push(NotifySuccess, fmt.Sprintf(m.domain.Labels.Submitted, entityName))

	m.scope.After(m.reloadDelay, func(ctx context.Context) {
		if err := m.LoadHistory(ctx); err != nil {
			logger.Warn(m.ctx(ctx), "deferred history reload failed", "error", err)
		}
	})
	return &resp, nil
}

// LoadHistory replaces the local list with the server's, newest first.
// Selected ids that no longer exist are dropped.
func (m *ReportManager) LoadHistory(ctx context.Context) error {
	ctx = m.ctx(ctx)

	var query url.Values
	if m.domain.HistoryType != "" {
		query = url.Values{"type": {m.domain.HistoryType}}
	}

	var resp model.HistoryResponse
	if err := m.client.Get(ctx, "/reports/history", query, &resp); err != nil {
		return err
	}
	reports := resp.Reports
	model.SortNewestFirst(reports)

	m.update(func() {
		m.reports = reports
		present := make(map[int64]struct{}, len(reports))
		for _, r := range reports {
			present[r.ID] = struct{}{}
		}
		for id := range m.selected {
			if _, ok := present[id]; !ok {
				delete(m.selected, id)
			}
		}
	})
	logger.Debug(ctx, "report history loaded", "count", len(reports))
	return nil
}

// RefreshStatus fetches the status of one report and merges status and file
// name into the matching local record. Other records are untouched; an id
// that is not held locally, or a response about another id, changes nothing.
func (m *ReportManager) RefreshStatus(ctx context.Context, id int64) (*model.StatusResponse, error) {
	ctx = m.ctx(ctx)

	var resp model.StatusResponse
	if err := m.client.Get(ctx, "/reports/status/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		logger.Warn(ctx, "status refresh failed", "report_id", id, "error", err)
		return nil, err
	}
	if resp.ID != 0 && resp.ID != id {
		return &resp, nil
	}

	m.update(func() {
		for i := range m.reports {
			if m.reports[i].ID != id {
				continue
			}
			if resp.Status != "" {
				m.reports[i].Status = resp.Status
			}
			if resp.FileName != "" {
				m.reports[i].FileName = resp.FileName
			}
			if m.reports[i].Status == model.StatusCompleted {
				logger.Info(ctx, "report completed", "report_id", id, "file_name", m.reports[i].FileName)
			}
			return
		}
	})
	return &resp, nil
}

// WatchPending refreshes every pending report each interval until none is
// pending, ctx is done or the scope is closed. Individual refresh failures
// are logged and retried on the next tick.
func (m *ReportManager) WatchPending(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pending := m.pendingIDs()
		if len(pending) == 0 {
			return nil
		}
		for _, id := range pending {
			_, _ = m.RefreshStatus(ctx, id)
		}
		if len(m.pendingIDs()) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.scope.Context().Done():
			return m.scope.Context().Err()
		case <-ticker.C:
		}
	}
}

func (m *ReportManager) pendingIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, r := range m.reports {
		if r.Status == model.StatusPending {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Report returns the local record with the given id.
func (m *ReportManager) Report(id int64) (model.Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			return r, true
		}
	}
	return model.Report{}, false
}

func (m *ReportManager) completedReport(id int64) (model.Report, error) {
	r, ok := m.Report(id)
	if !ok || r.Status != model.StatusCompleted {
		m.notify.Push(NotifyError, m.domain.Labels.NotReady)
		return model.Report{}, validationError(m.domain.Labels.NotReady)
	}
	return r, nil
}

// Download fetches a completed report and hands it to saver. The file name
// comes from Content-Disposition, falling back to report_{id}.pdf.
func (m *ReportManager) Download(ctx context.Context, id int64, saver Saver) (string, error) {
	if _, err := m.completedReport(id); err != nil {
		return "", err
	}
	ctx = m.ctx(ctx)

	bin, err := m.client.Fetch(ctx, "/reports/download/"+strconv.FormatInt(id, 10))
	if err != nil {
		m.notify.Push(NotifyError, err.Error())
		return "", err
	}
	name := bin.FileName
	if name == "" {
		name = model.DefaultReportFileName(id)
	}

	location, err := saver.Save(ctx, name, bin.Data)
	if err != nil {
		m.notify.Push(NotifyError, err.Error())
		return "", err
	}
	logger.Info(ctx, "report downloaded", "report_id", id, "location", location)
	return location, nil
}

// View fetches a completed report and hands it to opener.
func (m *ReportManager) View(ctx context.Context, id int64, opener Opener) error {
	if _, err := m.completedReport(id); err != nil {
		return err
	}
	ctx = m.ctx(ctx)

	bin, err := m.client.Fetch(ctx, "/reports/view/"+strconv.FormatInt(id, 10))
	if err != nil {
		m.notify.Push(NotifyError, err.Error())
		return err
	}
	name := bin.FileName
	if name == "" {
		name = model.DefaultReportFileName(id)
	}
	if err := opener.Open(ctx, name, bin.Data); err != nil {
		m.notify.Push(NotifyError, err.Error())
		return err
	}
	return nil
}

// Toggle adds or removes one report from the selection. Ids not in the local
// list are ignored.
func (m *ReportManager) Toggle(id int64) {
	m.update(func() {
		if _, ok := m.selected[id]; ok {
			delete(m.selected, id)
			return
		}
		for _, r := range m.reports {
			if r.ID == id {
				m.selected[id] = struct{}{}
				return
			}
		}
	})
}

// SelectAll selects every local report.
func (m *ReportManager) SelectAll() {
	m.update(func() {
		for _, r := range m.reports {
			m.selected[r.ID] = struct{}{}
		}
	})
}

// SelectNone clears the selection.
func (m *ReportManager) SelectNone() {
	m.update(func() {
		m.selected = make(map[int64]struct{})
	})
}

// Selected returns the selected ids in ascending order.
func (m *ReportManager) Selected() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedLocked()
}

func (m *ReportManager) selectedLocked() []int64 {
	ids := make([]int64, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RequestDelete opens the delete confirmation. An empty selection is
// rejected without opening it.
func (m *ReportManager) RequestDelete() error {
	if len(m.Selected()) == 0 {
		m.notify.Push(NotifyError, m.domain.Labels.EmptySelection)
		return validationError(m.domain.Labels.EmptySelection)
	}
	m.update(func() { m.confirmOpen = true })
	return nil
}

// CancelDelete closes the confirmation and keeps the selection.
func (m *ReportManager) CancelDelete() {
	m.update(func() { m.confirmOpen = false })
}

// ConfirmDelete deletes every selected report in one request. On success the
// deleted records leave the list, the selection empties and the confirmation
// closes in a single update. On failure only the confirmation closes.
func (m *ReportManager) ConfirmDelete(ctx context.Context) error {
	ids := m.Selected()
	if len(ids) == 0 {
		m.notify.Push(NotifyError, m.domain.Labels.EmptySelection)
		return validationError(m.domain.Labels.EmptySelection)
	}
	ctx = m.ctx(ctx)

	var resp model.BulkDeleteResponse
	err := m.client.Delete(ctx, "/reports/bulk-delete", model.BulkDeleteRequest{ReportIDs: ids}, &resp)
	if err != nil {
		logger.Error(ctx, "bulk delete failed", "report_ids", ids, "error", err)
		m.update(func() { m.confirmOpen = false })
		m.notify.Push(NotifyError, err.Error())
		return err
	}

	deleted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		deleted[id] = struct{}{}
	}
	m.update(func() {
		kept := make([]model.Report, 0, len(m.reports))
		for _, r := range m.reports {
			if _, gone := deleted[r.ID]; !gone {
				kept = append(kept, r)
			}
		}
		m.reports = kept
		m.selected = make(map[int64]struct{})
		m.confirmOpen = false
	})

	logger.Info(ctx, "reports deleted", "report_ids", ids)
	m.notify.Push(NotifySuccess, fmt.Sprintf(m.domain.Labels.Deleted, len(ids)))
	return nil
}

// State returns a consistent snapshot of list, selection and confirmation.
func (m *ReportManager) State() ReportState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *ReportManager) snapshotLocked() ReportState {
	return ReportState{
		Reports:     append([]model.Report(nil), m.reports...),
		Selected:    m.selectedLocked(),
		ConfirmOpen: m.confirmOpen,
	}
}

// update applies fn atomically while the owning scope is alive, then
// notifies the listener.
func (m *ReportManager) update(fn func()) {
	m.mu.Lock()
	if !m.scope.Alive() {
		m.mu.Unlock()
		return
	}
	fn()
	listener, snapshot := m.onChange, m.snapshotLocked()
	m.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}

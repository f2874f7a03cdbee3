package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nrenier/ICorNet-sub000/middleware"
	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
	"github.com/nrenier/ICorNet-sub000/store"
)

var reportTypes = map[string]bool{
	model.ReportTypeDefault:             true,
	model.ReportTypeStartup:             true,
	model.ReportTypeFederterziario:      true,
	model.ReportTypeFederterziarioChain: true,
}

type ReportHandler struct {
	reports *store.ReportStore
	jobs    *store.ReportJobs
}

func NewReportHandler(reports *store.ReportStore, jobs *store.ReportJobs) *ReportHandler {
	return &ReportHandler{reports: reports, jobs: jobs}
}

// Generate accepts a report request and schedules its job
func (h *ReportHandler) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Richiesta non valida"})
		return
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if req.CompanyName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Il nome dell'azienda è obbligatorio"})
		return
	}
	if !reportTypes[req.ReportType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Tipo di report non supportato: %s", req.ReportType)})
		return
	}

	r := h.reports.Create(middleware.GetUserID(c), req.CompanyName, req.ReportType)
	h.jobs.Start(r)

	logger.Info(c.Request.Context(), "report requested",
		"report_id", r.ID,
		"company", r.CompanyName,
		"report_type", r.ReportType,
	)

	c.JSON(http.StatusAccepted, model.GenerateResponse{
		ID:      r.ID,
		Status:  r.Status,
		Message: "Generazione del report avviata",
	})
}

// Status returns the current status of one report
func (h *ReportHandler) Status(c *gin.Context) {
	r, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{ID: r.ID, Status: r.Status, FileName: r.FileName})
}

// History lists the caller's reports, optionally narrowed by ?type=
func (h *ReportHandler) History(c *gin.Context) {
	var ds store.Dataset
	if t := c.Query("type"); t != "" {
		if !reportTypes[t] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Tipo di report non supportato: %s", t)})
			return
		}
		ds = store.DatasetForReportType(t)
	}

	c.JSON(http.StatusOK, model.HistoryResponse{Reports: h.reports.ListByOwner(middleware.GetUserID(c), ds)})
}

// BulkDelete removes the caller's reports listed in the body
func (h *ReportHandler) BulkDelete(c *gin.Context) {
	var req model.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ReportIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nessun report selezionato"})
		return
	}

	n := h.reports.Delete(middleware.GetUserID(c), req.ReportIDs)
	logger.Info(c.Request.Context(), "reports deleted", "requested", len(req.ReportIDs), "deleted", n)

	c.JSON(http.StatusOK, model.BulkDeleteResponse{
		Message:      fmt.Sprintf("%d report eliminati", n),
		DeletedCount: n,
	})
}

// Download sends the PDF as an attachment
func (h *ReportHandler) Download(c *gin.Context) {
	h.serveFile(c, "attachment")
}

// View sends the PDF for display in the browser
func (h *ReportHandler) View(c *gin.Context) {
	h.serveFile(c, "inline")
}

func (h *ReportHandler) serveFile(c *gin.Context, disposition string) {
	r, ok := h.owned(c)
	if !ok {
		return
	}
	if r.Status != model.StatusCompleted || len(r.Data) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Il report non è ancora pronto"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, r.FileName))
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "application/pdf", r.Data)
}

// owned resolves the :id parameter to a report of the caller. It writes the
// error response itself.
func (h *ReportHandler) owned(c *gin.Context) (store.StoredReport, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID report non valido"})
		return store.StoredReport{}, false
	}

	r, ok := h.reports.Get(id)
	if !ok || r.Owner != middleware.GetUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report non trovato"})
		return store.StoredReport{}, false
	}
	return r, true
}

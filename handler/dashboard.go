package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nrenier/ICorNet-sub000/middleware"
	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/store"
)

const recentReportsLimit = 5

type DashboardHandler struct {
	fixtures *store.Fixtures
	reports  *store.ReportStore
	now      func() time.Time
}

func NewDashboardHandler(fixtures *store.Fixtures, reports *store.ReportStore) *DashboardHandler {
	return &DashboardHandler{fixtures: fixtures, reports: reports, now: time.Now}
}

// Stats returns the dashboard counters
func (h *DashboardHandler) Stats(c *gin.Context) {
	now := h.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dist := h.fixtures.SectorDistribution()

	c.JSON(http.StatusOK, model.DashboardStats{
		CompanyCount:       len(h.fixtures.Companies),
		SectorCount:        len(dist),
		ReportsToday:       h.reports.CountSince(midnight),
		LastUpdate:         now.Format("02/01/2006 15:04"),
		SectorDistribution: dist,
	})
}

// RecentReports returns the caller's latest reports
func (h *DashboardHandler) RecentReports(c *gin.Context) {
	c.JSON(http.StatusOK, model.RecentReportsResponse{
		RecentReports: h.reports.Recent(middleware.GetUserID(c), recentReportsLimit),
	})
}

// SectorCompanies lists the companies of ?sector=
func (h *DashboardHandler) SectorCompanies(c *gin.Context) {
	sector := strings.TrimSpace(c.Query("sector"))
	if sector == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Il parametro sector è obbligatorio"})
		return
	}
	c.JSON(http.StatusOK, model.CompaniesResponse{Companies: h.fixtures.BySector(sector)})
}

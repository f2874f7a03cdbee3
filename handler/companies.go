package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
	"github.com/nrenier/ICorNet-sub000/store"
)

type CompanyHandler struct {
	fixtures *store.Fixtures
	graph    store.GraphSource
}

func NewCompanyHandler(fixtures *store.Fixtures, graph store.GraphSource) *CompanyHandler {
	return &CompanyHandler{fixtures: fixtures, graph: graph}
}

// List returns the handler serving the company list of ds
func (h *CompanyHandler) List(ds store.Dataset) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, model.CompaniesResponse{Companies: h.fixtures.List(ds)})
	}
}

// Detail returns one company of the main dataset
func (h *CompanyHandler) Detail(c *gin.Context) {
	company, ok := h.fixtures.Find(store.DatasetCompanies, c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Azienda non trovata"})
		return
	}
	c.JSON(http.StatusOK, model.CompanyResponse{Company: company})
}

// Relationships returns the handler serving the relationship graph of a
// company of ds
func (h *CompanyHandler) Relationships(ds store.Dataset) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		ctx := c.Request.Context()

		g, err := h.graph.Relationships(ctx, ds, name)
		if errors.Is(err, store.ErrUnknownCompany) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Azienda non trovata"})
			return
		}
		if err != nil {
			logger.Error(ctx, "failed to load relationships", "company", name, "dataset", ds, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Errore nel caricamento delle relazioni"})
			return
		}

		c.JSON(http.StatusOK, model.RelationshipsResponse{Relationships: g})
	}
}

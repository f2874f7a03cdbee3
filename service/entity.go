package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
)

// MaxSuggestions caps the suggestion list of an entity search.
const MaxSuggestions = 20

// Filter returns at most MaxSuggestions entities whose name or one of the
// given fields contains term, case-insensitively. List-valued fields match
// when any element matches. The term is trimmed, so an empty or blank term
// returns the first entries of list unfiltered. Input order is preserved.
func Filter(list []model.Entity, term string, fields []string) []model.Entity {
	term = strings.ToLower(strings.TrimSpace(term))

	out := make([]model.Entity, 0, min(len(list), MaxSuggestions))
	for _, e := range list {
		if len(out) == MaxSuggestions {
			break
		}
		if term == "" || entityMatches(e, term, fields) {
			out = append(out, e)
		}
	}
	return out
}

func entityMatches(e model.Entity, term string, fields []string) bool {
	if strings.Contains(strings.ToLower(e.Name()), term) {
		return true
	}
	for _, f := range fields {
		for _, v := range e.Strings(f) {
			if strings.Contains(strings.ToLower(v), term) {
				return true
			}
		}
	}
	return false
}

// Catalog fetches the entity list of one domain, optionally through a cache
// shared between runs.
type Catalog struct {
	client     *APIClient
	path       string
	detailPath string
	cache      Cache
	ttl        time.Duration
}

func NewCatalog(client *APIClient, domain ReportDomain, cache Cache, ttl time.Duration) *Catalog {
	return &Catalog{
		client:     client,
		path:       domain.CompaniesPath,
		detailPath: domain.DetailPath,
		cache:      cache,
		ttl:        ttl,
	}
}

func (c *Catalog) cacheKey() string {
	return "entities:" + c.client.BaseURL() + c.path
}

// Load returns the full entity list.
func (c *Catalog) Load(ctx context.Context) ([]model.Entity, error) {
	if c.cache != nil {
		if data, err := c.cache.Get(c.cacheKey()); err == nil {
			var cached []model.Entity
			if err := json.Unmarshal(data, &cached); err == nil {
				logger.Debug(ctx, "entity list served from cache", "path", c.path, "count", len(cached))
				return cached, nil
			}
		}
	}

	var resp model.CompaniesResponse
	if err := c.client.Get(ctx, c.path, nil, &resp); err != nil {
		return nil, err
	}

	if c.cache != nil {
		data, err := json.Marshal(resp.Companies)
		if err == nil {
			err = c.cache.Set(c.cacheKey(), data, c.ttl)
		}
		if err != nil {
			logger.Warn(ctx, "failed to cache entity list", "path", c.path, "error", err)
		}
	}
	return resp.Companies, nil
}

// Invalidate drops the cached list so the next Load hits the API.
func (c *Catalog) Invalidate() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(c.cacheKey())
}

// HasDetail reports whether the domain exposes a company detail endpoint.
func (c *Catalog) HasDetail() bool {
	return c.detailPath != ""
}

// Detail fetches the full record of one company.
func (c *Catalog) Detail(ctx context.Context, name string) (model.Entity, error) {
	if c.detailPath == "" {
		return nil, fmt.Errorf("domain has no detail endpoint")
	}
	var resp model.CompanyResponse
	if err := c.client.Get(ctx, c.detailPath+"/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Company == nil {
		return nil, fmt.Errorf("empty company detail for %q", name)
	}
	return resp.Company, nil
}

// SelectorState is a snapshot of an entity search box.
type SelectorState struct {
	Term        string
	Suggestions []model.Entity
	Open        bool
	Selected    model.Entity
}

// Selector is the search-and-select state of one page.
type Selector struct {
	scope   *Scope
	catalog *Catalog
	fields  []string

	mu       sync.Mutex
	all      []model.Entity
	state    SelectorState
	onChange func(SelectorState)
}

func NewSelector(scope *Scope, catalog *Catalog, fields []string) *Selector {
	return &Selector{
		scope:   scope,
		catalog: catalog,
		fields:  fields,
	}
}

// OnChange registers fn to receive a snapshot after every change.
func (s *Selector) OnChange(fn func(SelectorState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Load fetches the entity list and recomputes the suggestions.
func (s *Selector) Load(ctx context.Context) error {
	list, err := s.catalog.Load(ctx)
	if err != nil {
		return err
	}
	s.update(func() {
		s.all = list
		s.state.Suggestions = Filter(s.all, s.state.Term, s.fields)
	})
	return nil
}

// SetTerm updates the search text. Clearing it deselects the current entity.
func (s *Selector) SetTerm(term string) {
	s.update(func() {
		s.state.Term = term
		s.state.Suggestions = Filter(s.all, term, s.fields)
		s.state.Open = true
		if strings.TrimSpace(term) == "" {
			s.state.Selected = nil
		}
	})
}

// Select picks the entity named name from the loaded list and closes the
// suggestions. When the catalog has a detail endpoint the full record
// replaces the summary; if that fetch fails the summary is kept.
func (s *Selector) Select(ctx context.Context, name string) (model.Entity, error) {
	var summary model.Entity
	s.mu.Lock()
	for _, e := range s.all {
		if e.Name() == name {
			summary = e
			break
		}
	}
	s.mu.Unlock()
	if summary == nil {
		return nil, validationError(fmt.Sprintf("Azienda %q non trovata", name))
	}

	s.update(func() {
		s.state.Selected = summary
		s.state.Term = name
		s.state.Open = false
	})

	if !s.catalog.HasDetail() {
		return summary, nil
	}

	detail, err := s.catalog.Detail(ctx, name)
	if err != nil {
		logger.Debug(ctx, "company detail unavailable, keeping summary", "company", name, "error", err)
		return summary, nil
	}

	applied := false
	s.update(func() {
		if s.state.Selected != nil && s.state.Selected.Name() == name {
			s.state.Selected = detail
			applied = true
		}
	})
	if !applied {
		return summary, nil
	}
	return detail, nil
}

// State returns the current snapshot.
func (s *Selector) State() SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Selector) snapshotLocked() SelectorState {
	st := s.state
	st.Suggestions = append([]model.Entity(nil), s.state.Suggestions...)
	return st
}

// update applies fn while the owning scope is alive and notifies the
// listener with the resulting snapshot.
func (s *Selector) update(fn func()) {
	s.mu.Lock()
	if s.scope != nil && !s.scope.Alive() {
		s.mu.Unlock()
		return
	}
	fn()
	listener, snapshot := s.onChange, s.snapshotLocked()
	s.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}

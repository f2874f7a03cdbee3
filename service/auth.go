package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/nrenier/ICorNet-sub000/model"
)

// ErrNotAuthenticated is returned by CurrentUser when the session is missing
// or expired.
var ErrNotAuthenticated = errors.New("not authenticated")

// Login opens a session; the session cookie is kept by the client jar.
func (c *APIClient) Login(ctx context.Context, username, password string) (*model.User, error) {
	var resp model.UserResponse
	err := c.Post(ctx, "/login", model.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Register creates an account and opens a session for it.
func (c *APIClient) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	var resp model.UserResponse
	if err := c.Post(ctx, "/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout closes the server session.
func (c *APIClient) Logout(ctx context.Context) error {
	return c.Post(ctx, "/logout", nil, nil)
}

// CurrentUser returns the session user. A 401 maps to ErrNotAuthenticated.
func (c *APIClient) CurrentUser(ctx context.Context) (*model.User, error) {
	var resp model.UserResponse
	err := c.Get(ctx, "/user", nil, &resp)
	if StatusCode(err) == http.StatusUnauthorized {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Health returns the backend liveness payload.
func (c *APIClient) Health(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.Get(ctx, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DashboardStats returns the headline counters of the dashboard.
func (c *APIClient) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var resp model.DashboardStats
	if err := c.Get(ctx, "/dashboard/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecentReports returns the latest reports across all domains.
func (c *APIClient) RecentReports(ctx context.Context) ([]model.Report, error) {
	var resp model.RecentReportsResponse
	if err := c.Get(ctx, "/dashboard/recent-reports", nil, &resp); err != nil {
		return nil, err
	}
	return resp.RecentReports, nil
}

// SectorCompanies lists the companies classified under sector.
func (c *APIClient) SectorCompanies(ctx context.Context, sector string) ([]model.Entity, error) {
	var resp model.CompaniesResponse
	if err := c.Get(ctx, "/dashboard/sector-companies", url.Values{"sector": {sector}}, &resp); err != nil {
		return nil, err
	}
	return resp.Companies, nil
}

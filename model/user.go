package model

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// UserResponse wraps the user in auth responses.
type UserResponse struct {
	User User `json:"user"`
}

// SectorCount is one bucket of the sector distribution.
type SectorCount struct {
	Settore string `json:"settore"`
	Count   int    `json:"count"`
}

// DashboardStats is returned by GET /dashboard/stats
type DashboardStats struct {
	CompanyCount       int           `json:"company_count"`
	SectorCount        int           `json:"sector_count"`
	ReportsToday       int           `json:"reports_today"`
	LastUpdate         string        `json:"last_update"`
	SectorDistribution []SectorCount `json:"sector_distribution"`
}

// RecentReportsResponse is returned by GET /dashboard/recent-reports
type RecentReportsResponse struct {
	RecentReports []Report `json:"recent_reports"`
}

// ErrorResponse is the error body every non-2xx response should carry.
type ErrorResponse struct {
	Error string `json:"error"`
}

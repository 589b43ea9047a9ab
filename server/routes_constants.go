package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/health"

	// API Routes (bearer token required)
	RouteAPIProtected    = "/api/protected"
	RouteAPIAuthValidate = "/api/auth/validate"
)

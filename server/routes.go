package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// Protected API routes (require a valid access token)
	s.RegisterRouteHandler("GET "+RouteAPIProtected, ChainMiddleware(s.ProtectedHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIAuthValidate, ChainMiddleware(s.ValidateHandler(), s.APIMiddleware(s.RequireAuth())...))

	// CORS preflight. The middleware answers these before the no-op
	// handler runs.
	for _, route := range []string{RouteHealth, RouteAPIProtected, RouteAPIAuthValidate} {
		s.RegisterRouteHandler("OPTIONS "+route, ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}, s.APIMiddleware()...))
	}
}

package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	api := s.APIMiddleware()
	protected := append(s.APIMiddleware(), s.RequireAuth())

	// Auth
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), api...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), protected...))

	// Todos (all behind the auth gate)
	s.RegisterRouteFunc("POST "+RouteTodos, ChainMiddleware(s.CreateTodoHandler(), protected...))
	s.RegisterRouteFunc("GET "+RouteTodos, ChainMiddleware(s.ListTodosHandler(), protected...))
	s.RegisterRouteFunc("PUT "+RouteTodosReorder, ChainMiddleware(s.ReorderTodosHandler(), protected...))
	s.RegisterRouteFunc("GET "+RouteTodoByID, ChainMiddleware(s.GetTodoHandler(), protected...))
	s.RegisterRouteFunc("PUT "+RouteTodoByID, ChainMiddleware(s.UpdateTodoHandler(), protected...))
	s.RegisterRouteFunc("DELETE "+RouteTodoByID, ChainMiddleware(s.DeleteTodoHandler(), protected...))

	// Ops
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			ctx, cancel := contextWithTimeout(r, s.healthTimeout)
			defer cancel()
			if err := s.health(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "unhealthy", "store unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

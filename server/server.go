package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-todo-server/auth"
	"github.com/jrsteele09/go-todo-server/internal/config"
	"github.com/jrsteele09/go-todo-server/todos"
	"github.com/jrsteele09/go-todo-server/token"
)

// HealthCheck reports whether the backing store is reachable. A nil check
// means always healthy (used by tests running on in-memory repos).
type HealthCheck func(ctx context.Context) error

type Server struct {
	env            string
	mux            *http.ServeMux
	routes         []string
	allowedOrigins map[string]struct{}
	sessions       *auth.SessionService
	todos          *todos.Service
	tokens         *token.Manager
	metrics        *Metrics
	registry       *prometheus.Registry
	health         HealthCheck
	healthTimeout  time.Duration
}

func New(cfg *config.Config, sessions *auth.SessionService, todoService *todos.Service, tokens *token.Manager, health HealthCheck) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if sessions == nil {
		return nil, errors.New("[server.New] session service is required")
	}
	if todoService == nil {
		return nil, errors.New("[server.New] todo service is required")
	}
	if tokens == nil {
		return nil, errors.New("[server.New] token manager is required")
	}

	registry := prometheus.NewRegistry()

	healthTimeout := cfg.Server.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = 500 * time.Millisecond
	}

	s := &Server{
		env:            cfg.App.Env,
		mux:            http.NewServeMux(),
		allowedOrigins: make(map[string]struct{}),
		sessions:       sessions,
		todos:          todoService,
		tokens:         tokens,
		metrics:        NewMetrics(registry),
		registry:       registry,
		health:         health,
		healthTimeout:  healthTimeout,
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		s.allowedOrigins[origin] = struct{}{}
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.CorsMiddleware(s.mux.ServeHTTP)(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if !strings.EqualFold(s.env, "dev") {
		return
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered route")
	}
}

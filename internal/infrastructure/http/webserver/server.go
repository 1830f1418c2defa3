// Package webserver provides the web frontend HTTP server implementation
package webserver

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/infrastructure/cache"
	"github.com/glucomeal/web/internal/infrastructure/config"
	"github.com/glucomeal/web/pkg/healthcheck"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

type contextKey string

const sessionContextKey contextKey = "session"

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config        *config.Config
	logger        *zap.Logger
	server        *http.Server
	router        *chi.Mux
	apiClient     *APIClient
	sessionStore  *SessionStore
	forecastCache cache.ForecastCache
	templates     *template.Template
	healthCheck   *healthcheck.HealthCheck
	metrics       *httpMetrics
}

// NewWebServer creates a new web frontend server instance
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	apiClient *APIClient,
	sessionStore *SessionStore,
	forecastCache cache.ForecastCache,
	hc *healthcheck.HealthCheck,
) (*WebServer, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	server := &WebServer{
		config:        cfg,
		logger:        log,
		apiClient:     apiClient,
		sessionStore:  sessionStore,
		forecastCache: forecastCache,
		templates:     templates,
		healthCheck:   hc,
		metrics:       newHTTPMetrics(),
	}

	server.router = server.setupRoutes()
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures the web frontend routes
func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(s.sessionMiddleware)

	staticRoot, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))

	r.Handle("/metrics", s.metrics.handler())
	r.Get("/health", s.handleHealthCheck)
	r.Get("/ready", s.handleReadinessCheck)
	r.Get("/live", s.handleLivenessCheck)

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	// Protected pages
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/chat", s.handleChatPage)
		r.Get("/profile", s.handleProfilePage)
		r.Post("/profile", s.handleProfileSave)
		r.Get("/dashboard", s.handleDashboard)
	})

	// HTMX endpoints (partial templates)
	r.Route("/htmx", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/chat/send", s.handleChatSend)
	})

	return r
}

// Start starts the web frontend HTTP server
func (s *WebServer) Start() error {
	s.logger.Info("starting web frontend server",
		zap.String("address", s.server.Addr),
		zap.String("backend", s.config.Backend.BaseURL),
	)

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web frontend server")
	return s.server.Shutdown(ctx)
}

// parseTemplates parses all HTML templates from the embedded filesystem
func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b float64) float64 { return a + b },
		"sub": func(a, b float64) float64 { return a - b },
	}

	tmpl := template.New("").Funcs(funcMap)

	err := fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		name := strings.TrimPrefix(path, "templates/")
		name = strings.TrimSuffix(name, ".html")

		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk templates: %w", err)
	}

	return tmpl, nil
}

// Middleware

func (s *WebServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessionStore.Get(r)
		if err != nil {
			session = s.sessionStore.New()
			s.sessionStore.Save(w, session)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *WebServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r)
		if !session.Authenticated() {
			if isHTMX(r) {
				s.renderAuthExpired(w)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sessionFrom(r *http.Request) *Session {
	return r.Context().Value(sessionContextKey).(*Session)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// Health endpoints

func (s *WebServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response := s.healthCheck.Check(r.Context())

	statusCode := http.StatusOK
	if response.Status == healthcheck.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode health check response", zap.Error(err))
	}
}

func (s *WebServer) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.apiClient.VerifyConnection(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "not_ready",
			"reason": "backend not accessible",
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

func (s *WebServer) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// Render helpers

func (s *WebServer) renderTemplate(w http.ResponseWriter, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if data == nil {
		data = make(map[string]any)
	}
	if data["Title"] == nil {
		data["Title"] = s.config.App.Name
	}
	if data["AppName"] == nil {
		data["AppName"] = s.config.App.Name
	}

	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("failed to execute template",
			zap.String("template", name),
			zap.Error(err))
		fmt.Fprintf(w, "<!DOCTYPE html><html><body><h1>%s</h1><p>Something went wrong rendering this page.</p></body></html>",
			template.HTMLEscapeString(s.config.App.Name))
	}
}

func (s *WebServer) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	s.renderTemplate(w, "error", map[string]any{
		"Title":   "Error",
		"Message": message,
	})
}

// renderAuthExpired returns the partial HTMX anti-page: an error notice that
// schedules navigation to the login page after a short fixed delay.
func (s *WebServer) renderAuthExpired(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	s.renderTemplate(w, "partials/auth-expired", nil)
}

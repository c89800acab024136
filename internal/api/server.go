// Package api serves the keyboard backlight over HTTP with Huma v2.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/kbdlight/internal/api/models"
	"github.com/smazurov/kbdlight/internal/events"
	"github.com/smazurov/kbdlight/internal/keyboard"
	"github.com/smazurov/kbdlight/internal/logging"
	"github.com/smazurov/kbdlight/internal/settings"
	"github.com/smazurov/kbdlight/internal/version"
)

const authRealm = `Basic realm="kbdlight"`

// KeyboardService is the part of keyboard.Service the API drives.
type KeyboardService interface {
	State() (keyboard.State, error)
	Apply(state keyboard.State) (keyboard.State, error)
	Restore() (keyboard.State, error)
	Save() (keyboard.State, error)
	Controller() *keyboard.Controller
}

// SettingsStore is the part of settings.Store the API drives.
type SettingsStore interface {
	Get() settings.Settings
	Update(fn func(*settings.Settings)) (settings.Settings, error)
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Keyboard          KeyboardService
	Settings          SettingsStore
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// Server is the Huma API server.
type Server struct {
	api      huma.API
	mux      *http.ServeMux
	options  *Options
	eventBus *events.Bus
	logger   *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// NewServer creates the API and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("kbdlight API", version.Version)
	config.Info.Description = "Keyboard backlight control for Clevo/Tuxedo laptops"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		options:  opts,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus scrapes without credentials.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves on addr until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting kbdlight API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	s.httpServer = srv
	s.mu.Unlock()

	return srv.ListenAndServe()
}

// Stop closes the listener and every open connection. SSE streams never
// finish on their own, so there is no graceful drain.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		return srv.Close()
	}
	return nil
}

// basicAuthMiddleware checks HTTP basic credentials on operations that
// declare security. EventSource clients cannot set headers, so the
// credentials may also come base64 encoded in the auth query parameter.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded := ""
		if header := ctx.Header("Authorization"); header != "" {
			var ok bool
			encoded, ok = strings.CutPrefix(header, "Basic ")
			if !ok {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
		} else {
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			s.unauthorized(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userOK || !passOK {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
				Driver:  s.options.Keyboard.Controller().Driver().Root(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	s.registerKeyboardRoutes()
	s.registerSettingsRoutes()
	s.registerSSERoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}

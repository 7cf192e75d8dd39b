package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/streamctl/internal/api/models"
	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/streams"
	"github.com/smazurov/streamctl/internal/version"
)

const authRealm = `Basic realm="streamctl"`

// Server is the HTTP API of the stream registry.
type Server struct {
	api           huma.API
	mux           *http.ServeMux
	httpServer    *http.Server
	streamService streams.StreamService
	options       *Options
	logger        *slog.Logger
}

// Options configures a Server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	StreamService     streams.StreamService
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
	// MaxUploadBytes bounds CSV uploads. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// DefaultMaxUploadBytes bounds an import upload.
const DefaultMaxUploadBytes = 8 << 20

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, problem := parseBasicAuth(ctx.Header("Authorization"))
		if problem != "" {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, problem)
			return
		}
		if user != username || pass != password {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// parseBasicAuth splits a Basic Authorization header. A non-empty problem
// describes why the header was rejected.
func parseBasicAuth(header string) (user, pass, problem string) {
	if header == "" {
		return "", "", "Authentication required"
	}
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", "Invalid authentication type"
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", "Invalid credentials format"
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", "Invalid credentials format"
	}
	return user, pass, ""
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("streamctl API", version.String())
	config.Info.Description = "Stream registry, connection string codec and bulk import for go2rtc"
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
		api:           api,
		mux:           mux,
		streamService: opts.StreamService,
		options:       opts,
		logger:        logging.GetLogger("api"),
	}

	// CORS first, then logging, then auth
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

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

// Start serves the API on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting streamctl API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
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
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerStreamRoutes()
	s.registerImportRoutes()
	s.registerCodecRoutes()
	s.registerSourceRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}

// mapStreamError maps domain errors to HTTP errors
func (s *Server) mapStreamError(err error) error {
	var streamErr *streams.StreamError
	if !errors.As(err, &streamErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return huma.Error503ServiceUnavailable("request cancelled", err)
		}
		s.logger.Error("Unhandled error", "error", err)
		return huma.Error500InternalServerError("internal server error")
	}

	msg := streamErr.Message
	if streamErr.Cause != nil {
		msg += ": " + streamErr.Cause.Error()
	}
	switch streamErr.Code {
	case streams.ErrCodeInvalidParams, streams.ErrCodeInvalidConfig:
		return huma.Error400BadRequest(msg)
	case streams.ErrCodeStreamNotFound:
		return huma.Error404NotFound(msg)
	case streams.ErrCodeDuplicateName:
		return huma.Error409Conflict(msg)
	case streams.ErrCodeProbeFailed:
		return huma.Error502BadGateway(msg)
	default:
		s.logger.Error("Registry error", "error", err)
		return huma.Error500InternalServerError(streamErr.Message)
	}
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/gitbridge/pkg/domain/interfaces"
	"github.com/m-mizutani/gitbridge/pkg/domain/model"
)

// config holds internal HTTP server configuration
type config struct {
	addr              string
	eventContext      model.EventContext
	trustProxyHeaders bool
	asyncCompletion   bool
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithEventContext sets the side context attached to every inbound webhook
func WithEventContext(evCtx model.EventContext) Option {
	return func(c *config) {
		c.eventContext = evCtx
	}
}

// WithTrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP
func WithTrustProxyHeaders(trust bool) Option {
	return func(c *config) {
		c.trustProxyHeaders = trust
	}
}

// WithAsyncCompletion replies 202 right after dispatch and waits for the build in background
func WithAsyncCompletion(enabled bool) Option {
	return func(c *config) {
		c.asyncCompletion = enabled
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server. A nil use case disables its endpoint.
func NewServer(
	ctx context.Context,
	gitPullUC interfaces.GitPullUseCase,
	archiveUC interfaces.ArchiveUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr: "localhost:8080",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	if cfg.trustProxyHeaders {
		router.Use(middleware.RealIP)
	}
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	webhookHandler := NewWebhookHandler(cfg.eventContext, gitPullUC, archiveUC, cfg.asyncCompletion)
	if gitPullUC != nil {
		router.Post("/hooks/gitpull", webhookHandler.HandleGitPull)
	}
	if archiveUC != nil {
		router.Post("/hooks/archive", webhookHandler.HandleArchive)
	}

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}

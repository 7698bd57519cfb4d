// Package api provides the HTTP surface of orderbot: the WhatsApp webhook
// (Meta-style verification plus inbound message delivery), order lookup for
// the confirmation page, and the token-gated admin order endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatea-chevere/orderbot/internal/messaging"
	"github.com/chatea-chevere/orderbot/internal/orders"
	"github.com/chatea-chevere/orderbot/internal/router"
	"github.com/chatea-chevere/orderbot/internal/tenant"
)

// Server timeouts.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Server wires the conversation engine to HTTP.
type Server struct {
	addr        string
	verifyToken string
	resolver    *tenant.Resolver
	rt          *router.Router
	sender      messaging.Sender
	repo        orders.Repository
	admin       *router.AdminManager
	// devMode returns the generated reply in the webhook response instead
	// of delivering it through the sender.
	devMode bool

	httpServer *http.Server
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string
	VerifyToken string
	DevMode     bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification shared secret.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithDevMode makes the webhook echo replies in the HTTP response instead of
// sending them.
func WithDevMode(dev bool) Option {
	return func(o *Opts) { o.DevMode = dev }
}

// NewServer creates the API server. admin may be nil, which disables the
// admin endpoints.
func NewServer(resolver *tenant.Resolver, rt *router.Router, sender messaging.Sender, repo orders.Repository, admin *router.AdminManager, opts ...Option) *Server {
	cfg := Opts{Addr: ":8080"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		addr:        cfg.Addr,
		verifyToken: cfg.VerifyToken,
		resolver:    resolver,
		rt:          rt,
		sender:      sender,
		repo:        repo,
		admin:       admin,
		devMode:     cfg.DevMode,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webhook", s.verifyWebhookHandler)
	mux.HandleFunc("POST /webhook", s.webhookHandler)
	mux.HandleFunc("GET /orders/{id}", s.getOrderHandler)
	mux.HandleFunc("GET /admin/{tenantID}/orders", s.adminListOrdersHandler)
	mux.HandleFunc("PATCH /admin/{tenantID}/orders/{id}", s.adminUpdateOrderHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

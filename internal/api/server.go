// Package api serves family trees over HTTP.
//
// The server is a chi router over a [pipeline.Runner]. Tree routes are
// authenticated with bearer tokens issued by the login route, unless auth
// is disabled in the config, in which case every request runs as
// [auth.LocalUser].
package api

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/legacylink/legacylink/pkg/auth"
	"github.com/legacylink/legacylink/pkg/biography"
	"github.com/legacylink/legacylink/pkg/buildinfo"
	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/pipeline"
	"github.com/legacylink/legacylink/pkg/session"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = 10 * time.Minute
)

// Options configures a Server. Only Runner is required.
type Options struct {
	Runner    *pipeline.Runner
	Config    config.Config
	Logger    *log.Logger
	Sessions  session.Store
	Biography biography.Generator
	Metrics   *Metrics
}

// Server is the HTTP API.
type Server struct {
	runner       *pipeline.Runner
	cfg          config.Config
	logger       *log.Logger
	sessions     session.Store
	tokens       *auth.Tokens
	providers    map[string]auth.Provider
	bio          biography.Generator
	metrics      *Metrics
	authDisabled bool
	handler      http.Handler
}

// New builds a server. Unless auth is disabled the config must carry a
// token secret.
func New(opts Options) (*Server, error) {
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, nil, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.Biography == nil {
		opts.Biography = biography.TemplateGenerator{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	s := &Server{
		runner:       opts.Runner,
		cfg:          opts.Config,
		logger:       opts.Logger,
		sessions:     opts.Sessions,
		bio:          opts.Biography,
		metrics:      opts.Metrics,
		authDisabled: opts.Config.Auth.Disabled,
		providers:    make(map[string]auth.Provider, len(auth.Providers)),
	}
	if !s.authDisabled {
		tokens, err := auth.NewTokens(opts.Config.Auth.Secret, opts.Config.Auth.TTL.Duration)
		if err != nil {
			return nil, err
		}
		s.tokens = tokens
		for _, name := range auth.Providers {
			p, err := auth.NewMockProvider(name)
			if err != nil {
				return nil, err
			}
			s.providers[name] = p
		}
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Metrics returns the server's metrics collector.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Cache"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)

			r.Get("/trees", s.handleListTrees)
			r.Route("/trees/{treeID}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteTree)
				r.Post("/import", s.handleImport)

				r.Get("/members", s.handleListMembers)
				r.Post("/members", s.handleCreateMember)
				r.Get("/members/{memberID}", s.handleGetMember)
				r.Put("/members/{memberID}", s.handleUpdateMember)
				r.Delete("/members/{memberID}", s.handleDeleteMember)
				r.Get("/members/{memberID}/relationships", s.handleMemberRelationships)
				r.Post("/members/{memberID}/biography", s.handleBiography)

				r.Post("/links", s.handleLink)
				r.Delete("/links", s.handleUnlink)

				r.Get("/layout", s.handleLayout)
				r.Get("/relationship", s.handleRelationship)
				r.Get("/search", s.handleSearch)
				r.Get("/export/{format}", s.handleExport)
				r.Get("/validate", s.handleValidate)
				r.Post("/validate/fix", s.handleFix)
				r.Get("/stats", s.handleStats)
			})
		})
	})
	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.cfg.Server.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.Server.CORSOrigins
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully. Expired sessions are swept in the background meanwhile.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: s.cfg.Server.WriteTimeout.Duration,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	defer close(done)
	go s.sweepSessions(done)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()
	s.logger.Info("listening", "addr", l.Addr().String(), "auth", !s.authDisabled)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

func (s *Server) sweepSessions(done <-chan struct{}) {
	t := time.NewTicker(cleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := s.sessions.Cleanup(context.Background()); err != nil {
				s.logger.Warn("session cleanup", "err", err)
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, buildinfo.Get())
}

// Package server is a reference implementation of the phonebook REST API,
// used for local development and tests.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Makepad-fr/phonebook/internal/model"
)

// Store is the persistence the handlers need.
type Store interface {
	CreateUser(ctx context.Context, key string) error
	UserExists(ctx context.Context, key string) (bool, error)
	ListEntries(ctx context.Context, key string) ([]model.Entry, error)
	GetEntry(ctx context.Context, key string, id int64) (model.Entry, error)
	CreateEntry(ctx context.Context, key string, f model.Fields) (int64, error)
	UpdateEntry(ctx context.Context, key string, id int64, f model.Fields) error
	DeleteEntry(ctx context.Context, key string, id int64) error
}

// Options tune the server.
type Options struct {
	// Addr is the listen address used by Start.
	Addr string
	// DelayMin and DelayMax bound a random pause applied to every
	// authorized request. Zero disables it.
	DelayMin time.Duration
	DelayMax time.Duration
	Logger   *slog.Logger
}

// Server serves the phonebook API.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      Store
	validate   *validator.Validate
	log        *slog.Logger
	opts       Options
	newKey     func() (string, error)
}

// New builds a server over store.
func New(store Store, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}

	s := &Server{
		router:   chi.NewRouter(),
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		opts:     opts,
		newKey:   generateKey,
	}

	s.router.Use(recovery(log))
	s.router.Use(requestLogger(log))
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/user", s.handleCreateUser)

		r.Route("/phonebook", func(r chi.Router) {
			r.Use(s.authorize)
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{id}", s.handleGet)
			r.Put("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.log.Info("[API] starting server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("[API] shutting down server")
	return s.httpServer.Shutdown(ctx)
}

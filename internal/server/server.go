package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mgpai22/cuesync/internal/logging"
	"github.com/mgpai22/cuesync/internal/metrics"
	"github.com/mgpai22/cuesync/internal/session"
)

const defaultKeepalive = 15 * time.Second

type Options struct {
	Addr      string
	Session   *session.Session
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	Keepalive time.Duration // SSE comment interval
}

// Server exposes a session to overlay renderers and remote controls.
type Server struct {
	http    *http.Server
	log     *logging.Logger
	session *session.Session
	metrics *metrics.Metrics

	keepalive time.Duration
	base      context.Context
	cancel    context.CancelFunc
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	keepalive := opts.Keepalive
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}

	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		log:       log,
		session:   opts.Session,
		metrics:   opts.Metrics,
		keepalive: keepalive,
		base:      base,
		cancel:    cancel,
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when base is cancelled on shutdown.
		BaseContext: func(net.Listener) context.Context { return base },
	}
	return s
}

// Routes builds the router. It is exported for tests and embedding.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(Recoverer(s.log))
	r.Use(Logger(s.log))
	r.Use(s.metrics.InstrumentHandler)
	r.Use(CORS)

	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.getSession)
		r.Get("/state", s.getState)
		r.Get("/events", s.streamEvents)

		r.Get("/captions", s.listCaptions)
		r.Post("/captions", s.addCaption)
		r.Patch("/captions/{id}", s.updateCaption)
		r.Delete("/captions/{id}", s.removeCaption)

		r.Post("/seek", s.seek)
		r.Post("/play", s.play)
		r.Post("/pause", s.pause)
		r.Post("/toggle", s.toggle)
		r.Post("/jump/{id}", s.jump)
		r.Get("/mark", s.mark)

		r.Get("/export", s.export)
	})
	return r
}

func (s *Server) Start() error {
	s.log.Infow("http server starting", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	s.cancel()
	return s.http.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

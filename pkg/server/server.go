package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/optilist/internal/store"
)

// Server accepts client connections and acknowledges their pushes.
type Server struct {
	config   *Config
	items    store.ItemStore
	handlers handlers
	upgrader websocket.Upgrader
	router   chi.Router
	gatherer prometheus.Gatherer
	observer SessionObserver
	logger   *slog.Logger

	configErr error

	mu       sync.Mutex
	sessions map[string]*Session
	reserved int
	wg       sync.WaitGroup

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration. Unset fields take defaults.
func WithConfig(c *Config) Option {
	return func(s *Server) { s.config = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMiddleware appends push middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Server) { s.handlers.use(mw...) }
}

// WithMetrics serves g on Config.MetricsPath.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// SessionObserver is told when sessions open and close.
type SessionObserver interface {
	SessionOpened(s *Session)
	SessionClosed(s *Session)
}

// WithSessionObserver sets the session observer.
func WithSessionObserver(o SessionObserver) Option {
	return func(s *Server) { s.observer = o }
}

// WithContainerID sets how the create handler names the container of a
// list. Default: the list name itself.
func WithContainerID(fn func(list string) string) Option {
	return func(s *Server) {
		s.handlers.set(EventCreate, CreateHandler(s.items, fn))
	}
}

// New creates a server over items with the create handler registered.
func New(items store.ItemStore, opts ...Option) *Server {
	s := &Server{
		items:    items,
		sessions: make(map[string]*Session),
		logger:   slog.Default(),
	}
	s.handlers.set(EventCreate, CreateHandler(items, nil))
	for _, opt := range opts {
		opt(s)
	}
	s.config = s.config.withDefaults()
	s.logger = s.logger.With("component", "server")
	if err := s.config.Validate(); err != nil {
		s.configErr = fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		s.logger.Error("config validation failed", "error", err)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  s.config.ReadBufferSize,
		WriteBufferSize: s.config.WriteBufferSize,
		CheckOrigin:     s.config.CheckOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/live", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/lists/{list}/items", s.handleListItems)
	if s.gatherer != nil {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handle registers fn for pushes with event. A nil fn removes the handler.
func (s *Server) Handle(event string, fn HandlerFunc) {
	s.handlers.set(event, fn)
}

// Events returns the registered event names, sorted.
func (s *Server) Events() []string { return s.handlers.events() }

// Use appends push middleware. Middleware added first runs outermost.
func (s *Server) Use(mw ...Middleware) {
	s.handlers.use(mw...)
}

// Dispatch runs the handler for ctx through the middleware chain.
func (s *Server) Dispatch(ctx *Ctx) error {
	return s.handlers.dispatch(ctx)
}

// ServeHTTP implements http.Handler.
// A server built with an invalid config answers every request with 500.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.configErr != nil {
		http.Error(w, s.configErr.Error(), http.StatusInternalServerError)
		return
	}
	s.router.ServeHTTP(w, r)
}

// HandleWebSocket upgrades r and runs a session until it closes.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.reserve() {
		s.logger.Warn("rejecting connection", "error", ErrMaxSessionsReached, "remote", r.RemoteAddr)
		http.Error(w, ErrMaxSessionsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.mu.Lock()
		s.reserved--
		s.mu.Unlock()
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	sess := newSession(conn, r.RemoteAddr, s.Dispatch, s.config, s.logger)
	s.mu.Lock()
	s.reserved--
	s.sessions[sess.ID] = sess
	s.wg.Add(1)
	s.mu.Unlock()
	s.logger.Info("session started", "session_id", sess.ID, "remote", r.RemoteAddr)
	if s.observer != nil {
		s.observer.SessionOpened(sess)
	}

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		if s.observer != nil {
			s.observer.SessionClosed(sess)
		}
		s.wg.Done()
	}()
	sess.Start()
}

// reserve claims a session slot. It reports false when MaxSessions slots
// are open or being opened.
func (s *Server) reserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.MaxSessions > 0 && len(s.sessions)+s.reserved >= s.config.MaxSessions {
		return false
	}
	s.reserved++
	return true
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sessions returns stats for the open sessions, ordered by start time.
func (s *Server) Sessions() []SessionStats {
	s.mu.Lock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

	out := make([]SessionStats, len(list))
	for i, sess := range list {
		out[i] = sess.Stats()
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.SessionCount()})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	list := chi.URLParam(r, "list")
	items, err := s.items.List(r.Context(), list)
	if err != nil {
		s.logger.Error("list items", "list", list, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list, "items": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Run serves on Config.Address until ctx is canceled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	if s.configErr != nil {
		return s.configErr
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.configErr != nil {
		ln.Close()
		return s.configErr
	}
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	hs := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- hs.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	hs := s.httpServer
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()

	if hs != nil {
		if err := hs.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Config returns the effective configuration.
func (s *Server) Config() *Config { return s.config }

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/evangambit/Gamgee/internal/config"
	"github.com/evangambit/Gamgee/internal/health"
	"github.com/evangambit/Gamgee/internal/metrics"
	"github.com/evangambit/Gamgee/internal/middleware"
	"github.com/evangambit/Gamgee/internal/reload"
	"github.com/evangambit/Gamgee/internal/static"
	"github.com/evangambit/Gamgee/internal/watcher"
)

// InternalPrefix is where the server's own endpoints live. Files under a
// directory of the same name in the served root are shadowed.
const InternalPrefix = "/__devserver"

// Version is reported by the info endpoint.
var Version = "dev"

// shutdownTimeout bounds the graceful drain. Paused media streams never
// finish on their own, so whatever is still open afterwards is closed.
const shutdownTimeout = 500 * time.Millisecond

type Server struct {
	config        *config.Config
	logger        *slog.Logger
	healthMonitor *health.Monitor
	hub           *reload.Hub
	resolver      *static.Resolver
	router        *mux.Router
	handler       http.Handler
	httpServer    *http.Server
	mu            sync.RWMutex
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:        logger,
		healthMonitor: health.NewMonitor(),
		hub:           reload.NewHub(cfg.Reload.MinInterval, logger),
	}
	if err := s.apply(cfg); err != nil {
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      http.HandlerFunc(s.serveHTTP),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return s, nil
}

// apply builds the router and handler chain for cfg and swaps them in.
func (s *Server) apply(cfg *config.Config) error {
	resolver, err := static.NewResolver(cfg.Static.Root, cfg.Static.Rewrites)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = cfg
	s.resolver = resolver
	s.healthMonitor.RegisterComponent("static", resolver.Root())

	s.router = s.setupRouter()
	s.handler = s.buildHandler(s.router)
	return nil
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	handler.ServeHTTP(w, r)
}

func (s *Server) setupRouter() *mux.Router {
	router := mux.NewRouter()

	if s.config.Metrics.IsEnabled() {
		router.Use(metrics.Middleware)
	}

	s.setupInternalEndpoints(router)

	staticHandler := static.NewHandler(s.resolver, s.logger.With("component", "static"))
	router.PathPrefix("/").
		Handler(staticHandler).
		Methods(http.MethodGet, http.MethodHead).
		Name("static")

	return router
}

func (s *Server) setupInternalEndpoints(router *mux.Router) {
	router.HandleFunc(InternalPrefix+"/health", s.healthMonitor.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc(InternalPrefix+"/live", s.healthMonitor.LivenessHandler).Methods(http.MethodGet)
	router.HandleFunc(InternalPrefix+"/ready", s.healthMonitor.ReadinessHandler).Methods(http.MethodGet)
	router.HandleFunc(InternalPrefix+"/info", s.infoHandler).Methods(http.MethodGet)

	if s.config.Metrics.IsEnabled() {
		router.Handle(s.config.Metrics.Path, metrics.Handler()).Methods(http.MethodGet)
	}

	if s.config.Reload.IsEnabled() {
		path := s.config.Reload.Path
		router.Handle(path, s.hub).Methods(http.MethodGet).Name("reload")
		router.Handle(path+".js", reload.ScriptHandler(path)).Methods(http.MethodGet).Name("reload-script")
	}
}

// buildHandler wraps the router in the middleware that must see every
// response, including the 404 and 405 answers mux produces without running
// router-level middleware.
func (s *Server) buildHandler(router *mux.Router) http.Handler {
	handler := http.Handler(router)

	if c := s.config.Server.CORS; c != nil && c.Enabled {
		handler = cors.New(cors.Options{
			AllowedOrigins: c.AllowedOrigins,
			AllowedMethods: c.AllowedMethods,
			AllowedHeaders: c.AllowedHeaders,
			MaxAge:         c.MaxAge,
		}).Handler(handler)
	}

	handler = middleware.Recovery(s.logger)(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.CrossOriginIsolation(handler)
	// Outside the isolation headers so configured headers cannot drop them.
	handler = middleware.Headers(s.config.Server.Headers)(handler)

	if s.config.Server.HTTP2 {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	return handler
}

func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cfg := s.config
	root := s.resolver.Root()
	s.mu.RUnlock()

	info := map[string]interface{}{
		"name":    "devserver",
		"version": Version,
		"root":    root,
		"watch": map[string]interface{}{
			"enabled":    cfg.Watch.IsEnabled(),
			"mode":       cfg.Watch.Mode,
			"dir":        cfg.Watch.Dir,
			"extensions": cfg.Watch.Extensions,
		},
		"reload": map[string]interface{}{
			"enabled": cfg.Reload.IsEnabled(),
			"path":    cfg.Reload.Path,
			"clients": s.hub.Clients(),
		},
		"features": map[string]bool{
			"metrics":    cfg.Metrics.IsEnabled(),
			"http2":      cfg.Server.HTTP2,
			"cors":       cfg.Server.CORS != nil && cfg.Server.CORS.Enabled,
			"hot_reload": cfg.Server.HotReload,
		},
	}

	jsonData, err := json.Marshal(info)
	if err != nil {
		http.Error(w, `{"error":"failed to marshal info"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonData)
}

// Handler returns the full handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub is the reload hub change callbacks should notify.
func (s *Server) Hub() *reload.Hub {
	return s.hub
}

// Health is the monitor behind the health endpoint.
func (s *Server) Health() *health.Monitor {
	return s.healthMonitor
}

// NewWatcher builds the configured watch backend. Every change it detects is
// pushed to connected browsers; its scan outcomes feed the
// "watcher" health component.
func (s *Server) NewWatcher() watcher.Watcher {
	s.mu.RLock()
	cfg := s.config.Watch
	s.mu.RUnlock()

	logger := s.logger
	s.healthMonitor.RegisterComponent("watcher", fmt.Sprintf("%s %s", cfg.Mode, cfg.Dir))

	opts := watcher.Options{
		Root:       cfg.Dir,
		Extensions: cfg.Extensions,
		Interval:   cfg.Interval,
		Backoff:    cfg.Backoff,
		Logger:     logger,
		OnStatus: func(err error) {
			s.healthMonitor.SetStatus("watcher", err)
		},
	}
	onChange := func(change watcher.Change) {
		logger.Debug("notifying reload clients", "path", change.Path, "clients", s.hub.Clients())
		s.hub.Notify()
	}

	if cfg.Mode == config.ModeNotify {
		return watcher.NewNotifier(opts, onChange)
	}
	return watcher.NewPoller(opts, onChange)
}

// Start binds the listen address and serves until ctx is cancelled. A bind
// failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains for
// shutdownTimeout and closes anything left. Cancellation returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("devserver listening", "addr", ln.Addr().String())
		s.logRoutes()
		errChan <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errChan:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		// Hijacked websocket connections are not tracked by Shutdown.
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Info("closing connections still open after drain", "timeout", shutdownTimeout)
			if err := s.httpServer.Close(); err != nil {
				s.logger.Warn("close server", "err", err)
			}
			return nil
		}
		return err
	}
}

func (s *Server) logRoutes() {
	s.mu.RLock()
	router := s.router
	s.mu.RUnlock()

	var routes []string
	router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		routes = append(routes, strings.Join(methods, ",")+" "+path)
		return nil
	})
	s.logger.Debug("routes registered", "routes", routes)
}

// Reload swaps in a new config without dropping the listener. Listener
// settings, the watcher and the hub's throttle keep their startup values.
func (s *Server) Reload(newConfig *config.Config) error {
	s.logger.Info("reloading configuration")
	if err := s.apply(newConfig); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	s.logger.Info("configuration reloaded", "root", newConfig.Static.Root)
	return nil
}

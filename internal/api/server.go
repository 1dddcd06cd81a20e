// Package api serves a store and its searchers over HTTP, with change
// events relayed on a WebSocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memvfs/internal/logging"
	"memvfs/internal/metrics"
	"memvfs/internal/search"
	"memvfs/internal/store"
)

var (
	apiLogger = logging.GetLogger().WithPrefix("api")
)

// Limits are applied to searches whose request leaves them at zero.
type Limits struct {
	MaxResults          int
	MaxFileSize         int64
	PreviewCharsPerLine int
}

// Option configures optional server behaviour.
type Option func(*serverOptions)

type serverOptions struct {
	corsOrigins []string
}

// WithCORS allows cross-origin requests from origins. "*" allows any origin.
func WithCORS(origins []string) Option {
	return func(o *serverOptions) {
		o.corsOrigins = origins
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}

// Server wraps the HTTP router and its dependencies.
type Server struct {
	router  *gin.Engine
	store   *store.Store
	files   *search.FileSearcher
	text    *search.TextSearcher
	metrics *metrics.Metrics
	limits  Limits

	mu      sync.Mutex
	clients map[string]*eventClient
	httpSrv *http.Server
}

// NewServer wires every route onto a fresh router. m may be nil, in which
// case /metrics is not served.
func NewServer(st *store.Store, files *search.FileSearcher, text *search.TextSearcher, m *metrics.Metrics, limits Limits, opts ...Option) *Server {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if len(o.corsOrigins) > 0 {
		router.Use(corsMiddleware(o.corsOrigins))
	}

	s := &Server{
		router:  router,
		store:   st,
		files:   files,
		text:    text,
		metrics: m,
		limits:  limits,
		clients: make(map[string]*eventClient),
	}

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	api.GET("/stat", s.stat)
	api.GET("/list", s.list)
	api.GET("/file", s.readFile)
	api.PUT("/file", s.writeFile)
	api.DELETE("/file", s.deleteEntry)
	api.POST("/dir", s.createDirectory)
	api.POST("/rename", s.rename)

	api.POST("/search/files", s.searchFiles)
	api.POST("/search/text", s.searchText)

	api.GET("/events", s.events)

	if m != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.mu.Lock()
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpSrv
	s.mu.Unlock()

	apiLogger.Info("Serving HTTP API on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes event streams and waits for
// in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	clients := make([]*eventClient, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		apiLogger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

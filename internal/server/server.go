package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/markread/internal/infrastructure/config"
	"github.com/GriffinCanCode/markread/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/markread/internal/middleware"
	"github.com/GriffinCanCode/markread/internal/viewer"
	"github.com/GriffinCanCode/markread/internal/webview"
	"github.com/GriffinCanCode/markread/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Window is the viewer window the server drives. app.Manager implements it.
type Window interface {
	OpenFile(ctx context.Context, path string) error
	OpenURL(ctx context.Context, rawURL string) error
	Drop(ctx context.Context, filename, source string) error
	List(ctx context.Context, dir string) ([]string, error)
	Reload(ctx context.Context) error
	State() viewer.State
	Title() string
	Console() []webview.LogEntry
	Subscribe(fn func(viewer.State)) func()
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	window  Window
	hub     *ws.Handler
	metrics *monitoring.Metrics
	logger  *zap.Logger
	config  *config.Config
	unsub   func()
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, window Window, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	var limiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		limiter = middleware.RateLimit(rl)
	}
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{limiter, h}
	}

	hub := ws.NewHandler(window, metrics, logger)
	handlers := NewHandlers(window, hub, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/document", handlers.Document)
	router.GET("/health", handlers.Health)
	router.GET("/console", handlers.Console)
	router.GET("/files", handlers.Files)
	router.POST("/open", limited(handlers.Open)...)
	router.POST("/drop", limited(handlers.Drop)...)
	router.POST("/reload", handlers.Reload)
	router.GET("/ws", hub.HandleConnection)
	router.GET("/metrics", metrics.GinHandler())
	router.GET("/metrics/json", metrics.StatusHandler())

	s := &Server{
		router:  router,
		window:  window,
		hub:     hub,
		metrics: metrics,
		logger:  logger.Named("server"),
		config:  cfg,
		unsub:   window.Subscribe(func(viewer.State) { metrics.IncDocuments() }),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full HTTP handler, gzip included.
func (s *Server) Handler() http.Handler {
	return middleware.Gzip(s.router)
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects live clients and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.unsub()
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

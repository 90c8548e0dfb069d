// Package server exposes the download service over HTTP and a websocket
// session channel.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/ytget/yt-downloader-web/internal/config"
	"github.com/ytget/yt-downloader-web/internal/download"
	"github.com/ytget/yt-downloader-web/internal/platform"
)

const readHeaderTimeout = 10 * time.Second

// Server is the HTTP front end of the service
type Server struct {
	cfg         config.ServerSettings
	downloadDir string
	version     string
	downloader  download.Downloader
	hub         *Hub
	logger      hclog.Logger

	router   *gin.Engine
	upgrader websocket.Upgrader

	pickFolder func(ctx context.Context, start string) (string, error)
	openFolder func(ctx context.Context, path string) error
}

// New creates a server. Events produced by downloader must be emitted through hub.
func New(cfg config.ServerSettings, downloadDir, version string, downloader download.Downloader, hub *Hub, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:         cfg,
		downloadDir: downloadDir,
		version:     version,
		downloader:  downloader,
		hub:         hub,
		logger:      logger,
		pickFolder:  platform.OpenFolderDialog,
		openFolder:  platform.OpenFolder,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger.Named("http")))
	r.Use(cors.New(s.corsConfig()))

	r.GET("/healthz", s.handleHealth)
	r.GET("/ws", s.handleWS)
	r.POST("/select-folder", s.handleSelectFolder)

	api := r.Group("/api")
	{
		api.GET("/default-path", s.handleDefaultPath)
		api.POST("/open-folder", s.handleOpenFolder)
		api.GET("/tasks", s.handleTasks)
		api.GET("/tasks/:id", s.handleTask)
	}
	return r
}

func (s *Server) allowAllOrigins() bool {
	return len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*")
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if s.allowAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAllOrigins() {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by http.Server
	s.hub.CloseAll()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs every request through hclog
func requestLogger(logger hclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			logger.Warn("request failed", append(args, "error", c.Errors.String())...)
			return
		}
		logger.Debug("request", args...)
	}
}

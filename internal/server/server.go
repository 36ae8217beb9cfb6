package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"flagbot/internal/handler"
	"flagbot/internal/middleware"
	"flagbot/internal/models"
	"flagbot/internal/repository"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP API is built from.
type Deps struct {
	Scorer      handler.Scorer
	ChannelRepo repository.ChannelRepository
	FlagRepo    repository.FlagRepository
	JWTSecret   string
}

type Server struct {
	router *gin.Engine
	deps   Deps
	logger *zap.Logger
}

func NewServer(deps Deps, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		deps:   deps,
		logger: logger,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	scanHandler := handler.NewScanHandler(s.deps.Scorer, s.deps.FlagRepo, s.logger)
	channelHandler := handler.NewChannelHandler(s.deps.ChannelRepo, s.logger)
	flagHandler := handler.NewFlagHandler(s.deps.FlagRepo, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	scanChain := []gin.HandlerFunc{scanHandler.Scan}
	if s.deps.JWTSecret != "" {
		api.Use(middleware.AuthMiddleware([]byte(s.deps.JWTSecret), s.logger))
		scanChain = append([]gin.HandlerFunc{middleware.RequireRole(models.RoleModerator, models.RoleAdmin)}, scanChain...)
	} else {
		s.logger.Warn("api.jwt_secret is empty, /api/v1 is not authenticated")
	}
	{
		api.POST("/scan", scanChain...)
		api.GET("/channels", channelHandler.GetChannels)
		api.GET("/flags", flagHandler.GetRecentFlags)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              ":" + addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", srv.Addr))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server stopped.")
	return nil
}

// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"authflow_backend/internal/auth"
	"authflow_backend/internal/config"
	"authflow_backend/internal/jobs"
	"authflow_backend/internal/middleware"
	"authflow_backend/internal/shared"
	"authflow_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Handlers
	authHandler *auth.Handler

	// Jobs
	flowSweeperJob *jobs.FlowSweeperJob

	// Middleware instances
	authMW gin.HandlerFunc
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	authHandler *auth.Handler,
	flowSweeperJob *jobs.FlowSweeperJob,
	db *gorm.DB,
	tokenService shared.TokenService,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	if err := db.AutoMigrate(&user.User{}); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// CORS Middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader, auth.FlowIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader, auth.FlowIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(tokenService, logger.Named("AuthMiddleware"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Auth Flow API is healthy!"})
	})

	v1 := router.Group("/api/v1")
	authHandler.RegisterRoutes(v1, authMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:     httpServer,
		router:         router,
		cfg:            cfg,
		logger:         logger,
		authHandler:    authHandler,
		flowSweeperJob: flowSweeperJob,
		authMW:         authMW,
	}, nil
}

func (s *Server) Start() error {
	if s.flowSweeperJob != nil {
		err := s.flowSweeperJob.SetupAndStart()
		if err != nil {
			s.logger.Error("Failed to setup and start flow sweeper job", zap.Error(err))
		}
	} else {
		s.logger.Info("Flow sweeper job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.flowSweeperJob != nil {
		s.flowSweeperJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

package server

import (
	"net/http"
	"time"

	"nogoon-backend/internal/config"
	"nogoon-backend/internal/handler"
	"nogoon-backend/internal/middleware"
	"nogoon-backend/internal/privy"
	"nogoon-backend/internal/repository"
	"nogoon-backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const version = "1.0.0"

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	logger *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger) *Server {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		logger: logger,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID())

	if len(s.cfg.CORS.AllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CORS.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	// Initialize auth components
	keyResolver := privy.NewJWKSResolver(
		s.cfg.Privy.Host,
		s.cfg.Privy.AppID,
		time.Duration(s.cfg.Privy.KeyTTLMinutes)*time.Minute,
		s.logger,
	)
	verifier := privy.NewVerifier(keyResolver, s.cfg.Privy.AppID, s.logger)
	userRepo := repository.NewUserRepository(s.db, s.logger)
	usageRepo := repository.NewUsageRepository(s.db, s.logger)
	authService := service.NewAuthService(verifier, userRepo, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	usageHandler := handler.NewUsageHandler(usageRepo, s.logger)

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "NoGoon Backend API",
			"version": version,
		})
	})

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/v1/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/verify", authHandler.Login)

	// Authenticated routes
	authRequired := s.router.Group("/api/v1/users")
	authRequired.Use(middleware.AuthMiddleware(authService, s.logger))
	{
		authRequired.GET("/stats", usageHandler.GetStats)
		authRequired.POST("/block-events", usageHandler.SyncBlockEvents)
	}
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}

package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/poolworks/poolcare-api/config"
	"github.com/poolworks/poolcare-api/controllers"
	"github.com/poolworks/poolcare-api/logger"
	"github.com/poolworks/poolcare-api/middleware"
	"github.com/poolworks/poolcare-api/models"
	"github.com/poolworks/poolcare-api/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)
	slog.Info("starting Pool Care API server")

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.ServiceReport{}); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.Info("database migration completed")

	// Seed the initial administrator account
	if err := seedAdminUser(cfg); err != nil {
		slog.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}

	// Photo storage: offload to S3 when a bucket is configured, otherwise
	// payloads stay embedded on the report
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service()
		if err != nil {
			slog.Error("failed to initialize S3 service", "error", err)
			os.Exit(1)
		}
		services.InitPhotoService(s3Service)
		slog.Info("photo storage backed by S3", "bucket", cfg.AWSS3Bucket)
	} else {
		services.InitPhotoService(nil)
		slog.Info("photo storage inline (no S3 bucket configured)")
	}

	router := setupRouter(cfg)

	addr := ":" + cfg.Port
	slog.Info("server is running", "addr", addr)
	if err := router.Run(addr); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

// setupRouter wires middleware and routes onto a Gin engine
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Authentication
		v1.POST("/auth/login", controllers.Login)
		v1.GET("/auth/me", middleware.RequireAuth(cfg), controllers.Me)

		// Authenticated routes
		authed := v1.Group("", middleware.RequireAuth(cfg))
		{
			authed.GET("/clients", controllers.ListClients)
			authed.POST("/reports", controllers.CreateReport)
			authed.GET("/reports", controllers.ListReports)
			authed.PUT("/reports/:id", controllers.UpdateReport)
		}

		// Administrator-only routes
		admin := v1.Group("", middleware.RequireAuth(cfg), middleware.RequireAdministrator())
		{
			admin.POST("/users", controllers.CreateUser)
			admin.GET("/users", controllers.ListUsers)
			admin.DELETE("/users/:id", controllers.DeleteUser)
			admin.POST("/clients", controllers.CreateClient)
			admin.DELETE("/clients/:id", controllers.DeleteClient)
			admin.POST("/clients/import-excel", controllers.ImportClientsExcel)
		}
	}

	return router
}

// seedAdminUser creates the initial administrator account if no user with
// username "admin" exists yet
func seedAdminUser(cfg *config.Config) error {
	db := config.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	passwordHash, err := services.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:     "admin",
		PasswordHash: passwordHash,
		Role:         models.RoleAdministrator,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	slog.Info("admin user created")
	return nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Pool Care API is running",
	})
}

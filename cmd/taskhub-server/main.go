package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/mleone/taskhub/pkg/taskhub/admin"
	"github.com/mleone/taskhub/pkg/taskhub/auth"
	"github.com/mleone/taskhub/pkg/taskhub/config"
	"github.com/mleone/taskhub/pkg/taskhub/database"
	"github.com/mleone/taskhub/pkg/taskhub/models"
	"github.com/mleone/taskhub/pkg/taskhub/tags"
	"github.com/mleone/taskhub/pkg/taskhub/tasks"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mleone/taskhub/api/swagger"
)

// @title TaskHub API
// @version 1.0
// @description A task manager with a shared, case-insensitive tag vocabulary.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := database.Connect(cfg.Database.DSN); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create default admin user if no admin exists
	if err := ensureAdminExists(cfg); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "taskhub",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(database.GetDB())
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Task routes (protected)
		tasksHandler := tasks.NewHandler(database.GetDB())
		tasksHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Tag routes (protected)
		tagsHandler := tags.NewHandler(database.GetDB())
		tagsHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Admin routes (JWT only, admin role required)
		adminHandler := admin.NewHandler(database.GetDB())
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	log.Printf("Starting TaskHub server on %s", cfg.Server.Addr())
	if err := r.Run(cfg.Server.Addr()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default admin user if no admin exists in the
// database.
func ensureAdminExists(cfg *config.Config) error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := auth.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		return err
	}

	adminUser := models.User{
		Username:     cfg.Auth.AdminUsername,
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: %s", adminUser.Username)
	return nil
}

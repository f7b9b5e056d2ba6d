package main

import (
	"fmt"
	"net/http"
	"os"

	"dealflow/internal/config"
	"dealflow/internal/database"
	"dealflow/internal/handlers"
	"dealflow/internal/logger"
	"dealflow/internal/middleware"
	"dealflow/internal/services"
	"dealflow/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "dealflow/internal/docs" // Import swagger docs
)

// @title           Dealflow API
// @version         1.0
// @description     Dealflow is a multi-tenant CRM backend for managing sales pipelines, deals, leads, and revenue forecasts.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager and run migrations
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	stageService := services.NewStageService(db)
	userService := services.NewUserService(db, stageService)
	dealService := services.NewDealService(db, stageService)
	analyticsService := services.NewAnalyticsService(db, stageService)
	leadService := services.NewLeadService(db, dealService)
	contactService := services.NewContactService(db)
	accountService := services.NewAccountService(db)
	activityService := services.NewActivityService(db)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	stageHandler := handlers.NewStageHandler(stageService, auditService)
	dealHandler := handlers.NewDealHandler(dealService, auditService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	leadHandler := handlers.NewLeadHandler(leadService, auditService)
	contactHandler := handlers.NewContactHandler(contactService, auditService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	activityHandler := handlers.NewActivityHandler(activityService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Pipeline stage catalog routes
	stages := protected.Group("/stages")
	stages.POST("", stageHandler.CreateStage)
	stages.GET("", stageHandler.GetCompanyStages)
	stages.PUT("/reorder", stageHandler.ReorderStages)
	stages.PUT("/:id", stageHandler.UpdateStage)
	stages.DELETE("/:id", stageHandler.DeleteStage)

	// Deal routes
	deals := protected.Group("/deals")
	deals.POST("", dealHandler.CreateDeal)
	deals.GET("", dealHandler.GetCompanyDeals)
	deals.GET("/:id", dealHandler.GetDealByID)
	deals.PUT("/:id", dealHandler.UpdateDeal)
	deals.DELETE("/:id", dealHandler.DeleteDeal)
	deals.PUT("/:id/stage", dealHandler.ChangeStage)
	deals.PUT("/:id/status", dealHandler.ChangeStatus)
	deals.PUT("/:id/products", dealHandler.SetProducts)
	deals.POST("/:id/activities", activityHandler.LogActivity)
	deals.GET("/:id/activities", activityHandler.GetDealActivities)

	// Activity routes
	activities := protected.Group("/activities")
	activities.PUT("/:id/complete", activityHandler.CompleteActivity)

	// Analytics routes
	analytics := protected.Group("/analytics")
	analytics.GET("/pipeline", analyticsHandler.GetPipelineSummary)

	// Lead routes
	leads := protected.Group("/leads")
	leads.POST("", leadHandler.CreateLead)
	leads.GET("", leadHandler.GetCompanyLeads)
	leads.GET("/:id", leadHandler.GetLeadByID)
	leads.PUT("/:id/status", leadHandler.UpdateLeadStatus)
	leads.POST("/:id/convert", leadHandler.ConvertLead)
	leads.DELETE("/:id", leadHandler.DeleteLead)

	// Contact routes
	contacts := protected.Group("/contacts")
	contacts.POST("", contactHandler.CreateContact)
	contacts.GET("", contactHandler.GetCompanyContacts)
	contacts.GET("/:id", contactHandler.GetContactByID)
	contacts.PUT("/:id", contactHandler.UpdateContact)
	contacts.DELETE("/:id", contactHandler.DeleteContact)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetCompanyAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)

	log.Infof("Starting Dealflow backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

// Package server assembles the HTTP surface: services, handlers, middleware
// and routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"investtrack/internal/blob"
	"investtrack/internal/config"
	"investtrack/internal/csc"
	"investtrack/internal/handlers"
	"investtrack/internal/mail"
	"investtrack/internal/metrics"
	"investtrack/internal/middleware"
	"investtrack/internal/services"
	"investtrack/internal/tokenstore"
	"investtrack/internal/validator"

	_ "investtrack/internal/docs" // swagger docs
)

// Deps are the long-lived resources the router is built from.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Blobs   blob.Store
	Revoker tokenstore.Revoker
	Mailer  mail.Mailer
	Metrics *metrics.Metrics
	CSC     *csc.Directory
}

// NewRouter wires services and handlers onto a gin engine.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	db := d.DB

	// Services
	files := services.NewAttachments(db, d.Blobs, cfg.UploadMaxBytes)
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db, files, d.Mailer, cfg.BootstrapAdminEmail)
	firmService := services.NewFirmService(db, files)
	memberService := services.NewMemberService(db, files, d.Metrics)
	coverageService := services.NewCoverageService(db, files)
	interactionService := services.NewInteractionService(db)
	eventService := services.NewEventService(db)
	dashboardService := services.NewDashboardService(db)
	integrityService := services.NewIntegrityService(db, d.Metrics)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, d.Revoker)
	userHandler := handlers.NewUserHandler(userService, auditService)
	firmHandler := handlers.NewFirmHandler(firmService, auditService)
	memberHandler := handlers.NewMemberHandler(memberService, auditService)
	coverageHandler := handlers.NewCoverageHandler(coverageService, auditService)
	interactionHandler := handlers.NewInteractionHandler(interactionService, auditService)
	eventHandler := handlers.NewEventHandler(eventService, auditService)
	fileHandler := handlers.NewFileHandler(files)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	cscHandler := handlers.NewCSCHandler(d.CSC)
	adminHandler := handlers.NewAdminHandler(integrityService)

	validator.Register()

	router := gin.New()
	router.MaxMultipartMemory = cfg.UploadMaxBytes
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing(cfg.ServiceName))
	router.Use(middleware.RequestLogging())
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
	}
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

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
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.Version})
	})

	if d.Metrics != nil {
		router.GET("/metrics", middleware.APIKeyAuth(cfg.MetricsAPIKey), d.Metrics.Handler())
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	v1.Use(middleware.LimitUploads(cfg.UploadMaxBytes))

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/verify-otp", authHandler.VerifyOTP)
	auth.POST("/reset-password", authHandler.ResetPassword)

	lookups := v1.Group("/csc")
	lookups.GET("/countries", cscHandler.Countries)
	lookups.GET("/states", cscHandler.States)
	lookups.GET("/cities", cscHandler.Cities)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(d.Revoker))
	admin := middleware.RequireAdmin()

	protected.GET("/auth/logout", authHandler.Logout)
	protected.PUT("/auth/change-password", authHandler.ChangePassword)

	users := protected.Group("/users")
	users.GET("/me", userHandler.Me)
	users.PUT("/me", userHandler.UpdateMe)
	users.PUT("/:id/role", admin, userHandler.UpdateRole)

	firms := protected.Group("/firms")
	firms.POST("", admin, firmHandler.CreateFirm)
	firms.GET("", firmHandler.ListFirms)
	firms.GET("/:id", firmHandler.GetFirm)
	firms.PUT("/:id", admin, firmHandler.UpdateFirm)
	firms.DELETE("/:id", admin, firmHandler.DeactivateFirm)
	firms.POST("/:id/remark", admin, firmHandler.UpdateRemark)
	firms.GET("/:id/sheet", firmHandler.ListFactsheets)
	firms.POST("/:id/sheet", admin, firmHandler.UploadFactsheet)
	firms.DELETE("/:id/sheet/:sheetId", admin, firmHandler.DeleteFactsheet)

	members := protected.Group("/members")
	members.POST("", admin, memberHandler.CreateMember)
	members.GET("", memberHandler.ListMembers)
	members.GET("/:id", memberHandler.GetMember)
	members.PUT("/:id", admin, memberHandler.UpdateMember)
	members.POST("/:id/remark", admin, memberHandler.UpdateComment)
	members.PUT("/:id/move", admin, memberHandler.TransferMember)
	members.DELETE("/:id", admin, memberHandler.DeleteMember)

	coverages := protected.Group("/coverages/:brokerId")
	coverages.POST("", admin, coverageHandler.CreateCoverage)
	coverages.GET("", coverageHandler.ListCoverages)
	coverages.GET("/:id", coverageHandler.GetCoverage)
	coverages.PUT("/:id", admin, coverageHandler.UpdateCoverage)
	coverages.DELETE("/:id", admin, coverageHandler.DeleteCoverage)

	interactions := protected.Group("/interactions")
	interactions.POST("", admin, interactionHandler.CreateInteraction)
	interactions.GET("", interactionHandler.ListInteractions)
	interactions.GET("/:id", interactionHandler.GetInteraction)
	interactions.PUT("/:id", admin, interactionHandler.UpdateInteraction)
	interactions.DELETE("/:id", admin, interactionHandler.DeleteInteraction)

	events := protected.Group("/events")
	events.POST("", admin, eventHandler.CreateEvent)
	events.GET("", eventHandler.ListEvents)
	events.GET("/:id", eventHandler.GetEvent)
	events.PUT("/:id", admin, eventHandler.UpdateEvent)
	events.DELETE("/:id", admin, eventHandler.DeleteEvent)

	protected.GET("/files/:id", fileHandler.GetFile)
	protected.GET("/files/:id/download", fileHandler.Download)

	protected.GET("/dashboard", dashboardHandler.GetDashboard)
	protected.GET("/admin/integrity", admin, adminHandler.Integrity)

	return router
}

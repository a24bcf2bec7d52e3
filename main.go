package main

import (
	"log"
	"net/http"
	"time"

	"meallens-backend/handlers"
	"meallens-backend/middleware"
	"meallens-backend/services"
	"meallens-backend/shared/config"
	"meallens-backend/shared/database"
	"meallens-backend/shared/utils/cache"

	_ "meallens-backend/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Initialize Redis cache (permission checks fall back to the database
	// when Redis is down)
	if err := cache.InitCacheManager(); err != nil {
		log.Printf("⚠️ Redis unavailable, permission caching disabled: %v", err)
	}

	// Start the mail dispatcher worker
	dispatcher := services.GetMailDispatcher()
	defer dispatcher.Shutdown()

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(30 * time.Minute)
	loginConfig := middleware.LoginRateLimitConfig()
	registerConfig := middleware.RegisterRateLimitConfig()

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Auth endpoints
	router.POST("/api/auth/register", rateLimiter.RegistrationRateLimitMiddleware(registerConfig), handlers.Register)
	router.POST("/api/auth/login", rateLimiter.LoginRateLimitMiddleware(loginConfig), handlers.Login)
	router.GET("/api/auth/me", middleware.AuthMiddleware(), handlers.Me)

	// Invitation endpoints reachable without a session
	router.GET("/api/invitations/verify/:token", handlers.VerifyInvitation)
	router.GET("/api/invitations/verify", handlers.VerifyInvitation)
	router.POST("/api/invitations/accept", middleware.OptionalAuthMiddleware(), handlers.AcceptInvitation)
	router.POST("/api/invitations/complete", middleware.AuthMiddleware(), handlers.CompleteInvitation)
	router.POST("/api/invitations/:id/cancel", middleware.AuthMiddleware(), handlers.CancelInvitation)

	// Enterprise management
	enterprise := router.Group("/api/enterprise", middleware.AuthMiddleware())
	{
		enterprise.POST("/register", handlers.RegisterEnterprise)
		enterprise.GET("/can-create", handlers.CanCreateOrganization)
		enterprise.GET("/my", handlers.GetMyEnterprises)
		enterprise.POST("/create-user", handlers.CreateOrganizationUser)
		enterprise.DELETE("/user/:relationId", handlers.PurgeOrganizationUser)

		enterprise.GET("/:id", handlers.GetEnterprise)
		enterprise.PUT("/:id", handlers.UpdateEnterprise)
		enterprise.GET("/:id/statistics", handlers.GetEnterpriseStatistics)
		enterprise.GET("/:id/time-restrictions", handlers.GetTimeRestrictions)
		enterprise.PUT("/:id/time-restrictions", handlers.UpdateTimeRestrictions)

		enterprise.POST("/:id/invite", handlers.InviteUser)
		enterprise.GET("/:id/invitations", handlers.GetInvitations)

		enterprise.GET("/:id/users", handlers.GetEnterpriseUsers)
		enterprise.PUT("/:id/user/:relationId", handlers.UpdateOrganizationUser)
		enterprise.DELETE("/:id/user/:relationId", handlers.RemoveOrganizationUser)

		enterprise.GET("/:id/user/:userId/meal-plans", handlers.GetUserMealPlans)
		enterprise.POST("/:id/user/:userId/meal-plans", handlers.CreateUserMealPlan)
		enterprise.POST("/:id/meal-plan/:planId/approve", handlers.ApproveMealPlan)
		enterprise.POST("/:id/meal-plan/:planId/reject", handlers.RejectMealPlan)
		enterprise.PUT("/:id/meal-plan/:planId", handlers.UpdateUserMealPlan)
		enterprise.DELETE("/:id/meal-plan/:planId", handlers.DeleteUserMealPlan)

		enterprise.GET("/:id/settings-history", handlers.GetEnterpriseSettingsHistory)
		enterprise.GET("/:id/user/:userId/settings", handlers.GetMemberSettings)
		enterprise.PUT("/:id/user/:userId/settings", handlers.UpdateMemberSettings)
		enterprise.DELETE("/:id/user/:userId/settings", handlers.DeleteMemberSettings)
		enterprise.GET("/:id/user/:userId/health-history", handlers.GetMemberHealthHistory)
		enterprise.GET("/:id/user/:userId/detection-history", handlers.GetMemberDetectionHistory)
	}

	// Personal meal plans
	router.GET("/api/meal-plans", middleware.AuthMiddleware(), handlers.GetMyMealPlans)
	router.POST("/api/meal-plans", middleware.AuthMiddleware(), handlers.CreateMyMealPlan)

	// Settings
	settings := router.Group("/api/settings", middleware.AuthMiddleware())
	{
		settings.POST("", handlers.SaveSettings)
		settings.GET("", handlers.GetSettings)
		settings.DELETE("", handlers.DeleteSettings)
		settings.GET("/history", handlers.GetSettingsHistory)
		settings.DELETE("/history/:recordId", handlers.DeleteSettingsHistoryRecord)
	}

	// Detection uploads
	detection := router.Group("/api/detection", middleware.AuthMiddleware())
	{
		detection.POST("/upload", handlers.UploadDetectionImage)
		detection.POST("/history", handlers.SaveDetectionRecord)
		detection.GET("/history", handlers.GetDetectionHistory)
		detection.DELETE("/history/:recordId", handlers.DeleteDetectionRecord)
	}

	// WebSocket notifications
	router.GET("/ws/:user_id", services.GetWebSocketManager().HandleWebSocketConnection)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":                "healthy",
			"service":               "meallens-backend",
			"websocket_connections": services.GetWebSocketManager().GetConnectionCount(),
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	log.Printf("🚀 MealLens backend starting on port %s...", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

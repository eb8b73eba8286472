package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(handlers *Handlers) *gin.Engine {
	router := gin.Default()

	// Add CORS middleware
	router.Use(corsMiddleware())

	// Data endpoints used by the client for state sync
	router.GET("/tasks", handlers.ListTasksHandler)
	router.POST("/save-tasks", handlers.SaveTasksHandler)
	router.GET("/profile", handlers.GetProfileHandler)
	router.POST("/save-profile", handlers.SaveProfileHandler)

	// Stateless processing contract
	router.POST("/process-task", handlers.ProcessTaskHandler)
	router.POST("/submit-quiz", handlers.SubmitQuizHandler)
	router.POST("/verify-networking", handlers.VerifyNetworkingHandler)
	router.POST("/generate-spreadsheet", handlers.GenerateSpreadsheetHandler)

	// Lifecycle API
	api := router.Group("/api")
	{
		tasks := api.Group("/tasks")
		{
			tasks.POST("", handlers.CreateTaskHandler)
			tasks.POST("/:id/start", handlers.StartTaskHandler)
			tasks.POST("/:id/extend", handlers.ExtendDeadlineHandler)
			tasks.POST("/:id/check-in", handlers.BeginCheckInHandler)
			tasks.DELETE("/:id", handlers.DeleteTaskHandler)
		}

		checkIn := api.Group("/check-in")
		{
			checkIn.GET("", handlers.GetCheckInHandler)
			checkIn.POST("/respond", handlers.RespondCheckInHandler)
			checkIn.POST("/context-url", handlers.ProvideContextURLHandler)
			checkIn.POST("/names", handlers.SubmitNamesHandler)
			checkIn.POST("/quiz", handlers.SubmitQuizAnswersHandler)
			checkIn.POST("/try-later", handlers.TryLaterHandler)
			checkIn.POST("/help", handlers.RequestHelpHandler)
			checkIn.POST("/ready", handlers.ReadyToVerifyHandler)
			checkIn.POST("/more-help", handlers.MoreHelpHandler)
			checkIn.POST("/cancel", handlers.CancelCheckInHandler)
		}

		api.GET("/documents", handlers.ListDocumentsHandler)
		api.GET("/memory", handlers.GetMemoryHandler)
		api.GET("/recommendations", handlers.GetRecommendationsHandler)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

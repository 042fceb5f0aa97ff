package sessions

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/api"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/sessions"
)

// RegisterRoutes registers all work session related routes
func RegisterRoutes(router *gin.RouterGroup, sessionService *sessions.Service) {
	handler := NewSessionHandler(sessionService)

	sessionsGroup := router.Group("/sessions")
	sessionsGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
	)
	{
		// Lifecycle
		sessionsGroup.POST("/start", handler.StartSession)
		sessionsGroup.POST("/:sessionId/pause", handler.PauseSession)
		sessionsGroup.POST("/:sessionId/resume", handler.ResumeSession)
		sessionsGroup.POST("/:sessionId/stop", handler.StopSession)
		sessionsGroup.POST("/:sessionId/idle-flush", handler.IdleFlush)

		// Queries
		sessionsGroup.GET("/active", handler.GetActiveSession)
		sessionsGroup.GET("", handler.GetSessionHistory)
		sessionsGroup.GET("/:sessionId", handler.GetSessionTimeline)
	}

	adminGroup := router.Group("/admin/sessions")
	adminGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
		api.RequireAdmin(),
	)
	{
		adminGroup.GET("", handler.AdminListSessions)
		adminGroup.GET("/:sessionId", handler.AdminSessionDetail)
	}
}

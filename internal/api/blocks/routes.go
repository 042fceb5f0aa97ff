package blocks

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/api"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/flags"
)

// RegisterRoutes registers time block flag and explanation routes
func RegisterRoutes(router *gin.RouterGroup, flagService *flags.Service) {
	handler := NewBlockHandler(flagService)

	blocksGroup := router.Group("")
	blocksGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
	)
	{
		blocksGroup.POST("/blocks/:blockId/explanation", handler.SubmitExplanation)
		blocksGroup.GET("/explanations", handler.GetUserExplanations)
	}

	adminGroup := router.Group("/admin")
	adminGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
		api.RequireAdmin(),
	)
	{
		adminGroup.PATCH("/blocks/:blockId/flag", handler.AdminSetFlag)
		adminGroup.PATCH("/blocks/:blockId/explanation", handler.AdminReviewExplanation)
		adminGroup.GET("/explanations", handler.AdminListExplanations)
	}
}

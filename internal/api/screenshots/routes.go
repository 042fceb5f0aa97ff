package screenshots

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/api"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/screenshots"
)

func RegisterRoutes(router *gin.RouterGroup, screenshotService *screenshots.Service) {
	handler := NewScreenshotHandler(screenshotService)

	authenticated := router.Group("")
	authenticated.Use(middleware.DefaultLoggingMiddleware())
	authenticated.Use(api.AuthMiddleware())
	{
		authenticated.POST("/screenshots", handler.Capture)
	}
}

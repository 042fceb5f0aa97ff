package activity

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/api"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/activity"
)

func RegisterRoutes(router *gin.RouterGroup, recorder *activity.Recorder) {
	handler := NewActivityHandler(recorder)

	authenticated := router.Group("")
	authenticated.Use(middleware.DefaultLoggingMiddleware())
	authenticated.Use(api.AuthMiddleware())
	{
		authenticated.GET("/activity", handler.GetMyActivity)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.DefaultLoggingMiddleware())
	admin.Use(api.AuthMiddleware())
	admin.Use(api.RequireAdmin())
	{
		admin.GET("/activity", handler.GetAllActivity)
	}
}

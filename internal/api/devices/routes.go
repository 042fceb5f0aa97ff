package devices

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/api"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/devices"
)

func RegisterRoutes(router *gin.RouterGroup, deviceService *devices.Service) {
	handler := NewDeviceHandler(deviceService)

	authenticated := router.Group("")
	authenticated.Use(middleware.DefaultLoggingMiddleware())
	authenticated.Use(api.AuthMiddleware())
	{
		authenticated.POST("/devices", handler.Register)
	}
}

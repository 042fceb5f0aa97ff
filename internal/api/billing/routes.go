package billing

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/api"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/billing"
)

func RegisterRoutes(router *gin.RouterGroup, deriver *billing.Deriver) {
	handler := NewBillingHandler(deriver)

	authenticated := router.Group("")
	authenticated.Use(middleware.DefaultLoggingMiddleware())
	authenticated.Use(api.AuthMiddleware())
	{
		authenticated.GET("/billing/units", handler.GetMyUnits)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.DefaultLoggingMiddleware())
	admin.Use(api.AuthMiddleware())
	admin.Use(api.RequireAdmin())
	{
		admin.GET("/billing/units", handler.GetAllUnits)
	}
}

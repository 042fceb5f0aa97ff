package main

import (
	"github.com/JorgeSaicoski/microservice-commons/config"
	"github.com/JorgeSaicoski/microservice-commons/database"
	"github.com/JorgeSaicoski/microservice-commons/server"
	"github.com/JorgeSaicoski/microservice-commons/utils"
	"github.com/gin-gonic/gin"

	activityAPI "github.com/JorgeSaicoski/freelance-tracker/internal/api/activity"
	billingAPI "github.com/JorgeSaicoski/freelance-tracker/internal/api/billing"
	blocksAPI "github.com/JorgeSaicoski/freelance-tracker/internal/api/blocks"
	devicesAPI "github.com/JorgeSaicoski/freelance-tracker/internal/api/devices"
	screenshotsAPI "github.com/JorgeSaicoski/freelance-tracker/internal/api/screenshots"
	sessionsAPI "github.com/JorgeSaicoski/freelance-tracker/internal/api/sessions"
	clients "github.com/JorgeSaicoski/freelance-tracker/internal/client"
	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
	activityService "github.com/JorgeSaicoski/freelance-tracker/internal/services/activity"
	billingService "github.com/JorgeSaicoski/freelance-tracker/internal/services/billing"
	devicesService "github.com/JorgeSaicoski/freelance-tracker/internal/services/devices"
	flagsService "github.com/JorgeSaicoski/freelance-tracker/internal/services/flags"
	screenshotsService "github.com/JorgeSaicoski/freelance-tracker/internal/services/screenshots"
	sessionsService "github.com/JorgeSaicoski/freelance-tracker/internal/services/sessions"
)

func main() {
	server := server.NewServer(server.ServerOptions{
		ServiceName:    "freelance-tracker",
		ServiceVersion: "1.0.0",
		SetupRoutes:    setupRoutes,
	})
	server.Start()
}

func setupRoutes(router *gin.Engine, cfg *config.Config) {
	// Connect to database using microservice-commons
	dbConnection, err := database.ConnectWithConfig(cfg.DatabaseConfig)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}

	contractURL := utils.GetEnv("CONTRACT_SERVICE_URL", "http://localhost:8000/api/internal")

	contractClient := clients.NewContractHTTPClient(contractURL)

	// Auto-migrate models
	if err := database.QuickMigrate(dbConnection,
		&db.WorkSession{},
		&db.TimeBlock{},
		&db.ScreenshotWindow{},
		&db.Screenshot{},
		&db.BillingUnit{},
		&db.TimeBlockExplanation{},
		&db.Device{},
		&db.ActivityLog{},
	); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	store := db.NewStore(dbConnection)
	locker := locks.NewSessionLocker()
	clock := locks.RealClock{}

	// Initialize services
	recorder := activityService.NewRecorder(store, clock)
	deriver := billingService.NewDeriver(store, contractClient, clock)
	flagSvc := flagsService.NewService(store, locker, clock)
	sessionSvc := sessionsService.NewService(store, deriver, recorder, locker, clock)
	screenshotSvc := screenshotsService.NewService(store, recorder, locker, clock)
	deviceSvc := devicesService.NewService(store, clock)

	// Setup routes
	api := router.Group("")
	sessionsAPI.RegisterRoutes(api, sessionSvc)
	blocksAPI.RegisterRoutes(api, flagSvc)
	screenshotsAPI.RegisterRoutes(api, screenshotSvc)
	billingAPI.RegisterRoutes(api, deriver)
	activityAPI.RegisterRoutes(api, recorder)
	devicesAPI.RegisterRoutes(api, deviceSvc)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "freelance-tracker",
			"version": "1.0.0",
		})
	})
}

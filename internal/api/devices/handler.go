package devices

import (
	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/services/devices"
)

type DeviceHandler struct {
	deviceService *devices.Service
}

func NewDeviceHandler(deviceService *devices.Service) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
	}
}

func (h *DeviceHandler) Register(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	device, created, err := h.deviceService.CheckOrCreate(userID, req.DeviceID, req.DeviceName, req.OSName, req.OSVersion)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	if created {
		responses.Created(c, "Device registered successfully", DeviceToResponse(device))
		return
	}
	responses.Success(c, "Device already registered", DeviceToResponse(device))
}

package devices

import (
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
)

type RegisterDeviceRequest struct {
	DeviceID   string `json:"deviceId" binding:"required"`
	DeviceName string `json:"deviceName"`
	OSName     string `json:"osName"`
	OSVersion  string `json:"osVersion"`
}

type DeviceResponse struct {
	ID           uint       `json:"id"`
	DeviceID     string     `json:"deviceId"`
	DeviceName   string     `json:"deviceName"`
	OSName       string     `json:"osName"`
	OSVersion    string     `json:"osVersion"`
	IsActive     bool       `json:"isActive"`
	LastSeenAt   *time.Time `json:"lastSeenAt"`
	RegisteredAt time.Time  `json:"registeredAt"`
}

func DeviceToResponse(device *db.Device) DeviceResponse {
	return DeviceResponse{
		ID:           device.ID,
		DeviceID:     device.DeviceID,
		DeviceName:   device.DeviceName,
		OSName:       device.OSName,
		OSVersion:    device.OSVersion,
		IsActive:     device.IsActive,
		LastSeenAt:   device.LastSeenAt,
		RegisteredAt: device.RegisteredAt,
	}
}

package devices

import (
	"fmt"
	"log/slog"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
)

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "DeviceService"),
)

type Store interface {
	DeviceByUserAndID(userID, deviceID string) (*db.Device, error)
	CreateDevice(device *db.Device) error
	UpdateDevice(device *db.Device) error
}

// Service maintains the registry of tracking-client installations.
type Service struct {
	store Store
	clock locks.Clock
}

func NewService(store Store, clock locks.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// CheckOrCreate registers the device on first sight and refreshes its
// last-seen timestamp on every call. Returns whether the device was
// newly created.
func (s *Service) CheckOrCreate(userID, deviceID, deviceName, osName, osVersion string) (*db.Device, bool, error) {
	now := s.clock.Now()

	device, err := s.store.DeviceByUserAndID(userID, deviceID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up device: %w", err)
	}

	if device != nil {
		device.LastSeenAt = &now
		if err := s.store.UpdateDevice(device); err != nil {
			log.Error("check-device:update-failed", "deviceID", deviceID, "err", err)
			return nil, false, fmt.Errorf("failed to update device: %w", err)
		}
		return device, false, nil
	}

	device = &db.Device{
		UserID:       userID,
		DeviceID:     deviceID,
		DeviceName:   deviceName,
		OSName:       osName,
		OSVersion:    osVersion,
		IsActive:     true,
		LastSeenAt:   &now,
		RegisteredAt: now,
	}
	if err := s.store.CreateDevice(device); err != nil {
		log.Error("check-device:insert-failed", "deviceID", deviceID, "err", err)
		return nil, false, fmt.Errorf("failed to register device: %w", err)
	}

	log.Info("check-device:registered", "userID", userID, "deviceID", deviceID)
	return device, true, nil
}

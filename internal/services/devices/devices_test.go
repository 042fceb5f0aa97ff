package devices

import (
	"testing"
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
)

type fakeStore struct {
	devices map[string]*db.Device
	nextID  uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{devices: make(map[string]*db.Device), nextID: 1}
}

func key(userID, deviceID string) string { return userID + "/" + deviceID }

func (f *fakeStore) DeviceByUserAndID(userID, deviceID string) (*db.Device, error) {
	device, ok := f.devices[key(userID, deviceID)]
	if !ok {
		return nil, nil
	}
	copy := *device
	return &copy, nil
}

func (f *fakeStore) CreateDevice(device *db.Device) error {
	device.ID = f.nextID
	f.nextID++
	copy := *device
	f.devices[key(device.UserID, device.DeviceID)] = &copy
	return nil
}

func (f *fakeStore) UpdateDevice(device *db.Device) error {
	copy := *device
	f.devices[key(device.UserID, device.DeviceID)] = &copy
	return nil
}

func TestCheckOrCreate(t *testing.T) {
	store := newFakeStore()
	registeredAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	service := NewService(store, locks.FixedClock{T: registeredAt})

	device, created, err := service.CheckOrCreate("freelancer-1", "laptop-1", "Work laptop", "linux", "6.8")
	if err != nil {
		t.Fatalf("CheckOrCreate: %v", err)
	}
	if !created {
		t.Error("first sight not reported as created")
	}
	if !device.IsActive || device.DeviceName != "Work laptop" {
		t.Errorf("device = %+v", device)
	}
	if device.LastSeenAt == nil || !device.LastSeenAt.Equal(registeredAt) {
		t.Errorf("last seen = %v, want %v", device.LastSeenAt, registeredAt)
	}

	laterAt := registeredAt.Add(time.Hour)
	later := NewService(store, locks.FixedClock{T: laterAt})
	device, created, err = later.CheckOrCreate("freelancer-1", "laptop-1", "Work laptop", "linux", "6.8")
	if err != nil {
		t.Fatalf("second CheckOrCreate: %v", err)
	}
	if created {
		t.Error("known device reported as created")
	}
	if !device.LastSeenAt.Equal(laterAt) {
		t.Errorf("last seen = %v, want refreshed %v", device.LastSeenAt, laterAt)
	}
	if !device.RegisteredAt.Equal(registeredAt) {
		t.Errorf("registered at = %v, want original %v", device.RegisteredAt, registeredAt)
	}
	if len(store.devices) != 1 {
		t.Errorf("store holds %d devices, want 1", len(store.devices))
	}
}

func TestCheckOrCreateDistinctPerUser(t *testing.T) {
	store := newFakeStore()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	service := NewService(store, locks.FixedClock{T: at})

	if _, created, _ := service.CheckOrCreate("freelancer-1", "laptop-1", "", "", ""); !created {
		t.Error("first user's device not created")
	}
	if _, created, _ := service.CheckOrCreate("freelancer-2", "laptop-1", "", "", ""); !created {
		t.Error("same device id for another user should register separately")
	}
}

package activity

import (
	"fmt"
	"log/slog"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
)

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "ActivityRecorder"),
)

// Freelancers see their last 100 entries, admins the last 300.
const (
	userLogLimit  = 100
	adminLogLimit = 300
)

type Store interface {
	CreateActivityLog(entry *db.ActivityLog) error
	ActivityByUser(userID string, limit int) ([]db.ActivityLog, error)
	AllActivity(limit int) ([]db.ActivityLog, error)
}

// Recorder writes the append-only audit trail. Record is fire-and-forget:
// a failed insert is logged and swallowed so it can never fail the
// lifecycle operation that emitted it.
type Recorder struct {
	store Store
	clock locks.Clock
}

func NewRecorder(store Store, clock locks.Clock) *Recorder {
	return &Recorder{store: store, clock: clock}
}

// Record appends one audit entry for a lifecycle transition.
func (r *Recorder) Record(userID, action string, sessionID *uint, metadata map[string]string) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	entry := &db.ActivityLog{
		UserID:    userID,
		SessionID: sessionID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: r.clock.Now(),
	}
	if err := r.store.CreateActivityLog(entry); err != nil {
		log.Error("record-activity:insert-failed", "action", action, "userID", userID, "err", err)
	}
}

// ForUser returns the freelancer's most recent entries, newest first.
func (r *Recorder) ForUser(userID string) ([]db.ActivityLog, error) {
	entries, err := r.store.ActivityByUser(userID, userLogLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve activity log: %w", err)
	}
	return entries, nil
}

// All returns the most recent entries across all freelancers, newest first.
func (r *Recorder) All() ([]db.ActivityLog, error) {
	entries, err := r.store.AllActivity(adminLogLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve activity log: %w", err)
	}
	return entries, nil
}

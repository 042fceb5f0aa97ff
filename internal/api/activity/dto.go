package activity

import (
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
)

type ActivityLogResponse struct {
	ID        uint              `json:"id"`
	UserID    string            `json:"userId"`
	SessionID *uint             `json:"sessionId"`
	Action    string            `json:"action"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
}

func ActivityLogToResponse(entry *db.ActivityLog) ActivityLogResponse {
	return ActivityLogResponse{
		ID:        entry.ID,
		UserID:    entry.UserID,
		SessionID: entry.SessionID,
		Action:    entry.Action,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt,
	}
}

func ActivityLogsToResponse(entries []db.ActivityLog) []ActivityLogResponse {
	out := make([]ActivityLogResponse, 0, len(entries))
	for i := range entries {
		out = append(out, ActivityLogToResponse(&entries[i]))
	}
	return out
}

package screenshots

import (
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
)

type CaptureRequest struct {
	TakenAtClient    time.Time `json:"takenAtClient" binding:"required"`
	Resolution       string    `json:"resolution"`
	IdleSecondsDelta int       `json:"idleSecondsDelta" binding:"min=0"`
}

type CaptureResponse struct {
	ID            uint      `json:"id"`
	BlockID       uint      `json:"blockId"`
	WindowID      uint      `json:"windowId"`
	StorageKey    string    `json:"storageKey"`
	TakenAtClient time.Time `json:"takenAtClient"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

func CaptureToResponse(shot *db.Screenshot) CaptureResponse {
	return CaptureResponse{
		ID:            shot.ID,
		BlockID:       shot.BlockID,
		WindowID:      shot.WindowID,
		StorageKey:    shot.StorageKey,
		TakenAtClient: shot.TakenAtClient,
		UploadedAt:    shot.UploadedAt,
	}
}

package sessions

import (
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/sessions"
)

// Request DTOs

type StartSessionRequest struct {
	ContractID uint   `json:"contractId" binding:"required"`
	DeviceID   string `json:"deviceId" binding:"required"`
}

type PauseSessionRequest struct {
	IdleSeconds int    `json:"idleSeconds" binding:"min=0"`
	Reason      string `json:"reason"` // PAUSE, SYSTEM_SLEEP or IDLE; defaults to PAUSE
}

type StopSessionRequest struct {
	IdleSeconds int `json:"idleSeconds" binding:"min=0"`
}

type IdleFlushRequest struct {
	IdleSeconds int `json:"idleSeconds" binding:"required,min=1"`
}

// Response DTOs

type WorkSessionResponse struct {
	ID         uint       `json:"id"`
	UserID     string     `json:"userId"`
	ContractID uint       `json:"contractId"`
	DeviceID   string     `json:"deviceId"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt"`
	PausedAt   *time.Time `json:"pausedAt"`
}

type TimeBlockResponse struct {
	ID              uint                       `json:"id"`
	SessionID       uint                       `json:"sessionId"`
	StartedAt       time.Time                  `json:"startedAt"`
	EndedAt         *time.Time                 `json:"endedAt"`
	DurationSeconds *int                       `json:"durationSeconds"`
	IdleSeconds     int                        `json:"idleSeconds"`
	ActiveSeconds   int                        `json:"activeSeconds"`
	IdleRatio       float64                    `json:"idleRatio"`
	EndReason       string                     `json:"endReason"`
	IsFlagged       bool                       `json:"isFlagged"`
	FlagSource      string                     `json:"flagSource"`
	FlagReason      string                     `json:"flagReason"`
	FlaggedAt       *time.Time                 `json:"flaggedAt"`
	Windows         []ScreenshotWindowResponse `json:"windows,omitempty"`
}

type ScreenshotWindowResponse struct {
	ID          uint                 `json:"id"`
	StartAt     time.Time            `json:"startAt"`
	EndAt       time.Time            `json:"endAt"`
	MaxCount    int                  `json:"maxCount"`
	UsedCount   int                  `json:"usedCount"`
	Screenshots []ScreenshotResponse `json:"screenshots,omitempty"`
}

type ScreenshotResponse struct {
	ID               uint      `json:"id"`
	StorageKey       string    `json:"storageKey"`
	Resolution       string    `json:"resolution"`
	TakenAtClient    time.Time `json:"takenAtClient"`
	UploadedAt       time.Time `json:"uploadedAt"`
	IdleSecondsDelta int       `json:"idleSecondsDelta"`
}

type SessionSummaryResponse struct {
	WorkSessionResponse
	TotalSeconds int `json:"totalSeconds"`
	IdleSeconds  int `json:"idleSeconds"`
}

type SessionDetailResponse struct {
	WorkSessionResponse
	TimeBlocks []TimeBlockResponse `json:"timeBlocks"`
}

type ActiveSessionResponse struct {
	Active           bool  `json:"active"`
	SessionID        *uint `json:"sessionId"`
	IsPaused         bool  `json:"isPaused"`
	TotalSeconds     int   `json:"totalSeconds"`
	LiveTotalSeconds int   `json:"liveTotalSeconds"`
}

type StopSessionResponse struct {
	Session      WorkSessionResponse  `json:"session"`
	TotalSeconds int                  `json:"totalSeconds"`
	BillingUnit  *BillingUnitResponse `json:"billingUnit"`
}

type BillingUnitResponse struct {
	ID              uint      `json:"id"`
	SessionID       uint      `json:"sessionId"`
	ContractID      uint      `json:"contractId"`
	PeriodStart     time.Time `json:"periodStart"`
	PeriodEnd       time.Time `json:"periodEnd"`
	BillableSeconds int       `json:"billableSeconds"`
	IdleSeconds     int       `json:"idleSeconds"`
	HourlyRate      string    `json:"hourlyRate"`
	GrossAmount     string    `json:"grossAmount"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Conversion methods

func WorkSessionToResponse(session *db.WorkSession) WorkSessionResponse {
	return WorkSessionResponse{
		ID:         session.ID,
		UserID:     session.UserID,
		ContractID: session.ContractID,
		DeviceID:   session.DeviceID,
		StartedAt:  session.StartedAt,
		EndedAt:    session.EndedAt,
		PausedAt:   session.PausedAt,
	}
}

func TimeBlockToResponse(block *db.TimeBlock) TimeBlockResponse {
	resp := TimeBlockResponse{
		ID:            block.ID,
		SessionID:     block.SessionID,
		StartedAt:     block.StartedAt,
		EndedAt:       block.EndedAt,
		IdleSeconds:   block.IdleSeconds,
		ActiveSeconds: block.ActiveSeconds,
		IdleRatio:     block.IdleRatio,
		EndReason:     block.EndReason,
		IsFlagged:     block.IsFlagged,
		FlagSource:    block.FlagSource,
		FlagReason:    block.FlagReason,
		FlaggedAt:     block.FlaggedAt,
	}
	if block.IsClosed() {
		duration := block.DurationSeconds()
		resp.DurationSeconds = &duration
	}
	for i := range block.Windows {
		resp.Windows = append(resp.Windows, ScreenshotWindowToResponse(&block.Windows[i]))
	}
	return resp
}

func ScreenshotWindowToResponse(window *db.ScreenshotWindow) ScreenshotWindowResponse {
	resp := ScreenshotWindowResponse{
		ID:        window.ID,
		StartAt:   window.StartAt,
		EndAt:     window.EndAt,
		MaxCount:  window.MaxCount,
		UsedCount: window.UsedCount,
	}
	for i := range window.Screenshots {
		resp.Screenshots = append(resp.Screenshots, ScreenshotToResponse(&window.Screenshots[i]))
	}
	return resp
}

func ScreenshotToResponse(shot *db.Screenshot) ScreenshotResponse {
	return ScreenshotResponse{
		ID:               shot.ID,
		StorageKey:       shot.StorageKey,
		Resolution:       shot.Resolution,
		TakenAtClient:    shot.TakenAtClient,
		UploadedAt:       shot.UploadedAt,
		IdleSecondsDelta: shot.IdleSecondsDelta,
	}
}

func SummariesToResponse(summaries []sessions.SessionSummary) []SessionSummaryResponse {
	responses := make([]SessionSummaryResponse, len(summaries))
	for i, summary := range summaries {
		responses[i] = SessionSummaryResponse{
			WorkSessionResponse: WorkSessionToResponse(&summary.Session),
			TotalSeconds:        summary.TotalSeconds,
			IdleSeconds:         summary.IdleSeconds,
		}
	}
	return responses
}

func SessionDetailToResponse(session *db.WorkSession) SessionDetailResponse {
	resp := SessionDetailResponse{
		WorkSessionResponse: WorkSessionToResponse(session),
		TimeBlocks:          make([]TimeBlockResponse, len(session.TimeBlocks)),
	}
	for i := range session.TimeBlocks {
		resp.TimeBlocks[i] = TimeBlockToResponse(&session.TimeBlocks[i])
	}
	return resp
}

func ActiveStatusToResponse(status *sessions.ActiveStatus) ActiveSessionResponse {
	resp := ActiveSessionResponse{
		Active:           status.Running,
		IsPaused:         status.IsPaused,
		TotalSeconds:     status.TotalSeconds,
		LiveTotalSeconds: status.LiveTotalSeconds,
	}
	if status.Running {
		id := status.SessionID
		resp.SessionID = &id
	}
	return resp
}

func BillingUnitToResponse(unit *db.BillingUnit) BillingUnitResponse {
	return BillingUnitResponse{
		ID:              unit.ID,
		SessionID:       unit.SessionID,
		ContractID:      unit.ContractID,
		PeriodStart:     unit.PeriodStart,
		PeriodEnd:       unit.PeriodEnd,
		BillableSeconds: unit.BillableSeconds,
		IdleSeconds:     unit.IdleSeconds,
		HourlyRate:      unit.HourlyRate.StringFixed(2),
		GrossAmount:     unit.GrossAmount.StringFixed(2),
		Status:          unit.Status,
		CreatedAt:       unit.CreatedAt,
	}
}

func StopResultToResponse(result *sessions.StopResult) StopSessionResponse {
	resp := StopSessionResponse{
		Session:      WorkSessionToResponse(result.Session),
		TotalSeconds: result.TrackedSeconds,
	}
	if result.BillingUnit != nil {
		unit := BillingUnitToResponse(result.BillingUnit)
		resp.BillingUnit = &unit
	}
	return resp
}

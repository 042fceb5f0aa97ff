package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkSession is one continuous tracking engagement tying a freelancer,
// a contract and a device together. EndedAt nil means the session is
// still running; PausedAt non-nil means no block is currently open.
type WorkSession struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     string     `json:"userId" gorm:"not null;index"`
	ContractID uint       `json:"contractId" gorm:"not null;index"`
	DeviceID   string     `json:"deviceId" gorm:"not null"`
	StartedAt  time.Time  `json:"startedAt" gorm:"not null"`
	EndedAt    *time.Time `json:"endedAt"` // nil for running sessions
	PausedAt   *time.Time `json:"pausedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// Relations
	TimeBlocks []TimeBlock `json:"timeBlocks" gorm:"foreignKey:SessionID"`
}

// IsRunning reports whether the session has not been stopped yet.
func (s *WorkSession) IsRunning() bool {
	return s.EndedAt == nil
}

// IsPaused reports whether the session is running but paused.
func (s *WorkSession) IsPaused() bool {
	return s.EndedAt == nil && s.PausedAt != nil
}

// TimeBlock is a contiguous interval of tracked time within a session.
// Once closed a block is immutable except for its flag fields.
type TimeBlock struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	SessionID uint       `json:"sessionId" gorm:"not null;index"`
	StartedAt time.Time  `json:"startedAt" gorm:"not null"`
	EndedAt   *time.Time `json:"endedAt"` // nil for the open block
	EndReason string     `json:"endReason"`

	// Idle accounting
	IdleSeconds int `json:"idleSeconds" gorm:"default:0"`

	// Derived once on close, never recomputed
	ActiveSeconds int     `json:"activeSeconds" gorm:"default:0"`
	IdleRatio     float64 `json:"idleRatio" gorm:"default:0"`

	// Flag state. FlagSource ADMIN is final and never overwritten by
	// the system evaluator.
	IsFlagged  bool       `json:"isFlagged" gorm:"default:false"`
	FlagSource string     `json:"flagSource" gorm:"default:'NONE'"`
	FlagReason string     `json:"flagReason"`
	FlaggedAt  *time.Time `json:"flaggedAt"`

	CreatedAt time.Time `json:"createdAt"`

	// Relations
	Windows []ScreenshotWindow `json:"windows" gorm:"foreignKey:BlockID"`
}

// IsClosed reports whether the block has ended.
func (b *TimeBlock) IsClosed() bool {
	return b.EndedAt != nil
}

// DurationSeconds is the wall-clock span of a closed block. Open blocks
// report 0 so billing never counts unfinished time.
func (b *TimeBlock) DurationSeconds() int {
	if b.EndedAt == nil {
		return 0
	}
	return int(b.EndedAt.Sub(b.StartedAt).Seconds())
}

// AddIdle accumulates client-reported idle seconds onto an open block.
// No-op when the block is closed or seconds is not positive.
func (b *TimeBlock) AddIdle(seconds int) {
	if seconds <= 0 || b.EndedAt != nil {
		return
	}
	b.IdleSeconds += seconds
}

// Close ends the block and derives its metrics: idle is clamped to the
// real wall-clock span, active seconds and idle ratio are computed once.
// Idempotent; closing a closed block does nothing.
func (b *TimeBlock) Close(now time.Time, reason string) {
	if b.EndedAt != nil {
		return
	}
	ended := now
	b.EndedAt = &ended
	b.EndReason = reason

	duration := int(ended.Sub(b.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	if b.IdleSeconds > duration {
		b.IdleSeconds = duration
	}
	if duration > 0 {
		b.ActiveSeconds = duration - b.IdleSeconds
		b.IdleRatio = roundRatio(float64(b.IdleSeconds) / float64(duration))
	}
}

// SystemFlag marks the block suspicious on behalf of the automatic
// evaluator. Callers must check admin precedence first.
func (b *TimeBlock) SystemFlag(now time.Time, reason string) {
	b.IsFlagged = true
	b.FlagSource = FlagSourceSystem
	b.FlagReason = reason
	b.FlaggedAt = &now
}

// ClearSystemFlag removes a system flag. Admin flags are never touched.
func (b *TimeBlock) ClearSystemFlag() {
	if b.FlagSource != FlagSourceSystem {
		return
	}
	b.IsFlagged = false
	b.FlagSource = FlagSourceNone
	b.FlagReason = ""
	b.FlaggedAt = nil
}

// AdminFlag flags the block by admin decision, overriding any prior state.
func (b *TimeBlock) AdminFlag(now time.Time, reason string) {
	b.IsFlagged = true
	b.FlagSource = FlagSourceAdmin
	b.FlagReason = reason
	b.FlaggedAt = &now
}

// AdminDeflag clears the flag but keeps the source ADMIN so the system
// evaluator can never re-flag the block.
func (b *TimeBlock) AdminDeflag(now time.Time, reason string) {
	b.IsFlagged = false
	b.FlagSource = FlagSourceAdmin
	b.FlagReason = reason
	b.FlaggedAt = &now
}

func roundRatio(r float64) float64 {
	return float64(int(r*100+0.5)) / 100
}

// ScreenshotWindow is a 10-minute proof-of-work quota bucket scoped to
// one block. Windows are additive ledgers: never deleted, never merged.
type ScreenshotWindow struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BlockID   uint      `json:"blockId" gorm:"not null;index"`
	StartAt   time.Time `json:"startAt" gorm:"not null"`
	EndAt     time.Time `json:"endAt" gorm:"not null"`
	MaxCount  int       `json:"maxCount" gorm:"default:3"`
	UsedCount int       `json:"usedCount" gorm:"default:0"`
	CreatedAt time.Time `json:"createdAt"`

	// Relations
	Screenshots []Screenshot `json:"screenshots" gorm:"foreignKey:WindowID"`
}

// Contains reports whether t falls inside the window's [StartAt, EndAt).
func (w *ScreenshotWindow) Contains(t time.Time) bool {
	return !t.Before(w.StartAt) && t.Before(w.EndAt)
}

// Screenshot is one proof-of-work capture inside a window. The image
// itself lives in object storage under StorageKey; this service only
// records the metadata.
type Screenshot struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	BlockID          uint      `json:"blockId" gorm:"not null;index"`
	WindowID         uint      `json:"windowId" gorm:"not null;index"`
	StorageKey       string    `json:"storageKey" gorm:"not null"`
	Resolution       string    `json:"resolution" gorm:"default:'full'"`
	TakenAtClient    time.Time `json:"takenAtClient" gorm:"not null"`
	UploadedAt       time.Time `json:"uploadedAt" gorm:"not null"`
	IdleSecondsDelta int       `json:"idleSecondsDelta" gorm:"default:0"`
}

// BillingUnit is the monetary artifact derived exactly once from a
// finished session. Gross never exceeds the contract's remaining escrow
// at creation time.
type BillingUnit struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	SessionID  uint   `json:"sessionId" gorm:"uniqueIndex;not null"`
	ContractID uint   `json:"contractId" gorm:"not null;index"`
	UserID     string `json:"userId" gorm:"not null;index"`

	PeriodStart time.Time `json:"periodStart" gorm:"not null"`
	PeriodEnd   time.Time `json:"periodEnd" gorm:"not null"`

	BillableSeconds int `json:"billableSeconds" gorm:"not null"`
	IdleSeconds     int `json:"idleSeconds" gorm:"not null"`

	HourlyRate  decimal.Decimal `json:"hourlyRate" gorm:"type:numeric(10,2);not null"`
	GrossAmount decimal.Decimal `json:"grossAmount" gorm:"type:numeric(10,2);not null"`

	Status    string    `json:"status" gorm:"default:'pending'"`
	CreatedAt time.Time `json:"createdAt"`
}

// TimeBlockExplanation is the freelancer's one-shot justification for a
// flagged block, with a terminal admin review outcome.
type TimeBlockExplanation struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	BlockID     uint       `json:"blockId" gorm:"uniqueIndex;not null"`
	UserID      string     `json:"userId" gorm:"not null;index"`
	Explanation string     `json:"explanation" gorm:"not null"`
	AdminStatus string     `json:"adminStatus" gorm:"default:'PENDING'"`
	AdminNote   string     `json:"adminNote"`
	ReviewedAt  *time.Time `json:"reviewedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Device is a registered tracking client installation.
type Device struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"userId" gorm:"not null;uniqueIndex:idx_user_device"`
	DeviceID     string     `json:"deviceId" gorm:"not null;uniqueIndex:idx_user_device"`
	DeviceName   string     `json:"deviceName"`
	OSName       string     `json:"osName"`
	OSVersion    string     `json:"osVersion"`
	IsActive     bool       `json:"isActive" gorm:"default:true"`
	LastSeenAt   *time.Time `json:"lastSeenAt"`
	RegisteredAt time.Time  `json:"registeredAt"`
}

// ActivityLog is the append-only audit trail of lifecycle transitions.
// Rows are written once and never updated or deleted.
type ActivityLog struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	UserID    string            `json:"userId" gorm:"not null;index"`
	SessionID *uint             `json:"sessionId"`
	Action    string            `json:"action" gorm:"not null"`
	Metadata  map[string]string `json:"metadata" gorm:"serializer:json"`
	CreatedAt time.Time         `json:"createdAt"`
}

// End reason constants (how a block ended)
const (
	EndReasonPause       = "PAUSE"
	EndReasonStop        = "STOP"
	EndReasonIdle        = "IDLE"
	EndReasonSystemSleep = "SYSTEM_SLEEP"
)

// Flag source constants (who decided the flag)
const (
	FlagSourceNone   = "NONE"
	FlagSourceSystem = "SYSTEM"
	FlagSourceAdmin  = "ADMIN"
)

// BillingUnit status constants
const (
	BillingStatusPending  = "pending"
	BillingStatusApproved = "approved"
	BillingStatusRejected = "rejected"
	BillingStatusLocked   = "locked"
	BillingStatusPaid     = "paid"
)

// Explanation review status constants
const (
	ExplanationPending  = "PENDING"
	ExplanationAccepted = "ACCEPTED"
	ExplanationRejected = "REJECTED"
)

// Activity log action constants
const (
	ActionSessionStart  = "SESSION_START"
	ActionSessionPause  = "SESSION_PAUSE"
	ActionSessionResume = "SESSION_RESUME"
	ActionSessionStop   = "SESSION_STOP"
	ActionBlockStart    = "BLOCK_START"
	ActionBlockEnd      = "BLOCK_END"
	ActionScreenshot    = "SCREENSHOT"
	ActionIdle          = "IDLE"
	ActionError         = "ERROR"
)

// ValidEndReason reports whether reason is an accepted way to end a block.
func ValidEndReason(reason string) bool {
	switch reason {
	case EndReasonPause, EndReasonStop, EndReasonIdle, EndReasonSystemSleep:
		return true
	}
	return false
}

package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/activity"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/billing"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/flags"
)

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "WorkSessionService"),
)

var (
	ErrPermissionDenied  = errors.New("session does not belong to user")
	ErrSessionClosed     = errors.New("session already stopped")
	ErrSessionNotPaused  = errors.New("session is not paused")
	ErrNoActiveBlock     = errors.New("no active time block")
	ErrActiveBlockExists = errors.New("active block already exists")
	ErrInvalidEndReason  = errors.New("invalid end reason")
	ErrInvalidIdle       = errors.New("idle seconds must be positive")
)

type Store interface {
	CreateSession(session *db.WorkSession) error
	UpdateSession(session *db.WorkSession) error
	DeleteSession(session *db.WorkSession) error
	SessionByID(id uint) (*db.WorkSession, error)
	RunningSessionByUser(userID string) (*db.WorkSession, error)
	SessionsByUser(userID string) ([]db.WorkSession, error)
	AllSessions() ([]db.WorkSession, error)

	CreateBlock(block *db.TimeBlock) error
	UpdateBlock(block *db.TimeBlock) error
	OpenBlock(sessionID uint) (*db.TimeBlock, error)
	BlocksBySession(sessionID uint) ([]db.TimeBlock, error)

	WindowsByBlock(blockID uint) ([]db.ScreenshotWindow, error)
	ScreenshotsByWindow(windowID uint) ([]db.Screenshot, error)
}

// Service orchestrates the WorkSession lifecycle. Every mutating
// operation runs under the owning user's session lock for its whole
// read-modify-write sequence, so concurrent pause/stop calls can never
// double-close a block or double-create a billing unit.
type Service struct {
	store    Store
	deriver  *billing.Deriver
	activity *activity.Recorder
	locker   *locks.SessionLocker
	clock    locks.Clock
}

func NewService(
	store Store,
	deriver *billing.Deriver,
	recorder *activity.Recorder,
	locker *locks.SessionLocker,
	clock locks.Clock,
) *Service {
	return &Service{
		store:    store,
		deriver:  deriver,
		activity: recorder,
		locker:   locker,
		clock:    clock,
	}
}

// StartResult reports whether Start found an existing running session
// instead of creating one.
type StartResult struct {
	Session        *db.WorkSession
	AlreadyRunning bool
}

// StopResult carries everything Stop produced. BillingUnit is nil when
// nothing was billable (inactive contract or zero billable seconds).
type StopResult struct {
	Session        *db.WorkSession
	TrackedSeconds int
	BillingUnit    *db.BillingUnit
}

// Start begins tracking for (user, contract, device). Starting while a
// session is already running returns that session unchanged; tracking
// clients retry network calls and a double start must not error.
func (s *Service) Start(ctx context.Context, userID string, contractID uint, deviceID string) (*StartResult, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	existing, err := s.store.RunningSessionByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running session: %w", err)
	}
	if existing != nil {
		log.Info("start-session:already-running", "userID", userID, "sessionID", existing.ID)
		return &StartResult{Session: existing, AlreadyRunning: true}, nil
	}

	now := s.clock.Now()
	session := &db.WorkSession{
		UserID:     userID,
		ContractID: contractID,
		DeviceID:   deviceID,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateSession(session); err != nil {
		log.Error("start-session:insert-failed", "userID", userID, "err", err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	block := &db.TimeBlock{
		SessionID:  session.ID,
		StartedAt:  now,
		FlagSource: db.FlagSourceNone,
		CreatedAt:  now,
	}
	if err := s.store.CreateBlock(block); err != nil {
		// Roll back the half-created session so the invariant
		// "running session implies open block" holds.
		s.store.DeleteSession(session)
		log.Error("start-session:block-insert-failed", "userID", userID, "err", err)
		return nil, fmt.Errorf("failed to create initial block: %w", err)
	}

	s.activity.Record(userID, db.ActionSessionStart, &session.ID, map[string]string{
		"contractId": strconv.FormatUint(uint64(contractID), 10),
		"deviceId":   deviceID,
	})

	log.Info("start-session:success", "userID", userID, "sessionID", session.ID)
	return &StartResult{Session: session}, nil
}

// loadOwnedRunning fetches the session and guards ownership and state.
// Callers must already hold the user's lock.
func (s *Service) loadOwnedRunning(userID string, sessionID uint) (*db.WorkSession, error) {
	session, err := s.store.SessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrPermissionDenied
	}
	if !session.IsRunning() {
		return nil, ErrSessionClosed
	}
	return session, nil
}

// Pause closes the open block with the given reason, evaluates its
// flag and marks the session paused. idleSeconds is the client's final
// idle report for the block.
func (s *Service) Pause(ctx context.Context, userID string, sessionID uint, idleSeconds int, reason string) (*db.WorkSession, error) {
	if reason == "" {
		reason = db.EndReasonPause
	}
	if !db.ValidEndReason(reason) || reason == db.EndReasonStop {
		return nil, ErrInvalidEndReason
	}

	unlock := s.locker.Lock(userID)
	defer unlock()

	session, err := s.loadOwnedRunning(userID, sessionID)
	if err != nil {
		return nil, err
	}

	block, err := s.store.OpenBlock(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open block: %w", err)
	}
	if block == nil {
		return nil, ErrNoActiveBlock
	}

	now := s.clock.Now()
	block.AddIdle(idleSeconds)
	block.Close(now, reason)
	flags.Evaluate(block, now)
	if err := s.store.UpdateBlock(block); err != nil {
		log.Error("pause-session:block-update-failed", "sessionID", sessionID, "err", err)
		return nil, fmt.Errorf("failed to close block: %w", err)
	}

	session.PausedAt = &now
	session.UpdatedAt = now
	if err := s.store.UpdateSession(session); err != nil {
		log.Error("pause-session:session-update-failed", "sessionID", sessionID, "err", err)
		return nil, fmt.Errorf("failed to pause session: %w", err)
	}

	s.activity.Record(userID, db.ActionSessionPause, &session.ID, map[string]string{
		"idleSeconds": strconv.Itoa(idleSeconds),
		"reason":      reason,
		"blockId":     strconv.FormatUint(uint64(block.ID), 10),
	})

	log.Info("pause-session:success", "sessionID", sessionID, "reason", reason)
	return session, nil
}

// Resume clears the pause and opens a new block. A lingering open block
// indicates prior corruption and aborts with ErrActiveBlockExists.
func (s *Service) Resume(ctx context.Context, userID string, sessionID uint) (*db.TimeBlock, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	session, err := s.loadOwnedRunning(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.PausedAt == nil {
		return nil, ErrSessionNotPaused
	}

	open, err := s.store.OpenBlock(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open block: %w", err)
	}
	if open != nil {
		return nil, ErrActiveBlockExists
	}

	now := s.clock.Now()
	session.PausedAt = nil
	session.UpdatedAt = now
	if err := s.store.UpdateSession(session); err != nil {
		log.Error("resume-session:session-update-failed", "sessionID", sessionID, "err", err)
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}

	block := &db.TimeBlock{
		SessionID:  session.ID,
		StartedAt:  now,
		FlagSource: db.FlagSourceNone,
		CreatedAt:  now,
	}
	if err := s.store.CreateBlock(block); err != nil {
		log.Error("resume-session:block-insert-failed", "sessionID", sessionID, "err", err)
		return nil, fmt.Errorf("failed to create block: %w", err)
	}

	s.activity.Record(userID, db.ActionSessionResume, &session.ID, map[string]string{
		"blockId": strconv.FormatUint(uint64(block.ID), 10),
	})

	log.Info("resume-session:success", "sessionID", sessionID)
	return block, nil
}

// Stop ends the session: closes any open block, stamps EndedAt and
// derives the billing unit. Stopping an already-stopped session is
// idempotent — it returns the existing billing result and performs no
// time mutations (billing derivation is retried if a previous attempt
// failed before producing a unit).
func (s *Service) Stop(ctx context.Context, userID string, sessionID uint, idleSeconds int) (*StopResult, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	session, err := s.store.SessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrPermissionDenied
	}

	now := s.clock.Now()

	if session.IsRunning() {
		block, err := s.store.OpenBlock(sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load open block: %w", err)
		}
		if block != nil {
			block.AddIdle(idleSeconds)
			block.Close(now, db.EndReasonStop)
			flags.Evaluate(block, now)
			if err := s.store.UpdateBlock(block); err != nil {
				log.Error("stop-session:block-update-failed", "sessionID", sessionID, "err", err)
				return nil, fmt.Errorf("failed to close block: %w", err)
			}
		}

		session.EndedAt = &now
		session.PausedAt = nil
		session.UpdatedAt = now
		if err := s.store.UpdateSession(session); err != nil {
			log.Error("stop-session:session-update-failed", "sessionID", sessionID, "err", err)
			return nil, fmt.Errorf("failed to stop session: %w", err)
		}
	}

	blocks, err := s.store.BlocksBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session blocks: %w", err)
	}
	tracked := trackedSeconds(blocks)

	// The session stays stopped even if derivation fails: escrow and
	// budget integrity errors surface to the caller, and stopping
	// again retries the derivation.
	unit, err := s.deriver.DeriveForSession(ctx, session, blocks)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"idleSeconds":  strconv.Itoa(idleSeconds),
		"totalSeconds": strconv.Itoa(tracked),
	}
	if unit != nil {
		metadata["billingUnitId"] = strconv.FormatUint(uint64(unit.ID), 10)
	}
	s.activity.Record(userID, db.ActionSessionStop, &session.ID, metadata)

	log.Info("stop-session:success", "sessionID", sessionID, "trackedSeconds", tracked)
	return &StopResult{Session: session, TrackedSeconds: tracked, BillingUnit: unit}, nil
}

// IdleFlush accumulates heartbeat idle seconds onto the open block
// without closing it. Requires a running, unpaused session.
func (s *Service) IdleFlush(ctx context.Context, userID string, sessionID uint, idleSeconds int) (*db.TimeBlock, error) {
	if idleSeconds <= 0 {
		return nil, ErrInvalidIdle
	}

	unlock := s.locker.Lock(userID)
	defer unlock()

	session, err := s.loadOwnedRunning(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.PausedAt != nil {
		return nil, ErrNoActiveBlock
	}

	block, err := s.store.OpenBlock(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open block: %w", err)
	}
	if block == nil {
		return nil, ErrNoActiveBlock
	}

	block.AddIdle(idleSeconds)
	if err := s.store.UpdateBlock(block); err != nil {
		log.Error("idle-flush:block-update-failed", "sessionID", sessionID, "err", err)
		return nil, fmt.Errorf("failed to flush idle: %w", err)
	}

	s.activity.Record(userID, db.ActionIdle, &session.ID, map[string]string{
		"idleSeconds": strconv.Itoa(idleSeconds),
		"blockId":     strconv.FormatUint(uint64(block.ID), 10),
	})

	return block, nil
}

// ActiveStatus describes the user's current tracking state for the
// client's status poll.
type ActiveStatus struct {
	Running          bool
	SessionID        uint
	IsPaused         bool
	TotalSeconds     int
	LiveTotalSeconds int
}

// Active reports the user's running session, if any. TotalSeconds
// counts closed blocks only (billing-safe); LiveTotalSeconds adds the
// open block's elapsed time for UI display.
func (s *Service) Active(userID string) (*ActiveStatus, error) {
	session, err := s.store.RunningSessionByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running session: %w", err)
	}
	if session == nil {
		return &ActiveStatus{}, nil
	}

	blocks, err := s.store.BlocksBySession(session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session blocks: %w", err)
	}

	total := trackedSeconds(blocks)
	live := total
	paused := true
	for i := range blocks {
		if !blocks[i].IsClosed() {
			paused = false
			live += int(s.clock.Now().Sub(blocks[i].StartedAt).Seconds())
		}
	}

	return &ActiveStatus{
		Running:          true,
		SessionID:        session.ID,
		IsPaused:         paused,
		TotalSeconds:     total,
		LiveTotalSeconds: live,
	}, nil
}

// SessionSummary pairs a session with its closed-block totals.
type SessionSummary struct {
	Session      db.WorkSession
	TotalSeconds int
	IdleSeconds  int
}

// History lists the user's sessions, newest first, with totals.
func (s *Service) History(userID string) ([]SessionSummary, error) {
	sessionsList, err := s.store.SessionsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session history: %w", err)
	}
	return s.summarize(sessionsList)
}

// AllSessions lists every session for admin review, newest first.
func (s *Service) AllSessions() ([]SessionSummary, error) {
	sessionsList, err := s.store.AllSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve sessions: %w", err)
	}
	return s.summarize(sessionsList)
}

func (s *Service) summarize(sessionsList []db.WorkSession) ([]SessionSummary, error) {
	summaries := make([]SessionSummary, 0, len(sessionsList))
	for _, session := range sessionsList {
		blocks, err := s.store.BlocksBySession(session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load blocks for session %d: %w", session.ID, err)
		}
		total := trackedSeconds(blocks)
		idle := 0
		for i := range blocks {
			if blocks[i].IsClosed() {
				idle += blocks[i].IdleSeconds
			}
		}
		summaries = append(summaries, SessionSummary{
			Session:      session,
			TotalSeconds: total,
			IdleSeconds:  idle,
		})
	}
	return summaries, nil
}

// Timeline returns the session hydrated with blocks, quota windows and
// screenshot metadata for the audit view. Non-admin callers may only
// see their own sessions.
func (s *Service) Timeline(userID string, sessionID uint, isAdmin bool) (*db.WorkSession, error) {
	session, err := s.store.SessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && session.UserID != userID {
		return nil, ErrPermissionDenied
	}

	blocks, err := s.store.BlocksBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session blocks: %w", err)
	}
	for i := range blocks {
		windows, err := s.store.WindowsByBlock(blocks[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load windows for block %d: %w", blocks[i].ID, err)
		}
		for j := range windows {
			shots, err := s.store.ScreenshotsByWindow(windows[j].ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load screenshots for window %d: %w", windows[j].ID, err)
			}
			windows[j].Screenshots = shots
		}
		blocks[i].Windows = windows
	}
	session.TimeBlocks = blocks
	return session, nil
}

// trackedSeconds totals the wall-clock span of closed blocks.
func trackedSeconds(blocks []db.TimeBlock) int {
	total := 0
	for i := range blocks {
		total += blocks[i].DurationSeconds()
	}
	return total
}

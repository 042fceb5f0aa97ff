package db

import (
	"fmt"
	"sort"

	"github.com/JorgeSaicoski/pgconnect"
)

// Store bundles the pgconnect repositories behind the narrow query
// methods the service packages need. Service packages declare their own
// store interfaces; *Store satisfies all of them.
type Store struct {
	sessionRepo     *pgconnect.Repository[WorkSession]
	blockRepo       *pgconnect.Repository[TimeBlock]
	windowRepo      *pgconnect.Repository[ScreenshotWindow]
	screenshotRepo  *pgconnect.Repository[Screenshot]
	billingRepo     *pgconnect.Repository[BillingUnit]
	explanationRepo *pgconnect.Repository[TimeBlockExplanation]
	deviceRepo      *pgconnect.Repository[Device]
	activityRepo    *pgconnect.Repository[ActivityLog]
}

func NewStore(database *pgconnect.DB) *Store {
	return &Store{
		sessionRepo:     pgconnect.NewRepository[WorkSession](database),
		blockRepo:       pgconnect.NewRepository[TimeBlock](database),
		windowRepo:      pgconnect.NewRepository[ScreenshotWindow](database),
		screenshotRepo:  pgconnect.NewRepository[Screenshot](database),
		billingRepo:     pgconnect.NewRepository[BillingUnit](database),
		explanationRepo: pgconnect.NewRepository[TimeBlockExplanation](database),
		deviceRepo:      pgconnect.NewRepository[Device](database),
		activityRepo:    pgconnect.NewRepository[ActivityLog](database),
	}
}

/* ------------------------------------------------------------------ */
/*  Work sessions                                                     */
/* ------------------------------------------------------------------ */

func (s *Store) CreateSession(session *WorkSession) error {
	return s.sessionRepo.Create(session)
}

func (s *Store) UpdateSession(session *WorkSession) error {
	return s.sessionRepo.Update(session)
}

// DeleteSession exists only for the start-rollback path; sessions are
// otherwise never deleted (soft history).
func (s *Store) DeleteSession(session *WorkSession) error {
	return s.sessionRepo.Delete(session)
}

func (s *Store) SessionByID(id uint) (*WorkSession, error) {
	var session WorkSession
	if err := s.sessionRepo.FindByID(id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RunningSessionByUser returns the user's running session, or nil when
// the user is not tracking.
func (s *Store) RunningSessionByUser(userID string) (*WorkSession, error) {
	var sessions []WorkSession
	if err := s.sessionRepo.FindWhere(&sessions, "user_id = ? AND ended_at IS NULL", userID); err != nil {
		return nil, fmt.Errorf("query running session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	running := sessions[0]
	return &running, nil
}

func (s *Store) SessionsByUser(userID string) ([]WorkSession, error) {
	var sessions []WorkSession
	if err := s.sessionRepo.FindWhere(&sessions, "user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("query user sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

func (s *Store) AllSessions() ([]WorkSession, error) {
	var sessions []WorkSession
	if err := s.sessionRepo.FindAll(&sessions); err != nil {
		return nil, fmt.Errorf("query all sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

/* ------------------------------------------------------------------ */
/*  Time blocks                                                       */
/* ------------------------------------------------------------------ */

func (s *Store) CreateBlock(block *TimeBlock) error {
	return s.blockRepo.Create(block)
}

func (s *Store) UpdateBlock(block *TimeBlock) error {
	return s.blockRepo.Update(block)
}

func (s *Store) BlockByID(id uint) (*TimeBlock, error) {
	var block TimeBlock
	if err := s.blockRepo.FindByID(id, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// OpenBlock returns the session's open block, or nil when every block
// is closed.
func (s *Store) OpenBlock(sessionID uint) (*TimeBlock, error) {
	var blocks []TimeBlock
	if err := s.blockRepo.FindWhere(&blocks, "session_id = ? AND ended_at IS NULL", sessionID); err != nil {
		return nil, fmt.Errorf("query open block: %w", err)
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	open := blocks[0]
	return &open, nil
}

func (s *Store) BlocksBySession(sessionID uint) ([]TimeBlock, error) {
	var blocks []TimeBlock
	if err := s.blockRepo.FindWhere(&blocks, "session_id = ?", sessionID); err != nil {
		return nil, fmt.Errorf("query session blocks: %w", err)
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].StartedAt.Before(blocks[j].StartedAt)
	})
	return blocks, nil
}

/* ------------------------------------------------------------------ */
/*  Screenshot windows & screenshots                                  */
/* ------------------------------------------------------------------ */

func (s *Store) CreateWindow(window *ScreenshotWindow) error {
	return s.windowRepo.Create(window)
}

func (s *Store) UpdateWindow(window *ScreenshotWindow) error {
	return s.windowRepo.Update(window)
}

// WindowsByBlock returns the block's quota windows ordered by start.
func (s *Store) WindowsByBlock(blockID uint) ([]ScreenshotWindow, error) {
	var windows []ScreenshotWindow
	if err := s.windowRepo.FindWhere(&windows, "block_id = ?", blockID); err != nil {
		return nil, fmt.Errorf("query block windows: %w", err)
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].StartAt.Before(windows[j].StartAt)
	})
	return windows, nil
}

func (s *Store) CreateScreenshot(shot *Screenshot) error {
	return s.screenshotRepo.Create(shot)
}

func (s *Store) ScreenshotsByWindow(windowID uint) ([]Screenshot, error) {
	var shots []Screenshot
	if err := s.screenshotRepo.FindWhere(&shots, "window_id = ?", windowID); err != nil {
		return nil, fmt.Errorf("query window screenshots: %w", err)
	}
	return shots, nil
}

/* ------------------------------------------------------------------ */
/*  Billing units                                                     */
/* ------------------------------------------------------------------ */

func (s *Store) CreateBillingUnit(unit *BillingUnit) error {
	return s.billingRepo.Create(unit)
}

// BillingUnitBySession returns the session's billing unit, or nil when
// the session has not been billed.
func (s *Store) BillingUnitBySession(sessionID uint) (*BillingUnit, error) {
	var units []BillingUnit
	if err := s.billingRepo.FindWhere(&units, "session_id = ?", sessionID); err != nil {
		return nil, fmt.Errorf("query billing unit: %w", err)
	}
	if len(units) == 0 {
		return nil, nil
	}
	unit := units[0]
	return &unit, nil
}

func (s *Store) BillingUnitsByUser(userID string) ([]BillingUnit, error) {
	var units []BillingUnit
	if err := s.billingRepo.FindWhere(&units, "user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("query user billing units: %w", err)
	}
	return units, nil
}

func (s *Store) AllBillingUnits() ([]BillingUnit, error) {
	var units []BillingUnit
	if err := s.billingRepo.FindAll(&units); err != nil {
		return nil, fmt.Errorf("query all billing units: %w", err)
	}
	return units, nil
}

/* ------------------------------------------------------------------ */
/*  Explanations                                                      */
/* ------------------------------------------------------------------ */

func (s *Store) CreateExplanation(explanation *TimeBlockExplanation) error {
	return s.explanationRepo.Create(explanation)
}

func (s *Store) UpdateExplanation(explanation *TimeBlockExplanation) error {
	return s.explanationRepo.Update(explanation)
}

// ExplanationByBlock returns the block's explanation, or nil when none
// has been submitted.
func (s *Store) ExplanationByBlock(blockID uint) (*TimeBlockExplanation, error) {
	var explanations []TimeBlockExplanation
	if err := s.explanationRepo.FindWhere(&explanations, "block_id = ?", blockID); err != nil {
		return nil, fmt.Errorf("query explanation: %w", err)
	}
	if len(explanations) == 0 {
		return nil, nil
	}
	explanation := explanations[0]
	return &explanation, nil
}

func (s *Store) ExplanationsByUser(userID string) ([]TimeBlockExplanation, error) {
	var explanations []TimeBlockExplanation
	if err := s.explanationRepo.FindWhere(&explanations, "user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("query user explanations: %w", err)
	}
	return explanations, nil
}

func (s *Store) AllExplanations() ([]TimeBlockExplanation, error) {
	var explanations []TimeBlockExplanation
	if err := s.explanationRepo.FindAll(&explanations); err != nil {
		return nil, fmt.Errorf("query all explanations: %w", err)
	}
	return explanations, nil
}

/* ------------------------------------------------------------------ */
/*  Devices                                                           */
/* ------------------------------------------------------------------ */

func (s *Store) CreateDevice(device *Device) error {
	return s.deviceRepo.Create(device)
}

func (s *Store) UpdateDevice(device *Device) error {
	return s.deviceRepo.Update(device)
}

// DeviceByUserAndID returns the user's registered device, or nil when
// the device has not been seen before.
func (s *Store) DeviceByUserAndID(userID, deviceID string) (*Device, error) {
	var devices []Device
	if err := s.deviceRepo.FindWhere(&devices, "user_id = ? AND device_id = ?", userID, deviceID); err != nil {
		return nil, fmt.Errorf("query device: %w", err)
	}
	if len(devices) == 0 {
		return nil, nil
	}
	device := devices[0]
	return &device, nil
}

/* ------------------------------------------------------------------ */
/*  Activity log                                                      */
/* ------------------------------------------------------------------ */

func (s *Store) CreateActivityLog(entry *ActivityLog) error {
	return s.activityRepo.Create(entry)
}

func (s *Store) ActivityByUser(userID string, limit int) ([]ActivityLog, error) {
	var entries []ActivityLog
	if err := s.activityRepo.FindWhere(&entries, "user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("query user activity: %w", err)
	}
	return trimActivity(entries, limit), nil
}

func (s *Store) AllActivity(limit int) ([]ActivityLog, error) {
	var entries []ActivityLog
	if err := s.activityRepo.FindAll(&entries); err != nil {
		return nil, fmt.Errorf("query all activity: %w", err)
	}
	return trimActivity(entries, limit), nil
}

func trimActivity(entries []ActivityLog, limit int) []ActivityLog {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

package screenshots

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/activity"
)

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "ScreenshotService"),
)

// Each block is divided into sequential 10-minute quota windows holding
// at most 3 proof-of-work captures.
const (
	WindowDuration       = 10 * time.Minute
	ScreenshotsPerWindow = 3
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrNoActiveBlock   = errors.New("no active time block")
	ErrQuotaExceeded   = errors.New("screenshot limit reached for current window")
)

type Store interface {
	RunningSessionByUser(userID string) (*db.WorkSession, error)
	OpenBlock(sessionID uint) (*db.TimeBlock, error)
	WindowsByBlock(blockID uint) ([]db.ScreenshotWindow, error)
	CreateWindow(window *db.ScreenshotWindow) error
	UpdateWindow(window *db.ScreenshotWindow) error
	CreateScreenshot(shot *db.Screenshot) error
}

// Service owns screenshot-window allocation and capture persistence.
// Captures run under the owning user's session lock, making the quota
// check and used-count increment one atomic step.
type Service struct {
	store    Store
	activity *activity.Recorder
	locker   *locks.SessionLocker
	clock    locks.Clock
}

func NewService(store Store, recorder *activity.Recorder, locker *locks.SessionLocker, clock locks.Clock) *Service {
	return &Service{store: store, activity: recorder, locker: locker, clock: clock}
}

// CaptureInput is the client's metadata for one proof-of-work capture.
// The image bytes go to object storage out of band; we only mint the
// storage key here.
type CaptureInput struct {
	TakenAtClient    time.Time
	Resolution       string
	IdleSecondsDelta int
}

// Capture records one screenshot against the user's current open block,
// enforcing the per-window quota.
func (s *Service) Capture(userID string, in CaptureInput) (*db.Screenshot, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	session, err := s.store.RunningSessionByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running session: %w", err)
	}
	if session == nil || session.PausedAt != nil {
		return nil, ErrNoActiveSession
	}

	block, err := s.store.OpenBlock(session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open block: %w", err)
	}
	if block == nil {
		return nil, ErrNoActiveBlock
	}

	now := s.clock.Now()
	window, err := s.activeWindow(block, now)
	if err != nil {
		return nil, err
	}

	if window.UsedCount >= window.MaxCount {
		return nil, ErrQuotaExceeded
	}

	resolution := in.Resolution
	if resolution == "" {
		resolution = "full"
	}

	shot := &db.Screenshot{
		BlockID:          block.ID,
		WindowID:         window.ID,
		StorageKey:       fmt.Sprintf("screenshots/%s.png", uuid.NewString()),
		Resolution:       resolution,
		TakenAtClient:    in.TakenAtClient,
		UploadedAt:       now,
		IdleSecondsDelta: in.IdleSecondsDelta,
	}
	if err := s.store.CreateScreenshot(shot); err != nil {
		log.Error("capture:insert-failed", "blockID", block.ID, "err", err)
		return nil, fmt.Errorf("failed to create screenshot: %w", err)
	}

	window.UsedCount++
	if err := s.store.UpdateWindow(window); err != nil {
		log.Error("capture:window-update-failed", "windowID", window.ID, "err", err)
		return nil, fmt.Errorf("failed to update window count: %w", err)
	}

	s.activity.Record(userID, db.ActionScreenshot, &session.ID, map[string]string{
		"blockId":    strconv.FormatUint(uint64(block.ID), 10),
		"windowId":   strconv.FormatUint(uint64(window.ID), 10),
		"resolution": resolution,
	})

	return shot, nil
}

// activeWindow finds the window containing now, or allocates the next
// one starting at max(previous window end, block start). Windows are
// never deleted or merged, so the ledger records exactly when capacity
// was exhausted.
func (s *Service) activeWindow(block *db.TimeBlock, now time.Time) (*db.ScreenshotWindow, error) {
	windows, err := s.store.WindowsByBlock(block.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load block windows: %w", err)
	}

	for i := range windows {
		if windows[i].Contains(now) {
			return &windows[i], nil
		}
	}

	start := block.StartedAt
	if n := len(windows); n > 0 {
		last := windows[n-1].EndAt
		if last.After(start) {
			start = last
		}
	}

	window := &db.ScreenshotWindow{
		BlockID:   block.ID,
		StartAt:   start,
		EndAt:     start.Add(WindowDuration),
		MaxCount:  ScreenshotsPerWindow,
		CreatedAt: now,
	}
	if err := s.store.CreateWindow(window); err != nil {
		log.Error("capture:window-insert-failed", "blockID", block.ID, "err", err)
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	return window, nil
}

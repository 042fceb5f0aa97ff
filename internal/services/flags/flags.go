package flags

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
)

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "FlagService"),
)

// Flag automatically once accumulated idle reaches 30 minutes. Blocks
// shorter than 5 minutes are never evaluated to avoid false flags.
const (
	IdleFlagSeconds  = 30 * 60
	MinBlockDuration = 5 * 60
)

var (
	ErrNotYourBlock        = errors.New("time block does not belong to user")
	ErrBlockNotFlagged     = errors.New("block is not flagged")
	ErrExplanationExists   = errors.New("explanation already submitted for this block")
	ErrAlreadyReviewed     = errors.New("explanation already reviewed")
	ErrInvalidReviewStatus = errors.New("review status must be ACCEPTED or REJECTED")
)

// Evaluate applies the automatic flagging rules to a closed block and
// reports whether the flag state changed. The caller persists the block.
//
// Rules: open blocks are skipped; admin decisions are final; blocks
// under the minimum duration only have stale system flags cleared; idle
// at or above the threshold gets a system flag, anything else clears it.
func Evaluate(block *db.TimeBlock, now time.Time) bool {
	if !block.IsClosed() {
		return false
	}
	if block.FlagSource == db.FlagSourceAdmin {
		return false
	}

	before := block.IsFlagged

	if block.DurationSeconds() < MinBlockDuration {
		block.ClearSystemFlag()
		return before != block.IsFlagged
	}

	if block.IdleSeconds >= IdleFlagSeconds {
		reason := fmt.Sprintf("Idle exceeded 30 min: %d minutes", block.IdleSeconds/60)
		block.SystemFlag(now, reason)
		return true
	}

	block.ClearSystemFlag()
	return before != block.IsFlagged
}

type Store interface {
	BlockByID(id uint) (*db.TimeBlock, error)
	UpdateBlock(block *db.TimeBlock) error
	SessionByID(id uint) (*db.WorkSession, error)
	CreateExplanation(explanation *db.TimeBlockExplanation) error
	UpdateExplanation(explanation *db.TimeBlockExplanation) error
	ExplanationByBlock(blockID uint) (*db.TimeBlockExplanation, error)
	ExplanationsByUser(userID string) ([]db.TimeBlockExplanation, error)
	AllExplanations() ([]db.TimeBlockExplanation, error)
}

// Service carries the admin flag overrides and the freelancer
// explanation workflow. Mutations run under the owning user's session
// lock so they never interleave with the lifecycle operations.
type Service struct {
	store  Store
	locker *locks.SessionLocker
	clock  locks.Clock
}

func NewService(store Store, locker *locks.SessionLocker, clock locks.Clock) *Service {
	return &Service{store: store, locker: locker, clock: clock}
}

// lockBlockOwner acquires the lock of the user owning the block's
// session and re-reads the block under it.
func (s *Service) lockBlockOwner(blockID uint) (*db.TimeBlock, *db.WorkSession, func(), error) {
	block, err := s.store.BlockByID(blockID)
	if err != nil {
		return nil, nil, nil, err
	}
	session, err := s.store.SessionByID(block.SessionID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("block session not found: %w", err)
	}

	unlock := s.locker.Lock(session.UserID)

	block, err = s.store.BlockByID(blockID)
	if err != nil {
		unlock()
		return nil, nil, nil, err
	}
	return block, session, unlock, nil
}

// AdminSetFlag flags or deflags a block by admin decision. Admin
// decisions are final: the system evaluator never overrides them.
func (s *Service) AdminSetFlag(blockID uint, flagged bool, reason string) (*db.TimeBlock, error) {
	block, _, unlock, err := s.lockBlockOwner(blockID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock.Now()
	reason = strings.TrimSpace(reason)

	if flagged {
		if reason == "" {
			reason = "Flagged by admin"
		}
		block.AdminFlag(now, reason)
	} else {
		if reason == "" {
			reason = "Deflagged by admin"
		}
		block.AdminDeflag(now, reason)
	}

	if err := s.store.UpdateBlock(block); err != nil {
		log.Error("admin-set-flag:update-failed", "blockID", blockID, "err", err)
		return nil, fmt.Errorf("failed to update block flag: %w", err)
	}

	log.Info("admin-set-flag:success", "blockID", blockID, "flagged", flagged)
	return block, nil
}

// SubmitExplanation records the freelancer's justification for a
// flagged block. One explanation per block, and only while the block is
// still flagged.
func (s *Service) SubmitExplanation(userID string, blockID uint, text string) (*db.TimeBlockExplanation, error) {
	block, session, unlock, err := s.lockBlockOwner(blockID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if session.UserID != userID {
		return nil, ErrNotYourBlock
	}
	if !block.IsFlagged {
		return nil, ErrBlockNotFlagged
	}

	existing, err := s.store.ExplanationByBlock(blockID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing explanation: %w", err)
	}
	if existing != nil {
		return nil, ErrExplanationExists
	}

	explanation := &db.TimeBlockExplanation{
		BlockID:     blockID,
		UserID:      userID,
		Explanation: text,
		AdminStatus: db.ExplanationPending,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.CreateExplanation(explanation); err != nil {
		log.Error("submit-explanation:insert-failed", "blockID", blockID, "err", err)
		return nil, fmt.Errorf("failed to create explanation: %w", err)
	}

	log.Info("submit-explanation:success", "blockID", blockID, "userID", userID)
	return explanation, nil
}

// ReviewExplanation records the terminal admin verdict on an
// explanation. Accepting deflags the block, rejecting re-flags it, both
// as admin-sourced so the outcome is permanent.
func (s *Service) ReviewExplanation(blockID uint, status, note string) (*db.TimeBlockExplanation, error) {
	if status != db.ExplanationAccepted && status != db.ExplanationRejected {
		return nil, ErrInvalidReviewStatus
	}

	block, _, unlock, err := s.lockBlockOwner(blockID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	explanation, err := s.store.ExplanationByBlock(blockID)
	if err != nil {
		return nil, fmt.Errorf("failed to load explanation: %w", err)
	}
	if explanation == nil {
		return nil, fmt.Errorf("no explanation for block %d", blockID)
	}
	if explanation.AdminStatus != db.ExplanationPending {
		return nil, ErrAlreadyReviewed
	}

	now := s.clock.Now()
	explanation.AdminStatus = status
	explanation.AdminNote = note
	explanation.ReviewedAt = &now

	if err := s.store.UpdateExplanation(explanation); err != nil {
		log.Error("review-explanation:update-failed", "blockID", blockID, "err", err)
		return nil, fmt.Errorf("failed to update explanation: %w", err)
	}

	if status == db.ExplanationAccepted {
		block.AdminDeflag(now, "Admin accepted explanation")
	} else {
		block.AdminFlag(now, "Admin rejected explanation")
	}
	if err := s.store.UpdateBlock(block); err != nil {
		log.Error("review-explanation:block-update-failed", "blockID", blockID, "err", err)
		return nil, fmt.Errorf("failed to update block flag: %w", err)
	}

	log.Info("review-explanation:success", "blockID", blockID, "status", status)
	return explanation, nil
}

// UserExplanations lists the freelancer's own explanations.
func (s *Service) UserExplanations(userID string) ([]db.TimeBlockExplanation, error) {
	explanations, err := s.store.ExplanationsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve explanations: %w", err)
	}
	return explanations, nil
}

// AllExplanations lists every explanation for admin review queues.
func (s *Service) AllExplanations() ([]db.TimeBlockExplanation, error) {
	explanations, err := s.store.AllExplanations()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve explanations: %w", err)
	}
	return explanations, nil
}

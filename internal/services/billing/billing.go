package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	clients "github.com/JorgeSaicoski/freelance-tracker/internal/client"
	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
	"github.com/JorgeSaicoski/freelance-tracker/internal/locks"
)

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "BillingDeriver"),
)

var (
	// ErrEscrowNotFunded is a hard stop: billing against unfunded work
	// is a billing-integrity violation, never a silent skip.
	ErrEscrowNotFunded = errors.New("cannot bill session: escrow not funded yet")

	// ErrBudgetExhausted is raised when the contract's remaining escrow
	// is already zero at derivation time.
	ErrBudgetExhausted = errors.New("cannot bill session: contract budget exhausted")
)

var secondsPerHour = decimal.NewFromInt(3600)

type Store interface {
	BillingUnitBySession(sessionID uint) (*db.BillingUnit, error)
	CreateBillingUnit(unit *db.BillingUnit) error
	BillingUnitsByUser(userID string) ([]db.BillingUnit, error)
	AllBillingUnits() ([]db.BillingUnit, error)
}

// Deriver converts a finished session's billable seconds into a
// pending BillingUnit, capped by the contract's remaining escrow.
// Callers must hold the session owner's lock.
type Deriver struct {
	store     Store
	contracts clients.ContractClient
	clock     locks.Clock
}

func NewDeriver(store Store, contracts clients.ContractClient, clock locks.Clock) *Deriver {
	return &Deriver{store: store, contracts: contracts, clock: clock}
}

// DeriveForSession produces the session's billing unit. It returns
// (nil, nil) when nothing should be billed: inactive contract, already
// billed, or zero billable seconds. An already-existing unit is
// returned as-is so retries are idempotent.
func (d *Deriver) DeriveForSession(ctx context.Context, session *db.WorkSession, blocks []db.TimeBlock) (*db.BillingUnit, error) {
	contract, err := d.contracts.GetContract(ctx, session.ContractID)
	if err != nil {
		return nil, fmt.Errorf("fetch contract %d: %w", session.ContractID, err)
	}

	if !contract.IsActive() {
		log.Info("derive-billing:contract-inactive", "sessionID", session.ID, "status", contract.Status)
		return nil, nil
	}

	if !contract.EscrowFunded {
		log.Warn("derive-billing:escrow-not-funded", "sessionID", session.ID, "contractID", contract.ID)
		return nil, ErrEscrowNotFunded
	}

	existing, err := d.store.BillingUnitBySession(session.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing billing unit: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	billableSeconds, idleSeconds := sumClosedBlocks(blocks)
	if billableSeconds <= 0 {
		log.Info("derive-billing:nothing-billable", "sessionID", session.ID)
		return nil, nil
	}

	rate := contract.HourlyRate
	gross := decimal.NewFromInt(int64(billableSeconds)).
		Div(secondsPerHour).
		Mul(rate).
		Round(2)

	remaining := contract.RemainingBudget
	if remaining.LessThanOrEqual(decimal.Zero) {
		log.Warn("derive-billing:budget-exhausted", "sessionID", session.ID, "contractID", contract.ID)
		return nil, ErrBudgetExhausted
	}

	// Cap to remaining escrow and recompute billable seconds backward
	// from the capped gross so the persisted pair stays consistent,
	// even though it may understate the actual worked time.
	if gross.GreaterThan(remaining) {
		gross = remaining
		cappedHours := gross.Div(rate).Round(2)
		billableSeconds = int(cappedHours.Mul(secondsPerHour).IntPart())
	}

	periodEnd := session.StartedAt
	if session.EndedAt != nil {
		periodEnd = *session.EndedAt
	}

	unit := &db.BillingUnit{
		SessionID:       session.ID,
		ContractID:      session.ContractID,
		UserID:          session.UserID,
		PeriodStart:     session.StartedAt,
		PeriodEnd:       periodEnd,
		BillableSeconds: billableSeconds,
		IdleSeconds:     idleSeconds,
		HourlyRate:      rate,
		GrossAmount:     gross,
		Status:          db.BillingStatusPending,
		CreatedAt:       d.clock.Now(),
	}

	if err := d.store.CreateBillingUnit(unit); err != nil {
		log.Error("derive-billing:insert-failed", "sessionID", session.ID, "err", err)
		return nil, fmt.Errorf("failed to create billing unit: %w", err)
	}

	log.Info("derive-billing:success",
		"sessionID", session.ID,
		"billableSeconds", billableSeconds,
		"gross", gross.String(),
	)
	return unit, nil
}

// sumClosedBlocks totals billable and idle seconds over the session's
// closed blocks. Open blocks never count toward billing.
func sumClosedBlocks(blocks []db.TimeBlock) (billable, idle int) {
	for i := range blocks {
		b := &blocks[i]
		if !b.IsClosed() {
			continue
		}
		billable += b.DurationSeconds() - b.IdleSeconds
		idle += b.IdleSeconds
	}
	return billable, idle
}

// UnitsForUser lists the freelancer's billing units.
func (d *Deriver) UnitsForUser(userID string) ([]db.BillingUnit, error) {
	units, err := d.store.BillingUnitsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve billing units: %w", err)
	}
	return units, nil
}

// AllUnits lists every billing unit for admin review.
func (d *Deriver) AllUnits() ([]db.BillingUnit, error) {
	units, err := d.store.AllBillingUnits()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve billing units: %w", err)
	}
	return units, nil
}

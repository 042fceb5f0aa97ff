package billing

import (
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
)

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

func BillingUnitsToResponse(units []db.BillingUnit) []BillingUnitResponse {
	out := make([]BillingUnitResponse, 0, len(units))
	for i := range units {
		out = append(out, BillingUnitToResponse(&units[i]))
	}
	return out
}

package blocks

import (
	"time"

	"github.com/JorgeSaicoski/freelance-tracker/internal/db"
)

// Request DTOs

type SubmitExplanationRequest struct {
	Explanation string `json:"explanation" binding:"required"`
}

type ReviewExplanationRequest struct {
	AdminStatus string `json:"adminStatus" binding:"required"` // ACCEPTED or REJECTED
	AdminNote   string `json:"adminNote"`
}

type SetFlagRequest struct {
	IsFlagged  *bool  `json:"isFlagged" binding:"required"`
	FlagReason string `json:"flagReason"`
}

// Response DTOs

type ExplanationResponse struct {
	ID          uint       `json:"id"`
	BlockID     uint       `json:"blockId"`
	UserID      string     `json:"userId"`
	Explanation string     `json:"explanation"`
	AdminStatus string     `json:"adminStatus"`
	AdminNote   string     `json:"adminNote"`
	ReviewedAt  *time.Time `json:"reviewedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type FlagStateResponse struct {
	BlockID    uint       `json:"blockId"`
	IsFlagged  bool       `json:"isFlagged"`
	FlagSource string     `json:"flagSource"`
	FlagReason string     `json:"flagReason"`
	FlaggedAt  *time.Time `json:"flaggedAt"`
}

// Conversion methods

func ExplanationToResponse(explanation *db.TimeBlockExplanation) ExplanationResponse {
	return ExplanationResponse{
		ID:          explanation.ID,
		BlockID:     explanation.BlockID,
		UserID:      explanation.UserID,
		Explanation: explanation.Explanation,
		AdminStatus: explanation.AdminStatus,
		AdminNote:   explanation.AdminNote,
		ReviewedAt:  explanation.ReviewedAt,
		CreatedAt:   explanation.CreatedAt,
	}
}

func ExplanationsToResponse(explanations []db.TimeBlockExplanation) []ExplanationResponse {
	responses := make([]ExplanationResponse, len(explanations))
	for i := range explanations {
		responses[i] = ExplanationToResponse(&explanations[i])
	}
	return responses
}

func FlagStateToResponse(block *db.TimeBlock) FlagStateResponse {
	return FlagStateResponse{
		BlockID:    block.ID,
		IsFlagged:  block.IsFlagged,
		FlagSource: block.FlagSource,
		FlagReason: block.FlagReason,
		FlaggedAt:  block.FlaggedAt,
	}
}

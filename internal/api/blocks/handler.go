package blocks

import (
	"errors"
	"strconv"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JorgeSaicoski/freelance-tracker/internal/services/flags"
)

type BlockHandler struct {
	flagService *flags.Service
}

func NewBlockHandler(flagService *flags.Service) *BlockHandler {
	return &BlockHandler{
		flagService: flagService,
	}
}

func blockIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("blockId"), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid block ID")
		return 0, false
	}
	return uint(id), true
}

func (h *BlockHandler) SubmitExplanation(c *gin.Context) {
	blockID, ok := blockIDParam(c)
	if !ok {
		return
	}

	var req SubmitExplanationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	explanation, err := h.flagService.SubmitExplanation(userID, blockID, req.Explanation)
	if err != nil {
		switch {
		case errors.Is(err, flags.ErrNotYourBlock):
			responses.Unauthorized(c, err.Error())
		case errors.Is(err, flags.ErrBlockNotFlagged):
			responses.BadRequest(c, err.Error())
		case errors.Is(err, flags.ErrExplanationExists):
			responses.Conflict(c, err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			responses.BadRequest(c, "block not found")
		default:
			responses.InternalError(c, err.Error())
		}
		return
	}

	responses.Created(c, "Explanation submitted successfully", ExplanationToResponse(explanation))
}

func (h *BlockHandler) GetUserExplanations(c *gin.Context) {
	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	explanations, err := h.flagService.UserExplanations(userID)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	explanationResponses := ExplanationsToResponse(explanations)
	responses.Success(c, "Explanations retrieved successfully", gin.H{
		"explanations": explanationResponses,
		"total":        len(explanationResponses),
	})
}

func (h *BlockHandler) AdminListExplanations(c *gin.Context) {
	explanations, err := h.flagService.AllExplanations()
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	explanationResponses := ExplanationsToResponse(explanations)
	responses.Success(c, "Explanations retrieved successfully", gin.H{
		"explanations": explanationResponses,
		"total":        len(explanationResponses),
	})
}

func (h *BlockHandler) AdminSetFlag(c *gin.Context) {
	blockID, ok := blockIDParam(c)
	if !ok {
		return
	}

	var req SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	block, err := h.flagService.AdminSetFlag(blockID, *req.IsFlagged, req.FlagReason)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			responses.BadRequest(c, "block not found")
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Block flag updated", FlagStateToResponse(block))
}

func (h *BlockHandler) AdminReviewExplanation(c *gin.Context) {
	blockID, ok := blockIDParam(c)
	if !ok {
		return
	}

	var req ReviewExplanationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	explanation, err := h.flagService.ReviewExplanation(blockID, req.AdminStatus, req.AdminNote)
	if err != nil {
		switch {
		case errors.Is(err, flags.ErrInvalidReviewStatus):
			responses.BadRequest(c, err.Error())
		case errors.Is(err, flags.ErrAlreadyReviewed):
			responses.Conflict(c, err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			responses.BadRequest(c, "block not found")
		default:
			responses.InternalError(c, err.Error())
		}
		return
	}

	responses.Success(c, "Explanation reviewed", ExplanationToResponse(explanation))
}

package billing

import (
	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/services/billing"
)

type BillingHandler struct {
	deriver *billing.Deriver
}

func NewBillingHandler(deriver *billing.Deriver) *BillingHandler {
	return &BillingHandler{
		deriver: deriver,
	}
}

func (h *BillingHandler) GetMyUnits(c *gin.Context) {
	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	units, err := h.deriver.UnitsForUser(userID)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Billing units retrieved successfully", BillingUnitsToResponse(units))
}

func (h *BillingHandler) GetAllUnits(c *gin.Context) {
	units, err := h.deriver.AllUnits()
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Billing units retrieved successfully", BillingUnitsToResponse(units))
}

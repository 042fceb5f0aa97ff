package activity

import (
	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/services/activity"
)

type ActivityHandler struct {
	recorder *activity.Recorder
}

func NewActivityHandler(recorder *activity.Recorder) *ActivityHandler {
	return &ActivityHandler{
		recorder: recorder,
	}
}

func (h *ActivityHandler) GetMyActivity(c *gin.Context) {
	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	entries, err := h.recorder.ForUser(userID)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Activity retrieved successfully", ActivityLogsToResponse(entries))
}

func (h *ActivityHandler) GetAllActivity(c *gin.Context) {
	entries, err := h.recorder.All()
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Activity retrieved successfully", ActivityLogsToResponse(entries))
}

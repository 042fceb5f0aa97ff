package screenshots

import (
	"errors"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/gin-gonic/gin"

	"github.com/JorgeSaicoski/freelance-tracker/internal/services/screenshots"
)

type ScreenshotHandler struct {
	screenshotService *screenshots.Service
}

func NewScreenshotHandler(screenshotService *screenshots.Service) *ScreenshotHandler {
	return &ScreenshotHandler{
		screenshotService: screenshotService,
	}
}

func (h *ScreenshotHandler) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	shot, err := h.screenshotService.Capture(userID, screenshots.CaptureInput{
		TakenAtClient:    req.TakenAtClient,
		Resolution:       req.Resolution,
		IdleSecondsDelta: req.IdleSecondsDelta,
	})
	if err != nil {
		switch {
		case errors.Is(err, screenshots.ErrQuotaExceeded):
			responses.Conflict(c, err.Error())
		case errors.Is(err, screenshots.ErrNoActiveSession),
			errors.Is(err, screenshots.ErrNoActiveBlock):
			responses.BadRequest(c, err.Error())
		default:
			responses.InternalError(c, err.Error())
		}
		return
	}

	responses.Created(c, "Screenshot recorded successfully", CaptureToResponse(shot))
}

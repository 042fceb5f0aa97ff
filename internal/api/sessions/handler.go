package sessions

import (
	"errors"
	"strconv"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JorgeSaicoski/freelance-tracker/internal/api"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/billing"
	"github.com/JorgeSaicoski/freelance-tracker/internal/services/sessions"
)

type SessionHandler struct {
	sessionService *sessions.Service
}

func NewSessionHandler(sessionService *sessions.Service) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// respondLifecycleError maps the session service's error taxonomy onto
// HTTP responses. Precondition violations come back as 400/409,
// integrity violations (escrow, budget) as 409, everything else as 500.
func respondLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessions.ErrPermissionDenied):
		responses.Unauthorized(c, err.Error())
	case errors.Is(err, sessions.ErrSessionClosed),
		errors.Is(err, sessions.ErrActiveBlockExists):
		responses.Conflict(c, err.Error())
	case errors.Is(err, sessions.ErrNoActiveBlock),
		errors.Is(err, sessions.ErrSessionNotPaused),
		errors.Is(err, sessions.ErrInvalidEndReason),
		errors.Is(err, sessions.ErrInvalidIdle):
		responses.BadRequest(c, err.Error())
	case errors.Is(err, billing.ErrEscrowNotFunded),
		errors.Is(err, billing.ErrBudgetExhausted):
		responses.Conflict(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		responses.BadRequest(c, "session not found")
	default:
		responses.InternalError(c, err.Error())
	}
}

func sessionIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("sessionId"), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid session ID")
		return 0, false
	}
	return uint(id), true
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	result, err := h.sessionService.Start(c.Request.Context(), userID, req.ContractID, req.DeviceID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	response := WorkSessionToResponse(result.Session)
	if result.AlreadyRunning {
		responses.Success(c, "Session already running", response)
		return
	}
	responses.Created(c, "Work session started successfully", response)
}

func (h *SessionHandler) PauseSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req PauseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	session, err := h.sessionService.Pause(c.Request.Context(), userID, sessionID, req.IdleSeconds, req.Reason)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	responses.Success(c, "Session paused", WorkSessionToResponse(session))
}

func (h *SessionHandler) ResumeSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	block, err := h.sessionService.Resume(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	responses.Success(c, "Session resumed", TimeBlockToResponse(block))
}

func (h *SessionHandler) StopSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req StopSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	result, err := h.sessionService.Stop(c.Request.Context(), userID, sessionID, req.IdleSeconds)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	responses.Success(c, "Session stopped", StopResultToResponse(result))
}

func (h *SessionHandler) IdleFlush(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req IdleFlushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	block, err := h.sessionService.IdleFlush(c.Request.Context(), userID, sessionID, req.IdleSeconds)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	responses.Success(c, "Idle flushed", TimeBlockToResponse(block))
}

func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	status, err := h.sessionService.Active(userID)
	if err != nil {
		responses.InternalError(c, "failed to get active session")
		return
	}

	responses.Success(c, "ok", ActiveStatusToResponse(status))
}

func (h *SessionHandler) GetSessionHistory(c *gin.Context) {
	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	summaries, err := h.sessionService.History(userID)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	sessionResponses := SummariesToResponse(summaries)
	responses.Success(c, "Session history retrieved successfully", gin.H{
		"sessions": sessionResponses,
		"total":    len(sessionResponses),
	})
}

func (h *SessionHandler) GetSessionTimeline(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	userID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	session, err := h.sessionService.Timeline(userID, sessionID, api.IsAdmin(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			responses.BadRequest(c, "session not found")
			return
		}
		if errors.Is(err, sessions.ErrPermissionDenied) {
			responses.Unauthorized(c, err.Error())
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Session timeline retrieved successfully", SessionDetailToResponse(session))
}

func (h *SessionHandler) AdminListSessions(c *gin.Context) {
	summaries, err := h.sessionService.AllSessions()
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	sessionResponses := SummariesToResponse(summaries)
	responses.Success(c, "Sessions retrieved successfully", gin.H{
		"sessions": sessionResponses,
		"total":    len(sessionResponses),
	})
}

func (h *SessionHandler) AdminSessionDetail(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	userID, _ := keycloakauth.GetUserID(c)

	session, err := h.sessionService.Timeline(userID, sessionID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			responses.BadRequest(c, "session not found")
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Session retrieved successfully", SessionDetailToResponse(session))
}

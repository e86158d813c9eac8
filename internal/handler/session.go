package handler

import (
	"errors"
	"net/http"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/middleware"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/api"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler handles login, logout and the current session
type SessionHandler struct {
	store   *store.Store
	auditor *audit.Logger
	logger  *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(s *store.Store, auditor *audit.Logger, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:   s,
		auditor: auditor,
		logger:  logger,
	}
}

// Login starts a session for the requested role
func (h *SessionHandler) Login(c *gin.Context) {
	var req api.LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.store.Login(req.Role)
	if err != nil {
		if errors.Is(err, store.ErrInvalidRole) {
			respondError(c, http.StatusBadRequest, api.CodeValidation, "Unknown role", err)
			return
		}
		respondError(c, http.StatusInternalServerError, api.CodeInternal, "Failed to start session", err)
		return
	}

	middleware.SetUser(c, user)
	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourceSession, user.ID)

	c.JSON(http.StatusOK, user)
}

// Logout ends the current session. Logging out without a session is a no-op.
func (h *SessionHandler) Logout(c *gin.Context) {
	user, hadSession := middleware.CurrentUser(c)

	h.store.Logout()

	if hadSession {
		recordAudit(c, h.auditor, audit.OperationDelete, audit.ResourceSession, user.ID)
	}
	middleware.ClearUser(c)

	c.Status(http.StatusNoContent)
}

// GetSession returns the logged in user
func (h *SessionHandler) GetSession(c *gin.Context) {
	user, ok := authorize(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

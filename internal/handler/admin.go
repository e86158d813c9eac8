package handler

import (
	"net/http"
	"strings"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler handles app feedback and the admin overview
type AdminHandler struct {
	store   *store.Store
	auditor *audit.Logger
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(s *store.Store, auditor *audit.Logger, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		store:   s,
		auditor: auditor,
		logger:  logger,
	}
}

// SubmitFeedback records a rating from the logged in user
func (h *AdminHandler) SubmitFeedback(c *gin.Context) {
	user, ok := authorize(c)
	if !ok {
		return
	}

	var req api.FeedbackRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Rating must be between 1 and 5", nil)
		return
	}

	fb := h.store.AddFeedback(model.NewFeedback{
		UserID:   user.ID,
		UserName: user.Name,
		Rating:   req.Rating,
		Comment:  strings.TrimSpace(derefString(req.Comment)),
	})
	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourceFeedback, fb.ID)

	c.JSON(http.StatusCreated, fb)
}

// GetAdminStats returns aggregate counts across the store
func (h *AdminHandler) GetAdminStats(c *gin.Context) {
	if _, ok := authorize(c, model.RoleAdmin); !ok {
		return
	}
	c.JSON(http.StatusOK, h.store.Stats())
}

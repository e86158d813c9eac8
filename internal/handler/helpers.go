package handler

import (
	"net/http"
	"slices"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/middleware"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func stringPtr(s string) *string {
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func respondError(c *gin.Context, status int, code, message string, err error) {
	resp := api.ErrorResponse{Code: code, Message: message}
	if err != nil {
		resp.Details = stringPtr(err.Error())
	}
	c.JSON(status, resp)
}

// bindJSON decodes the request body into dst or answers 400
func bindJSON(c *gin.Context, logger *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Debug("invalid request body", zap.Error(err))
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Invalid request body", err)
		return false
	}
	return true
}

// authorize returns the session user when one is logged in with one of
// roles (any role when roles is empty); otherwise it answers 401 or 403.
func authorize(c *gin.Context, roles ...model.Role) (model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, api.CodeUnauthorized, "Login required", nil)
		return model.User{}, false
	}
	if len(roles) > 0 && !slices.Contains(roles, user.Role) {
		respondError(c, http.StatusForbidden, api.CodeForbidden, "Not allowed for role "+string(user.Role), nil)
		return model.User{}, false
	}
	return user, true
}

// canAccessPatient reports whether user may act on patient id's record.
// Patients only reach their own record.
func canAccessPatient(user model.User, id string) bool {
	switch user.Role {
	case model.RoleDoctor, model.RoleAdmin:
		return true
	case model.RolePatient:
		return user.ID == id
	}
	return false
}

// authorizePatient combines authorize with the own-record rule for patients
func authorizePatient(c *gin.Context, id string, roles ...model.Role) (model.User, bool) {
	user, ok := authorize(c, roles...)
	if !ok {
		return user, false
	}
	if !canAccessPatient(user, id) {
		respondError(c, http.StatusForbidden, api.CodeForbidden, "Patients can only access their own record", nil)
		return model.User{}, false
	}
	return user, true
}

func notFound(c *gin.Context, what string) {
	respondError(c, http.StatusNotFound, api.CodeNotFound, what+" not found", nil)
}

// recordAudit writes an audit entry for a successful mutation. Failures are
// logged by the audit logger and never fail the request.
func recordAudit(c *gin.Context, auditor *audit.Logger, op audit.OperationType, resource audit.ResourceType, resourceID string) {
	if auditor == nil {
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		userID = "anonymous"
	}

	_ = auditor.Log(c.Request.Context(), audit.AuditLog{
		UserID:        userID,
		OperationType: op,
		ResourceType:  resource,
		ResourceID:    resourceID,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
		AdditionalData: map[string]any{
			"request_id": c.GetString(middleware.ContextRequestID),
			"route":      c.FullPath(),
		},
	})
}

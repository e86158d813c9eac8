package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/service"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportHandler handles PDF patient summaries
type ReportHandler struct {
	service *service.ReportService
	auditor *audit.Logger
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *service.ReportService, auditor *audit.Logger, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		auditor: auditor,
		logger:  logger,
	}
}

// DownloadPatientReport renders and downloads a patient summary
func (h *ReportHandler) DownloadPatientReport(c *gin.Context, id string) {
	user, ok := authorize(c, model.RoleDoctor)
	if !ok {
		return
	}

	report, err := h.service.Generate(c.Request.Context(), id, user.Name)
	if err != nil {
		if errors.Is(err, service.ErrPatientNotFound) {
			notFound(c, "Patient")
			return
		}
		h.logger.Error("failed to generate report",
			zap.Error(err),
			zap.String("patient_id", id),
		)
		respondError(c, http.StatusInternalServerError, api.CodeInternal, "Failed to generate report", err)
		return
	}
	recordAudit(c, h.auditor, audit.OperationRead, audit.ResourceReport, report.Filename)

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", report.Filename))
	c.Header("Content-Length", fmt.Sprintf("%d", len(report.Data)))
	c.Data(http.StatusOK, "application/pdf", report.Data)

	h.logger.Info("report downloaded",
		zap.String("patient_id", id),
		zap.Int("size_bytes", len(report.Data)),
	)
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPatientAge = 130

// VitalsAnalyzer classifies a reading; *ai.Service implements it and never fails
type VitalsAnalyzer interface {
	AnalyzeVitals(ctx context.Context, reading model.VitalsReading) model.AIAnalysisResult
}

// PatientHandler handles patient records, vitals, conditions and messages
type PatientHandler struct {
	store    *store.Store
	analyzer VitalsAnalyzer
	auditor  *audit.Logger
	logger   *zap.Logger
}

// NewPatientHandler creates a new PatientHandler
func NewPatientHandler(s *store.Store, analyzer VitalsAnalyzer, auditor *audit.Logger, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{
		store:    s,
		analyzer: analyzer,
		auditor:  auditor,
		logger:   logger,
	}
}

// ListPatients returns the triage view, optionally filtered by name or condition
func (h *PatientHandler) ListPatients(c *gin.Context, params api.ListPatientsParams) {
	if _, ok := authorize(c, model.RoleDoctor); !ok {
		return
	}
	c.JSON(http.StatusOK, h.store.Triage(derefString(params.Q)))
}

// CreatePatient registers a new patient
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	if _, ok := authorize(c, model.RoleDoctor); !ok {
		return
	}

	var req api.CreatePatientRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Name is required", nil)
		return
	}
	if req.Age < 0 || req.Age > maxPatientAge {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Age must be between 0 and 130", nil)
		return
	}

	patient, err := h.store.AddPatient(model.NewPatient{
		Name:       name,
		Age:        req.Age,
		Conditions: req.Conditions,
		Notes:      derefString(req.Notes),
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, api.CodeValidation, conditionMessage(err), err)
		return
	}

	h.logger.Info("patient registered", zap.String("patient_id", patient.ID))
	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourcePatient, patient.ID)

	c.JSON(http.StatusCreated, patient)
}

// GetPatient returns one patient record
func (h *PatientHandler) GetPatient(c *gin.Context, id string) {
	if _, ok := authorizePatient(c, id); !ok {
		return
	}

	patient, found := h.store.Patient(id)
	if !found {
		notFound(c, "Patient")
		return
	}
	c.JSON(http.StatusOK, patient)
}

// UpdatePatient edits profile fields of a patient
func (h *PatientHandler) UpdatePatient(c *gin.Context, id string) {
	if _, ok := authorizePatient(c, id, model.RolePatient, model.RoleDoctor); !ok {
		return
	}

	var req api.UpdatePatientRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	patient, found := h.store.Patient(id)
	if !found {
		notFound(c, "Patient")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(c, http.StatusBadRequest, api.CodeValidation, "Name cannot be empty", nil)
			return
		}
		patient.Name = name
	}
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > maxPatientAge {
			respondError(c, http.StatusBadRequest, api.CodeValidation, "Age must be between 0 and 130", nil)
			return
		}
		patient.Age = *req.Age
	}
	if req.Notes != nil {
		patient.Notes = *req.Notes
	}
	if req.Avatar != nil {
		patient.Avatar = *req.Avatar
	}

	if !h.store.UpdatePatient(patient) {
		notFound(c, "Patient")
		return
	}
	recordAudit(c, h.auditor, audit.OperationUpdate, audit.ResourcePatient, id)

	updated, _ := h.store.Patient(id)
	c.JSON(http.StatusOK, updated)
}

// AddConditions appends a comma separated batch of condition labels
func (h *PatientHandler) AddConditions(c *gin.Context, id string) {
	if _, ok := authorizePatient(c, id, model.RolePatient, model.RoleDoctor); !ok {
		return
	}

	var req api.ConditionsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	found, err := h.store.AddConditions(id, req.Input)
	if !found {
		notFound(c, "Patient")
		return
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, api.CodeValidation, conditionMessage(err), err)
		return
	}
	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourceCondition, id)

	patient, _ := h.store.Patient(id)
	c.JSON(http.StatusOK, patient)
}

// RemoveCondition deletes the condition at index
func (h *PatientHandler) RemoveCondition(c *gin.Context, id string, index int) {
	if _, ok := authorizePatient(c, id, model.RolePatient, model.RoleDoctor); !ok {
		return
	}

	found, err := h.store.RemoveCondition(id, index)
	if !found {
		notFound(c, "Patient")
		return
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Invalid condition index", err)
		return
	}
	recordAudit(c, h.auditor, audit.OperationDelete, audit.ResourceCondition, id)

	patient, _ := h.store.Patient(id)
	c.JSON(http.StatusOK, patient)
}

func conditionMessage(err error) string {
	var quota *model.ConditionQuotaError
	switch {
	case errors.As(err, &quota):
		return quota.Error()
	case errors.Is(err, model.ErrConditionTooLong),
		errors.Is(err, model.ErrConditionInvalidChars),
		errors.Is(err, model.ErrConditionLimitReached):
		return err.Error()
	}
	return "Invalid condition"
}

// LogVitals analyzes a reading and records it with the resulting status
func (h *PatientHandler) LogVitals(c *gin.Context, id string) {
	if _, ok := authorizePatient(c, id, model.RolePatient); !ok {
		return
	}

	var req api.VitalsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if req.Systolic <= 0 || req.Diastolic <= 0 || req.Glucose <= 0 {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Readings must be positive", nil)
		return
	}

	if _, found := h.store.Patient(id); !found {
		notFound(c, "Patient")
		return
	}

	analysis := h.analyzer.AnalyzeVitals(c.Request.Context(), model.VitalsReading{
		Systolic:  req.Systolic,
		Diastolic: req.Diastolic,
		Glucose:   req.Glucose,
	})

	entry := model.VitalLog{
		ID:        uuid.NewString(),
		Systolic:  req.Systolic,
		Diastolic: req.Diastolic,
		Glucose:   req.Glucose,
		Status:    analysis.RiskLevel,
		Note:      derefString(req.Note),
	}
	if !h.store.AddVitalLog(id, entry) {
		notFound(c, "Patient")
		return
	}
	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourceVitalLog, entry.ID)

	patient, _ := h.store.Patient(id)
	for _, l := range patient.Logs {
		if l.ID == entry.ID {
			entry = l
			break
		}
	}

	h.logger.Info("vitals logged",
		zap.String("patient_id", id),
		zap.String("status", string(entry.Status)),
		zap.Int("risk_score", patient.RiskScore),
	)

	c.JSON(http.StatusCreated, api.VitalsResponse{
		Analysis:  analysis,
		Log:       entry,
		RiskScore: patient.RiskScore,
	})
}

// SendMessage sends a care-team message to a patient
func (h *PatientHandler) SendMessage(c *gin.Context, id string) {
	if _, ok := authorize(c, model.RoleDoctor); !ok {
		return
	}

	var req api.MessageRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Message text is required", nil)
		return
	}
	if !req.Type.Valid() {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Unknown message type", nil)
		return
	}

	msg, found := h.store.SendDoctorMessage(id, text, req.Type)
	if !found {
		notFound(c, "Patient")
		return
	}
	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourceMessage, msg.ID)

	c.JSON(http.StatusCreated, msg)
}

// MarkMessagesRead marks every message of the patient as read
func (h *PatientHandler) MarkMessagesRead(c *gin.Context, id string) {
	if _, ok := authorizePatient(c, id, model.RolePatient); !ok {
		return
	}

	if !h.store.MarkMessagesRead(id) {
		notFound(c, "Patient")
		return
	}
	recordAudit(c, h.auditor, audit.OperationUpdate, audit.ResourceMessage, id)

	c.Status(http.StatusNoContent)
}

// Package api holds the HTTP contract of the CarePlanner backend: request and
// response bodies, the ServerInterface implemented by the handlers and the
// gin route registration for every operation in openapi.yaml.
package api

import (
	"github.com/careplanner/backend/pkg/model"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// Error codes
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// LoginRequest defines model for LoginRequest
type LoginRequest struct {
	Role model.Role `json:"role"`
}

// CreatePatientRequest defines model for CreatePatientRequest
type CreatePatientRequest struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Conditions []string `json:"condition,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// UpdatePatientRequest defines model for UpdatePatientRequest. Omitted fields
// keep their stored value.
type UpdatePatientRequest struct {
	Name   *string `json:"name,omitempty"`
	Age    *int    `json:"age,omitempty"`
	Notes  *string `json:"notes,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// ConditionsRequest defines model for ConditionsRequest
type ConditionsRequest struct {
	// Input is a comma separated list of condition labels
	Input string `json:"input"`
}

// VitalsRequest defines model for VitalsRequest
type VitalsRequest struct {
	Systolic  int     `json:"systolic"`
	Diastolic int     `json:"diastolic"`
	Glucose   int     `json:"glucose"`
	Note      *string `json:"note,omitempty"`
}

// VitalsResponse is returned after a reading has been analyzed and stored
type VitalsResponse struct {
	Analysis  model.AIAnalysisResult `json:"analysis"`
	Log       model.VitalLog         `json:"log"`
	RiskScore int                    `json:"riskScore"`
}

// MessageRequest defines model for MessageRequest
type MessageRequest struct {
	Text string            `json:"text"`
	Type model.MessageType `json:"type"`
}

// AppointmentRequest defines model for AppointmentRequest
type AppointmentRequest struct {
	Date   string                `json:"date"`
	Time   string                `json:"time"`
	Type   model.AppointmentType `json:"type"`
	Reason *string               `json:"reason,omitempty"`
}

// FeedbackRequest defines model for FeedbackRequest
type FeedbackRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

// ChatRequest defines model for ChatRequest
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatFeedbackRequest defines model for ChatFeedbackRequest
type ChatFeedbackRequest struct {
	Feedback model.ChatFeedback `json:"feedback"`
}

// ListPatientsParams defines parameters for ListPatients
type ListPatientsParams struct {
	Q *string `form:"q,omitempty" json:"q,omitempty"`
}

// GetAppointmentSlotsParams defines parameters for GetAppointmentSlots
type GetAppointmentSlotsParams struct {
	Date *string `form:"date,omitempty" json:"date,omitempty"`
}

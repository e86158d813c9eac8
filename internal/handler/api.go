package handler

import (
	"github.com/careplanner/backend/pkg/api"
	"github.com/gin-gonic/gin"
)

// APIHandler implements the api.ServerInterface by delegating to individual handlers
type APIHandler struct {
	System       *SystemHandler
	Session      *SessionHandler
	Patients     *PatientHandler
	Appointments *AppointmentHandler
	Admin        *AdminHandler
	Chat         *ChatHandler
	Reports      *ReportHandler
}

var _ api.ServerInterface = (*APIHandler)(nil)

// System

func (h *APIHandler) GetHealth(c *gin.Context)      { h.System.GetHealth(c) }
func (h *APIHandler) GetOpenAPISpec(c *gin.Context) { h.System.GetOpenAPISpec(c) }

// Session

func (h *APIHandler) Login(c *gin.Context)      { h.Session.Login(c) }
func (h *APIHandler) Logout(c *gin.Context)     { h.Session.Logout(c) }
func (h *APIHandler) GetSession(c *gin.Context) { h.Session.GetSession(c) }

// Patients

func (h *APIHandler) ListPatients(c *gin.Context, params api.ListPatientsParams) {
	h.Patients.ListPatients(c, params)
}

func (h *APIHandler) CreatePatient(c *gin.Context) { h.Patients.CreatePatient(c) }

func (h *APIHandler) GetPatient(c *gin.Context, id string)    { h.Patients.GetPatient(c, id) }
func (h *APIHandler) UpdatePatient(c *gin.Context, id string) { h.Patients.UpdatePatient(c, id) }
func (h *APIHandler) AddConditions(c *gin.Context, id string) { h.Patients.AddConditions(c, id) }

func (h *APIHandler) RemoveCondition(c *gin.Context, id string, index int) {
	h.Patients.RemoveCondition(c, id, index)
}

func (h *APIHandler) LogVitals(c *gin.Context, id string)        { h.Patients.LogVitals(c, id) }
func (h *APIHandler) SendMessage(c *gin.Context, id string)      { h.Patients.SendMessage(c, id) }
func (h *APIHandler) MarkMessagesRead(c *gin.Context, id string) { h.Patients.MarkMessagesRead(c, id) }

func (h *APIHandler) DownloadPatientReport(c *gin.Context, id string) {
	h.Reports.DownloadPatientReport(c, id)
}

// Appointments

func (h *APIHandler) ListAppointments(c *gin.Context) { h.Appointments.ListAppointments(c) }
func (h *APIHandler) BookAppointment(c *gin.Context)  { h.Appointments.BookAppointment(c) }

func (h *APIHandler) GetAppointmentSlots(c *gin.Context, params api.GetAppointmentSlotsParams) {
	h.Appointments.GetAppointmentSlots(c, params)
}

func (h *APIHandler) CancelAppointment(c *gin.Context, id string) {
	h.Appointments.CancelAppointment(c, id)
}

// Feedback and admin

func (h *APIHandler) SubmitFeedback(c *gin.Context) { h.Admin.SubmitFeedback(c) }
func (h *APIHandler) GetAdminStats(c *gin.Context)  { h.Admin.GetAdminStats(c) }

// Chat

func (h *APIHandler) GetChat(c *gin.Context)         { h.Chat.GetChat(c) }
func (h *APIHandler) ClearChat(c *gin.Context)       { h.Chat.ClearChat(c) }
func (h *APIHandler) SendChatMessage(c *gin.Context) { h.Chat.SendChatMessage(c) }

func (h *APIHandler) SetChatFeedback(c *gin.Context, id string) {
	h.Chat.SetChatFeedback(c, id)
}

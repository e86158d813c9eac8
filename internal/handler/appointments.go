package handler

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/schedule"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AppointmentHandler handles booking, listing and cancelling appointments
type AppointmentHandler struct {
	store   *store.Store
	auditor *audit.Logger
	logger  *zap.Logger
	now     func() time.Time

	// booking serializes the slot check with the booking it guards
	booking sync.Mutex
}

// NewAppointmentHandler creates a new AppointmentHandler. now may be nil.
func NewAppointmentHandler(s *store.Store, auditor *audit.Logger, now func() time.Time, logger *zap.Logger) *AppointmentHandler {
	if now == nil {
		now = time.Now
	}
	return &AppointmentHandler{
		store:   s,
		auditor: auditor,
		logger:  logger,
		now:     now,
	}
}

// ListAppointments returns upcoming appointments for doctors, the caller's
// own appointments for patients and every appointment for admins
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	user, ok := authorize(c)
	if !ok {
		return
	}

	var appts []model.Appointment
	switch user.Role {
	case model.RoleDoctor:
		appts = h.store.UpcomingAppointments(h.now())
	case model.RolePatient:
		appts = h.store.PatientAppointments(user.ID)
	default:
		appts = h.store.Appointments()
	}
	c.JSON(http.StatusOK, appts)
}

// GetAppointmentSlots reports slot availability for one bookable date, or
// for the whole booking window when no date is given
func (h *AppointmentHandler) GetAppointmentSlots(c *gin.Context, params api.GetAppointmentSlotsParams) {
	if _, ok := authorize(c, model.RolePatient); !ok {
		return
	}

	now := h.now()
	appts := h.store.Appointments()

	if params.Date == nil || *params.Date == "" {
		c.JSON(http.StatusOK, schedule.Week(appts, now))
		return
	}

	for _, day := range schedule.BookableDates(now) {
		if day.Format(schedule.DateLayout) == *params.Date {
			c.JSON(http.StatusOK, []schedule.Day{schedule.Availability(appts, day)})
			return
		}
	}
	respondError(c, http.StatusBadRequest, api.CodeValidation, "Date is outside the booking window", schedule.ErrDateOutOfRange)
}

// BookAppointment books a free slot for the logged in patient
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	user, ok := authorize(c, model.RolePatient)
	if !ok {
		return
	}

	var req api.AppointmentRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if !req.Type.Valid() {
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Unknown appointment type", nil)
		return
	}

	reason := strings.TrimSpace(derefString(req.Reason))
	if reason == "" {
		reason = schedule.DefaultReason
	}

	h.booking.Lock()
	defer h.booking.Unlock()

	start, err := schedule.Resolve(h.store.Appointments(), h.now(), req.Date, req.Time)
	if err != nil {
		if errors.Is(err, schedule.ErrSlotUnavailable) {
			respondError(c, http.StatusConflict, api.CodeConflict, "Time slot is already booked", err)
			return
		}
		respondError(c, http.StatusBadRequest, api.CodeValidation, "Invalid date or time slot", err)
		return
	}

	appt := h.store.BookAppointment(model.NewAppointment{
		PatientID:   user.ID,
		PatientName: user.Name,
		DoctorName:  schedule.DefaultDoctor,
		Date:        start,
		Type:        req.Type,
		Reason:      reason,
	})

	h.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("patient_id", user.ID),
		zap.Time("date", appt.Date),
	)
	recordAudit(c, h.auditor, audit.OperationCreate, audit.ResourceAppointment, appt.ID)

	c.JSON(http.StatusCreated, appt)
}

// CancelAppointment marks an appointment cancelled. Patients may only cancel
// their own appointments; cancelling twice is harmless.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context, id string) {
	user, ok := authorize(c)
	if !ok {
		return
	}

	if user.Role == model.RolePatient {
		for _, a := range h.store.Appointments() {
			if a.ID == id && a.PatientID != user.ID {
				respondError(c, http.StatusForbidden, api.CodeForbidden, "Patients can only cancel their own appointments", nil)
				return
			}
		}
	}

	if !h.store.CancelAppointment(id) {
		notFound(c, "Appointment")
		return
	}
	recordAudit(c, h.auditor, audit.OperationUpdate, audit.ResourceAppointment, id)

	c.Status(http.StatusNoContent)
}

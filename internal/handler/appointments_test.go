package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/schedule"
	"github.com/careplanner/backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDays(t *testing.T, body []byte) []schedule.Day {
	t.Helper()
	var days []schedule.Day
	require.NoError(t, json.Unmarshal(body, &days), string(body))
	return days
}

func slotAvailable(t *testing.T, day schedule.Day, slot string) bool {
	t.Helper()
	for _, s := range day.Slots {
		if s.Time == slot {
			return s.Available
		}
	}
	t.Fatalf("slot %q not listed for %s", slot, day.Date)
	return false
}

func bookingRequest(date, slot string) map[string]any {
	return map[string]any{"date": date, "time": slot, "type": "video"}
}

func TestGetAppointmentSlots_Week(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RolePatient)

	w := env.do(t, http.MethodGet, "/api/v1/appointments/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)

	days := decodeDays(t, w.Body.Bytes())
	require.Len(t, days, 3)
	assert.Equal(t, "2025-03-02", days[0].Date)
	assert.Equal(t, "2025-03-03", days[1].Date)
	assert.Equal(t, "2025-03-04", days[2].Date)
	for _, day := range days {
		require.Len(t, day.Slots, len(schedule.Slots))
		for _, s := range day.Slots {
			assert.True(t, s.Available, "%s %s", day.Date, s.Time)
		}
	}
}

func TestGetAppointmentSlots_SingleDay(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RolePatient)

	w := env.do(t, http.MethodGet, "/api/v1/appointments/slots?date=2025-03-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	days := decodeDays(t, w.Body.Bytes())
	require.Len(t, days, 1)
	assert.Equal(t, "2025-03-03", days[0].Date)

	w = env.do(t, http.MethodGet, "/api/v1/appointments/slots?date=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/appointments/slots?date=2025-03-10", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookAppointment(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RolePatient)

	w := env.do(t, http.MethodPost, "/api/v1/appointments", bookingRequest("2025-03-02", "10:30 AM"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var appt model.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
	assert.Equal(t, "p1", appt.PatientID)
	assert.Equal(t, "Sarah Jenkins", appt.PatientName)
	assert.Equal(t, schedule.DefaultDoctor, appt.DoctorName)
	assert.Equal(t, schedule.DefaultReason, appt.Reason)
	assert.Equal(t, model.AppointmentTypeVideo, appt.Type)
	assert.Equal(t, model.AppointmentStatusConfirmed, appt.Status)
	assert.True(t, appt.Date.Equal(time.Date(2025, 3, 2, 10, 30, 0, 0, time.UTC)), appt.Date.String())

	w = env.do(t, http.MethodGet, "/api/v1/appointments/slots?date=2025-03-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	days := decodeDays(t, w.Body.Bytes())
	require.Len(t, days, 1)
	assert.False(t, slotAvailable(t, days[0], "10:30 AM"))
	assert.True(t, slotAvailable(t, days[0], "09:00 AM"))

	assert.Equal(t, 1, env.auditCount(audit.ResourceAppointment))
}

func TestBookAppointment_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{name: "outside window", body: bookingRequest("2025-03-10", "09:00 AM"), status: http.StatusBadRequest},
		{name: "today", body: bookingRequest("2025-03-01", "03:15 PM"), status: http.StatusBadRequest},
		{name: "unknown slot", body: bookingRequest("2025-03-02", "11:00 AM"), status: http.StatusBadRequest},
		{name: "unknown type", body: map[string]any{"date": "2025-03-02", "time": "09:00 AM", "type": "phone"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, model.RolePatient)

			w := env.do(t, http.MethodPost, "/api/v1/appointments", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Len(t, env.store.Appointments(), 1)
		})
	}
}

func TestBookAppointment_SlotTaken(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RolePatient)

	body := bookingRequest("2025-03-04", "01:00 PM")
	body["reason"] = "Follow-up"

	w := env.do(t, http.MethodPost, "/api/v1/appointments", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/appointments", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, env.store.Appointments(), 2)
}

func TestCancelAppointment_FreesSlot(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RolePatient)

	w := env.do(t, http.MethodPost, "/api/v1/appointments", bookingRequest("2025-03-03", "09:00 AM"))
	require.Equal(t, http.StatusCreated, w.Code)
	var appt model.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))

	w = env.do(t, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/cancel", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// cancelling twice is harmless
	w = env.do(t, http.MethodPost, "/api/v1/appointments/"+appt.ID+"/cancel", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/appointments", bookingRequest("2025-03-03", "09:00 AM"))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCancelAppointment_Rejected(t *testing.T) {
	env := newTestEnv(t)
	foreign := env.store.BookAppointment(model.NewAppointment{
		PatientID:   "p2",
		PatientName: "Michael Chen",
		DoctorName:  schedule.DefaultDoctor,
		Date:        time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		Type:        model.AppointmentTypeInPerson,
		Reason:      "Review",
	})

	env.login(t, model.RolePatient)

	w := env.do(t, http.MethodPost, "/api/v1/appointments/"+foreign.ID+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/appointments/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.login(t, model.RoleDoctor)
	w = env.do(t, http.MethodPost, "/api/v1/appointments/"+foreign.ID+"/cancel", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListAppointments_ByRole(t *testing.T) {
	env := newTestEnv(t)
	env.store.BookAppointment(model.NewAppointment{
		PatientID:   "p2",
		PatientName: "Michael Chen",
		DoctorName:  schedule.DefaultDoctor,
		Date:        time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		Type:        model.AppointmentTypeVideo,
		Reason:      "Review",
	})
	past := env.store.BookAppointment(model.NewAppointment{
		PatientID:   "p3",
		PatientName: "David Miller",
		DoctorName:  schedule.DefaultDoctor,
		Date:        fixedNow.Add(-48 * time.Hour),
		Type:        model.AppointmentTypeInPerson,
		Reason:      "Past visit",
	})
	require.True(t, env.store.CancelAppointment("a1"))

	list := func(t *testing.T) []model.Appointment {
		t.Helper()
		w := env.do(t, http.MethodGet, "/api/v1/appointments", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var appts []model.Appointment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appts))
		return appts
	}
	ids := func(appts []model.Appointment) []string {
		out := make([]string, len(appts))
		for i, a := range appts {
			out[i] = a.ID
		}
		return out
	}

	env.login(t, model.RolePatient)
	assert.Empty(t, list(t))

	env.login(t, model.RoleDoctor)
	upcoming := list(t)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "p2", upcoming[0].PatientID)

	env.login(t, model.RoleAdmin)
	all := ids(list(t))
	assert.Len(t, all, 3)
	assert.Contains(t, all, past.ID)
}

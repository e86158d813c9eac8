package store

import (
	"sort"
	"strings"
	"time"

	"github.com/careplanner/backend/pkg/model"
)

// CurrentUser returns the session user, if any
func (s *Store) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentUser == nil {
		return model.User{}, false
	}
	return *s.currentUser, true
}

// Patients returns a copy of all patients in list order
func (s *Store) Patients() []model.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Patient, len(s.patients))
	for i, p := range s.patients {
		out[i] = p.Clone()
	}
	return out
}

// Patient returns a copy of one patient
func (s *Store) Patient(id string) (model.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.patientIndex(id)
	if i < 0 {
		return model.Patient{}, false
	}
	return s.patients[i].Clone(), true
}

// Appointments returns a copy of all appointments in booking order
func (s *Store) Appointments() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Appointment{}, s.appointments...)
}

// Feedback returns a copy of all feedback entries
func (s *Store) Feedback() []model.AppFeedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.AppFeedback{}, s.feedback...)
}

// TriageStatus is the dashboard label derived from a patient's latest reading
type TriageStatus string

const (
	TriageCritical     TriageStatus = "Critical"
	TriageReviewNeeded TriageStatus = "Review Needed"
	TriageStable       TriageStatus = "Stable"
	TriageNoData       TriageStatus = "New / No Data"
)

// TriageEntry is one row of the doctor's patient list
type TriageEntry struct {
	Patient   model.Patient   `json:"patient"`
	Status    TriageStatus    `json:"status"`
	LatestLog *model.VitalLog `json:"latestLog,omitempty"`
}

// TriageView is the doctor's patient list with the number needing attention
type TriageView struct {
	Patients       []TriageEntry `json:"patients"`
	AttentionCount int           `json:"attentionCount"`
}

// ClassifyPatient labels a patient by the status of their newest log
func ClassifyPatient(p model.Patient) (TriageStatus, *model.VitalLog) {
	latest, ok := p.LatestLog()
	if !ok {
		return TriageNoData, nil
	}

	switch latest.Status {
	case model.VitalStatusCritical, model.VitalStatusHigh:
		return TriageCritical, &latest
	case model.VitalStatusElevated:
		return TriageReviewNeeded, &latest
	default:
		return TriageStable, &latest
	}
}

// Triage returns patients whose name or any condition contains query,
// highest risk first. AttentionCount covers all patients, not just matches.
func (s *Store) Triage(query string) TriageView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	view := TriageView{Patients: []TriageEntry{}}

	for _, p := range s.patients {
		status, latest := ClassifyPatient(p)
		if status == TriageCritical || status == TriageReviewNeeded {
			view.AttentionCount++
		}
		if !matchesQuery(p, q) {
			continue
		}
		view.Patients = append(view.Patients, TriageEntry{
			Patient:   p.Clone(),
			Status:    status,
			LatestLog: latest,
		})
	}

	sort.SliceStable(view.Patients, func(i, j int) bool {
		return view.Patients[i].Patient.RiskScore > view.Patients[j].Patient.RiskScore
	})
	return view
}

func matchesQuery(p model.Patient, q string) bool {
	if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	for _, c := range p.Conditions {
		if strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	return false
}

// Stats is the admin overview of the whole store
type Stats struct {
	TotalPatients        int                             `json:"totalPatients"`
	TotalVitalLogs       int                             `json:"totalVitalLogs"`
	CriticalPatients     int                             `json:"criticalPatients"`
	AppointmentsByStatus map[model.AppointmentStatus]int `json:"appointmentsByStatus"`
	FeedbackCount        int                             `json:"feedbackCount"`
	AverageRating        float64                         `json:"averageRating"`
	UnreadMessages       int                             `json:"unreadMessages"`
	VitalLogsByStatus    map[model.VitalStatus]int       `json:"vitalLogsByStatus"`
}

// criticalRiskThreshold is the score above which a patient counts as critical
const criticalRiskThreshold = 80

// Stats computes aggregate counts across all collections
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalPatients: len(s.patients),
		AppointmentsByStatus: map[model.AppointmentStatus]int{
			model.AppointmentStatusPending:   0,
			model.AppointmentStatusConfirmed: 0,
			model.AppointmentStatusCancelled: 0,
		},
		VitalLogsByStatus: map[model.VitalStatus]int{},
		FeedbackCount:     len(s.feedback),
	}

	for _, p := range s.patients {
		st.TotalVitalLogs += len(p.Logs)
		if p.RiskScore > criticalRiskThreshold {
			st.CriticalPatients++
		}
		st.UnreadMessages += p.UnreadMessages()
		for _, l := range p.Logs {
			st.VitalLogsByStatus[l.Status]++
		}
	}

	for _, a := range s.appointments {
		st.AppointmentsByStatus[a.Status]++
	}

	if len(s.feedback) > 0 {
		total := 0
		for _, f := range s.feedback {
			total += f.Rating
		}
		st.AverageRating = float64(total) / float64(len(s.feedback))
	}

	return st
}

// UpcomingAppointments returns non-cancelled appointments after now, soonest first
func (s *Store) UpcomingAppointments(now time.Time) []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Appointment{}
	for _, a := range s.appointments {
		if a.Status != model.AppointmentStatusCancelled && a.Date.After(now) {
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// PatientAppointments returns the patient's non-cancelled appointments
func (s *Store) PatientAppointments(patientID string) []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Appointment{}
	for _, a := range s.appointments {
		if a.PatientID == patientID && a.Status != model.AppointmentStatusCancelled {
			out = append(out, a)
		}
	}
	return out
}

package store

import (
	"net/url"
	"time"

	"github.com/careplanner/backend/internal/metrics"
	"github.com/careplanner/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	defaultPatientName   = "Sarah Jenkins"
	defaultPatientAvatar = "https://picsum.photos/200"
	doctorAvatar         = "https://ui-avatars.com/api/?name=Dr+Carter&background=0ea5e9&color=fff"
	fallbackAuthor       = "Doctor"
)

// Login replaces the session user with the fixed identity for role
func (s *Store) Login(role model.Role) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user model.User
	switch role {
	case model.RolePatient:
		user = model.User{ID: "p1", Name: defaultPatientName, Role: model.RolePatient, Avatar: defaultPatientAvatar}
		if i := s.patientIndex("p1"); i >= 0 {
			if name := s.patients[i].Name; name != "" {
				user.Name = name
			}
			if avatar := s.patients[i].Avatar; avatar != "" {
				user.Avatar = avatar
			}
		}
	case model.RoleDoctor:
		user = model.User{ID: "d1", Name: "Dr. Carter", Role: model.RoleDoctor, Avatar: doctorAvatar}
	case model.RoleAdmin:
		user = model.User{ID: "a1", Name: "Admin User", Role: model.RoleAdmin}
	default:
		return model.User{}, ErrInvalidRole
	}

	s.currentUser = &user
	s.persistCurrentUser()
	metrics.RecordStoreMutation("login", true)

	s.logger.Info("session started", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Logout clears the session user and removes it from storage
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentUser = nil
	s.persistCurrentUser()
	metrics.RecordStoreMutation("logout", true)
}

// AddVitalLog prepends log to the patient's history and adjusts the risk
// score. Missing id and timestamp are filled in. Returns false if the
// patient does not exist.
func (s *Store) AddVitalLog(patientID string, log model.VitalLog) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.patientIndex(patientID)
	if i < 0 {
		metrics.RecordStoreMutation("add_vital_log", false)
		return false
	}

	if log.ID == "" {
		log.ID = s.newID()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = s.clock()
	}

	p := &s.patients[i]
	before := p.RiskScore
	p.RiskScore = s.risk.Apply(p.RiskScore, log.Status)
	p.Logs = append([]model.VitalLog{log}, p.Logs...)

	s.persistPatients()
	metrics.RecordStoreMutation("add_vital_log", true)
	metrics.RecordVitalLog(string(log.Status))

	s.logger.Info("vital log added",
		zap.String("patient_id", patientID),
		zap.String("status", string(log.Status)),
		zap.Int("risk_before", before),
		zap.Int("risk_after", p.RiskScore),
	)
	return true
}

// UpdatePatient replaces the patient with the same id. When it is the
// session user's record, the session name and avatar follow.
func (s *Store) UpdatePatient(patient model.Patient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.patientIndex(patient.ID)
	if i < 0 {
		metrics.RecordStoreMutation("update_patient", false)
		return false
	}

	s.patients[i] = patient.Clone()
	s.persistPatients()

	if s.currentUser != nil && s.currentUser.ID == patient.ID {
		s.currentUser.Name = patient.Name
		if patient.Avatar != "" {
			s.currentUser.Avatar = patient.Avatar
		}
		s.persistCurrentUser()
	}

	metrics.RecordStoreMutation("update_patient", true)
	return true
}

// AddPatient registers a new patient at the top of the list. Condition
// labels follow the same rules as AddConditions; on a validation error
// nothing is stored.
func (s *Store) AddPatient(draft model.NewPatient) (model.Patient, error) {
	conditions, err := model.ValidateConditions(draft.Conditions)
	if err != nil {
		return model.Patient{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patient := model.Patient{
		ID:         "p" + s.newID(),
		Name:       draft.Name,
		Age:        draft.Age,
		Conditions: conditions,
		RiskScore:  0,
		Logs:       []model.VitalLog{},
		Messages:   []model.DoctorMessage{},
		Notes:      draft.Notes,
		Avatar:     "https://ui-avatars.com/api/?name=" + url.QueryEscape(draft.Name) + "&background=random",
	}

	s.patients = append([]model.Patient{patient}, s.patients...)
	s.persistPatients()
	metrics.RecordStoreMutation("add_patient", true)

	s.logger.Info("patient added", zap.String("patient_id", patient.ID))
	return patient.Clone(), nil
}

// SendDoctorMessage prepends an unread message authored by the session user
func (s *Store) SendDoctorMessage(patientID, text string, msgType model.MessageType) (model.DoctorMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.patientIndex(patientID)
	if i < 0 {
		metrics.RecordStoreMutation("send_doctor_message", false)
		return model.DoctorMessage{}, false
	}

	author := fallbackAuthor
	if s.currentUser != nil && s.currentUser.Name != "" {
		author = s.currentUser.Name
	}

	msg := model.DoctorMessage{
		ID:         s.newID(),
		DoctorName: author,
		Text:       text,
		Date:       s.clock(),
		Type:       msgType,
		IsRead:     false,
	}

	p := &s.patients[i]
	p.Messages = append([]model.DoctorMessage{msg}, p.Messages...)
	s.persistPatients()
	metrics.RecordStoreMutation("send_doctor_message", true)

	return msg, true
}

// MarkMessagesRead marks all of the patient's messages as read
func (s *Store) MarkMessagesRead(patientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.patientIndex(patientID)
	if i < 0 {
		metrics.RecordStoreMutation("mark_messages_read", false)
		return false
	}

	msgs := make([]model.DoctorMessage, len(s.patients[i].Messages))
	for j, m := range s.patients[i].Messages {
		m.IsRead = true
		msgs[j] = m
	}
	s.patients[i].Messages = msgs

	s.persistPatients()
	metrics.RecordStoreMutation("mark_messages_read", true)
	return true
}

// BookAppointment appends a confirmed appointment. Overlapping slots are
// accepted; conflict checks belong to the caller.
func (s *Store) BookAppointment(draft model.NewAppointment) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt := model.Appointment{
		ID:          s.newID(),
		PatientID:   draft.PatientID,
		PatientName: draft.PatientName,
		DoctorName:  draft.DoctorName,
		Date:        draft.Date.UTC().Truncate(time.Millisecond),
		Type:        draft.Type,
		Status:      model.AppointmentStatusConfirmed,
		Reason:      draft.Reason,
	}

	s.appointments = append(s.appointments, appt)
	s.persistAppointments()
	metrics.RecordStoreMutation("book_appointment", true)

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("patient_id", appt.PatientID),
		zap.Time("date", appt.Date),
	)
	return appt
}

// CancelAppointment sets the appointment's status to cancelled. Cancelling
// twice is harmless.
func (s *Store) CancelAppointment(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.appointments {
		if s.appointments[i].ID == id {
			s.appointments[i].Status = model.AppointmentStatusCancelled
			s.persistAppointments()
			metrics.RecordStoreMutation("cancel_appointment", true)
			return true
		}
	}

	metrics.RecordStoreMutation("cancel_appointment", false)
	return false
}

// AddFeedback appends a feedback entry stamped with the current time
func (s *Store) AddFeedback(draft model.NewFeedback) model.AppFeedback {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb := model.AppFeedback{
		ID:        s.newID(),
		UserID:    draft.UserID,
		UserName:  draft.UserName,
		Rating:    draft.Rating,
		Comment:   draft.Comment,
		Timestamp: s.clock(),
	}

	s.feedback = append(s.feedback, fb)
	s.persistFeedback()
	metrics.RecordStoreMutation("add_feedback", true)
	return fb
}

// AddConditions validates a comma separated input and merges it into the
// patient's conditions. found is false when the patient does not exist; a
// validation error leaves the list unchanged.
func (s *Store) AddConditions(patientID, input string) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.patientIndex(patientID)
	if i < 0 {
		metrics.RecordStoreMutation("add_conditions", false)
		return false, nil
	}

	merged, err := model.MergeConditions(s.patients[i].Conditions, input)
	if err != nil {
		return true, err
	}
	if len(merged) == len(s.patients[i].Conditions) {
		return true, nil
	}

	s.patients[i].Conditions = merged
	s.persistPatients()
	metrics.RecordStoreMutation("add_conditions", true)
	return true, nil
}

// RemoveCondition drops the condition at index from the patient's list
func (s *Store) RemoveCondition(patientID string, index int) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.patientIndex(patientID)
	if i < 0 {
		metrics.RecordStoreMutation("remove_condition", false)
		return false, nil
	}

	remaining, err := model.RemoveCondition(s.patients[i].Conditions, index)
	if err != nil {
		return true, err
	}

	s.patients[i].Conditions = remaining
	s.persistPatients()
	metrics.RecordStoreMutation("remove_condition", true)
	return true, nil
}

func (s *Store) patientIndex(id string) int {
	for i := range s.patients {
		if s.patients[i].ID == id {
			return i
		}
	}
	return -1
}

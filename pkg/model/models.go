package model

import "time"

// Role represents the role a session user logged in with
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// User represents the current session identity
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	Email  string `json:"email,omitempty"`
}

// VitalStatus is the classification attached to a vital log
type VitalStatus string

const (
	VitalStatusNormal   VitalStatus = "Normal"
	VitalStatusElevated VitalStatus = "Elevated"
	VitalStatusHigh     VitalStatus = "High"
	VitalStatusCritical VitalStatus = "Critical"
)

// Valid reports whether s is one of the known statuses
func (s VitalStatus) Valid() bool {
	switch s {
	case VitalStatusNormal, VitalStatusElevated, VitalStatusHigh, VitalStatusCritical:
		return true
	}
	return false
}

// VitalLog represents a single blood pressure and glucose reading
type VitalLog struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Systolic  int         `json:"systolic"`
	Diastolic int         `json:"diastolic"`
	Glucose   int         `json:"glucose"` // mg/dL
	Status    VitalStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
}

// MessageType represents the kind of doctor message
type MessageType string

const (
	MessageTypePrescription MessageType = "prescription"
	MessageTypeNote         MessageType = "note"
	MessageTypeAlert        MessageType = "alert"
)

// Valid reports whether t is one of the known message types
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypePrescription, MessageTypeNote, MessageTypeAlert:
		return true
	}
	return false
}

// DoctorMessage represents a message from the care team to a patient
type DoctorMessage struct {
	ID         string      `json:"id"`
	DoctorName string      `json:"doctorName"`
	Text       string      `json:"text"`
	Date       time.Time   `json:"date"`
	Type       MessageType `json:"type"`
	IsRead     bool        `json:"isRead"`
}

// Patient represents a patient record with its vitals and message history
type Patient struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Age        int             `json:"age"`
	Conditions []string        `json:"condition"`
	RiskScore  int             `json:"riskScore"` // 0-100
	Logs       []VitalLog      `json:"logs"`
	Notes      string          `json:"notes,omitempty"`
	Messages   []DoctorMessage `json:"messages"`
	Avatar     string          `json:"avatar,omitempty"`
}

// Clone returns a deep copy of the patient
func (p Patient) Clone() Patient {
	out := p
	out.Conditions = append([]string{}, p.Conditions...)
	out.Logs = append([]VitalLog{}, p.Logs...)
	out.Messages = append([]DoctorMessage{}, p.Messages...)
	return out
}

// LatestLog returns the log with the newest timestamp, regardless of list order
func (p Patient) LatestLog() (VitalLog, bool) {
	if len(p.Logs) == 0 {
		return VitalLog{}, false
	}
	latest := p.Logs[0]
	for _, l := range p.Logs[1:] {
		if l.Timestamp.After(latest.Timestamp) {
			latest = l
		}
	}
	return latest, true
}

// UnreadMessages counts messages the patient has not read yet
func (p Patient) UnreadMessages() int {
	n := 0
	for _, m := range p.Messages {
		if !m.IsRead {
			n++
		}
	}
	return n
}

// NewPatient holds the caller-supplied fields of a patient being registered
type NewPatient struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Conditions []string `json:"condition"`
	Notes      string   `json:"notes,omitempty"`
}

// AppointmentType represents how an appointment takes place
type AppointmentType string

const (
	AppointmentTypeVideo    AppointmentType = "video"
	AppointmentTypeInPerson AppointmentType = "in-person"
)

// Valid reports whether t is one of the known appointment types
func (t AppointmentType) Valid() bool {
	return t == AppointmentTypeVideo || t == AppointmentTypeInPerson
}

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment represents a booked consultation
type Appointment struct {
	ID          string            `json:"id"`
	PatientID   string            `json:"patientId"`
	PatientName string            `json:"patientName"`
	DoctorName  string            `json:"doctorName"`
	Date        time.Time         `json:"date"`
	Type        AppointmentType   `json:"type"`
	Status      AppointmentStatus `json:"status"`
	Reason      string            `json:"reason,omitempty"`
}

// NewAppointment holds the caller-supplied fields of an appointment being booked
type NewAppointment struct {
	PatientID   string          `json:"patientId"`
	PatientName string          `json:"patientName"`
	DoctorName  string          `json:"doctorName"`
	Date        time.Time       `json:"date"`
	Type        AppointmentType `json:"type"`
	Reason      string          `json:"reason,omitempty"`
}

// AppFeedback represents a rating left by a user about the application
type AppFeedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"` // 1-5
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFeedback holds the caller-supplied fields of a feedback entry
type NewFeedback struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
}

// ChatRole represents the author of a chat message
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatFeedback represents a patient's reaction to an assistant reply
type ChatFeedback string

const (
	ChatFeedbackHelpful   ChatFeedback = "helpful"
	ChatFeedbackUnhelpful ChatFeedback = "unhelpful"
)

// ChatMessage represents one turn of the assistant conversation
type ChatMessage struct {
	ID        string       `json:"id"`
	Role      ChatRole     `json:"role"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Feedback  ChatFeedback `json:"feedback,omitempty"`
}

// VitalsReading is the raw measurement submitted for analysis
type VitalsReading struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
	Glucose   int `json:"glucose"`
}

// AIAnalysisResult represents the structured analysis of a vitals reading
type AIAnalysisResult struct {
	RiskLevel                 VitalStatus `json:"riskLevel"`
	PatientAdvice             string      `json:"patientAdvice"`
	DoctorAlert               string      `json:"doctorAlert"`
	ActionPlan                []string    `json:"actionPlan"`
	RecommendedClinicalAction string      `json:"recommendedClinicalAction,omitempty"`
}

package store

import (
	"time"

	"github.com/careplanner/backend/pkg/model"
)

const day = 24 * time.Hour

// SeedPatients returns the demo patients with timestamps relative to now
func SeedPatients(now time.Time) []model.Patient {
	return []model.Patient{
		{
			ID:         "p1",
			Name:       "Sarah Jenkins",
			Age:        45,
			Conditions: []string{"Hypertension", "Type 2 Diabetes"},
			RiskScore:  45,
			Messages: []model.DoctorMessage{
				{
					ID:         "m1",
					DoctorName: "Dr. Carter",
					Text:       "Welcome to your new care dashboard. Please log your vitals daily.",
					Date:       now.Add(-10 * day),
					Type:       model.MessageTypeNote,
					IsRead:     true,
				},
			},
			Logs: []model.VitalLog{
				{ID: "1", Timestamp: now.Add(-day), Systolic: 135, Diastolic: 85, Glucose: 110, Status: model.VitalStatusElevated},
				{ID: "2", Timestamp: now.Add(-2 * day), Systolic: 122, Diastolic: 78, Glucose: 102, Status: model.VitalStatusNormal},
			},
			Avatar: "https://picsum.photos/200",
		},
		{
			ID:         "p2",
			Name:       "Michael Chen",
			Age:        52,
			Conditions: []string{"Type 2 Diabetes"},
			RiskScore:  20,
			Messages:   []model.DoctorMessage{},
			Logs: []model.VitalLog{
				{ID: "3", Timestamp: now.Add(-4000 * time.Second), Systolic: 118, Diastolic: 75, Glucose: 95, Status: model.VitalStatusNormal},
			},
		},
		{
			ID:         "p3",
			Name:       "David Miller",
			Age:        68,
			Conditions: []string{"Hypertension", "Arrhythmia"},
			RiskScore:  85,
			Messages:   []model.DoctorMessage{},
			Logs: []model.VitalLog{
				{ID: "4", Timestamp: now.Add(-20 * time.Minute), Systolic: 160, Diastolic: 100, Glucose: 105, Status: model.VitalStatusCritical},
			},
		},
	}
}

// SeedAppointments returns the demo appointment list
func SeedAppointments(now time.Time) []model.Appointment {
	return []model.Appointment{
		{
			ID:          "a1",
			PatientID:   "p1",
			PatientName: "Sarah Jenkins",
			DoctorName:  "Dr. Carter",
			Date:        now.Add(2 * day),
			Type:        model.AppointmentTypeVideo,
			Status:      model.AppointmentStatusConfirmed,
			Reason:      "Monthly checkup",
		},
	}
}

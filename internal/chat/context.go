package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/careplanner/backend/pkg/model"
)

const (
	contextVitals   = 10
	contextMessages = 3
)

// BuildPatientContext summarizes a patient for the assistant's system prompt:
// profile, risk score, the newest vitals and the newest doctor messages
func BuildPatientContext(p model.Patient) string {
	conditions := "no chronic conditions"
	if len(p.Conditions) > 0 {
		conditions = strings.Join(p.Conditions, ", ")
	}

	logs := append([]model.VitalLog{}, p.Logs...)
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	if len(logs) > contextVitals {
		logs = logs[:contextVitals]
	}

	vitals := "No vitals recorded yet."
	if len(logs) > 0 {
		lines := make([]string, len(logs))
		for i, l := range logs {
			lines[i] = fmt.Sprintf("- %s: BP %d/%d mmHg, Glucose %d mg/dL (%s)",
				l.Timestamp.Format("01/02/2006 03:04 PM"), l.Systolic, l.Diastolic, l.Glucose, l.Status)
		}
		vitals = strings.Join(lines, "\n")
	}

	msgs := append([]model.DoctorMessage{}, p.Messages...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Date.After(msgs[j].Date) })
	if len(msgs) > contextMessages {
		msgs = msgs[:contextMessages]
	}

	instructions := "No recent messages from the care team."
	if len(msgs) > 0 {
		lines := make([]string, len(msgs))
		for i, m := range msgs {
			lines[i] = fmt.Sprintf("- [%s] %s (%s): %q",
				m.Date.Format("01/02/2006"), doctorLabel(m.DoctorName), m.Type, m.Text)
		}
		instructions = strings.Join(lines, "\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "PATIENT SUMMARY: Patient is a %d-year-old individual managing %s.\n\n", p.Age, conditions)
	sb.WriteString("DETAILED PROFILE:\n")
	fmt.Fprintf(&sb, "Name: %s\nAge: %d\nConditions: %s\n", p.Name, p.Age, conditions)
	fmt.Fprintf(&sb, "Current Risk Score: %d (Scale 0-100)\n\n", p.RiskScore)
	fmt.Fprintf(&sb, "RECENT VITALS HISTORY (Newest First):\n%s\n\n", vitals)
	fmt.Fprintf(&sb, "DOCTOR'S RECENT INSTRUCTIONS:\n%s\n\n", instructions)
	sb.WriteString("INSTRUCTIONS FOR AI:\n")
	fmt.Fprintf(&sb, "- Tailor advice to the patient's age (%d) and specific conditions (%s).\n", p.Age, conditions)
	sb.WriteString("- Use the vitals history to identify trends (e.g., \"I noticed your blood pressure is trending down\").\n")
	sb.WriteString("- Reference doctor instructions if relevant to the user's question.\n")
	sb.WriteString("- Keep responses encouraging but clinically grounded.\n")
	return sb.String()
}

func doctorLabel(name string) string {
	if strings.HasPrefix(name, "Dr.") || strings.HasPrefix(name, "Dr ") {
		return name
	}
	return "Dr. " + name
}

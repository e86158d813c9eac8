package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/careplanner/backend/pkg/model"
)

const coachInstruction = "You are a compassionate and knowledgeable medical AI assistant named 'CareCoach'. " +
	"Your goal is to help patients manage chronic conditions like Diabetes and Hypertension. " +
	"Be encouraging, concise, and always advise consulting a doctor for serious symptoms. " +
	"Do not provide medical diagnoses, but offer lifestyle and management advice."

// SystemInstruction returns the chat system prompt, personalized when a
// patient context is available
func SystemInstruction(patientContext string) string {
	if strings.TrimSpace(patientContext) == "" {
		return coachInstruction
	}
	return coachInstruction +
		"\n\nIMPORTANT: You are assisting a specific patient. Use the following context to personalize your advice, " +
		"but do not simply recite their data unless asked.\n\nPATIENT CONTEXT:\n" + patientContext
}

// AnalysisPrompt builds the instruction sent with a vitals reading
func AnalysisPrompt(r model.VitalsReading) string {
	praise := "levels"
	if r.Systolic < 120 && r.Glucose < 100 {
		praise = "vitals"
	}

	return fmt.Sprintf(`Analyze the following patient vitals:
Blood Pressure: %d/%d mmHg
Blood Glucose: %d mg/dL

Standard Reference Ranges:
- Blood Pressure: Normal <120/80. Elevated 120-129/<80. High Stage 1 130-139/80-89. High Stage 2 140+/90+. Hypertensive Crisis >180/>120.
- Blood Glucose (Fasting): Normal <100. Prediabetes 100-125. Diabetes >126.

Task:
Provide a JSON response with the following structure:
- riskLevel: "Normal", "Elevated", "High", or "Critical" based on the highest risk metric.
- patientAdvice: A short, calming, and actionable tip for the patient (max 2 sentences).
  CONTEXT AWARENESS RULES:
  1. If Blood Pressure is the primary concern (>120/80), the advice MUST mention "blood pressure" and suggest relaxation, checking cuff position, or hydration.
  2. If Glucose is the primary concern (>100), the advice MUST mention "glucose" or "sugar" and suggest water intake or activity.
  3. If both are high, mention both but focus on the most critical risk.
  4. If Normal, praise the patient for maintaining healthy %s.
- doctorAlert: A concise clinical summary for the doctor highlighting the concern.
- actionPlan: An array of 3 short immediate steps.
- recommendedClinicalAction: One short phrase for the doctor's next step (e.g., "Continue Monitoring", "Schedule Follow-up", "Review Medication").`,
		r.Systolic, r.Diastolic, r.Glucose, praise)
}

var riskLevels = []string{
	string(model.VitalStatusNormal),
	string(model.VitalStatusElevated),
	string(model.VitalStatusHigh),
	string(model.VitalStatusCritical),
}

// ActionPlanSteps is the exact length of an analysis action plan
const ActionPlanSteps = 3

var analysisFields = []string{"riskLevel", "patientAdvice", "doctorAlert", "actionPlan", "recommendedClinicalAction"}

// analysisSchema is the JSON schema for model.AIAnalysisResult. typeName maps
// the lowercase JSON schema type to the provider's spelling.
func analysisSchema(typeName func(string) string) map[string]any {
	str := map[string]any{"type": typeName("string")}
	return map[string]any{
		"type": typeName("object"),
		"properties": map[string]any{
			"riskLevel":                 map[string]any{"type": typeName("string"), "enum": riskLevels},
			"patientAdvice":             str,
			"doctorAlert":               str,
			"actionPlan":                map[string]any{"type": typeName("array"), "items": str},
			"recommendedClinicalAction": str,
		},
		"required": analysisFields,
	}
}

// parseAnalysis decodes and validates a model's JSON answer
func parseAnalysis(raw string) (model.AIAnalysisResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var result model.AIAnalysisResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return model.AIAnalysisResult{}, fmt.Errorf("failed to parse analysis: %w", err)
	}
	if !result.RiskLevel.Valid() {
		return model.AIAnalysisResult{}, fmt.Errorf("invalid risk level %q", result.RiskLevel)
	}
	if result.PatientAdvice == "" || result.DoctorAlert == "" {
		return model.AIAnalysisResult{}, fmt.Errorf("analysis is missing advice or alert")
	}
	if len(result.ActionPlan) != ActionPlanSteps {
		return model.AIAnalysisResult{}, fmt.Errorf("action plan has %d steps, want %d", len(result.ActionPlan), ActionPlanSteps)
	}
	return result, nil
}

package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePatient(t *testing.T, body []byte) model.Patient {
	t.Helper()
	var p model.Patient
	require.NoError(t, json.Unmarshal(body, &p), string(body))
	return p
}

func triageIDs(view store.TriageView) []string {
	ids := make([]string, len(view.Patients))
	for i, e := range view.Patients {
		ids[i] = e.Patient.ID
	}
	return ids
}

func TestListPatients(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all by risk", query: "", want: []string{"p3", "p1", "p2"}},
		{name: "by condition", query: "?q=diabetes", want: []string{"p1", "p2"}},
		{name: "by name", query: "?q=MILLER", want: []string{"p3"}},
		{name: "no match", query: "?q=asthma", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, model.RoleDoctor)

			w := env.do(t, http.MethodGet, "/api/v1/patients"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var view store.TriageView
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
			assert.Equal(t, tt.want, triageIDs(view))
		})
	}
}

func TestCreatePatient(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodPost, "/api/v1/patients", map[string]any{
		"name":      "  Ana Lopez ",
		"age":       34,
		"condition": []string{"Asthma", "asthma", " "},
		"notes":     "Referred by GP",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodePatient(t, w.Body.Bytes())
	assert.True(t, strings.HasPrefix(created.ID, "p"))
	assert.Equal(t, "Ana Lopez", created.Name)
	assert.Equal(t, 34, created.Age)
	assert.Equal(t, []string{"Asthma"}, created.Conditions)
	assert.Equal(t, "Referred by GP", created.Notes)
	assert.Contains(t, created.Avatar, "Ana+Lopez")

	w = env.do(t, http.MethodGet, "/api/v1/patients/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decodePatient(t, w.Body.Bytes()).ID)

	assert.Len(t, env.store.Patients(), 4)
	assert.Equal(t, 1, env.auditCount(audit.ResourcePatient))
}

func TestCreatePatient_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "blank name", body: map[string]any{"name": "   ", "age": 30}},
		{name: "missing name", body: map[string]any{"age": 30}},
		{name: "age too high", body: map[string]any{"name": "Old", "age": 200}},
		{name: "negative age", body: map[string]any{"name": "Young", "age": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, model.RoleDoctor)

			w := env.do(t, http.MethodPost, "/api/v1/patients", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, api.CodeValidation, decodeError(t, w).Code)
			assert.Len(t, env.store.Patients(), 3)
		})
	}
}

func TestCreatePatient_InvalidConditions(t *testing.T) {
	tests := []struct {
		name       string
		conditions []string
		message    string
	}{
		{
			name:       "markup",
			conditions: []string{"Asthma", "<script>alert(1)</script>"},
			message:    model.ErrConditionInvalidChars.Error(),
		},
		{
			name:       "label too long",
			conditions: []string{strings.Repeat("A", 45)},
			message:    model.ErrConditionTooLong.Error(),
		},
		{
			name: "more labels than allowed",
			conditions: []string{
				"Conda", "Condb", "Condc", "Condd", "Conde", "Condf", "Condg",
				"Condh", "Condi", "Condj", "Condk", "Condl",
			},
			message: (&model.ConditionQuotaError{Available: model.MaxConditions}).Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, model.RoleDoctor)

			w := env.do(t, http.MethodPost, "/api/v1/patients", map[string]any{
				"name":      "Ana Lopez",
				"age":       34,
				"condition": tt.conditions,
			})
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decodeError(t, w)
			assert.Equal(t, api.CodeValidation, resp.Code)
			assert.Equal(t, tt.message, resp.Message)
			assert.Len(t, env.store.Patients(), 3)
			assert.Zero(t, env.auditCount(audit.ResourcePatient))
		})
	}
}

func TestUpdatePatient(t *testing.T) {
	t.Run("patient edits own notes", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, model.RolePatient)

		w := env.do(t, http.MethodPut, "/api/v1/patients/p1", map[string]any{"notes": "Prefers mornings"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		updated := decodePatient(t, w.Body.Bytes())
		assert.Equal(t, "Prefers mornings", updated.Notes)
		assert.Equal(t, "Sarah Jenkins", updated.Name)
		assert.Equal(t, 45, updated.RiskScore)
	})

	t.Run("patient cannot edit another record", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, model.RolePatient)

		w := env.do(t, http.MethodPut, "/api/v1/patients/p2", map[string]any{"notes": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("doctor renames", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, model.RoleDoctor)

		w := env.do(t, http.MethodPut, "/api/v1/patients/p2", map[string]any{"name": "Mike Chen", "age": 53})
		require.Equal(t, http.StatusOK, w.Code)

		p, ok := env.store.Patient("p2")
		require.True(t, ok)
		assert.Equal(t, "Mike Chen", p.Name)
		assert.Equal(t, 53, p.Age)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, model.RoleDoctor)

		w := env.do(t, http.MethodPut, "/api/v1/patients/p2", map[string]any{"name": " "})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		p, _ := env.store.Patient("p2")
		assert.Equal(t, "Michael Chen", p.Name)
	})

	t.Run("unknown patient", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t, model.RoleDoctor)

		w := env.do(t, http.MethodPut, "/api/v1/patients/p99", map[string]any{"notes": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAddConditions(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodPost, "/api/v1/patients/p2/conditions", map[string]any{
		"input": "Asthma, type 2 diabetes, Hypertension",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"Type 2 Diabetes", "Asthma", "Hypertension"}, decodePatient(t, w.Body.Bytes()).Conditions)
	assert.Equal(t, 1, env.auditCount(audit.ResourceCondition))
}

func TestAddConditions_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		input   string
		status  int
		message string
	}{
		{name: "over quota", id: "p3", input: "a, b, c, d, e, f, g, h, i", status: http.StatusBadRequest, message: "You can only add 8 more condition(s)."},
		{name: "invalid characters", id: "p3", input: "Asthma; DROP", status: http.StatusBadRequest, message: model.ErrConditionInvalidChars.Error()},
		{name: "too long", id: "p3", input: strings.Repeat("x", 31), status: http.StatusBadRequest, message: model.ErrConditionTooLong.Error()},
		{name: "unknown patient", id: "p99", input: "Asthma", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, model.RoleDoctor)

			w := env.do(t, http.MethodPost, "/api/v1/patients/"+tt.id+"/conditions", map[string]any{"input": tt.input})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, decodeError(t, w).Message)
			}

			p, _ := env.store.Patient("p3")
			assert.Equal(t, []string{"Hypertension", "Arrhythmia"}, p.Conditions)
		})
	}
}

func TestAddConditions_QuotaMessage(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodPost, "/api/v1/patients/p3/conditions", map[string]any{
		"input": "a, b, c, d, e, f, g, h, i",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	quota := &model.ConditionQuotaError{Available: 8}
	assert.Equal(t, quota.Error(), decodeError(t, w).Message)
}

func TestRemoveCondition(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RolePatient)

	w := env.do(t, http.MethodDelete, "/api/v1/patients/p1/conditions/0", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"Type 2 Diabetes"}, decodePatient(t, w.Body.Bytes()).Conditions)

	w = env.do(t, http.MethodDelete, "/api/v1/patients/p1/conditions/5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/patients/p1/conditions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	p, _ := env.store.Patient("p1")
	assert.Equal(t, []string{"Type 2 Diabetes"}, p.Conditions)
}

func TestLogVitals(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RolePatient)

	w := env.do(t, http.MethodPost, "/api/v1/patients/p1/vitals", map[string]any{
		"systolic":  150,
		"diastolic": 95,
		"glucose":   130,
		"note":      "after walk",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.VitalsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, env.analyzer.result, resp.Analysis)
	assert.Equal(t, model.VitalStatusHigh, resp.Log.Status)
	assert.Equal(t, "after walk", resp.Log.Note)
	assert.Equal(t, 150, resp.Log.Systolic)
	assert.True(t, resp.Log.Timestamp.Equal(fixedNow))
	assert.Equal(t, 60, resp.RiskScore)

	p, _ := env.store.Patient("p1")
	require.NotEmpty(t, p.Logs)
	assert.Equal(t, resp.Log.ID, p.Logs[0].ID)
	assert.Equal(t, 60, p.RiskScore)
	assert.Equal(t, 1, env.analyzer.callCount())
	assert.Equal(t, 1, env.auditCount(audit.ResourceVitalLog))
}

func TestLogVitals_RejectedBeforeAnalysis(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
	}{
		{
			name:   "other patient",
			path:   "/api/v1/patients/p2/vitals",
			body:   map[string]any{"systolic": 120, "diastolic": 80, "glucose": 90},
			status: http.StatusForbidden,
		},
		{
			name:   "zero reading",
			path:   "/api/v1/patients/p1/vitals",
			body:   map[string]any{"systolic": 0, "diastolic": 80, "glucose": 90},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing glucose",
			path:   "/api/v1/patients/p1/vitals",
			body:   map[string]any{"systolic": 120, "diastolic": 80},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, model.RolePatient)

			w := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Zero(t, env.analyzer.callCount())

			p, _ := env.store.Patient("p1")
			assert.Equal(t, 45, p.RiskScore)
		})
	}
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodPost, "/api/v1/patients/p2/messages", map[string]any{
		"text": "  Increase metformin to 1000mg  ",
		"type": "prescription",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var msg model.DoctorMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "Dr. Carter", msg.DoctorName)
	assert.Equal(t, "Increase metformin to 1000mg", msg.Text)
	assert.Equal(t, model.MessageTypePrescription, msg.Type)
	assert.False(t, msg.IsRead)
	assert.True(t, msg.Date.Equal(fixedNow))

	p, _ := env.store.Patient("p2")
	require.NotEmpty(t, p.Messages)
	assert.Equal(t, msg.ID, p.Messages[0].ID)
}

func TestSendMessage_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		body   map[string]any
		status int
	}{
		{name: "blank text", id: "p2", body: map[string]any{"text": "   ", "type": "note"}, status: http.StatusBadRequest},
		{name: "unknown type", id: "p2", body: map[string]any{"text": "hi", "type": "memo"}, status: http.StatusBadRequest},
		{name: "unknown patient", id: "p99", body: map[string]any{"text": "hi", "type": "note"}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.login(t, model.RoleDoctor)

			w := env.do(t, http.MethodPost, "/api/v1/patients/"+tt.id+"/messages", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestMarkMessagesRead(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodPost, "/api/v1/patients/p1/messages", map[string]any{"text": "Check in tomorrow", "type": "note"})
	require.Equal(t, http.StatusCreated, w.Code)

	p, _ := env.store.Patient("p1")
	require.Equal(t, 1, p.UnreadMessages())

	env.login(t, model.RolePatient)

	w = env.do(t, http.MethodPost, "/api/v1/patients/p2/messages/read", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/patients/p1/messages/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	p, _ = env.store.Patient("p1")
	assert.Zero(t, p.UnreadMessages())
	assert.Len(t, p.Messages, 2)
}

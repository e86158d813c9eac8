package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/careplanner/backend/internal/ai"
	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/internal/chat"
	"github.com/careplanner/backend/internal/kvstore"
	"github.com/careplanner/backend/internal/middleware"
	"github.com/careplanner/backend/internal/pdf"
	"github.com/careplanner/backend/internal/service"
	"github.com/careplanner/backend/internal/store"
	"github.com/careplanner/backend/pkg/api"
	"github.com/careplanner/backend/pkg/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// fakeAnalyzer returns a fixed analysis and counts calls
type fakeAnalyzer struct {
	mu     sync.Mutex
	result model.AIAnalysisResult
	calls  int
}

func (a *fakeAnalyzer) AnalyzeVitals(ctx context.Context, reading model.VitalsReading) model.AIAnalysisResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.result
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// sliceStream replays parts, then reports err
type sliceStream struct {
	parts []string
	err   error
	idx   int
}

func (s *sliceStream) Next() bool {
	if s.idx >= len(s.parts) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceStream) Current() string { return s.parts[s.idx-1] }
func (s *sliceStream) Err() error      { return s.err }
func (s *sliceStream) Close() error    { return nil }

// scriptedChatter answers every message with the same fragments
type scriptedChatter struct {
	parts []string
	err   error
}

func (c *scriptedChatter) StreamChat(ctx context.Context, history []ai.Turn, message, patientContext string) (ai.Stream, error) {
	return &sliceStream{parts: c.parts, err: c.err}, nil
}

type testEnv struct {
	router   *gin.Engine
	store    *store.Store
	blobs    *azure.MockBlobStorageClient
	analyzer *fakeAnalyzer
	chatter  *scriptedChatter
	logs     *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	ctx := context.Background()
	clock := func() time.Time { return fixedNow }

	storage := kvstore.NewMemoryStorage()
	st := store.Open(ctx, storage, zap.NewNop(),
		store.WithClock(clock),
		store.WithIDGenerator(sequentialIDs("id")),
	)
	transcript := chat.Open(ctx, storage, zap.NewNop(),
		chat.WithClock(clock),
		chat.WithIDGenerator(sequentialIDs("c")),
	)

	analyzer := &fakeAnalyzer{result: model.AIAnalysisResult{
		RiskLevel:     model.VitalStatusHigh,
		PatientAdvice: "Rest and re-measure in an hour.",
		DoctorAlert:   "Blood pressure above target.",
		ActionPlan:    []string{"Re-measure", "Reduce salt"},
	}}
	chatter := &scriptedChatter{parts: []string{"Hello ", "Sarah"}}
	blobs := azure.NewMockBlobStorageClient(zap.NewNop())
	auditor := audit.NewLogger(nil, logger)

	reports := service.NewReportService(st, blobs, pdf.NewPDFGenerator(zap.NewNop()), zap.NewNop())

	doc, err := api.GetSwagger()
	require.NoError(t, err)
	validator, err := middleware.OpenAPIValidator(doc, zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SessionMiddleware(st))
	router.Use(validator)

	api.RegisterHandlers(router, &APIHandler{
		System:       NewSystemHandler(storage, "memory", "disabled", zap.NewNop()),
		Session:      NewSessionHandler(st, auditor, zap.NewNop()),
		Patients:     NewPatientHandler(st, analyzer, auditor, zap.NewNop()),
		Appointments: NewAppointmentHandler(st, auditor, clock, zap.NewNop()),
		Admin:        NewAdminHandler(st, auditor, zap.NewNop()),
		Chat:         NewChatHandler(chat.NewSession(transcript, chatter, zap.NewNop()), st, auditor, zap.NewNop()),
		Reports:      NewReportHandler(reports, auditor, zap.NewNop()),
	})

	return &testEnv{
		router:   router,
		store:    st,
		blobs:    blobs,
		analyzer: analyzer,
		chatter:  chatter,
		logs:     logs,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, role model.Role) model.User {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/session/login", map[string]any{"role": role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var user model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	return user
}

func (e *testEnv) auditCount(resource audit.ResourceType) int {
	n := 0
	for _, entry := range e.logs.FilterMessage("Audit log entry").All() {
		if entry.ContextMap()["resource_type"] == string(resource) {
			n++
		}
	}
	return n
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeUnauthorized, decodeError(t, w).Code)

	user := env.login(t, model.RoleDoctor)
	assert.Equal(t, "d1", user.ID)
	assert.Equal(t, "Dr. Carter", user.Name)

	w = env.do(t, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Equal(t, user, current)

	w = env.do(t, http.MethodPost, "/api/v1/session/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, 2, env.auditCount(audit.ResourceSession))
}

func TestLogin_UnknownRole(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/session/login", map[string]any{"role": "nurse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeValidation, decodeError(t, w).Code)

	_, loggedIn := env.store.CurrentUser()
	assert.False(t, loggedIn)
}

func TestLogin_PatientUsesRecordName(t *testing.T) {
	env := newTestEnv(t)

	user := env.login(t, model.RolePatient)
	assert.Equal(t, "p1", user.ID)
	assert.Equal(t, "Sarah Jenkins", user.Name)
	assert.Equal(t, model.RolePatient, user.Role)
}

func TestLogout_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/session/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.auditCount(audit.ResourceSession))
}

func TestRouteGuards(t *testing.T) {
	tests := []struct {
		name   string
		role   model.Role
		method string
		path   string
		body   any
		status int
	}{
		{name: "anonymous triage", method: http.MethodGet, path: "/api/v1/patients", status: http.StatusUnauthorized},
		{name: "anonymous chat", method: http.MethodGet, path: "/api/v1/chat", status: http.StatusUnauthorized},
		{name: "anonymous feedback", method: http.MethodPost, path: "/api/v1/feedback", body: map[string]any{"rating": 5}, status: http.StatusUnauthorized},
		{name: "patient triage", role: model.RolePatient, method: http.MethodGet, path: "/api/v1/patients", status: http.StatusForbidden},
		{name: "patient own record", role: model.RolePatient, method: http.MethodGet, path: "/api/v1/patients/p1", status: http.StatusOK},
		{name: "patient foreign record", role: model.RolePatient, method: http.MethodGet, path: "/api/v1/patients/p2", status: http.StatusForbidden},
		{name: "patient report", role: model.RolePatient, method: http.MethodGet, path: "/api/v1/patients/p1/report", status: http.StatusForbidden},
		{name: "patient admin stats", role: model.RolePatient, method: http.MethodGet, path: "/api/v1/admin/stats", status: http.StatusForbidden},
		{name: "patient sends message", role: model.RolePatient, method: http.MethodPost, path: "/api/v1/patients/p1/messages", body: map[string]any{"text": "hi", "type": "note"}, status: http.StatusForbidden},
		{name: "doctor triage", role: model.RoleDoctor, method: http.MethodGet, path: "/api/v1/patients", status: http.StatusOK},
		{name: "doctor any record", role: model.RoleDoctor, method: http.MethodGet, path: "/api/v1/patients/p3", status: http.StatusOK},
		{name: "doctor chat", role: model.RoleDoctor, method: http.MethodGet, path: "/api/v1/chat", status: http.StatusForbidden},
		{name: "doctor slots", role: model.RoleDoctor, method: http.MethodGet, path: "/api/v1/appointments/slots", status: http.StatusForbidden},
		{name: "doctor logs vitals", role: model.RoleDoctor, method: http.MethodPost, path: "/api/v1/patients/p1/vitals", body: map[string]any{"systolic": 120, "diastolic": 80, "glucose": 90}, status: http.StatusForbidden},
		{name: "doctor admin stats", role: model.RoleDoctor, method: http.MethodGet, path: "/api/v1/admin/stats", status: http.StatusForbidden},
		{name: "admin stats", role: model.RoleAdmin, method: http.MethodGet, path: "/api/v1/admin/stats", status: http.StatusOK},
		{name: "admin appointments", role: model.RoleAdmin, method: http.MethodGet, path: "/api/v1/appointments", status: http.StatusOK},
		{name: "admin creates patient", role: model.RoleAdmin, method: http.MethodPost, path: "/api/v1/patients", body: map[string]any{"name": "X", "age": 30}, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.role != "" {
				env.login(t, tt.role)
			}

			w := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodGet, "/api/v1/patients/p99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeNotFound, decodeError(t, w).Code)
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["storage"])
	assert.Equal(t, "disabled", body["ai"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestGetOpenAPISpec(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Equal(t, api.Spec(), w.Body.Bytes())
}

func TestDownloadPatientReport(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodGet, "/api/v1/patients/p1/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename=p1-\d{8}T\d{6}Z\.pdf$`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, fmt.Sprintf("%d", w.Body.Len()), w.Header().Get("Content-Length"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	blobs := env.blobs.ListBlobs()
	require.Len(t, blobs, 1)
	assert.Regexp(t, `^reports/p1-\d{8}T\d{6}Z\.pdf$`, blobs[0])
	assert.Equal(t, 1, env.auditCount(audit.ResourceReport))
}

func TestDownloadPatientReport_UnknownPatient(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, model.RoleDoctor)

	w := env.do(t, http.MethodGet, "/api/v1/patients/p99/report", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, env.blobs.ListBlobs())
}

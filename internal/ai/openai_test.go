package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := azure.NewOpenAIClient(server.URL, "test-key", "gpt-4o", zap.NewNop(),
		azure.WithRetryPolicy(1, time.Millisecond),
	)
	require.NoError(t, err)
	return NewOpenAIProvider(client, zap.NewNop())
}

func TestOpenAIProvider_AnalyzeVitals(t *testing.T) {
	answer := `{"riskLevel":"High","patientAdvice":"Your glucose is high. Drink water and take a short walk.","doctorAlert":"Glucose 180 mg/dL.","actionPlan":["Drink water","Walk","Recheck"],"recommendedClinicalAction":"Review Medication"}`

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), `"vitals_analysis"`)
		assert.Contains(t, string(body), `"additionalProperties":false`)
		assert.Contains(t, string(body), `Blood Glucose: 180 mg/dL`)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}]}`, answer)
	})

	result, err := p.AnalyzeVitals(context.Background(), model.VitalsReading{Systolic: 118, Diastolic: 76, Glucose: 180})
	require.NoError(t, err)
	assert.Equal(t, model.VitalStatusHigh, result.RiskLevel)
	assert.Equal(t, "Review Medication", result.RecommendedClinicalAction)
}

func TestOpenAIProvider_ShortActionPlanFallsBack(t *testing.T) {
	answer := `{"riskLevel":"High","patientAdvice":"Rest now.","doctorAlert":"BP 150/95.","actionPlan":["Rest"],"recommendedClinicalAction":"Schedule Follow-up"}`

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}]}`, answer)
	})

	_, err := p.AnalyzeVitals(context.Background(), model.VitalsReading{Systolic: 150, Diastolic: 95, Glucose: 100})
	require.Error(t, err)

	svc := NewService(p, 0, time.Second, zap.NewNop())
	assert.Equal(t, FallbackAnalysis(), svc.AnalyzeVitals(context.Background(), model.VitalsReading{Systolic: 150, Diastolic: 95, Glucose: 100}))
}

func TestOpenAIProvider_Ping(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "single word OK")
		assert.NotContains(t, string(body), "json_schema")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"OK"}}]}`)
	})

	var pinger Pinger = p
	reply, err := pinger.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)
}

func TestOpenAIProvider_PingNamesDeployment(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployment gpt-4o")
}

func TestOpenAIProvider_StreamChat(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), `"role":"system"`)
		assert.Contains(t, string(body), `"role":"assistant"`)
		assert.Contains(t, string(body), "CareCoach")

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Keep ", "moving!"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	history := []Turn{{Role: model.ChatRoleUser, Text: "hi"}, {Role: model.ChatRoleModel, Text: "hello"}}
	stream, err := p.StreamChat(context.Background(), history, "motivate me", "")
	require.NoError(t, err)
	defer stream.Close()

	var got string
	for stream.Next() {
		got += stream.Current()
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, "Keep moving!", got)
}

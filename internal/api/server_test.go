package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/evidence"
	"github.com/claimflow/internal/fnol"
	"github.com/claimflow/internal/policy"
	"github.com/claimflow/internal/session"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	deductible := decimal.NewFromInt(500)
	limit := decimal.NewFromInt(20000)
	ledger := policy.NewStaticLedger(&policy.Policy{
		ID:            "pol-1",
		Number:        "AUTO-1001",
		Product:       claim.ProductAuto,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveTo:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Deductible:    &deductible,
		CoverageLimit: &limit,
	})
	machine := fnol.New(session.NewMemory(0), ledger, evidence.NewStaticStore(), fnol.Options{})
	return NewServer(0, machine)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealthEndpoint(t *testing.T) {
	rec, body := doJSON(t, testServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateAndAdvanceSession(t *testing.T) {
	s := testServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/fnol/sessions",
		`{"user_id":"user-1","policy_id":"AUTO-1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	threadID, _ := body["thread_id"].(string)
	require.NotEmpty(t, threadID)
	pending := body["pending_input"].(map[string]any)
	assert.Equal(t, "safety.confirmed", pending["field"])

	rec, body = doJSON(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/fnol/sessions/%s/advance", threadID),
		`{"value":"yes"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(claim.StateIdentityMatch), body["current_state"])
}

func TestCreateSessionUnknownPolicyIs404(t *testing.T) {
	rec, _ := doJSON(t, testServer(t), http.MethodPost, "/api/v1/fnol/sessions",
		`{"policy_id":"MISSING-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvanceUnknownThreadIs404(t *testing.T) {
	rec, _ := doJSON(t, testServer(t), http.MethodPost,
		"/api/v1/fnol/sessions/no-such-thread/advance", `{"value":"yes"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAbandonThenAdvanceIs410(t *testing.T) {
	s := testServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/fnol/sessions",
		`{"policy_id":"AUTO-1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	threadID := body["thread_id"].(string)

	rec, body = doJSON(t, s, http.MethodDelete, "/api/v1/fnol/sessions/"+threadID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(fnol.StatusAbandoned), body["status"])

	rec, _ = doJSON(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/fnol/sessions/%s/advance", threadID), `{"value":"yes"}`)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestValidationErrorsTravelInTheTurnResponse(t *testing.T) {
	s := testServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/fnol/sessions",
		`{"policy_id":"AUTO-1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	threadID := body["thread_id"].(string)

	rec, body = doJSON(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/fnol/sessions/%s/advance", threadID),
		`{"value":"maybe"}`)
	require.Equal(t, http.StatusOK, rec.Code, "validation failures are not transport errors")
	assert.NotEmpty(t, body["validation_errors"])
}

func TestSummaryEndpoint(t *testing.T) {
	s := testServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/fnol/sessions",
		`{"policy_id":"AUTO-1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	threadID := body["thread_id"].(string)

	rec, body = doJSON(t, s, http.MethodGet,
		fmt.Sprintf("/api/v1/fnol/sessions/%s/summary", threadID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["can_submit"])
	assert.NotEmpty(t, body["outstanding_issues"])
}

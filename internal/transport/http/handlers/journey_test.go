package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pms/internal/app/server"
	"pms/internal/domain/appraisal"
	"pms/internal/platform/config"
)

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

const (
	adminNPK      = "admin"
	adminPassword = "admin-password"
	ippID         = "IPP-2026-1001"
)

type harness struct {
	t      *testing.T
	url    string
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Config{
		Addr:               ":0",
		DatabaseURL:        "sqlite::memory:",
		JWTSecret:          "journey-secret",
		TokenTTL:           time.Hour,
		Environment:        "test",
		SeedAdminNPK:       adminNPK,
		SeedAdminPassword:  adminPassword,
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1 << 20,
		MaxUploadBytes:     4 << 20,
		RateLimitPerMinute: 10000,
		EvidenceDir:        t.TempDir(),
		EvidenceBaseURL:    "/files/evidence",
		ReadFanoutLimit:    4,
		MetricsEnabled:     true,
	}

	app, err := server.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return &harness{t: t, url: ts.URL, client: ts.Client()}
}

func (h *harness) do(method, path, token string, body io.Reader, header http.Header) (*http.Response, []byte) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.url+path, body)
	require.NoError(h.t, err)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, raw
}

func (h *harness) json(method, path, token string, payload any, header http.Header) (*http.Response, envelope) {
	h.t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(h.t, err)
		body = bytes.NewReader(encoded)
		if header == nil {
			header = http.Header{}
		}
		header.Set("Content-Type", "application/json")
	}
	resp, raw := h.do(method, path, token, body, header)
	var env envelope
	require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

func (h *harness) expect(status int, method, path, token string, payload any) envelope {
	h.t.Helper()
	resp, env := h.json(method, path, token, payload, nil)
	require.Equal(h.t, status, resp.StatusCode, "%s %s: %+v", method, path, env.Error)
	return env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (h *harness) login(npk, password string) string {
	h.t.Helper()
	env := h.expect(http.StatusOK, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"npk":      npk,
		"password": password,
	})
	result := decodeData[struct {
		Token string `json:"token"`
	}](h.t, env)
	require.NotEmpty(h.t, result.Token)
	return result.Token
}

func (h *harness) createUser(adminToken, npk, role string) string {
	h.t.Helper()
	password := "password-" + npk
	h.expect(http.StatusCreated, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"npk":          npk,
		"name":         "User " + npk,
		"email":        npk + "@example.test",
		"departmentId": "dept-general",
		"role":         role,
		"password":     password,
	})
	return h.login(npk, password)
}

func activity(code, category string, weight float64) map[string]any {
	return map[string]any{
		"code":        code,
		"category":    category,
		"name":        "Activity " + code,
		"kpi":         "KPI " + code,
		"weight":      weight,
		"target":      "100%",
		"deliverable": "Report",
	}
}

func balancedActivities() []map[string]any {
	return []map[string]any{
		activity("R1", "ROUTINE", 0.4),
		activity("R2", "ROUTINE", 0.2),
		activity("N1", "NON_ROUTINE", 0.3),
		activity("P1", "PROJECT", 0.1),
	}
}

func TestAppraisalJourney(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login(adminNPK, adminPassword)
	ownerToken := h.createUser(adminToken, "1001", "USER")
	reviewerToken := h.createUser(adminToken, "3003", "OPERATION")

	created := h.expect(http.StatusCreated, http.MethodPost, "/api/v1/ipps", ownerToken, map[string]any{
		"id":         ippID,
		"year":       2026,
		"categoryId": "cat-staff",
		"activities": balancedActivities(),
	})
	result := decodeData[appraisal.IppResult](t, created)
	require.Len(t, result.Activities, 4)
	assert.True(t, result.Weights.Balanced)
	assert.Equal(t, appraisal.StageDraft, result.Ipp.Stage)

	var r1 string
	for _, a := range result.Activities {
		if a.Code == "R1" {
			r1 = a.ID
		}
	}
	require.NotEmpty(t, r1)

	// Submit twice with the same key; the second call is a replay.
	key := http.Header{"Idempotency-Key": []string{"submit-1"}}
	resp, env := h.json(http.MethodPost, "/api/v1/ipps/"+ippID+"/submit", ownerToken, nil, key)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	assert.Equal(t, appraisal.StageSubmitted, decodeData[appraisal.IppView](t, env).Stage)
	resp, _ = h.json(http.MethodPost, "/api/v1/ipps/"+ippID+"/submit", ownerToken, nil, http.Header{"Idempotency-Key": []string{"submit-1"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))

	// Without the key the repeat hits the workflow guard.
	env = h.expect(http.StatusConflict, http.MethodPost, "/api/v1/ipps/"+ippID+"/submit", ownerToken, nil)
	assert.Equal(t, "invalid_state", env.Error.Code)

	env = h.expect(http.StatusConflict, http.MethodGet, "/api/v1/ipps/"+ippID+"/summary", ownerToken, nil)
	assert.Equal(t, "invalid_state", env.Error.Code)

	h.expect(http.StatusForbidden, http.MethodPatch, "/api/v1/ipps/"+ippID+"/verify", ownerToken, map[string]string{"status": "VERIFIED"})
	h.expect(http.StatusOK, http.MethodPatch, "/api/v1/ipps/"+ippID+"/verify", reviewerToken, map[string]string{"status": "verified"})
	approved := h.expect(http.StatusOK, http.MethodPatch, "/api/v1/ipps/"+ippID+"/approval", reviewerToken, map[string]string{"status": "APPROVED"})
	assert.Equal(t, appraisal.StageApproved, decodeData[appraisal.IppView](t, approved).Stage)

	achievementPath := "/api/v1/ipps/" + ippID + "/activities/" + r1 + "/achievements/3"
	saved := h.expect(http.StatusOK, http.MethodPut, achievementPath, ownerToken, map[string]any{"value": 10, "status": "COUNT"})
	achievement := decodeData[appraisal.Achievement](t, saved)
	assert.Equal(t, appraisal.VerifyPending, achievement.Verify)

	env = h.expect(http.StatusBadRequest, http.MethodPut, "/api/v1/ipps/"+ippID+"/activities/"+r1+"/achievements/13", ownerToken, map[string]any{"value": 1})
	assert.Equal(t, "validation_error", env.Error.Code)

	verified := h.expect(http.StatusOK, http.MethodPatch, "/api/v1/achievements/"+achievement.ID+"/verification", reviewerToken, map[string]string{"status": "VERIFIED"})
	assert.Equal(t, appraisal.VerifyVerified, decodeData[appraisal.Achievement](t, verified).Verify)

	evidence := h.uploadEvidence(ownerToken, achievementPath+"/evidences", "report.pdf", []byte("%PDF-1.4 evidence"))
	assert.Equal(t, "report.pdf", evidence.FileName)
	assert.True(t, evidence.Previewable)

	resp, raw := h.do(http.MethodGet, evidence.FileReference, ownerToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.4 evidence", string(raw))

	listed := h.expect(http.StatusOK, http.MethodGet, achievementPath+"/evidences", ownerToken, nil)
	assert.Len(t, decodeData[[]appraisal.EvidenceView](t, listed), 1)

	summaryEnv := h.expect(http.StatusOK, http.MethodGet, "/api/v1/ipps/"+ippID+"/summary", ownerToken, nil)
	summary := decodeData[appraisal.ExecutiveSummary](t, summaryEnv)
	require.Len(t, summary.Rows, 12)
	march := summary.Rows[2]
	assert.Equal(t, 4, march.TotalActivityCount)
	assert.Equal(t, 1, march.CountedActivityCount)
	assert.Equal(t, 1, march.AchievedCount)
	assert.InDelta(t, 40.0, march.CountedWeightPct, 1e-9)
	assert.InDelta(t, 400.0, march.AchievedWeightPct, 1e-9)
	assert.InDelta(t, 400.0/12, summary.TotalAverage, 1e-9)
	assert.Equal(t, "User 1001", summary.Username)
	assert.Equal(t, "General", summary.Department)
	assert.Equal(t, "Staff", summary.Category)
	assert.Empty(t, summary.Degraded)

	resp, raw = h.do(http.MethodGet, "/api/v1/ipps/"+ippID+"/summary.pdf", ownerToken, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	approvals := decodeData[[]appraisal.MonthlyApproval](t, h.expect(http.StatusOK, http.MethodGet, "/api/v1/ipps/"+ippID+"/monthly-approvals", ownerToken, nil))
	require.Len(t, approvals, 12)
	h.expect(http.StatusOK, http.MethodPatch, "/api/v1/monthly-approvals/"+approvals[2].ID, reviewerToken, map[string]string{"status": "APPROVED"})

	events := h.expect(http.StatusOK, http.MethodGet, "/api/v1/audit/events?entityType=ipp", adminToken, nil)
	var actions []string
	for _, evt := range decodeData[[]struct {
		Action string `json:"action"`
	}](t, events) {
		actions = append(actions, evt.Action)
	}
	assert.Subset(t, actions, []string{"ipp.create", "ipp.submit", "ipp.verify", "ipp.approval"})

	h.expect(http.StatusForbidden, http.MethodGet, "/api/v1/audit/events", ownerToken, nil)
}

func (h *harness) uploadEvidence(token, path, name string, content []byte) appraisal.EvidenceView {
	h.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(h.t, err)
	_, err = part.Write(content)
	require.NoError(h.t, err)
	require.NoError(h.t, writer.Close())

	resp, raw := h.do(http.MethodPost, path, token, body, http.Header{"Content-Type": []string{writer.FormDataContentType()}})
	require.Equal(h.t, http.StatusCreated, resp.StatusCode, string(raw))
	var env envelope
	require.NoError(h.t, json.Unmarshal(raw, &env))
	return decodeData[appraisal.EvidenceView](h.t, env)
}

func TestSubmitRejectsUnbalancedWeights(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login(adminNPK, adminPassword)
	ownerToken := h.createUser(adminToken, "1001", "USER")

	h.expect(http.StatusCreated, http.MethodPost, "/api/v1/ipps", ownerToken, map[string]any{
		"id":         ippID,
		"year":       2026,
		"categoryId": "cat-staff",
		"activities": []map[string]any{activity("R1", "ROUTINE", 0.5)},
	})

	env := h.expect(http.StatusBadRequest, http.MethodPost, "/api/v1/ipps/"+ippID+"/submit", ownerToken, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "weights_invalid", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), string(appraisal.TotalNot100))

	weights := decodeData[appraisal.WeightReport](t, h.expect(http.StatusOK, http.MethodGet, "/api/v1/ipps/"+ippID+"/weights", ownerToken, nil))
	assert.False(t, weights.Balanced)
}

func TestOwnershipAndAuthentication(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login(adminNPK, adminPassword)
	ownerToken := h.createUser(adminToken, "1001", "USER")
	strangerToken := h.createUser(adminToken, "2002", "USER")

	h.expect(http.StatusCreated, http.MethodPost, "/api/v1/ipps", ownerToken, map[string]any{
		"id":         ippID,
		"year":       2026,
		"categoryId": "cat-staff",
	})

	h.expect(http.StatusUnauthorized, http.MethodGet, "/api/v1/ipps/"+ippID, "", nil)
	h.expect(http.StatusForbidden, http.MethodGet, "/api/v1/ipps/"+ippID, strangerToken, nil)
	h.expect(http.StatusNotFound, http.MethodGet, "/api/v1/ipps/missing", ownerToken, nil)

	mine := decodeData[[]appraisal.IppView](t, h.expect(http.StatusOK, http.MethodGet, "/api/v1/ipps", strangerToken, nil))
	assert.Empty(t, mine)
	all := decodeData[[]appraisal.IppView](t, h.expect(http.StatusOK, http.MethodGet, "/api/v1/ipps?stage=draft", adminToken, nil))
	assert.Len(t, all, 1)

	h.expect(http.StatusUnauthorized, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"npk": "1001", "password": "wrong-password"})

	env := h.expect(http.StatusBadRequest, http.MethodPost, "/api/v1/ipps", ownerToken, map[string]any{"year": 2026})
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "categoryId")

	env = h.expect(http.StatusBadRequest, http.MethodPost, "/api/v1/ipps", ownerToken, map[string]any{
		"id":         ippID,
		"year":       2026,
		"categoryId": "cat-staff",
	})
	assert.Equal(t, "validation_error", env.Error.Code)

	me := decodeData[struct {
		NPK   string `json:"npk"`
		Email string `json:"email"`
	}](t, h.expect(http.StatusOK, http.MethodGet, "/api/v1/auth/me", ownerToken, nil))
	assert.Equal(t, "1001", me.NPK)
	assert.Equal(t, "1001@example.test", me.Email)

	other := decodeData[struct {
		Email string `json:"email"`
	}](t, h.expect(http.StatusOK, http.MethodGet, "/api/v1/users/1001", strangerToken, nil))
	assert.Empty(t, other.Email)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(raw))

	resp, _ = h.do(http.MethodGet, "/readyz", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	h.login(adminNPK, adminPassword)
	resp, raw = h.do(http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "pms_http_requests_total")
}

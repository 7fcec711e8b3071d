package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithDetails(rec, http.StatusBadRequest, "weights_invalid", "total is 90%", map[string]string{"kind": "TotalNot100"}, "req-7")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "weights_invalid", body.Error.Code)
	assert.Equal(t, "TotalNot100", body.Error.Details["kind"])
	assert.Equal(t, "req-7", body.RequestID)
}

func TestDeleted(t *testing.T) {
	rec := httptest.NewRecorder()
	Deleted(rec, "IPP-1", "")
	assert.JSONEq(t, `{"success":true,"data":{"id":"IPP-1","deleted":true}}`, rec.Body.String())
}

func TestAttachmentQuotesFilename(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "application/pdf", "executive summary 2025.pdf")
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="executive summary 2025.pdf"`, rec.Header().Get("Content-Disposition"))
}

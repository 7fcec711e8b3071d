package appraisalhandler

import (
	"errors"
	"net/http"

	"pms/internal/domain/appraisal"
	"pms/internal/requestctx"
	"pms/internal/transport/http/api"
	"pms/internal/transport/http/middleware"
	"pms/internal/transport/http/shared"
)

// writeError maps the appraisal error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())

	var weightErr *appraisal.WeightError
	if errors.As(err, &weightErr) {
		api.FailWithDetails(w, http.StatusBadRequest, "weights_invalid", weightErr.Error(), map[string]any{
			"kind":    weightErr.Kind,
			"details": weightErr.Details,
		}, reqID)
		return
	}
	if errors.Is(err, appraisal.ErrFileTooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", reqID)
		return
	}
	var fieldErr *appraisal.FieldError
	if errors.As(err, &fieldErr) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: fieldErr.Field, Reason: fieldErr.Reason}})
		return
	}

	switch appraisal.Kind(err) {
	case appraisal.ErrValidation:
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case appraisal.ErrState:
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case appraisal.ErrForbidden:
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case appraisal.ErrNotFound:
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case appraisal.ErrTransport:
		requestctx.Logger(r.Context()).Error("appraisal storage failure", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusBadGateway, "storage_unavailable", "storage unavailable", reqID)
	default:
		requestctx.Logger(r.Context()).Error("appraisal request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", reqID)
	}
}

package appraisalhandler

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pms/internal/domain/appraisal"
	"pms/internal/transport/http/api"
	"pms/internal/transport/http/middleware"
)

func (h *Handler) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListAchievements(r.Context(), a, chi.URLParam(r, "ippID"), chi.URLParam(r, "activityID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetAchievement(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	achievement, err := h.Service.AchievementForMonth(r.Context(), a, chi.URLParam(r, "ippID"), chi.URLParam(r, "activityID"), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, achievement, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertAchievement(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload achievementRequest
	if !decode(w, r, &payload) {
		return
	}
	achievement, err := h.Service.UpsertAchievement(r.Context(), a, chi.URLParam(r, "ippID"), chi.URLParam(r, "activityID"), monthParam(r), appraisal.AchievementInput{
		Value:  payload.Value,
		Status: appraisal.CountStatus(strings.ToUpper(strings.TrimSpace(payload.Status))),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "achievement.upsert", "achievement", achievement.ID, nil, achievement)
	api.Success(w, achievement, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleVerifyAchievement(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload statusRequest
	if !decode(w, r, &payload) {
		return
	}
	achievement, err := h.Service.SetAchievementVerify(r.Context(), a, chi.URLParam(r, "achievementID"), appraisal.VerifyStatus(payload.normalized()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "achievement.verify", "achievement", achievement.ID, nil, achievement)
	api.Success(w, achievement, middleware.GetRequestID(r.Context()))
}

// monthAchievement resolves the achievement row addressed by the activity
// and month URL parameters.
func (h *Handler) monthAchievement(w http.ResponseWriter, r *http.Request, a appraisal.Actor) (appraisal.Achievement, bool) {
	achievement, err := h.Service.AchievementForMonth(r.Context(), a, chi.URLParam(r, "ippID"), chi.URLParam(r, "activityID"), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return appraisal.Achievement{}, false
	}
	return achievement, true
}

func (h *Handler) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	achievement, ok := h.monthAchievement(w, r, a)
	if !ok {
		return
	}
	list, err := h.Service.ListEvidence(r.Context(), a, achievement.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

// handleAddEvidence accepts either a multipart upload in the "file" field or
// a JSON reference to content stored elsewhere.
func (h *Handler) handleAddEvidence(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.uploadEvidence(w, r, a)
		return
	}

	var payload evidenceRefRequest
	if !decode(w, r, &payload) {
		return
	}
	achievement, ok := h.monthAchievement(w, r, a)
	if !ok {
		return
	}
	view, err := h.Service.AttachEvidence(r.Context(), a, achievement.ID, appraisal.FileRef{
		Reference: payload.FileReference,
		Name:      payload.FileName,
		Size:      payload.FileSize,
		MimeType:  payload.MimeType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "evidence.attach", "evidence", view.ID, nil, view)
	api.Created(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) uploadEvidence(w http.ResponseWriter, r *http.Request, a appraisal.Actor) {
	reqID := middleware.GetRequestID(r.Context())
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", reqID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid multipart form", reqID)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "file is required", reqID)
		return
	}
	defer file.Close()
	if h.MaxUploadBytes > 0 && header.Size > h.MaxUploadBytes {
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", reqID)
		return
	}

	achievement, ok := h.monthAchievement(w, r, a)
	if !ok {
		return
	}
	view, err := h.Service.UploadEvidence(r.Context(), a, achievement.ID, appraisal.Upload{
		Name:    header.Filename,
		Size:    header.Size,
		Content: file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "evidence.upload", "evidence", view.ID, nil, view)
	api.Created(w, view, reqID)
}

func (h *Handler) handleRemoveEvidence(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "evidenceID")
	if err := h.Service.RemoveEvidence(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "evidence.remove", "evidence", id, nil, nil)
	api.Deleted(w, id, middleware.GetRequestID(r.Context()))
}

package appraisalhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pms/internal/transport/http/api"
	"pms/internal/transport/http/middleware"
)

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListActivities(r.Context(), a, chi.URLParam(r, "ippID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload activityRequest
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.Service.CreateActivity(r.Context(), a, chi.URLParam(r, "ippID"), payload.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "activity.create", "activity", result.Activity.ID, nil, result.Activity)
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivityDetail(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	detail, err := h.Service.ActivityDetail(r.Context(), a, chi.URLParam(r, "ippID"), chi.URLParam(r, "activityID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload activityRequest
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.Service.UpdateActivity(r.Context(), a, chi.URLParam(r, "ippID"), chi.URLParam(r, "activityID"), payload.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "activity.update", "activity", result.Activity.ID, nil, result.Activity)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	activityID := chi.URLParam(r, "activityID")
	report, err := h.Service.DeleteActivity(r.Context(), a, chi.URLParam(r, "ippID"), activityID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "activity.delete", "activity", activityID, nil, nil)
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

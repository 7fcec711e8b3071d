package appraisalhandler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"pms/internal/domain/appraisal"
	"pms/internal/domain/audit"
	"pms/internal/domain/auth"
	"pms/internal/requestctx"
	"pms/internal/transport/http/api"
	"pms/internal/transport/http/middleware"
	"pms/internal/transport/http/shared"
)

type Handler struct {
	Service        *appraisal.Service
	Perms          middleware.PermissionStore
	Audit          *audit.Service
	Idempotency    *middleware.IdempotencyStore
	MaxUploadBytes int64
}

func NewHandler(service *appraisal.Service, perms middleware.PermissionStore, auditSvc *audit.Service, idem *middleware.IdempotencyStore, maxUploadBytes int64) *Handler {
	return &Handler{
		Service:        service,
		Perms:          perms,
		Audit:          auditSvc,
		Idempotency:    idem,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermIppRead, h.Perms)
	write := middleware.RequirePermission(auth.PermIppWrite, h.Perms)
	review := middleware.RequirePermission(auth.PermIppReview, h.Perms)
	once := func(next http.Handler) http.Handler { return next }
	if h.Idempotency != nil {
		once = middleware.Idempotent(h.Idempotency)
	}

	r.Route("/ipps", func(r chi.Router) {
		r.With(read).Get("/", h.handleListIpps)
		r.With(write, once).Post("/", h.handleCreateIpp)
		r.Route("/{ippID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGetIpp)
			r.With(write).Put("/", h.handleUpdateIpp)
			r.With(write).Delete("/", h.handleDeleteIpp)
			r.With(write, once).Post("/submit", h.handleSubmit)
			r.With(review).Patch("/verify", h.handleVerify)
			r.With(review).Patch("/approval", h.handleApproval)
			r.With(read).Get("/weights", h.handleWeights)
			r.With(read).Get("/summary", h.handleSummary)
			r.With(read).Get("/summary.pdf", h.handleSummaryPDF)
			r.With(read).Get("/summary-source", h.handleSummarySource)
			r.With(read).Get("/monthly-approvals", h.handleListMonthlyApprovals)

			r.Route("/activities", func(r chi.Router) {
				r.With(read).Get("/", h.handleListActivities)
				r.With(write).Post("/", h.handleCreateActivity)
				r.Route("/{activityID}", func(r chi.Router) {
					r.With(read).Get("/", h.handleActivityDetail)
					r.With(write).Put("/", h.handleUpdateActivity)
					r.With(write).Delete("/", h.handleDeleteActivity)
					r.With(read).Get("/achievements", h.handleListAchievements)
					r.With(read).Get("/achievements/{month}", h.handleGetAchievement)
					r.With(write).Put("/achievements/{month}", h.handleUpsertAchievement)
					r.With(read).Get("/achievements/{month}/evidences", h.handleListEvidence)
					r.With(write).Post("/achievements/{month}/evidences", h.handleAddEvidence)
				})
			})
		})
	})
	r.With(review).Patch("/achievements/{achievementID}/verification", h.handleVerifyAchievement)
	r.With(write).Delete("/evidences/{evidenceID}", h.handleRemoveEvidence)
	r.With(review).Patch("/monthly-approvals/{approvalID}", h.handleMonthlyApproval)
}

// actor writes 401 itself when the request carries no user.
func actor(w http.ResponseWriter, r *http.Request) (appraisal.Actor, bool) {
	a, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
	}
	return a, ok
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	reqID := middleware.GetRequestID(r.Context())
	if err := shared.DecodeJSON(r, dst); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return false
	}
	validator := shared.NewValidator()
	validator.Struct(dst)
	return !validator.Reject(w, reqID)
}

func (h *Handler) record(r *http.Request, a appraisal.Actor, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), a.NPK, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		requestctx.Logger(r.Context()).Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func monthParam(r *http.Request) int {
	month, ok := shared.IntParam(r, "month")
	if !ok {
		return 0
	}
	return month
}

func (h *Handler) handleListIpps(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	filter := appraisal.IppFilter{
		OwnerNPK: q.Get("owner"),
		Stage:    strings.ToLower(strings.TrimSpace(q.Get("stage"))),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "year", Reason: "must be a number"}})
			return
		}
		filter.Year = year
	}
	ipps, err := h.Service.ListIpps(r.Context(), a, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, ipps, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateIpp(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload createIppRequest
	if !decode(w, r, &payload) {
		return
	}
	result, err := h.Service.CreateIpp(r.Context(), a, payload.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "ipp.create", "ipp", result.Ipp.ID, nil, result.Ipp)
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetIpp(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	view, err := h.Service.GetIpp(r.Context(), a, chi.URLParam(r, "ippID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateIpp(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload headerRequest
	if !decode(w, r, &payload) {
		return
	}
	view, err := h.Service.UpdateIppHeader(r.Context(), a, chi.URLParam(r, "ippID"), appraisal.IppHeaderInput{
		Year:       payload.Year,
		CategoryID: payload.CategoryID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "ipp.update", "ipp", view.ID, nil, view)
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteIpp(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "ippID")
	if err := h.Service.DeleteIpp(r.Context(), a, id); err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "ipp.delete", "ipp", id, nil, nil)
	api.Deleted(w, id, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	view, err := h.Service.SubmitIpp(r.Context(), a, chi.URLParam(r, "ippID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "ipp.submit", "ipp", view.ID, nil, view)
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload statusRequest
	if !decode(w, r, &payload) {
		return
	}
	view, err := h.Service.SetVerify(r.Context(), a, chi.URLParam(r, "ippID"), appraisal.VerifyStatus(payload.normalized()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "ipp.verify", "ipp", view.ID, nil, view)
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproval(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload statusRequest
	if !decode(w, r, &payload) {
		return
	}
	view, err := h.Service.SetApproval(r.Context(), a, chi.URLParam(r, "ippID"), appraisal.ApprovalStatus(payload.normalized()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "ipp.approval", "ipp", view.ID, nil, view)
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWeights(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	report, err := h.Service.WeightReport(r.Context(), a, chi.URLParam(r, "ippID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	summary, err := h.Service.ExecutiveSummary(r.Context(), a, chi.URLParam(r, "ippID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "ippID")
	pdf, err := h.Service.ExecutiveSummaryPDF(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Attachment(w, "application/pdf", "executive-summary-"+id+".pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		requestctx.Logger(r.Context()).Warn("summary pdf write failed", "ippId", id, "err", err)
	}
}

func (h *Handler) handleSummarySource(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	source, err := h.Service.ExecutiveSummarySource(r.Context(), a, chi.URLParam(r, "ippID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, source, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListMonthlyApprovals(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListMonthlyApprovals(r.Context(), a, chi.URLParam(r, "ippID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMonthlyApproval(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var payload statusRequest
	if !decode(w, r, &payload) {
		return
	}
	approval, err := h.Service.SetMonthlyApproval(r.Context(), a, chi.URLParam(r, "approvalID"), appraisal.ApprovalStatus(payload.normalized()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, a, "monthly_approval.update", "monthly_approval", approval.ID, nil, approval)
	api.Success(w, approval, middleware.GetRequestID(r.Context()))
}

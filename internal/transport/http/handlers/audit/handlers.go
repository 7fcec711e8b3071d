package audithandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pms/internal/domain/audit"
	"pms/internal/domain/auth"
	"pms/internal/requestctx"
	"pms/internal/transport/http/api"
	"pms/internal/transport/http/middleware"
	"pms/internal/transport/http/shared"
)

const exportLimit = 10000

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *audit.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermAuditRead, h.Perms))
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

// filterFromQuery accepts since/until as RFC 3339 timestamps or plain
// dates; until is exclusive.
func filterFromQuery(r *http.Request) (audit.Filter, []shared.ValidationIssue) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorNPK:   q.Get("actorNpk"),
	}
	var issues []shared.ValidationIssue
	for field, dst := range map[string]*time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := q.Get(field)
		if raw == "" {
			continue
		}
		parsed, err := parseInstant(raw)
		if err != nil {
			issues = append(issues, shared.ValidationIssue{Field: field, Reason: "must be an RFC 3339 timestamp or YYYY-MM-DD"})
			continue
		}
		*dst = parsed
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && !filter.Until.After(filter.Since) {
		issues = append(issues, shared.ValidationIssue{Field: "until", Reason: "must be after since"})
	}
	return filter, issues
}

func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, issues := filterFromQuery(r)
	if len(issues) > 0 {
		shared.FailValidation(w, reqID, issues)
		return
	}
	page := shared.ParsePagination(r, 100, 500)

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("audit count failed", "err", err)
	}
	events, err := h.Service.List(r.Context(), filter, r.URL.Query().Get("includeDetails") == "true", page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", reqID)
		return
	}
	shared.SetTotalCount(w, total)
	api.Success(w, events, reqID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	filter, issues := filterFromQuery(r)
	if len(issues) > 0 {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), issues)
		return
	}
	api.Attachment(w, "text/csv", "audit-events.csv")
	if err := h.Service.WriteCSV(r.Context(), w, filter, exportLimit); err != nil {
		// the body may already be partly written
		requestctx.Logger(r.Context()).Warn("audit export failed", "err", err)
	}
}

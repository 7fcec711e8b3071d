package masterdatahandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pms/internal/domain/audit"
	"pms/internal/domain/auth"
	"pms/internal/domain/masterdata"
	"pms/internal/requestctx"
	"pms/internal/transport/http/api"
	"pms/internal/transport/http/middleware"
	"pms/internal/transport/http/shared"
)

type Handler struct {
	Service *masterdata.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *masterdata.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type categoryRequest struct {
	ID              string  `json:"id" validate:"max=64"`
	Name            string  `json:"name" validate:"required,max=128"`
	RoutineLimit    float64 `json:"routineLimit" validate:"gte=0,lte=1"`
	NonRoutineLimit float64 `json:"nonRoutineLimit" validate:"gte=0,lte=1"`
	ProjectLimit    float64 `json:"projectLimit" validate:"gte=0,lte=1"`
}

type departmentRequest struct {
	ID   string `json:"id" validate:"max=64"`
	Name string `json:"name" validate:"required,max=128"`
}

type userRequest struct {
	NPK          string `json:"npk" validate:"required,max=32"`
	Name         string `json:"name" validate:"required,max=128"`
	Email        string `json:"email" validate:"omitempty,email"`
	Section      string `json:"section" validate:"max=128"`
	Position     string `json:"position" validate:"max=128"`
	Grade        string `json:"grade" validate:"max=32"`
	DepartmentID string `json:"departmentId" validate:"required"`
	Role         string `json:"role" validate:"required,oneof=USER OPERATION ADMIN"`
	Password     string `json:"password" validate:"required,min=8"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermMasterdataRead, h.Perms)
	write := middleware.RequirePermission(auth.PermMasterdataWrite, h.Perms)

	r.Route("/categories", func(r chi.Router) {
		r.With(read).Get("/", h.handleListCategories)
		r.With(write).Post("/", h.handleCreateCategory)
		r.With(read).Get("/{categoryID}", h.handleGetCategory)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDepartments)
		r.With(write).Post("/", h.handleCreateDepartment)
		r.With(read).Get("/{departmentID}", h.handleGetDepartment)
	})
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermUsersRead, h.Perms)).Get("/", h.handleListUsers)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Post("/", h.handleCreateUser)
		r.With(read).Get("/{npk}", h.handleGetUser)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, masterdata.ErrInvalid):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, masterdata.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, masterdata.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "duplicate", err.Error(), reqID)
	default:
		requestctx.Logger(r.Context()).Error("masterdata request failed", "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", reqID)
	}
}

func (h *Handler) record(r *http.Request, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	if err := h.Audit.Record(r.Context(), user.NPK, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		requestctx.Logger(r.Context()).Warn("audit record failed", "action", action, "err", err)
	}
}

// decode reads and validates a JSON payload, writing the failure response
// itself.
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

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.Service.GetCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, category, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryRequest
	if !decode(w, r, &payload) {
		return
	}
	category, err := h.Service.CreateCategory(r.Context(), masterdata.Category{
		ID:              payload.ID,
		Name:            payload.Name,
		RoutineLimit:    payload.RoutineLimit,
		NonRoutineLimit: payload.NonRoutineLimit,
		ProjectLimit:    payload.ProjectLimit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "category.create", "category", category.ID, category)
	api.Created(w, category, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	department, err := h.Service.GetDepartment(r.Context(), chi.URLParam(r, "departmentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, department, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var payload departmentRequest
	if !decode(w, r, &payload) {
		return
	}
	department, err := h.Service.CreateDepartment(r.Context(), masterdata.Department{ID: payload.ID, Name: payload.Name})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "department.create", "department", department.ID, department)
	api.Created(w, department, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	users, err := h.Service.ListUsers(r.Context(), r.URL.Query().Get("departmentId"), page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	profile, err := h.Service.GetUserProfile(r.Context(), user, chi.URLParam(r, "npk"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload userRequest
	if !decode(w, r, &payload) {
		return
	}
	profile, err := h.Service.CreateUser(r.Context(), masterdata.NewUser{
		UserProfile: masterdata.UserProfile{
			NPK:          payload.NPK,
			Name:         payload.Name,
			Email:        payload.Email,
			Section:      payload.Section,
			Position:     payload.Position,
			Grade:        payload.Grade,
			DepartmentID: payload.DepartmentID,
			Role:         payload.Role,
		},
		Password: payload.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.record(r, "user.create", "user", profile.NPK, profile)
	api.Created(w, profile, middleware.GetRequestID(r.Context()))
}

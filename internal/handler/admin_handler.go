package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"admin-service/internal/models"
	"admin-service/internal/service"
	"admin-service/internal/util"
)

// AdminHandler exposes the admin roster operations. All routes are
// mounted behind RequireAuth; mutations additionally sit behind the
// admin_management permission gate.
type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/eligible-users", h.EligibleUsers)
	r.Get("/admins", h.ListAdmins)
	r.Get("/dashboard", h.Dashboard)

	r.Group(func(r chi.Router) {
		r.Use(RequirePermission(models.PermAdminManagement))
		r.Post("/promote-user", h.PromoteUser)
		r.Post("/demote-admin/{adminID}", h.DemoteAdmin)
		r.Patch("/admins/{adminID}", h.UpdateAdmin)
	})
}

type promoteUserRequest struct {
	UserID      string                   `json:"user_id"`
	Role        models.AdminRole         `json:"role"`
	Permissions []models.AdminPermission `json:"permissions,omitempty"`
}

// EligibleUsers lists promotion candidates, optionally filtered by a
// search term against email or name.
func (h *AdminHandler) EligibleUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	term := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.adminService.EligibleUsers(ctx, term, limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to search eligible users")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    users,
		Message: "Eligible users retrieved",
		Meta:    &Meta{Total: len(users)},
	})
}

// PromoteUser grants admin access to an eligible platform user.
func (h *AdminHandler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req promoteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	admin, err := h.adminService.PromoteUser(ctx, IdentityFrom(r), req.UserID, req.Role, req.Permissions)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to promote user")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(admin.Profile(), "User promoted"))
	util.Info("User promoted via HTTP",
		util.String("admin_id", admin.AdminID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "PromoteUser"),
	)
}

// DemoteAdmin revokes an admin account's access.
func (h *AdminHandler) DemoteAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adminID := chi.URLParam(r, "adminID")
	if adminID == "" {
		respondWithError(w, http.StatusBadRequest,
			errors.New("admin ID is required"), "Admin ID is required")
		return
	}

	if err := h.adminService.DemoteAdmin(ctx, IdentityFrom(r), adminID); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to demote admin")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Admin demoted"))
}

// UpdateAdmin applies a partial update to an admin account.
func (h *AdminHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adminID := chi.URLParam(r, "adminID")
	if adminID == "" {
		respondWithError(w, http.StatusBadRequest,
			errors.New("admin ID is required"), "Admin ID is required")
		return
	}

	var req service.AdminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	admin, err := h.adminService.UpdateAdmin(ctx, IdentityFrom(r), adminID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update admin")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(admin.Profile(), "Admin updated"))
}

// ListAdmins returns every admin account, active and demoted.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	admins, err := h.adminService.ListAdmins(ctx)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list admins")
		return
	}

	profiles := make([]*models.AdminProfile, 0, len(admins))
	for _, a := range admins {
		profiles = append(profiles, a.Profile())
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    profiles,
		Message: "Admins retrieved",
		Meta:    &Meta{Total: len(profiles)},
	})
}

// Dashboard returns the admin console overview.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	stats, err := h.adminService.Dashboard(ctx)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(stats, "Dashboard retrieved"))
	util.Debug("Dashboard served via HTTP",
		util.Duration("duration", time.Since(startTime)),
	)
}

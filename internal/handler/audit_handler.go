package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"admin-service/internal/models"
	"admin-service/internal/service"
)

// AuditHandler exposes read access to the audit trail. Routes sit behind
// the analytics_access permission.
type AuditHandler struct {
	auditService *service.AuditService
}

func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequirePermission(models.PermAnalyticsAccess))
		r.Get("/audit-logs", h.QueryAuditLogs)
	})
}

// QueryAuditLogs returns filtered audit entries, newest first. Filters:
// actor, action, since, until (RFC 3339), limit.
func (h *AuditHandler) QueryAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	q := models.AuditQuery{
		ActorEmail: params.Get("actor"),
		Action:     params.Get("action"),
	}

	if raw := params.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err, "Invalid since timestamp")
			return
		}
		q.Since = since
	}

	if raw := params.Get("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err, "Invalid until timestamp")
			return
		}
		q.Until = until
	}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err, "Invalid limit")
			return
		}
		q.Limit = limit
	}

	entries, err := h.auditService.Query(ctx, q)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to query audit logs")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    entries,
		Message: "Audit logs retrieved",
		Meta:    &Meta{Total: len(entries)},
	})
}

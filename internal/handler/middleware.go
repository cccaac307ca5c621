package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"admin-service/internal/metrics"
	"admin-service/internal/models"
	"admin-service/internal/token"
	"admin-service/internal/util"
)

type contextKey string

const identityKey contextKey = "admin_identity"

// IdentityFrom returns the authenticated identity stored by RequireAuth.
func IdentityFrom(r *http.Request) *token.Identity {
	identity, _ := r.Context().Value(identityKey).(*token.Identity)
	return identity
}

// RequireAuth verifies the bearer credential and stores the decoded
// identity on the request context. Requests without a valid credential
// are rejected before reaching a handler.
func RequireAuth(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				respondWithError(w, http.StatusUnauthorized,
					errors.New("missing bearer credential"), "Authentication required")
				return
			}

			identity, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondWithError(w, getStatusCode(err), err, "Authentication failed")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route on one permission from the token's
// snapshot. Must sit inside RequireAuth.
func RequirePermission(perm models.AdminPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFrom(r)
			if identity == nil {
				respondWithError(w, http.StatusUnauthorized,
					errors.New("missing identity"), "Authentication required")
				return
			}

			if !identity.HasPermission(perm) {
				util.Warn("Permission denied",
					util.String("email", identity.Email),
					util.String("permission", string(perm)),
					util.String("path", r.URL.Path))
				respondWithError(w, http.StatusForbidden,
					models.ErrPermissionDenied, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs each request with its status and duration and feeds
// the Prometheus request metrics.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unmatched"
		}
		status := strconv.Itoa(ww.Status())
		duration := time.Since(start)

		metrics.RequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, routePattern, status).
			Observe(duration.Seconds())

		util.Info("HTTP request",
			util.String("method", r.Method),
			util.String("path", r.URL.Path),
			util.Int("status", ww.Status()),
			util.Duration("duration", duration),
			util.String("request_id", middleware.GetReqID(r.Context())),
			util.String("remote_addr", r.RemoteAddr),
		)
	})
}

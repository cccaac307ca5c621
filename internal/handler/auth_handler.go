package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"admin-service/internal/service"
	"admin-service/internal/util"
)

// AuthHandler exposes the OTP login flow and the authenticated profile.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes mounts the public auth routes. The /me route is mounted
// by the router inside the authenticated group.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/request-otp", h.RequestOTP)
	r.Post("/verify-otp", h.VerifyOTP)
}

type requestOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type verifyOTPResponse struct {
	Token string      `json:"token"`
	Admin interface{} `json:"admin"`
}

// RequestOTP issues a one-time login code for a known admin email.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.authService.RequestOTP(ctx, req.Email); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to send verification code")
		return
	}

	respondWithJSON(w, http.StatusAccepted, successResponse(nil, "Verification code sent"))
	util.Info("OTP requested via HTTP",
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "RequestOTP"),
	)
}

// VerifyOTP exchanges a correct code for a session credential.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if req.OTP == "" {
		respondWithError(w, http.StatusBadRequest,
			errors.New("otp is required"), "OTP is required")
		return
	}

	credential, admin, err := h.authService.VerifyOTP(ctx, req.Email, req.OTP)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Verification failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(verifyOTPResponse{
		Token: credential,
		Admin: admin.Profile(),
	}, "Login successful"))

	util.Info("Admin login via HTTP",
		util.String("admin_id", admin.AdminID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "VerifyOTP"),
	)
}

// Me returns the stored profile for the authenticated admin, reflecting
// changes made after the credential was issued.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := IdentityFrom(r)
	if identity == nil {
		respondWithError(w, http.StatusUnauthorized,
			errors.New("missing identity"), "Authentication required")
		return
	}

	profile, err := h.authService.Profile(ctx, identity)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(profile, "Profile retrieved"))
}

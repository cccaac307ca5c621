package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"admin-service/internal/models"
	"admin-service/internal/token"
	"admin-service/internal/util"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta represents pagination metadata
type Meta struct {
	Total    int `json:"total,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	util.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	respondWithJSON(w, statusCode, errorResponse(err, message))
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidCode),
		errors.Is(err, models.ErrNoActiveChallenge),
		errors.Is(err, models.ErrExpiredCode),
		errors.Is(err, models.ErrExhausted),
		errors.Is(err, models.ErrNotEligible),
		errors.Is(err, models.ErrAlreadyAdmin):
		return http.StatusBadRequest
	case errors.Is(err, token.ErrInvalidCredential),
		errors.Is(err, token.ErrExpiredCredential):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied),
		errors.Is(err, models.ErrSelfDemotion):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnknownAdmin),
		errors.Is(err, models.ErrAdminNotFound),
		errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

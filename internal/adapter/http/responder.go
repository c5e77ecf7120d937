package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyanoda/user-service/internal/platform/metrics"
	"github.com/gyanoda/user-service/internal/repository"
	"github.com/gyanoda/user-service/internal/usecase"
	"go.uber.org/zap"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Responder centralizes status mapping and the JSON envelope so handlers
// never hand-pick status codes. Every domain error lands here.
type Responder struct {
	logger  *zap.Logger
	metrics *metrics.Manager
}

func NewResponder(logger *zap.Logger, mm *metrics.Manager) *Responder {
	return &Responder{logger: logger.Named("Responder"), metrics: mm}
}

func (rp *Responder) JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			rp.logger.Error("Failed to encode response body", zap.Error(err))
		}
	}
}

// Error maps the domain error taxonomy onto HTTP status codes and counts
// the failure by kind.
func (rp *Responder) Error(w http.ResponseWriter, err error) {
	status, kind := statusForError(err)
	rp.metrics.APIErrorsTotal.WithLabelValues(kind).Inc()
	if status >= http.StatusInternalServerError {
		rp.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
		rp.JSON(w, status, errorResponse{Message: "internal server error"})
		return
	}
	rp.JSON(w, status, errorResponse{Message: err.Error()})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrInvalidCode),
		errors.Is(err, repository.ErrInvalidPhone):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrNotVerified),
		errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, usecase.ErrDuplicateBoth),
		errors.Is(err, repository.ErrDuplicateEmail),
		errors.Is(err, repository.ErrDuplicatePhone):
		return http.StatusConflict, "conflict"
	case errors.Is(err, usecase.ErrUpstream):
		return http.StatusBadGateway, "upstream"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

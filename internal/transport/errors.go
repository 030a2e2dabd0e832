package transport

import (
	"errors"
	"net/http"
	"strconv"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/middleware"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Guards are the auth middlewares handlers attach to their routes.
type Guards struct {
	// Auth requires a valid access token.
	Auth func(http.Handler) http.Handler
	// Optional attaches the user when a token is present.
	Optional func(http.Handler) http.Handler
	// Admin requires the admin role; it runs after Auth.
	Admin func(http.Handler) http.Handler
}

// statusFor maps a ledger error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCouponExhausted):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrInvalidTwoFactorCode),
		errors.Is(err, service.ErrTwoFactorExpired):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error body. Server side failures are
// logged and replaced with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, status, "internal server error")
		return
	}

	logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	middleware.RespondWithError(w, status, err.Error())
}

// decode reads and validates a JSON body, writing the 400 reply itself when
// it fails.
func decode(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated user's id.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}

// optionalUser returns the caller's id when the request carried a token.
func optionalUser(r *http.Request) *uuid.UUID {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}
	return &userID
}

func isAdmin(r *http.Request) bool {
	role, ok := middleware.GetUserRole(r.Context())
	return ok && role == domain.RoleAdmin
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationError("%s must be an integer", name)
	}
	return n, nil
}

// pageQuery reads page and page_size.
func pageQuery(r *http.Request) (int, int, error) {
	page, err := intQuery(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intQuery(r, "page_size", 20)
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// ListResponse is a paginated collection.
type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// ErrorResponse is the error payload returned by auth endpoints
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details map[string][]string `json:"details,omitempty"`
}

// AuthHandler handles HTTP requests for authentication endpoints
type AuthHandler struct {
	authService *AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(authService *AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles user registration
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, validationErrors, err := h.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			h.writeError(w, http.StatusBadRequest, CodeUserExists, "User already exists with this email.", nil)
		case errors.Is(err, ErrNameExists):
			h.writeError(w, http.StatusBadRequest, CodeUserExists, "User already exists with this name.", nil)
		default:
			h.internalError(w, r, "register failed", err)
		}
		return
	}

	if len(validationErrors) > 0 {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", validationDetails(validationErrors))
		return
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// Login handles user authentication
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, err := h.authService.Login(r.Context(), req)
	if err != nil {
		var locked *AccountLockedError
		switch {
		case errors.As(err, &locked):
			h.writeError(w, http.StatusForbidden, CodeAccountLocked, locked.Error(), nil)
		case errors.Is(err, ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password.", nil)
		default:
			h.internalError(w, r, "login failed", err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// UpdateProfile handles profile updates for the authenticated caller.
// The caller's identity travels in the `email` header.
// PUT /api/auth/update
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("email")
	if email == "" {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "email header is required", nil)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	response, validationErrors, err := h.authService.UpdateProfile(r.Context(), email, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, CodeUserNotFound, "User not found", nil)
		case errors.Is(err, ErrEmailExists):
			h.writeError(w, http.StatusBadRequest, CodeUserExists, "User already exists with this email.", nil)
		default:
			h.internalError(w, r, "profile update failed", err)
		}
		return
	}

	if len(validationErrors) > 0 {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", validationDetails(validationErrors))
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// validationDetails groups field-level violations by field name
func validationDetails(validationErrors []ValidationError) map[string][]string {
	details := make(map[string][]string)
	for _, ve := range validationErrors {
		details[ve.Field] = append(details[ve.Field], ve.Message)
	}
	return details
}

// writeJSON writes a JSON response with the given status
func (h *AuthHandler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response
func (h *AuthHandler) writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string][]string) {
	h.writeJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// internalError logs the cause server-side and returns a generic 500
func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "path", r.URL.Path)
	h.writeError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
}

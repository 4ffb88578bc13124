package items

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/secondchance/backend/internal/repository"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing
const maxUploadMemory = 32 << 20

// ErrorResponse is the error payload returned by item endpoints
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details map[string][]string `json:"details,omitempty"`
}

// Error codes for API responses
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeItemNotFound    = "ITEM_NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ItemHandler handles HTTP requests for listing endpoints
type ItemHandler struct {
	itemService *ItemService
	logger      *slog.Logger
}

// NewItemHandler creates a new ItemHandler instance
func NewItemHandler(itemService *ItemService, logger *slog.Logger) *ItemHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemHandler{
		itemService: itemService,
		logger:      logger,
	}
}

// List returns all listings
// GET /api/secondchance/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list items failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// Get returns a single listing by id
// GET /api/secondchance/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.itemService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			h.writeError(w, http.StatusNotFound, CodeItemNotFound, "Item not found", nil)
			return
		}
		h.internalError(w, r, "get item failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// Create adds a new listing from a multipart form with an optional
// `file` field
// POST /api/secondchance/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid multipart form", nil)
		return
	}

	ageDays, _ := strconv.Atoi(r.FormValue("age_days"))
	req := CreateItemRequest{
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Condition:   r.FormValue("condition"),
		AgeDays:     ageDays,
		Description: r.FormValue("description"),
	}

	if details := ValidateRequest(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	var upload *Upload
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		upload = &Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	}

	item, err := h.itemService.Create(r.Context(), req, upload)
	if err != nil {
		h.internalError(w, r, "create item failed", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, item)
}

// Update replaces the mutable fields of a listing
// PUT /api/secondchance/items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body", nil)
		return
	}

	if details := ValidateRequest(req); details != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Request validation failed", details)
		return
	}

	if err := h.itemService.Update(r.Context(), id, req); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			h.writeError(w, http.StatusNotFound, CodeItemNotFound, "Item not found", nil)
			return
		}
		h.internalError(w, r, "update item failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"updated": "success"})
}

// Delete removes a listing
// DELETE /api/secondchance/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.itemService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			h.writeError(w, http.StatusNotFound, CodeItemNotFound, "Item not found", nil)
			return
		}
		h.internalError(w, r, "delete item failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"deleted": "success"})
}

// writeJSON writes a JSON response with the given status
func (h *ItemHandler) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response
func (h *ItemHandler) writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string][]string) {
	h.writeJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// internalError logs the cause server-side and returns a generic 500
func (h *ItemHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "path", r.URL.Path)
	h.writeError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
}

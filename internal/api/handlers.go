package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"attractions-crawler/internal/db"
)

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	db     *db.DB
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(database *db.DB, logger *zap.Logger) *Handlers {
	return &Handlers{db: database, logger: logger}
}

// ListAttractions handles GET /attractions
func (h *Handlers) ListAttractions(w http.ResponseWriter, r *http.Request) {
	attractions, err := h.db.ListAttractions(r.Context())
	if err != nil {
		h.serverError(w, "list attractions", err)
		return
	}
	writeJSON(w, http.StatusOK, attractions)
}

// GetAttraction handles GET /attractions/{id}
func (h *Handlers) GetAttraction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	attraction, err := h.db.GetAttraction(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "attraction not found")
		return
	}
	if err != nil {
		h.serverError(w, "get attraction", err)
		return
	}
	writeJSON(w, http.StatusOK, attraction)
}

// GetAttractionImage handles GET /attractions/{id}/image
func (h *Handlers) GetAttractionImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	image, err := h.db.GetAttractionImage(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "attraction not found")
		return
	}
	if err != nil {
		h.serverError(w, "get attraction image", err)
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusNotFound, "attraction has no image")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(image))
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	_, _ = w.Write(image)
}

// GetAttractionColumn handles GET /attractions/{id}/{column}
func (h *Handlers) GetAttractionColumn(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	column := chi.URLParam(r, "column")

	value, err := h.db.GetAttractionColumn(r.Context(), id, column)
	switch {
	case errors.Is(err, db.ErrUnknownColumn):
		h.logger.Info("Invalid column name requested", zap.String("column", column))
		writeError(w, http.StatusBadRequest, "invalid column name")
		return
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "attraction not found")
		return
	case err != nil:
		h.serverError(w, "get attraction column", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{column: value})
}

// SearchAttractions handles GET /search?q=
func (h *Handlers) SearchAttractions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	attractions, err := h.db.SearchAttractions(r.Context(), q)
	if err != nil {
		h.serverError(w, "search attractions", err)
		return
	}
	writeJSON(w, http.StatusOK, attractions)
}

func (h *Handlers) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attraction id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

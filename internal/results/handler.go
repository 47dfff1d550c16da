package results

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/labdiagnostica/platform/pkg/logging"
)

// Handler exposes the results portal and admin release endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the results handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListForPatient handles GET /portal/results?email=...
// Only released reports are visible here.
func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	list, err := h.service.ListReleased(r.Context(), email)
	if err != nil {
		h.logger.Error("results lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not fetch results")
		return
	}
	if list == nil {
		list = []Result{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /admin/results.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("result registration failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not register result")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Release handles POST /admin/results/{id}/release.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := h.service.Release(r.Context(), id, actorFrom(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "result not found")
		case errors.Is(err, ErrAlreadyReleased):
			writeError(w, http.StatusConflict, ErrAlreadyReleased.Error())
		default:
			h.logger.Error("result release failed", "error", err, "result_id", id)
			writeError(w, http.StatusBadGateway, "could not release result")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func actorFrom(r *http.Request) string {
	if sub := r.Header.Get("X-Admin-Subject"); sub != "" {
		return sub
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labdiagnostica/platform/internal/schedule"
	"github.com/labdiagnostica/platform/pkg/logging"
)

// Handler exposes the booking endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotUnavailable):
			writeError(w, http.StatusConflict, ErrSlotUnavailable.Error())
		case errors.Is(err, ErrInvalidRequest), errors.Is(err, schedule.ErrInvalidDate):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("appointment creation failed", "error", err)
			writeError(w, http.StatusBadGateway, "could not create appointment")
		}
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Get handles GET /appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("appointment fetch failed", "error", err, "id", id)
		writeError(w, http.StatusBadGateway, "could not fetch appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListDay handles GET /admin/appointments?date=&location=.
func (h *Handler) ListDay(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	location := r.URL.Query().Get("location")

	appts, err := h.service.ListDay(r.Context(), date, location)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, schedule.ErrInvalidDate.Error())
			return
		}
		h.logger.Error("appointment list failed", "error", err, "date", date)
		writeError(w, http.StatusBadGateway, "could not list appointments")
		return
	}
	if appts == nil {
		appts = []Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

// Cancel handles DELETE /admin/appointments/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), id, actorFrom(r)); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("appointment cancel failed", "error", err, "id", id)
		writeError(w, http.StatusBadGateway, "could not cancel appointment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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

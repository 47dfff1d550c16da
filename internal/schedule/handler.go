package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/internal/observability/metrics"
	"github.com/labdiagnostica/platform/pkg/logging"
)

// BlockStore covers the management writes behind the admin endpoints.
type BlockStore interface {
	BlockSlot(ctx context.Context, req *BlockSlotRequest) (*BlockedSlot, error)
	UnblockSlot(ctx context.Context, date, slotTime, location string) error
	ListBlockedSlots(ctx context.Context, date string) ([]BlockedSlot, error)
	BlockDay(ctx context.Context, req *BlockDayRequest) (*BlockedDay, error)
	UnblockDay(ctx context.Context, date string) error
	ListBlockedDays(ctx context.Context, from string) ([]BlockedDay, error)
}

// Recorder is the async audit hook; audit failures never surface here.
type Recorder interface {
	Record(eventType audit.EventType, actor, subject string, details any)
}

// Handler exposes the availability endpoint and the schedule
// management API.
type Handler struct {
	resolver *Resolver
	store    BlockStore
	auditor  Recorder
	metrics  *metrics.ScheduleMetrics
	logger   *logging.Logger
}

// NewHandler creates the schedule handler. resolver may be nil when
// the database is not configured; the endpoint then reports a server
// configuration error instead of a validation error.
func NewHandler(resolver *Resolver, store BlockStore, auditor Recorder, m *metrics.ScheduleMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		resolver: resolver,
		store:    store,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetAvailability handles GET /schedule/availability?date=&location=.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduling backend not configured")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required (YYYY-MM-DD)")
		return
	}
	location := r.URL.Query().Get("location")

	start := time.Now()
	availability, err := h.resolver.Resolve(r.Context(), date, location)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			h.metrics.ObserveAvailability("invalid", time.Since(start).Seconds())
			writeError(w, http.StatusBadRequest, ErrInvalidDate.Error())
			return
		}
		h.metrics.ObserveAvailability("error", time.Since(start).Seconds())
		h.logger.Error("availability resolution failed", "error", err, "date", date, "location", location)
		writeError(w, http.StatusBadGateway, "availability lookup failed")
		return
	}
	h.metrics.ObserveAvailability("ok", time.Since(start).Seconds())

	if h.auditor != nil {
		h.auditor.Record(audit.EventAvailabilityChecked, actorFrom(r), availability.Date, map[string]any{
			"location":       availability.Location,
			"is_day_blocked": availability.IsDayBlocked,
			"available":      len(availability.Available),
		})
	}

	writeJSON(w, http.StatusOK, availability)
}

// BlockSlot handles POST /admin/schedule/blocked-slots.
func (h *Handler) BlockSlot(w http.ResponseWriter, r *http.Request) {
	var req BlockSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	block, err := h.store.BlockSlot(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidTime) {
			h.metrics.ObserveBlockOp("block_slot", "invalid")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.metrics.ObserveBlockOp("block_slot", "error")
		h.logger.Error("block slot failed", "error", err, "date", req.Date, "time", req.Time)
		writeError(w, http.StatusBadGateway, "could not block slot")
		return
	}
	h.metrics.ObserveBlockOp("block_slot", "ok")
	if h.auditor != nil {
		h.auditor.Record(audit.EventSlotBlocked, actorFrom(r), block.Date+" "+block.Time, map[string]string{
			"location": block.Location,
			"reason":   block.Reason,
		})
	}
	writeJSON(w, http.StatusCreated, block)
}

// UnblockSlot handles DELETE /admin/schedule/blocked-slots.
func (h *Handler) UnblockSlot(w http.ResponseWriter, r *http.Request) {
	var req BlockSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UnblockSlot(r.Context(), req.Date, req.Time, req.Location); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.metrics.ObserveBlockOp("unblock_slot", "not_found")
			writeError(w, http.StatusNotFound, "slot block not found")
			return
		}
		h.metrics.ObserveBlockOp("unblock_slot", "error")
		h.logger.Error("unblock slot failed", "error", err, "date", req.Date, "time", req.Time)
		writeError(w, http.StatusBadGateway, "could not unblock slot")
		return
	}
	h.metrics.ObserveBlockOp("unblock_slot", "ok")
	if h.auditor != nil {
		h.auditor.Record(audit.EventSlotUnblocked, actorFrom(r), req.Date+" "+req.Time, map[string]string{
			"location": req.Location,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBlockedSlots handles GET /admin/schedule/blocked-slots?date=.
func (h *Handler) ListBlockedSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if !datePattern.MatchString(date) {
		writeError(w, http.StatusBadRequest, ErrInvalidDate.Error())
		return
	}
	blocks, err := h.store.ListBlockedSlots(r.Context(), date)
	if err != nil {
		h.logger.Error("list slot blocks failed", "error", err, "date", date)
		writeError(w, http.StatusBadGateway, "could not list slot blocks")
		return
	}
	if blocks == nil {
		blocks = []BlockedSlot{}
	}
	writeJSON(w, http.StatusOK, blocks)
}

// BlockDay handles POST /admin/schedule/blocked-days.
func (h *Handler) BlockDay(w http.ResponseWriter, r *http.Request) {
	var req BlockDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	day, err := h.store.BlockDay(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			h.metrics.ObserveBlockOp("block_day", "invalid")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.metrics.ObserveBlockOp("block_day", "error")
		h.logger.Error("block day failed", "error", err, "date", req.Date)
		writeError(w, http.StatusBadGateway, "could not block day")
		return
	}
	h.metrics.ObserveBlockOp("block_day", "ok")
	if h.auditor != nil {
		h.auditor.Record(audit.EventDayBlocked, actorFrom(r), day.Date, nil)
	}
	writeJSON(w, http.StatusCreated, day)
}

// UnblockDay handles DELETE /admin/schedule/blocked-days/{date}.
func (h *Handler) UnblockDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !datePattern.MatchString(date) {
		writeError(w, http.StatusBadRequest, ErrInvalidDate.Error())
		return
	}
	if err := h.store.UnblockDay(r.Context(), date); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "day block not found")
			return
		}
		h.logger.Error("unblock day failed", "error", err, "date", date)
		writeError(w, http.StatusBadGateway, "could not unblock day")
		return
	}
	if h.auditor != nil {
		h.auditor.Record(audit.EventDayUnblocked, actorFrom(r), date, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBlockedDays handles GET /admin/schedule/blocked-days?from=.
func (h *Handler) ListBlockedDays(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().UTC().Format("2006-01-02")
	}
	if !datePattern.MatchString(from) {
		writeError(w, http.StatusBadRequest, ErrInvalidDate.Error())
		return
	}
	days, err := h.store.ListBlockedDays(r.Context(), from)
	if err != nil {
		h.logger.Error("list blocked days failed", "error", err, "from", from)
		writeError(w, http.StatusBadGateway, "could not list blocked days")
		return
	}
	if days == nil {
		days = []BlockedDay{}
	}
	writeJSON(w, http.StatusOK, days)
}

// actorFrom identifies the caller for audit purposes. Admin identity
// arrives via the JWT middleware subject header when present.
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

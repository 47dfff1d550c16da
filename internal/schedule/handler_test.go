package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/pkg/logging"
)

type fakeBlockStore struct {
	blockSlotErr error
	unblockErr   error
	slots        []BlockedSlot
	days         []BlockedDay
	listErr      error
}

func (f *fakeBlockStore) BlockSlot(_ context.Context, req *BlockSlotRequest) (*BlockedSlot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if f.blockSlotErr != nil {
		return nil, f.blockSlotErr
	}
	return &BlockedSlot{
		ID:        "b-1",
		Date:      req.Date,
		Time:      req.Time,
		Location:  req.Location,
		Reason:    req.Reason,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeBlockStore) UnblockSlot(context.Context, string, string, string) error {
	return f.unblockErr
}

func (f *fakeBlockStore) ListBlockedSlots(context.Context, string) ([]BlockedSlot, error) {
	return f.slots, f.listErr
}

func (f *fakeBlockStore) BlockDay(_ context.Context, req *BlockDayRequest) (*BlockedDay, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &BlockedDay{ID: "d-1", Date: req.Date, CreatedAt: time.Now().UTC()}, nil
}

func (f *fakeBlockStore) UnblockDay(context.Context, string) error {
	return f.unblockErr
}

func (f *fakeBlockStore) ListBlockedDays(context.Context, string) ([]BlockedDay, error) {
	return f.days, f.listErr
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []audit.EventType
}

func (f *fakeRecorder) Record(eventType audit.EventType, _, _ string, _ any) {
	f.mu.Lock()
	f.events = append(f.events, eventType)
	f.mu.Unlock()
}

func (f *fakeRecorder) recorded() []audit.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]audit.EventType, len(f.events))
	copy(out, f.events)
	return out
}

func newTestHandler(t *testing.T, stores *fakeStores) (*Handler, *fakeRecorder) {
	t.Helper()
	recorder := &fakeRecorder{}
	h := NewHandler(newTestResolver(t, stores), &fakeBlockStore{}, recorder, nil, logging.Default())
	return h, recorder
}

func TestGetAvailabilitySuccess(t *testing.T) {
	stores := newFakeStores()
	stores.blockedTimes["2025-03-10|Sede Principal Maracay"] = []string{"09:00"}
	h, recorder := newTestHandler(t, stores)

	req := httptest.NewRequest(http.MethodGet, "/schedule/availability?date=2025-03-10", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got Availability
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Date != "2025-03-10" || got.IsDayBlocked {
		t.Errorf("unexpected availability: %#v", got)
	}
	if len(got.Available) != 20 {
		t.Errorf("expected 20 available slots, got %d", len(got.Available))
	}
	events := recorder.recorded()
	if len(events) != 1 || events[0] != audit.EventAvailabilityChecked {
		t.Errorf("expected availability audit event, got %v", events)
	}
}

func TestGetAvailabilityMissingDate(t *testing.T) {
	h, _ := newTestHandler(t, newFakeStores())

	req := httptest.NewRequest(http.MethodGet, "/schedule/availability", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetAvailabilityInvalidDate(t *testing.T) {
	h, _ := newTestHandler(t, newFakeStores())

	req := httptest.NewRequest(http.MethodGet, "/schedule/availability?date=01-01-2025", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected error detail in response body")
	}
}

func TestGetAvailabilityStoreFailure(t *testing.T) {
	stores := newFakeStores()
	stores.dayErr = errors.New("db down")
	h, recorder := newTestHandler(t, stores)

	req := httptest.NewRequest(http.MethodGet, "/schedule/availability?date=2025-03-10", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if len(recorder.recorded()) != 0 {
		t.Error("failed lookups must not audit a successful check")
	}
}

func TestGetAvailabilityUnconfiguredBackend(t *testing.T) {
	h := NewHandler(nil, &fakeBlockStore{}, nil, nil, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/schedule/availability?date=01-01-2025", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	// Configuration problems outrank validation so operators can tell
	// a broken deployment from a bad request.
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGetAvailabilityMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, newFakeStores())

	req := httptest.NewRequest(http.MethodPost, "/schedule/availability?date=2025-03-10", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestBlockSlotEndpoints(t *testing.T) {
	h, recorder := newTestHandler(t, newFakeStores())

	body, _ := json.Marshal(BlockSlotRequest{
		Date:     "2025-03-10",
		Time:     "09:00",
		Location: "Sede Principal Maracay",
		Reason:   "equipment calibration",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/schedule/blocked-slots", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.BlockSlot(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/schedule/blocked-slots", bytes.NewReader(body))
	w = httptest.NewRecorder()
	h.UnblockSlot(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	events := recorder.recorded()
	if len(events) != 2 || events[0] != audit.EventSlotBlocked || events[1] != audit.EventSlotUnblocked {
		t.Errorf("unexpected audit events: %v", events)
	}
}

func TestBlockSlotValidation(t *testing.T) {
	h, _ := newTestHandler(t, newFakeStores())

	tests := []struct {
		name string
		req  BlockSlotRequest
	}{
		{"bad date", BlockSlotRequest{Date: "2025/03/10", Time: "09:00", Location: "x"}},
		{"bad time", BlockSlotRequest{Date: "2025-03-10", Time: "09:00:00", Location: "x"}},
		{"missing location", BlockSlotRequest{Date: "2025-03-10", Time: "09:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.req)
			req := httptest.NewRequest(http.MethodPost, "/admin/schedule/blocked-slots", bytes.NewReader(body))
			w := httptest.NewRecorder()
			h.BlockSlot(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestUnblockSlotNotFound(t *testing.T) {
	recorder := &fakeRecorder{}
	store := &fakeBlockStore{unblockErr: ErrNotFound}
	h := NewHandler(newTestResolver(t, newFakeStores()), store, recorder, nil, logging.Default())

	body, _ := json.Marshal(BlockSlotRequest{Date: "2025-03-10", Time: "09:00", Location: "x"})
	req := httptest.NewRequest(http.MethodDelete, "/admin/schedule/blocked-slots", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.UnblockSlot(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if len(recorder.recorded()) != 0 {
		t.Error("failed unblock must not audit")
	}
}

func TestBlockedDayEndpoints(t *testing.T) {
	h, recorder := newTestHandler(t, newFakeStores())

	r := chi.NewRouter()
	r.Post("/admin/schedule/blocked-days", h.BlockDay)
	r.Delete("/admin/schedule/blocked-days/{date}", h.UnblockDay)
	r.Get("/admin/schedule/blocked-days", h.ListBlockedDays)

	body, _ := json.Marshal(BlockDayRequest{Date: "2025-03-10"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/schedule/blocked-days", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("block day: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/admin/schedule/blocked-days/2025-03-10", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("unblock day: expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/schedule/blocked-days", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list days: expected 200, got %d", w.Code)
	}

	events := recorder.recorded()
	if len(events) != 2 || events[0] != audit.EventDayBlocked || events[1] != audit.EventDayUnblocked {
		t.Errorf("unexpected audit events: %v", events)
	}
}

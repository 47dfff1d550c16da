package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStores struct {
	blockedDays  map[string]bool
	blockedTimes map[string][]string // date|location -> times
	appointments map[string][]time.Time

	dayErr  error
	slotErr error
	apptErr error

	mu    sync.Mutex
	calls []string
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		blockedDays:  map[string]bool{},
		blockedTimes: map[string][]string{},
		appointments: map[string][]time.Time{},
	}
}

func (f *fakeStores) IsBlocked(_ context.Context, date string) (bool, error) {
	f.record("day:" + date)
	if f.dayErr != nil {
		return false, f.dayErr
	}
	return f.blockedDays[date], nil
}

func (f *fakeStores) ListTimes(_ context.Context, date, location string) ([]string, error) {
	f.record("slots:" + date)
	if f.slotErr != nil {
		return nil, f.slotErr
	}
	return f.blockedTimes[date+"|"+location], nil
}

func (f *fakeStores) ListBetween(_ context.Context, from, to time.Time, location string) ([]time.Time, error) {
	f.record("appts:" + from.Format("2006-01-02"))
	if f.apptErr != nil {
		return nil, f.apptErr
	}
	var out []time.Time
	for _, at := range f.appointments[location] {
		if !at.Before(from) && !at.After(to) {
			out = append(out, at)
		}
	}
	return out, nil
}

func (f *fakeStores) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func newTestResolver(t *testing.T, stores *fakeStores) *Resolver {
	t.Helper()
	r, err := NewResolver(DefaultConfig(), stores, stores, stores)
	if err != nil {
		t.Fatalf("resolver construction failed: %v", err)
	}
	return r
}

func TestResolveOpenDay(t *testing.T) {
	stores := newFakeStores()
	r := newTestResolver(t, stores)

	got, err := r.Resolve(context.Background(), "2025-03-10", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got.IsDayBlocked {
		t.Error("expected open day")
	}
	if got.Location != "Sede Principal Maracay" {
		t.Errorf("expected default location, got %q", got.Location)
	}
	if len(got.Available) != 21 {
		t.Errorf("expected all 21 slots available, got %d", len(got.Available))
	}
	if len(got.Unavailable) != 0 {
		t.Errorf("expected no unavailable slots, got %v", got.Unavailable)
	}
}

func TestResolveBlockedSlotAndAppointment(t *testing.T) {
	const loc = "Sede Principal Maracay"
	stores := newFakeStores()
	stores.blockedTimes["2025-03-10|"+loc] = []string{"09:00"}
	clinic := time.FixedZone("clinic", -4*3600)
	stores.appointments[loc] = []time.Time{
		time.Date(2025, 3, 10, 14, 0, 0, 0, clinic),
	}
	r := newTestResolver(t, stores)

	got, err := r.Resolve(context.Background(), "2025-03-10", loc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got.IsDayBlocked {
		t.Error("expected open day")
	}
	if len(got.Available) != 19 {
		t.Errorf("expected 19 available slots, got %d: %v", len(got.Available), got.Available)
	}
	for _, slot := range got.Available {
		if slot == "09:00" || slot == "14:00" {
			t.Errorf("slot %s should be unavailable", slot)
		}
	}
	if len(got.Unavailable) != 2 || got.Unavailable[0] != "09:00" || got.Unavailable[1] != "14:00" {
		t.Errorf("expected unavailable [09:00 14:00], got %v", got.Unavailable)
	}
	// Chronological order must survive filtering.
	for i := 1; i < len(got.Available); i++ {
		if got.Available[i] <= got.Available[i-1] {
			t.Errorf("available out of order: %v", got.Available)
		}
	}
}

func TestResolveBlockedDayShortCircuits(t *testing.T) {
	const loc = "Sede Principal Maracay"
	stores := newFakeStores()
	stores.blockedDays["2025-03-10"] = true
	// Blocked-slot and appointment data must be irrelevant.
	stores.blockedTimes["2025-03-10|"+loc] = []string{"09:00"}
	stores.slotErr = errors.New("must not be queried")
	stores.apptErr = errors.New("must not be queried")
	r := newTestResolver(t, stores)

	got, err := r.Resolve(context.Background(), "2025-03-10", loc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !got.IsDayBlocked {
		t.Error("expected IsDayBlocked=true")
	}
	if len(got.Available) != 0 {
		t.Errorf("expected empty available, got %v", got.Available)
	}
}

func TestResolveAppointmentTimezoneBoundary(t *testing.T) {
	const loc = "Sede Principal Maracay"
	stores := newFakeStores()
	// 2025-03-11T02:30:00Z is 2025-03-10 22:30 clinic-local: outside the
	// grid, but inside the local day, so the range query still matches
	// it without shifting the date.
	stores.appointments[loc] = []time.Time{
		time.Date(2025, 3, 11, 2, 30, 0, 0, time.UTC),
	}
	r := newTestResolver(t, stores)

	got, err := r.Resolve(context.Background(), "2025-03-10", loc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got.Unavailable) != 1 || got.Unavailable[0] != "22:30" {
		t.Errorf("expected appointment normalized to clinic-local 22:30, got %v", got.Unavailable)
	}
	// 22:30 is not a grid slot, so all 21 remain available.
	if len(got.Available) != 21 {
		t.Errorf("expected 21 available, got %d", len(got.Available))
	}
}

func TestResolveDeduplicatesUnavailable(t *testing.T) {
	const loc = "Sede Principal Maracay"
	stores := newFakeStores()
	stores.blockedTimes["2025-03-10|"+loc] = []string{"10:00", "10:00:00"}
	clinic := time.FixedZone("clinic", -4*3600)
	stores.appointments[loc] = []time.Time{
		time.Date(2025, 3, 10, 10, 0, 0, 0, clinic),
	}
	r := newTestResolver(t, stores)

	got, err := r.Resolve(context.Background(), "2025-03-10", loc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(got.Unavailable) != 1 || got.Unavailable[0] != "10:00" {
		t.Errorf("expected deduplicated [10:00], got %v", got.Unavailable)
	}
	if len(got.Available) != 20 {
		t.Errorf("expected 20 available, got %d", len(got.Available))
	}
}

func TestResolveInvalidDates(t *testing.T) {
	stores := newFakeStores()
	stores.dayErr = errors.New("must not be queried")
	r := newTestResolver(t, stores)

	for _, date := range []string{
		"",
		"2025/03/10",
		"01-01-2025",
		"2025-13-01",
		"2025-02-30",
		"2025-3-1",
		"20250310",
		"2025-03-10T00:00:00Z",
	} {
		if _, err := r.Resolve(context.Background(), date, ""); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("date %q: expected ErrInvalidDate, got %v", date, err)
		}
	}
	if len(stores.calls) != 0 {
		t.Errorf("stores queried before validation: %v", stores.calls)
	}
}

func TestResolveStoreFailuresPropagate(t *testing.T) {
	boom := errors.New("store down")

	tests := []struct {
		name  string
		setup func(*fakeStores)
	}{
		{"day block store", func(f *fakeStores) { f.dayErr = boom }},
		{"slot block store", func(f *fakeStores) { f.slotErr = boom }},
		{"appointment store", func(f *fakeStores) { f.apptErr = boom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := newFakeStores()
			tt.setup(stores)
			r := newTestResolver(t, stores)

			got, err := r.Resolve(context.Background(), "2025-03-10", "")
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped store error, got %v", err)
			}
			if got != nil {
				t.Error("expected no partial result on store failure")
			}
		})
	}
}

func TestResolveConcurrentCallsIndependent(t *testing.T) {
	stores := newFakeStores()
	stores.blockedDays["2025-03-11"] = true
	r := newTestResolver(t, stores)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		date := "2025-03-10"
		blocked := false
		if i%2 == 1 {
			date = "2025-03-11"
			blocked = true
		}
		wg.Add(1)
		go func(date string, blocked bool) {
			defer wg.Done()
			got, err := r.Resolve(context.Background(), date, "")
			if err != nil {
				t.Errorf("resolve %s failed: %v", date, err)
				return
			}
			if got.IsDayBlocked != blocked {
				t.Errorf("date %s: expected blocked=%v, got %v", date, blocked, got.IsDayBlocked)
			}
		}(date, blocked)
	}
	wg.Wait()
}

func TestResolverGridReturnsCopy(t *testing.T) {
	r := newTestResolver(t, newFakeStores())
	grid := r.Grid()
	grid[0] = "mutated"
	if r.Grid()[0] != "07:00" {
		t.Error("Grid() must return a defensive copy")
	}
}

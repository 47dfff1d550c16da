package schedule

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// ErrInvalidDate is returned when a date does not match the strict
// YYYY-MM-DD form or does not name a real calendar day. It is raised
// before any store read.
var ErrInvalidDate = errors.New("schedule: date must be a valid YYYY-MM-DD")

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DayBlockStore reports whether an entire date is blocked for booking
// across all locations.
type DayBlockStore interface {
	IsBlocked(ctx context.Context, date string) (bool, error)
}

// SlotBlockStore lists the HH:mm times blocked by staff for one date
// at one location.
type SlotBlockStore interface {
	ListTimes(ctx context.Context, date, location string) ([]string, error)
}

// AppointmentStore lists the timestamps of confirmed appointments at a
// location within the half-open instant range [from, to].
type AppointmentStore interface {
	ListBetween(ctx context.Context, from, to time.Time, location string) ([]time.Time, error)
}

// Config carries the resolver's working-hours grid, the fallback
// location, and the clinic's fixed UTC offset used to bound the local
// calendar day when querying appointments.
type Config struct {
	Grid            GridConfig
	DefaultLocation string
	UTCOffset       time.Duration
}

// DefaultConfig returns the production configuration: the standard
// grid, the Maracay headquarters, and the clinic's UTC-4 offset.
func DefaultConfig() Config {
	return Config{
		Grid:            DefaultGrid(),
		DefaultLocation: "Sede Principal Maracay",
		UTCOffset:       -4 * time.Hour,
	}
}

// Availability is the resolver's answer for one (date, location) pair.
// Available preserves grid order; Unavailable is the deduplicated
// union of staff-blocked and appointment-consumed times, sorted.
type Availability struct {
	Date         string   `json:"date"`
	Location     string   `json:"location"`
	IsDayBlocked bool     `json:"isDayBlocked"`
	Available    []string `json:"available"`
	Unavailable  []string `json:"unavailable"`
}

// Resolver computes slot availability from the three schedule stores.
// It holds no mutable state: the grid is expanded once at construction
// and every Resolve call is an independent read-and-compute pass, so
// concurrent calls never interact.
type Resolver struct {
	cfg  Config
	grid []string
	zone *time.Location

	days  DayBlockStore
	slots SlotBlockStore
	appts AppointmentStore
}

// NewResolver validates the grid and wires the resolver to its stores.
func NewResolver(cfg Config, days DayBlockStore, slots SlotBlockStore, appts AppointmentStore) (*Resolver, error) {
	if days == nil || slots == nil || appts == nil {
		return nil, errors.New("schedule: resolver requires all three stores")
	}
	grid, err := cfg.Grid.Slots()
	if err != nil {
		return nil, err
	}
	offset := int(cfg.UTCOffset / time.Second)
	return &Resolver{
		cfg:   cfg,
		grid:  grid,
		zone:  time.FixedZone("clinic", offset),
		days:  days,
		slots: slots,
		appts: appts,
	}, nil
}

// Grid returns the full candidate slot sequence for a working day.
func (r *Resolver) Grid() []string {
	out := make([]string, len(r.grid))
	copy(out, r.grid)
	return out
}

// Resolve computes the bookable slots for date at location. An empty
// location falls back to the configured default. Any store failure
// aborts the computation; availability is never derived from
// incomplete reads.
func (r *Resolver) Resolve(ctx context.Context, date, location string) (*Availability, error) {
	if !datePattern.MatchString(date) {
		return nil, ErrInvalidDate
	}
	day, err := time.ParseInLocation("2006-01-02", date, r.zone)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if location == "" {
		location = r.cfg.DefaultLocation
	}

	blocked, err := r.days.IsBlocked(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("schedule: day-block lookup failed: %w", err)
	}
	if blocked {
		return &Availability{
			Date:         date,
			Location:     location,
			IsDayBlocked: true,
			Available:    []string{},
			Unavailable:  []string{},
		}, nil
	}

	blockedTimes, err := r.slots.ListTimes(ctx, date, location)
	if err != nil {
		return nil, fmt.Errorf("schedule: slot-block lookup failed: %w", err)
	}

	from := day
	to := day.Add(24*time.Hour - time.Second)
	appts, err := r.appts.ListBetween(ctx, from, to, location)
	if err != nil {
		return nil, fmt.Errorf("schedule: appointment lookup failed: %w", err)
	}

	taken := make(map[string]struct{}, len(blockedTimes)+len(appts))
	for _, t := range blockedTimes {
		taken[normalizeTime(t)] = struct{}{}
	}
	for _, at := range appts {
		taken[at.In(r.zone).Format("15:04")] = struct{}{}
	}

	available := make([]string, 0, len(r.grid))
	for _, slot := range r.grid {
		if _, ok := taken[slot]; !ok {
			available = append(available, slot)
		}
	}

	unavailable := make([]string, 0, len(taken))
	for t := range taken {
		unavailable = append(unavailable, t)
	}
	sort.Strings(unavailable)

	return &Availability{
		Date:        date,
		Location:    location,
		Available:   available,
		Unavailable: unavailable,
	}, nil
}

// normalizeTime truncates stored time values such as "09:00:00" to the
// HH:mm form used by the grid.
func normalizeTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

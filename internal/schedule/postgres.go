package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the subset of pgxpool.Pool the store needs; tests
// inject a pgxmock pool through it.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists schedule blocks and serves the resolver's
// three read interfaces from the relational database.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore initializes the store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(q pgxQuerier) *PostgresStore {
	return &PostgresStore{db: q}
}

// IsBlocked reports whether the whole date is blocked.
func (s *PostgresStore) IsBlocked(ctx context.Context, date string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blocked_days WHERE day = $1)`
	var blocked bool
	if err := s.db.QueryRow(ctx, query, date).Scan(&blocked); err != nil {
		return false, fmt.Errorf("schedule: day-block query failed: %w", err)
	}
	return blocked, nil
}

// ListTimes returns the HH:mm values blocked for date at location.
func (s *PostgresStore) ListTimes(ctx context.Context, date, location string) ([]string, error) {
	const query = `
		SELECT to_char(slot_time, 'HH24:MI')
		FROM blocked_slots
		WHERE day = $1 AND location = $2
	`
	rows, err := s.db.Query(ctx, query, date, location)
	if err != nil {
		return nil, fmt.Errorf("schedule: slot-block query failed: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("schedule: slot-block scan failed: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: slot-block rows failed: %w", err)
	}
	return times, nil
}

// ListBetween returns appointment timestamps at location inside the
// inclusive [from, to] range, excluding cancelled bookings.
func (s *PostgresStore) ListBetween(ctx context.Context, from, to time.Time, location string) ([]time.Time, error) {
	const query = `
		SELECT scheduled_at
		FROM appointments
		WHERE location = $1
		  AND scheduled_at BETWEEN $2 AND $3
		  AND status <> 'cancelled'
	`
	rows, err := s.db.Query(ctx, query, location, from, to)
	if err != nil {
		return nil, fmt.Errorf("schedule: appointment query failed: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("schedule: appointment scan failed: %w", err)
		}
		out = append(out, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: appointment rows failed: %w", err)
	}
	return out, nil
}

// BlockSlot inserts a slot block keyed by (date, time, location).
func (s *PostgresStore) BlockSlot(ctx context.Context, req *BlockSlotRequest) (*BlockedSlot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New()
	const query = `
		INSERT INTO blocked_slots (id, day, slot_time, location, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := s.db.QueryRow(ctx, query, id, req.Date, req.Time, req.Location, req.Reason).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("schedule: block slot failed: %w", err)
	}
	return &BlockedSlot{
		ID:        id.String(),
		Date:      req.Date,
		Time:      req.Time,
		Location:  req.Location,
		Reason:    req.Reason,
		CreatedAt: createdAt,
	}, nil
}

// UnblockSlot removes the block identified by the same key triple the
// create used.
func (s *PostgresStore) UnblockSlot(ctx context.Context, date, slotTime, location string) error {
	const query = `
		DELETE FROM blocked_slots
		WHERE day = $1 AND slot_time = $2 AND location = $3
	`
	tag, err := s.db.Exec(ctx, query, date, slotTime, location)
	if err != nil {
		return fmt.Errorf("schedule: unblock slot failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBlockedSlots returns all slot blocks for a date across
// locations, in chronological order.
func (s *PostgresStore) ListBlockedSlots(ctx context.Context, date string) ([]BlockedSlot, error) {
	const query = `
		SELECT id, to_char(day, 'YYYY-MM-DD'), to_char(slot_time, 'HH24:MI'), location, reason, created_at
		FROM blocked_slots
		WHERE day = $1
		ORDER BY slot_time, location
	`
	rows, err := s.db.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("schedule: list slot blocks failed: %w", err)
	}
	defer rows.Close()

	var blocks []BlockedSlot
	for rows.Next() {
		var b BlockedSlot
		if err := rows.Scan(&b.ID, &b.Date, &b.Time, &b.Location, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("schedule: scan slot block failed: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list slot blocks rows failed: %w", err)
	}
	return blocks, nil
}

// BlockDay marks an entire date unavailable.
func (s *PostgresStore) BlockDay(ctx context.Context, req *BlockDayRequest) (*BlockedDay, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New()
	const query = `
		INSERT INTO blocked_days (id, day)
		VALUES ($1, $2)
		ON CONFLICT (day) DO UPDATE SET day = EXCLUDED.day
		RETURNING created_at
	`
	var createdAt time.Time
	if err := s.db.QueryRow(ctx, query, id, req.Date).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("schedule: block day failed: %w", err)
	}
	return &BlockedDay{ID: id.String(), Date: req.Date, CreatedAt: createdAt}, nil
}

// UnblockDay removes a day block.
func (s *PostgresStore) UnblockDay(ctx context.Context, date string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM blocked_days WHERE day = $1`, date)
	if err != nil {
		return fmt.Errorf("schedule: unblock day failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBlockedDays returns blocked dates on or after from, ascending.
func (s *PostgresStore) ListBlockedDays(ctx context.Context, from string) ([]BlockedDay, error) {
	const query = `
		SELECT id, to_char(day, 'YYYY-MM-DD'), created_at
		FROM blocked_days
		WHERE day >= $1
		ORDER BY day
	`
	rows, err := s.db.Query(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("schedule: list blocked days failed: %w", err)
	}
	defer rows.Close()

	var days []BlockedDay
	for rows.Next() {
		var d BlockedDay
		if err := rows.Scan(&d.ID, &d.Date, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("schedule: scan blocked day failed: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list blocked days rows failed: %w", err)
	}
	return days, nil
}

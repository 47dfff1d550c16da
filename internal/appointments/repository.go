package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores appointments in the relational database.
type Repository struct {
	db pgxQuerier
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(q pgxQuerier) *Repository {
	return &Repository{db: q}
}

// Create inserts a confirmed appointment row.
func (r *Repository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := uuid.New()
	const query = `
		INSERT INTO appointments (id, patient_name, patient_email, patient_phone, service, scheduled_at, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'confirmed')
		RETURNING created_at
	`
	var createdAt time.Time
	err := r.db.QueryRow(ctx, query,
		id,
		appt.PatientName,
		appt.PatientEmail,
		appt.PatientPhone,
		appt.Service,
		appt.ScheduledAt,
		appt.Location,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	out := *appt
	out.ID = id.String()
	out.Status = "confirmed"
	out.CreatedAt = createdAt
	return &out, nil
}

// GetByID fetches one appointment.
func (r *Repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	const query = `
		SELECT id, patient_name, patient_email, patient_phone, service, scheduled_at, location, status, created_at
		FROM appointments
		WHERE id = $1
	`
	var a Appointment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.PatientName,
		&a.PatientEmail,
		&a.PatientPhone,
		&a.Service,
		&a.ScheduledAt,
		&a.Location,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return &a, nil
}

// ListBetween returns non-cancelled appointments at location inside
// [from, to], ordered by time.
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time, location string) ([]Appointment, error) {
	const query = `
		SELECT id, patient_name, patient_email, patient_phone, service, scheduled_at, location, status, created_at
		FROM appointments
		WHERE location = $1
		  AND scheduled_at BETWEEN $2 AND $3
		  AND status <> 'cancelled'
		ORDER BY scheduled_at
	`
	rows, err := r.db.Query(ctx, query, location, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID,
			&a.PatientName,
			&a.PatientEmail,
			&a.PatientPhone,
			&a.Service,
			&a.ScheduledAt,
			&a.Location,
			&a.Status,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list rows failed: %w", err)
	}
	return out, nil
}

// Cancel marks an appointment cancelled, freeing its slot.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	const query = `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE id = $1 AND status <> 'cancelled'
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("appointments: cancel failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

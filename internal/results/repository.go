// Package results manages lab report records for the patient portal.
package results

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a result id does not exist.
var ErrNotFound = errors.New("results: not found")

// ErrAlreadyReleased is returned when a release targets an already
// released report.
var ErrAlreadyReleased = errors.New("results: already released")

// Result is one lab report.
type Result struct {
	ID           string     `json:"id"`
	PatientName  string     `json:"patient_name"`
	PatientEmail string     `json:"patient_email"`
	OrderCode    string     `json:"order_code"`
	TestName     string     `json:"test_name"`
	ReportURL    string     `json:"report_url,omitempty"`
	Released     bool       `json:"released"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateRequest registers a new report pending release.
type CreateRequest struct {
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	OrderCode    string `json:"order_code"`
	TestName     string `json:"test_name"`
	ReportURL    string `json:"report_url,omitempty"`
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.PatientName) == "" {
		return errors.New("results: patient name is required")
	}
	if strings.TrimSpace(r.PatientEmail) == "" {
		return errors.New("results: patient email is required")
	}
	if strings.TrimSpace(r.OrderCode) == "" {
		return errors.New("results: order code is required")
	}
	if strings.TrimSpace(r.TestName) == "" {
		return errors.New("results: test name is required")
	}
	return nil
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores lab results in the relational database.
type Repository struct {
	db pgxQuerier
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("results: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithQuerier(q pgxQuerier) *Repository {
	return &Repository{db: q}
}

// Create inserts an unreleased report row.
func (r *Repository) Create(ctx context.Context, req *CreateRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New()
	const query = `
		INSERT INTO lab_results (id, patient_name, patient_email, order_code, test_name, report_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query, id, req.PatientName, req.PatientEmail, req.OrderCode, req.TestName, req.ReportURL).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("results: insert failed: %w", err)
	}
	return &Result{
		ID:           id.String(),
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		OrderCode:    req.OrderCode,
		TestName:     req.TestName,
		ReportURL:    req.ReportURL,
		CreatedAt:    createdAt,
	}, nil
}

// ListReleased returns released reports for one patient, newest first.
// Unreleased reports stay invisible to the portal.
func (r *Repository) ListReleased(ctx context.Context, patientEmail string) ([]Result, error) {
	const query = `
		SELECT id, patient_name, patient_email, order_code, test_name, report_url, released, released_at, created_at
		FROM lab_results
		WHERE patient_email = $1 AND released
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, patientEmail)
	if err != nil {
		return nil, fmt.Errorf("results: list failed: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(
			&res.ID,
			&res.PatientName,
			&res.PatientEmail,
			&res.OrderCode,
			&res.TestName,
			&res.ReportURL,
			&res.Released,
			&res.ReleasedAt,
			&res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("results: scan failed: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results: list rows failed: %w", err)
	}
	return out, nil
}

// Release marks a report visible to the patient and returns the
// refreshed row.
func (r *Repository) Release(ctx context.Context, id string) (*Result, error) {
	const query = `
		UPDATE lab_results
		SET released = TRUE, released_at = now()
		WHERE id = $1 AND NOT released
		RETURNING patient_name, patient_email, order_code, test_name, report_url, released_at, created_at
	`
	res := Result{ID: id, Released: true}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&res.PatientName,
		&res.PatientEmail,
		&res.OrderCode,
		&res.TestName,
		&res.ReportURL,
		&res.ReleasedAt,
		&res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, releaseConflict(ctx, r.db, id)
		}
		return nil, fmt.Errorf("results: release failed: %w", err)
	}
	return &res, nil
}

// releaseConflict distinguishes a missing row from a double release.
func releaseConflict(ctx context.Context, db pgxQuerier, id string) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lab_results WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("results: release lookup failed: %w", err)
	}
	if exists {
		return ErrAlreadyReleased
	}
	return ErrNotFound
}

package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return newRepositoryWithQuerier(mock), mock
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	clinic := time.FixedZone("clinic", -4*3600)
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, clinic)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "María Pérez", "maria@example.com", "", "Hematología completa", at, "Sede Principal Maracay").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	appt, err := repo.Create(context.Background(), &Appointment{
		PatientName:  "María Pérez",
		PatientEmail: "maria@example.com",
		Service:      "Hematología completa",
		ScheduledAt:  at,
		Location:     "Sede Principal Maracay",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if appt.ID == "" || appt.Status != "confirmed" {
		t.Errorf("unexpected appointment: %#v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, patient_name").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryCancelFlow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE appointments").
		WithArgs("a-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.Cancel(context.Background(), "a-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	mock.ExpectExec("UPDATE appointments").
		WithArgs("a-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := repo.Cancel(context.Background(), "a-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat cancel, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryListBetween(t *testing.T) {
	repo, mock := newMockRepo(t)

	clinic := time.FixedZone("clinic", -4*3600)
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, clinic)
	to := from.Add(24*time.Hour - time.Second)
	at := time.Date(2025, 3, 10, 14, 0, 0, 0, clinic)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "patient_name", "patient_email", "patient_phone",
		"service", "scheduled_at", "location", "status", "created_at",
	}).AddRow("a-1", "María Pérez", "maria@example.com", "", "Perfil 20", at, "Sede Principal Maracay", "confirmed", now)

	mock.ExpectQuery("SELECT id, patient_name").
		WithArgs("Sede Principal Maracay", from, to).
		WillReturnRows(rows)

	appts, err := repo.ListBetween(context.Background(), from, to, "Sede Principal Maracay")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(appts) != 1 || appts[0].ID != "a-1" {
		t.Errorf("unexpected appointments: %#v", appts)
	}
}

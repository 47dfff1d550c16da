// Package audit records an immutable trail of scheduling and portal
// activity.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/labdiagnostica/platform/pkg/logging"
)

// EventType identifies what happened.
type EventType string

const (
	// EventAvailabilityChecked is logged for every availability query.
	EventAvailabilityChecked EventType = "schedule.availability_checked"
	// EventSlotBlocked is logged when staff block a single slot.
	EventSlotBlocked EventType = "schedule.slot_blocked"
	// EventSlotUnblocked is logged when staff remove a slot block.
	EventSlotUnblocked EventType = "schedule.slot_unblocked"
	// EventDayBlocked is logged when staff block a full day.
	EventDayBlocked EventType = "schedule.day_blocked"
	// EventDayUnblocked is logged when staff unblock a day.
	EventDayUnblocked EventType = "schedule.day_unblocked"
	// EventAppointmentCreated is logged when a booking is confirmed.
	EventAppointmentCreated EventType = "appointments.created"
	// EventAppointmentCancelled is logged when a booking is cancelled.
	EventAppointmentCancelled EventType = "appointments.cancelled"
	// EventResultReleased is logged when a lab report is released to a
	// patient.
	EventResultReleased EventType = "results.released"
	// EventChatMessage is logged for each assistant exchange.
	EventChatMessage EventType = "chat.message"
)

// Event is a single audit record. Details carries event-specific JSON.
type Event struct {
	ID        string          `json:"id"`
	EventType EventType       `json:"event_type"`
	Actor     string          `json:"actor,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter narrows a query over the audit log.
type Filter struct {
	EventType EventType
	Actor     string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Service writes and reads audit events.
type Service struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewService creates the audit service.
func NewService(db *sql.DB, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{db: db, logger: logger}
}

// LogEvent inserts one audit row.
func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO audit_events (id, event_type, actor, subject, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.Actor),
		nullString(event.Subject),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to log event: %w", err)
	}
	return nil
}

// Record logs an event in the background, detached from the request
// lifecycle. Failures are logged and dropped so auditing can never
// block or mask the primary response.
func (s *Service) Record(eventType EventType, actor, subject string, details any) {
	var raw json.RawMessage
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			s.logger.Error("audit details marshal failed", "error", err, "event_type", eventType)
		} else {
			raw = data
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.LogEvent(ctx, Event{
			EventType: eventType,
			Actor:     actor,
			Subject:   subject,
			Details:   raw,
		})
		if err != nil {
			s.logger.Error("audit write failed", "error", err, "event_type", eventType)
		}
	}()
}

// QueryEvents retrieves audit rows matching the filter, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, event_type, actor, subject, details, created_at
		FROM audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if filter.Actor != "" {
		query += fmt.Sprintf(" AND actor = $%d", argIdx)
		args = append(args, filter.Actor)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var actor, subject sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &actor, &subject, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.Actor = actor.String
		e.Subject = subject.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

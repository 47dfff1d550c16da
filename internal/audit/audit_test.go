package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLogEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db, nil)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "availability checked",
			event: Event{
				EventType: EventAvailabilityChecked,
				Actor:     "10.0.0.1",
				Subject:   "2025-03-10",
				Details:   json.RawMessage(`{"location": "Sede Principal Maracay"}`),
			},
		},
		{
			name: "slot blocked",
			event: Event{
				EventType: EventSlotBlocked,
				Actor:     "admin@lab",
				Subject:   "2025-03-10 09:00",
			},
		},
		{
			name: "result released",
			event: Event{
				EventType: EventResultReleased,
				Actor:     "admin@lab",
				Subject:   "r-1",
				Details:   json.RawMessage(`{"order_code": "ORD-1001"}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec("INSERT INTO audit_events").
				WillReturnResult(sqlmock.NewResult(1, 1))

			err := service.LogEvent(context.Background(), tt.event)
			assert.NoError(t, err)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceLogEventFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db, nil)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(sqlmock.AnyArg(), string(EventDayBlocked), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.LogEvent(context.Background(), Event{EventType: EventDayBlocked})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceQueryEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db, nil)

	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "event_type", "actor", "subject", "details", "created_at"}).
		AddRow("ev-1", string(EventAvailabilityChecked), "10.0.0.1", "2025-03-10", []byte(`{}`), created).
		AddRow("ev-2", string(EventAvailabilityChecked), nil, nil, nil, created.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, event_type, actor, subject, details, created_at").
		WithArgs(string(EventAvailabilityChecked)).
		WillReturnRows(rows)

	events, err := service.QueryEvents(context.Background(), Filter{EventType: EventAvailabilityChecked})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev-1", events[0].ID)
	assert.Equal(t, "10.0.0.1", events[0].Actor)
	assert.Empty(t, events[1].Actor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceQueryEventsFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db, nil)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	mock.ExpectQuery("SELECT id, event_type, actor, subject, details, created_at").
		WithArgs("admin@lab", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "actor", "subject", "details", "created_at"}))

	events, err := service.QueryEvents(context.Background(), Filter{
		Actor:     "admin@lab",
		StartTime: start,
		EndTime:   end,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMarshalsDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db, nil)

	done := make(chan struct{})
	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.MatchExpectationsInOrder(false)

	go func() {
		service.Record(EventChatMessage, "10.0.0.1", "conv-1", map[string]string{"provider": "bedrock"})
		close(done)
	}()
	<-done

	// Record detaches from the caller; give the background insert a
	// moment to land.
	deadline := time.After(2 * time.Second)
	for {
		if mock.ExpectationsWereMet() == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("background audit insert never happened")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

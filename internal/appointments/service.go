package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/internal/notify"
	"github.com/labdiagnostica/platform/internal/observability/metrics"
	"github.com/labdiagnostica/platform/internal/schedule"
	"github.com/labdiagnostica/platform/pkg/logging"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, appt *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListBetween(ctx context.Context, from, to time.Time, location string) ([]Appointment, error)
	Cancel(ctx context.Context, id string) error
}

// AvailabilityResolver answers whether a slot is still bookable.
type AvailabilityResolver interface {
	Resolve(ctx context.Context, date, location string) (*schedule.Availability, error)
}

// Recorder is the async audit hook.
type Recorder interface {
	Record(eventType audit.EventType, actor, subject string, details any)
}

// ServiceConfig carries the clinic's booking parameters.
type ServiceConfig struct {
	DefaultLocation string
	UTCOffset       time.Duration
}

// Service books and cancels appointments. Booking re-checks the
// requested slot against current availability before writing so a
// blocked or already-consumed slot is rejected rather than
// double-booked.
type Service struct {
	store    Store
	resolver AvailabilityResolver
	mailer   notify.EmailSender
	auditor  Recorder
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	zone     *time.Location
	cfg      ServiceConfig
}

// NewService wires the booking service.
func NewService(store Store, resolver AvailabilityResolver, mailer notify.EmailSender, auditor Recorder, m *metrics.BookingMetrics, cfg ServiceConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		resolver: resolver,
		mailer:   mailer,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
		zone:     time.FixedZone("clinic", int(cfg.UTCOffset/time.Second)),
		cfg:      cfg,
	}
}

// Create books a slot. The requested time must be present in the
// current availability for the date and location.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		s.metrics.Observe("create", "invalid")
		return nil, err
	}
	if req.Location == "" {
		req.Location = s.cfg.DefaultLocation
	}

	availability, err := s.resolver.Resolve(ctx, req.Date, req.Location)
	if err != nil {
		s.metrics.Observe("create", "error")
		return nil, fmt.Errorf("appointments: availability check failed: %w", err)
	}
	if availability.IsDayBlocked || !slotOffered(availability.Available, req.Time) {
		s.metrics.Observe("create", "conflict")
		return nil, ErrSlotUnavailable
	}

	scheduledAt, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, s.zone)
	if err != nil {
		s.metrics.Observe("create", "invalid")
		return nil, fmt.Errorf("appointments: bad schedule time: %w", err)
	}

	appt, err := s.store.Create(ctx, &Appointment{
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		PatientPhone: req.PatientPhone,
		Service:      req.Service,
		ScheduledAt:  scheduledAt,
		Location:     req.Location,
	})
	if err != nil {
		s.metrics.Observe("create", "error")
		return nil, err
	}
	s.metrics.Observe("create", "ok")

	s.sendConfirmation(appt, req.Date, req.Time)

	if s.auditor != nil {
		s.auditor.Record(audit.EventAppointmentCreated, req.PatientEmail, appt.ID, map[string]string{
			"date":     req.Date,
			"time":     req.Time,
			"location": appt.Location,
			"service":  appt.Service,
		})
	}
	return appt, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// ListDay returns the appointments for one local calendar day at a
// location.
func (s *Service) ListDay(ctx context.Context, date, location string) ([]Appointment, error) {
	if !datePattern.MatchString(date) {
		return nil, schedule.ErrInvalidDate
	}
	day, err := time.ParseInLocation("2006-01-02", date, s.zone)
	if err != nil {
		return nil, schedule.ErrInvalidDate
	}
	if location == "" {
		location = s.cfg.DefaultLocation
	}
	return s.store.ListBetween(ctx, day, day.Add(24*time.Hour-time.Second), location)
}

// Cancel releases a booked slot.
func (s *Service) Cancel(ctx context.Context, id, actor string) error {
	if err := s.store.Cancel(ctx, id); err != nil {
		s.metrics.Observe("cancel", "error")
		return err
	}
	s.metrics.Observe("cancel", "ok")
	if s.auditor != nil {
		s.auditor.Record(audit.EventAppointmentCancelled, actor, id, nil)
	}
	return nil
}

// sendConfirmation emails the patient in the background. Delivery
// failure is logged and never rolls back the booking.
func (s *Service) sendConfirmation(appt *Appointment, date, slotTime string) {
	if s.mailer == nil {
		return
	}
	msg := notify.AppointmentConfirmation(appt.PatientEmail, notify.AppointmentDetails{
		PatientName: appt.PatientName,
		Service:     appt.Service,
		Date:        date,
		Time:        slotTime,
		Location:    appt.Location,
	})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Error("confirmation email failed", "error", err, "appointment_id", appt.ID)
		}
	}()
}

func slotOffered(available []string, slot string) bool {
	for _, s := range available {
		if s == slot {
			return true
		}
	}
	return false
}

package results

import (
	"context"
	"time"

	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/internal/notify"
	"github.com/labdiagnostica/platform/pkg/logging"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, req *CreateRequest) (*Result, error)
	ListReleased(ctx context.Context, patientEmail string) ([]Result, error)
	Release(ctx context.Context, id string) (*Result, error)
}

// Recorder writes audit events.
type Recorder interface {
	Record(eventType audit.EventType, actor, subject string, details any)
}

// Service coordinates result release with patient notification.
type Service struct {
	store   Store
	mailer  notify.EmailSender
	auditor Recorder
	logger  *logging.Logger
}

// NewService wires a results service. mailer and auditor may be nil.
func NewService(store Store, mailer notify.EmailSender, auditor Recorder, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, mailer: mailer, auditor: auditor, logger: logger}
}

// Create registers a pending report.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Result, error) {
	return s.store.Create(ctx, req)
}

// ListReleased lists the portal-visible reports for a patient.
func (s *Service) ListReleased(ctx context.Context, patientEmail string) ([]Result, error) {
	return s.store.ListReleased(ctx, patientEmail)
}

// Release publishes a report and notifies the patient by email.
// The email goes out asynchronously so a slow provider cannot hold
// the admin request open.
func (s *Service) Release(ctx context.Context, id, actor string) (*Result, error) {
	res, err := s.store.Release(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.mailer != nil {
		go s.sendNotification(res)
	}
	if s.auditor != nil {
		s.auditor.Record(audit.EventResultReleased, actor, res.ID, map[string]string{
			"order_code":    res.OrderCode,
			"patient_email": res.PatientEmail,
		})
	}
	return res, nil
}

func (s *Service) sendNotification(res *Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := notify.ResultsReady(res.PatientEmail, res.PatientName, res.OrderCode, res.ReportURL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("results notification failed", "error", err, "result_id", res.ID)
		return
	}
	s.logger.Info("results notification sent", "result_id", res.ID, "order_code", res.OrderCode)
}

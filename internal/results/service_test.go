package results

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/internal/notify"
)

type fakeStore struct {
	releaseResult *Result
	releaseErr    error
}

func (f *fakeStore) Create(_ context.Context, req *CreateRequest) (*Result, error) {
	return &Result{ID: "new", PatientEmail: req.PatientEmail, OrderCode: req.OrderCode}, nil
}

func (f *fakeStore) ListReleased(context.Context, string) ([]Result, error) { return nil, nil }

func (f *fakeStore) Release(context.Context, string) (*Result, error) {
	return f.releaseResult, f.releaseErr
}

type captureMailer struct {
	mu   sync.Mutex
	sent chan notify.EmailMessage
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{sent: make(chan notify.EmailMessage, 1)}
}

func (c *captureMailer) Send(_ context.Context, msg notify.EmailMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent <- msg
	return nil
}

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.EventType
	actors []string
}

func (c *captureRecorder) Record(eventType audit.EventType, actor, _ string, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventType)
	c.actors = append(c.actors, actor)
}

func TestServiceReleaseNotifiesAndAudits(t *testing.T) {
	store := &fakeStore{releaseResult: &Result{
		ID:           "r-1",
		PatientName:  "María Pérez",
		PatientEmail: "maria@example.com",
		OrderCode:    "ORD-1001",
		Released:     true,
	}}
	mailer := newCaptureMailer()
	recorder := &captureRecorder{}
	svc := NewService(store, mailer, recorder, nil)

	res, err := svc.Release(context.Background(), "r-1", "admin@lab")
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if res.ID != "r-1" {
		t.Errorf("id = %q", res.ID)
	}

	select {
	case msg := <-mailer.sent:
		if msg.To != "maria@example.com" {
			t.Errorf("email to = %q", msg.To)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification email was never sent")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.events) != 1 || recorder.events[0] != audit.EventResultReleased {
		t.Errorf("audit events = %v", recorder.events)
	}
	if recorder.actors[0] != "admin@lab" {
		t.Errorf("actor = %q", recorder.actors[0])
	}
}

func TestServiceReleaseFailureSkipsNotification(t *testing.T) {
	store := &fakeStore{releaseErr: errors.New("db down")}
	mailer := newCaptureMailer()
	svc := NewService(store, mailer, &captureRecorder{}, nil)

	if _, err := svc.Release(context.Background(), "r-1", "admin@lab"); err == nil {
		t.Fatal("expected error")
	}

	select {
	case <-mailer.sent:
		t.Fatal("no email should be sent on release failure")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServiceReleaseWithoutMailer(t *testing.T) {
	store := &fakeStore{releaseResult: &Result{ID: "r-1", Released: true}}
	svc := NewService(store, nil, nil, nil)

	if _, err := svc.Release(context.Background(), "r-1", "admin@lab"); err != nil {
		t.Fatalf("Release without mailer: %v", err)
	}
}

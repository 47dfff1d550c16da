// Package appointments manages patient bookings against the clinic
// slot grid.
package appointments

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned when an appointment id does not exist.
var ErrNotFound = errors.New("appointments: not found")

// ErrSlotUnavailable is returned when the requested slot is blocked or
// already booked.
var ErrSlotUnavailable = errors.New("appointments: requested slot is not available")

// ErrInvalidRequest wraps every booking-payload validation failure.
var ErrInvalidRequest = errors.New("appointments: invalid request")

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Appointment is a confirmed patient booking.
type Appointment struct {
	ID           string    `json:"id"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email"`
	PatientPhone string    `json:"patient_phone,omitempty"`
	Service      string    `json:"service"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Location     string    `json:"location"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateRequest is the booking payload.
type CreateRequest struct {
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	PatientPhone string `json:"patient_phone,omitempty"`
	Service      string `json:"service"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Location     string `json:"location,omitempty"`
}

// Validate rejects incomplete or malformed booking requests.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.PatientName) == "" {
		return fmt.Errorf("%w: patient name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.PatientEmail) == "" {
		return fmt.Errorf("%w: patient email is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Service) == "" {
		return fmt.Errorf("%w: service is required", ErrInvalidRequest)
	}
	if !datePattern.MatchString(r.Date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("%w: date must be a valid calendar day", ErrInvalidRequest)
	}
	if !timePattern.MatchString(r.Time) {
		return fmt.Errorf("%w: time must be HH:mm", ErrInvalidRequest)
	}
	return nil
}

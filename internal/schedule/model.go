package schedule

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidTime is returned when a management request carries a time
// outside the strict HH:mm form.
var ErrInvalidTime = errors.New("schedule: time must be HH:mm")

// ErrNotFound is returned when a delete targets a block that does not
// exist.
var ErrNotFound = errors.New("schedule: block not found")

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// BlockedSlot marks one grid slot unavailable at one location on one
// date.
type BlockedSlot struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Location  string    `json:"location"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BlockedDay marks a full date unavailable at every location.
type BlockedDay struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// BlockSlotRequest is the payload for creating or deleting a slot
// block. Reason is only honored on create.
type BlockSlotRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Reason   string `json:"reason,omitempty"`
}

// Validate checks the key triple before it reaches the store.
func (r *BlockSlotRequest) Validate() error {
	if !datePattern.MatchString(r.Date) {
		return ErrInvalidDate
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return ErrInvalidDate
	}
	if !timePattern.MatchString(r.Time) {
		return ErrInvalidTime
	}
	if strings.TrimSpace(r.Location) == "" {
		return errors.New("schedule: location is required")
	}
	return nil
}

// BlockDayRequest is the payload for blocking or unblocking a date.
type BlockDayRequest struct {
	Date string `json:"date"`
}

// Validate rejects malformed dates before any write.
func (r *BlockDayRequest) Validate() error {
	if !datePattern.MatchString(r.Date) {
		return ErrInvalidDate
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

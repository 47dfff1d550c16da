// Package schedule computes bookable appointment slots for a clinic day.
package schedule

import (
	"fmt"
	"time"
)

// GridConfig describes the fixed daily slot grid. Start and End are
// clock times in HH:mm form; End is inclusive, so a slot exactly at
// closing time is offered.
type GridConfig struct {
	Start string
	End   string
	Step  time.Duration
}

// DefaultGrid returns the clinic's standard working-day grid:
// half-hour slots from 07:00 through 17:00.
func DefaultGrid() GridConfig {
	return GridConfig{
		Start: "07:00",
		End:   "17:00",
		Step:  30 * time.Minute,
	}
}

// Slots expands the grid into its ordered HH:mm sequence. A step that
// does not evenly divide the span simply omits the trailing partial
// slot; it is never rounded up to the end time.
func (g GridConfig) Slots() ([]string, error) {
	start, err := parseClock(g.Start)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid grid start %q: %w", g.Start, err)
	}
	end, err := parseClock(g.End)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid grid end %q: %w", g.End, err)
	}
	if g.Step <= 0 {
		return nil, fmt.Errorf("schedule: grid step must be positive, got %s", g.Step)
	}
	if end < start {
		return nil, fmt.Errorf("schedule: grid end %s precedes start %s", g.End, g.Start)
	}

	step := int(g.Step / time.Minute)
	if step == 0 {
		return nil, fmt.Errorf("schedule: grid step %s is below one minute", g.Step)
	}

	var slots []string
	for t := start; t <= end; t += step {
		slots = append(slots, fmt.Sprintf("%02d:%02d", t/60, t%60))
	}
	return slots, nil
}

// parseClock converts an HH:mm string into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

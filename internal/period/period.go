// Package period models a settlement period: an inclusive range of calendar
// dates no longer than twelve months (§556 (3) BGB).
package period

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

// Layout is the wire format of dates
const Layout = "2006-01-02"

// Period is an inclusive date range
type Period struct {
	Start time.Time
	End   time.Time
}

// New validates and builds a period from two dates; times of day are dropped
func New(start, end time.Time) (Period, error) {
	p := Period{Start: truncate(start), End: truncate(end)}
	if p.End.Before(p.Start) {
		return Period{}, calcerr.Invalid("period.end", "must not be before period.start")
	}
	if !p.End.Before(p.Start.AddDate(1, 0, 0)) {
		return Period{}, calcerr.Invalid("period", "must not exceed twelve months, got %s", p)
	}
	return p, nil
}

// Parse builds a period from two YYYY-MM-DD strings
func Parse(start, end string) (Period, error) {
	s, err := ParseDate("period.start", start)
	if err != nil {
		return Period{}, err
	}
	e, err := ParseDate("period.end", end)
	if err != nil {
		return Period{}, err
	}
	return New(s, e)
}

// ParseDate parses a YYYY-MM-DD string, naming field on failure
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, calcerr.Invalid(field, "expected YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

// Days returns the number of calendar days in the period
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// Overlap intersects the period with an occupancy starting at from and
// ending at to (nil for open-ended)
func (p Period) Overlap(from time.Time, to *time.Time) (Period, bool) {
	start := p.Start
	if f := truncate(from); f.After(start) {
		start = f
	}
	end := p.End
	if to != nil {
		if t := truncate(*to); t.Before(end) {
			end = t
		}
	}
	if end.Before(start) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

// Months counts the calendar months touched by the period
func (p Period) Months() int {
	return (p.End.Year()-p.Start.Year())*12 + int(p.End.Month()-p.Start.Month()) + 1
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format(Layout), p.End.Format(Layout))
}

type wire struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON encodes the period as {"start": "...", "end": "..."}
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Start: p.Start.Format(Layout), End: p.End.Format(Layout)})
}

// UnmarshalJSON decodes and validates a period
func (p *Period) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := Parse(w.Start, w.End)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Package slot builds the bookable grid for a court day and checks it
// against existing reservations.  Intervals are half-open: [Start, End).
package slot

import (
	"errors"
	"fmt"
	"time"

	"github.com/courtshare/courtshare/internal/clock"
)

// Interval is a half-open span of UTC instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [a.Start,a.End) and [b.Start,b.End) intersect.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Contains reports whether b lies entirely within a.
func (a Interval) Contains(b Interval) bool {
	return !b.Start.Before(a.Start) && !b.End.After(a.End)
}

// Window is a facility-local operating window and the slot width it is
// divided into.
type Window struct {
	Open  clock.WallTime
	Close clock.WallTime
	Width time.Duration
}

var (
	ErrInvalidWindow = errors.New("invalid operating window")
	ErrInvalidWidth  = errors.New("slot width must evenly divide the operating window")
)

// Validate checks that the window is non-empty and divisible by Width.
func (w Window) Validate() error {
	if w.Close <= w.Open {
		return fmt.Errorf("%w: close %s is not after open %s", ErrInvalidWindow, w.Close, w.Open)
	}
	width := int(w.Width / time.Minute)
	if width <= 0 || w.Width%time.Minute != 0 {
		return ErrInvalidWidth
	}
	if int(w.Close-w.Open)%width != 0 {
		return ErrInvalidWidth
	}
	return nil
}

// Count is the number of slots in the window.
func (w Window) Count() int {
	return int(w.Close-w.Open) / int(w.Width/time.Minute)
}

// Slot is one cell of the grid.  Available and Selected are filled in by
// MarkAvailability.
type Slot struct {
	Start     time.Time `json:"startTime"`
	End       time.Time `json:"endTime"`
	Available bool      `json:"isAvailable"`
	Selected  bool      `json:"isSelected,omitempty"`
}

// Interval returns the slot span.
func (s Slot) Interval() Interval { return Interval{Start: s.Start, End: s.End} }

// Generate lays out the window on date d.  Each boundary is converted from
// local wall-clock time independently, so a day whose offset changes inside
// the window still yields Count() slots of nominal local width.  Boundaries
// skipped by a spring-forward gap resolve to the transition instant, so the
// slots inside the gap have zero length, are never available and never
// overlap their neighbours.
func Generate(f clock.Facility, d clock.Date, w Window) ([]Slot, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	width := clock.WallTime(w.Width / time.Minute)
	slots := make([]Slot, 0, w.Count())
	for m := w.Open; m < w.Close; m += width {
		start := f.ToUTC(d, m)
		end := f.ToUTC(d, m+width)
		if !end.After(start) {
			end = start
		}
		slots = append(slots, Slot{Start: start, End: end})
	}
	return slots, nil
}

// MarkAvailability sets Available on every slot that does not overlap a busy
// interval.  Slots covered by held (the span of the reservation being
// edited) are flagged Selected and stay available even though the caller's
// own reservation occupies them; held should already be absent from busy.
func MarkAvailability(slots []Slot, busy []Interval, held *Interval) []Slot {
	out := make([]Slot, len(slots))
	for i, s := range slots {
		s.Available = s.End.After(s.Start)
		if s.Available {
			for _, b := range busy {
				if s.Interval().Overlaps(b) {
					s.Available = false
					break
				}
			}
		}
		if held != nil && s.End.After(s.Start) && held.Contains(s.Interval()) {
			s.Selected = true
			s.Available = true
		}
		out[i] = s
	}
	return out
}

// Selection errors.
var (
	ErrEmptySelection    = errors.New("end time must be after start time")
	ErrOffGrid           = errors.New("selection does not align with the slot grid")
	ErrTooManySlots      = errors.New("selection exceeds the maximum number of slots")
	ErrOutsideOperations = errors.New("selection is outside operating hours")
)

// Selection validates that [start,end) covers between 1 and maxSlots whole,
// contiguous slots of the grid generated for start's local date, and returns
// the number of slots covered.
func Selection(f clock.Facility, w Window, maxSlots int, start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, ErrEmptySelection
	}
	grid, err := Generate(f, f.LocalDate(start), w)
	if err != nil {
		return 0, err
	}
	first, last := -1, -1
	for i, s := range grid {
		if !s.End.After(s.Start) {
			continue
		}
		if s.Start.Equal(start) && first < 0 {
			first = i
		}
		if s.End.Equal(end) {
			last = i
		}
	}
	if len(grid) == 0 || start.Before(grid[0].Start) || end.After(grid[len(grid)-1].End) {
		return 0, ErrOutsideOperations
	}
	if first < 0 || last < first {
		return 0, ErrOffGrid
	}
	n := 0
	for _, s := range grid[first : last+1] {
		if s.End.After(s.Start) {
			n++
		}
	}
	if maxSlots > 0 && n > maxSlots {
		return n, fmt.Errorf("%w: %d > %d", ErrTooManySlots, n, maxSlots)
	}
	return n, nil
}

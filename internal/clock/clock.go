// Package clock converts between the facility's local wall clock and UTC
// instants.  Every local→UTC conversion is resolved against the facility
// location for that specific date, so daylight-saving transitions are
// honoured per boundary rather than through a fixed offset.
package clock

import (
	"errors"
	"fmt"
	"time"
)

// Clock supplies the current instant.  Services take a Clock so tests can
// pin "now".
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f().UTC() }

// Date is a calendar day with no time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// WallTime is a local time of day expressed as minutes after midnight.
type WallTime int

// ParseWallTime parses HH:MM.
func ParseWallTime(s string) (WallTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid wall time %q: %w", s, err)
	}
	return WallTime(t.Hour()*60 + t.Minute()), nil
}

func (w WallTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(w)/60, int(w)%60)
}

// Facility pins the timezone that court operating hours are expressed in.
type Facility struct {
	loc *time.Location
}

// ErrNilLocation is returned by NewFacility when no location is given.
var ErrNilLocation = errors.New("facility location is required")

// NewFacility wraps a loaded location.
func NewFacility(loc *time.Location) (Facility, error) {
	if loc == nil {
		return Facility{}, ErrNilLocation
	}
	return Facility{loc: loc}, nil
}

// LoadFacility resolves an IANA timezone name.
func LoadFacility(name string) (Facility, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Facility{}, fmt.Errorf("load facility timezone %q: %w", name, err)
	}
	return Facility{loc: loc}, nil
}

// Location returns the facility timezone.
func (f Facility) Location() *time.Location { return f.loc }

// ToUTC converts a local wall-clock moment on date d to a UTC instant using
// the offset in force at that moment.  Minutes past 24h roll into the next
// day.  A wall time skipped by a spring-forward gap maps to the transition
// instant, so every wall time inside one gap yields the same instant and
// the mapping never runs backwards.
func (f Facility) ToUTC(d Date, w WallTime) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, 0, int(w), 0, 0, f.loc)
	want := time.Date(d.Year, d.Month, d.Day, 0, int(w), 0, 0, time.UTC)
	if wallClock(t).Equal(want) {
		return t.UTC()
	}
	return f.gapEnd(want)
}

// wallClock re-reads t's local reading as if it were UTC.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// gapEnd finds the first instant whose local reading is past the missing
// wall time want.  Offsets are within ±14h, so the transition lies inside
// want±14h.
func (f Facility) gapEnd(want time.Time) time.Time {
	lo, hi := want.Add(-14*time.Hour), want.Add(14*time.Hour)
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
		if wallClock(mid.In(f.loc)).After(want) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi.UTC()
}

// LocalDate returns the facility-local calendar day containing instant t.
func (f Facility) LocalDate(t time.Time) Date {
	lt := t.In(f.loc)
	return Date{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// MonthDay formats t as M/D in facility-local time.
func (f Facility) MonthDay(t time.Time) string {
	lt := t.In(f.loc)
	return fmt.Sprintf("%d/%d", int(lt.Month()), lt.Day())
}

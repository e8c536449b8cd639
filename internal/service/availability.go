package service

import (
	"context"

	"github.com/courtshare/courtshare/internal/clock"
	"github.com/courtshare/courtshare/internal/slot"
)

// AvailabilityService computes the bookable grid for a court day.  The
// result is advisory: booking writes re-check overlaps under the court lock.
type AvailabilityService struct{ Deps }

func NewAvailabilityService(d Deps) *AvailabilityService {
	return &AvailabilityService{Deps: d.withDefaults()}
}

// SlotQuery selects a court day.  When EditReservationID is set the edit
// grid is used, that reservation is left out of the conflict set and the
// slots it holds come back Selected.
type SlotQuery struct {
	CourtID           uint64
	Date              string // YYYY-MM-DD, facility-local
	EditReservationID uint64
}

// TimeSlots returns the day's slots with availability marked.
func (s *AvailabilityService) TimeSlots(ctx context.Context, caller Caller, q SlotQuery) ([]slot.Slot, error) {
	if q.CourtID == 0 {
		return nil, validation("court id is required")
	}
	date, err := clock.ParseDate(q.Date)
	if err != nil {
		return nil, validation("date must be YYYY-MM-DD")
	}
	if _, err := s.Store.Courts.GetByID(ctx, q.CourtID); err != nil {
		return nil, storageErr(err, "court")
	}

	window := s.Settings.CreateWindow
	var held *slot.Interval
	if q.EditReservationID != 0 {
		res, err := s.loadOwned(ctx, caller, q.EditReservationID)
		if err != nil {
			return nil, err
		}
		if res.CourtID != q.CourtID {
			return nil, validation("reservation %d is not on court %d", res.ID, q.CourtID)
		}
		window = s.Settings.EditWindow
		held = &slot.Interval{Start: res.StartTime, End: res.EndTime}
	}
	return s.grid(ctx, q.CourtID, date, window, q.EditReservationID, held)
}

func (s *AvailabilityService) grid(ctx context.Context, courtID uint64, date clock.Date, w slot.Window, exclude uint64, held *slot.Interval) ([]slot.Slot, error) {
	slots, err := slot.Generate(s.Settings.Facility, date, w)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return slots, nil
	}
	busyRows, err := s.Store.Reservations.ListBusy(ctx, courtID, slots[0].Start, slots[len(slots)-1].End, exclude)
	if err != nil {
		return nil, err
	}
	busy := make([]slot.Interval, 0, len(busyRows))
	for _, b := range busyRows {
		busy = append(busy, slot.Interval{Start: b.Start, End: b.End})
	}
	return slot.MarkAvailability(slots, busy, held), nil
}

// Courts lists every court.
func (s *AvailabilityService) Courts(ctx context.Context) ([]CourtView, error) {
	courts, err := s.Store.Courts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CourtView, 0, len(courts))
	for _, c := range courts {
		out = append(out, courtView(c))
	}
	return out, nil
}

// Court returns one court.
func (s *AvailabilityService) Court(ctx context.Context, id uint64) (CourtView, error) {
	c, err := s.Store.Courts.GetByID(ctx, id)
	if err != nil {
		return CourtView{}, storageErr(err, "court")
	}
	return courtView(c), nil
}


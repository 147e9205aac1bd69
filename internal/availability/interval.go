// Package availability decides whether a vehicle's current occupation
// conflicts with a requested date range. It is pure and holds no state.
package availability

import (
	"time"

	"stationrent-backend/internal/domain"
)

// Interval is a half-open range [Start, End). An Open interval belongs to an
// overdue rental and overlaps every range.
type Interval struct {
	Start time.Time
	End   time.Time
	Open  bool
}

// Overlaps applies strict half-open semantics: ranges that only touch at a
// boundary do not overlap.
func (i Interval) Overlaps(start, end time.Time) bool {
	if i.Open {
		return true
	}
	return i.Start.Before(end) && start.Before(i.End)
}

// Overlap reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// EffectiveInterval returns the range a vehicle is occupied for by the
// booking behind its most recent contract:
//
//   - returned: [start, returnDate)
//   - ACTIVE past its end date with no return: open, the vehicle is overdue
//   - otherwise: [start, end)
//
// The end date is inclusive when compared against instants, so a booking
// ending on day N is overdue from day N+1 00:00. ok is false when the
// occupancy carries no booking or the booking was cancelled.
func EffectiveInterval(o domain.VehicleOccupancy, now time.Time) (Interval, bool) {
	if o.BookingID == nil || o.BookingStatus == domain.BookingStatusCancelled {
		return Interval{}, false
	}
	if o.ReturnedAt != nil {
		return Interval{Start: o.StartDate, End: *o.ReturnedAt}, true
	}
	if o.BookingStatus == domain.BookingStatusActive && IsOverdue(o.EndDate, now) {
		return Interval{Start: o.StartDate, Open: true}, true
	}
	return Interval{Start: o.StartDate, End: o.EndDate}, true
}

// IsOverdue reports whether now lies after the last covered instant of a
// booking ending on endDate.
func IsOverdue(endDate, now time.Time) bool {
	return !now.Before(endDate.AddDate(0, 0, 1))
}

// Blocks reports whether the occupancy rules the vehicle out for
// [start, end).
func Blocks(o domain.VehicleOccupancy, start, end, now time.Time) bool {
	iv, ok := EffectiveInterval(o, now)
	if !ok {
		return false
	}
	return iv.Overlaps(start, end)
}

// Free filters candidates down to those usable for the whole range. Vehicles
// out of service never qualify.
func Free(candidates []domain.VehicleOccupancy, start, end, now time.Time) []domain.Vehicle {
	free := make([]domain.Vehicle, 0, len(candidates))
	for _, c := range candidates {
		if !c.Vehicle.Status.InService() {
			continue
		}
		if Blocks(c, start, end, now) {
			continue
		}
		free = append(free, c.Vehicle)
	}
	return free
}

package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate converts a yyyy-mm-dd string into midnight of that day in loc.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", dateStr)
	}
	return t, nil
}

// DateOf truncates an instant to the calendar date it falls on in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from start to end. Both are treated as
// dates, so DST shifts and time-of-day are ignored. Negative when end is
// before start.
func DaysBetween(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// RentalCostBreakdown is the price of a booking, captured at creation time.
type RentalCostBreakdown struct {
	Days       int
	DailyRate  int64
	RentalCost int64
	Deposit    int64
	Total      int64
}

// CalculateRentalCost prices a stay over [start, end). The deposit is part of
// the amount collected up front.
func CalculateRentalCost(start, end time.Time, dailyRate, deposit int64) (RentalCostBreakdown, error) {
	days := DaysBetween(start, end)
	if days < 1 {
		return RentalCostBreakdown{}, fmt.Errorf("end date must be after start date")
	}
	if dailyRate < 0 || deposit < 0 {
		return RentalCostBreakdown{}, fmt.Errorf("prices must not be negative")
	}
	rental := int64(days) * dailyRate
	return RentalCostBreakdown{
		Days:       days,
		DailyRate:  dailyRate,
		RentalCost: rental,
		Deposit:    deposit,
		Total:      rental + deposit,
	}, nil
}

// AsDate keeps the calendar date of t and re-anchors it at midnight in loc.
// DATE columns come back from the driver in UTC; this puts them back in the
// business time zone without shifting the day.
func AsDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

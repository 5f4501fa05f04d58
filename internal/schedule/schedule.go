// Package schedule computes reminder trigger times. All functions are pure:
// they take times in, return times out, and never touch a clock or a store.
package schedule

import (
	"errors"
	"time"

	"github.com/remindkit/go-reminder-backend/internal/domain"
)

// ErrInvalidSchedule is returned when the inputs cannot produce a trigger
// time: a missing target date, a negative lead time, or an attempt to
// advance a non-recurring reminder.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ComputeRemindAt derives the trigger time from a target date and a lead
// time: target minus daysBefore days. It fails with ErrInvalidSchedule when
// target is nil or daysBefore is negative.
func ComputeRemindAt(target *time.Time, daysBefore int) (time.Time, error) {
	if target == nil {
		return time.Time{}, ErrInvalidSchedule
	}
	if daysBefore < 0 {
		return time.Time{}, ErrInvalidSchedule
	}
	return target.AddDate(0, 0, -daysBefore), nil
}

// Advance returns the next trigger time after a just-fired one:
//
//	DAILY   -> t + 1 day
//	WEEKLY  -> t + 7 days
//	MONTHLY -> same day-of-month one calendar month later, clamped to the
//	           last day when the target month is shorter (Jan 31 -> Feb 28/29)
//
// Calling Advance with FreqNone (or an unknown frequency) is a caller
// contract violation and fails with ErrInvalidSchedule; non-recurring
// reminders must never be advanced.
func Advance(t time.Time, freq domain.Frequency) (time.Time, error) {
	switch freq {
	case domain.FreqDaily:
		return t.AddDate(0, 0, 1), nil
	case domain.FreqWeekly:
		return t.AddDate(0, 0, 7), nil
	case domain.FreqMonthly:
		return addMonthClamped(t), nil
	default:
		return time.Time{}, ErrInvalidSchedule
	}
}

// addMonthClamped adds one calendar month keeping the day-of-month, clamping
// to the last valid day of the target month. time.AddDate alone would
// normalize Jan 31 + 1 month to Mar 2/3, which is not what a monthly
// reminder means.
func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

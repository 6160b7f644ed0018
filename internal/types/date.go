package types

import (
	"time"

	ierr "github.com/recorrente/recorrente/internal/errors"
)

// NextDueDate calculates the next due date after the given date for a
// recurrence of the given interval unit and count.
//
// For day and week units this is pure offset addition. For month and year
// units the anchor day-of-month is preserved: anchorDay is the day of the
// ORIGINAL first occurrence, not of the previous one, so a schedule
// anchored on the 31st returns to the 31st after passing through shorter
// months instead of drifting to whatever day the previous occurrence
// clamped to. When the target month is shorter than the anchor day the
// result clamps to the last day of that month.
func NextDueDate(from time.Time, anchorDay int, unit BillingIntervalUnit, count int) (time.Time, error) {
	if count <= 0 {
		return time.Time{}, ierr.NewError("invalid interval count").
			WithHint("Interval count must be a positive integer").
			WithReportableDetails(map[string]any{
				"interval_count": count,
			}).
			Mark(ierr.ErrValidation)
	}

	switch unit {
	case BillingIntervalDay:
		return from.AddDate(0, 0, count), nil
	case BillingIntervalWeek:
		return from.AddDate(0, 0, 7*count), nil
	case BillingIntervalMonth:
		return AddClampedMonths(from, count, anchorDay), nil
	case BillingIntervalYear:
		return AddClampedMonths(from, 12*count, anchorDay), nil
	default:
		return time.Time{}, ierr.NewError("invalid billing interval unit").
			WithHint("Billing interval unit must be one of day, week, month, year").
			WithReportableDetails(map[string]any{
				"interval_unit": unit,
			}).
			Mark(ierr.ErrValidation)
	}
}

// GenerateSchedule produces the full ordered sequence of due dates for a
// fixed-count schedule. Every occurrence is computed from the original
// anchor rather than from the previous occurrence, which makes the
// sequence restartable and free of cumulative drift: anchor 2023-01-31
// with three monthly periods yields 2023-01-31, 2023-02-28, 2023-03-31.
func GenerateSchedule(anchor time.Time, totalPeriods int, unit BillingIntervalUnit, count int) ([]time.Time, error) {
	if totalPeriods <= 0 {
		return nil, ierr.NewError("invalid total periods").
			WithHint("Total periods must be a positive integer").
			WithReportableDetails(map[string]any{
				"total_periods": totalPeriods,
			}).
			Mark(ierr.ErrValidation)
	}
	if count <= 0 {
		return nil, ierr.NewError("invalid interval count").
			WithHint("Interval count must be a positive integer").
			WithReportableDetails(map[string]any{
				"interval_count": count,
			}).
			Mark(ierr.ErrValidation)
	}

	anchorDay := anchor.Day()
	dates := make([]time.Time, 0, totalPeriods)

	for i := 0; i < totalPeriods; i++ {
		switch unit {
		case BillingIntervalDay:
			dates = append(dates, anchor.AddDate(0, 0, i*count))
		case BillingIntervalWeek:
			dates = append(dates, anchor.AddDate(0, 0, 7*i*count))
		case BillingIntervalMonth:
			dates = append(dates, AddClampedMonths(anchor, i*count, anchorDay))
		case BillingIntervalYear:
			dates = append(dates, AddClampedMonths(anchor, 12*i*count, anchorDay))
		default:
			return nil, ierr.NewError("invalid billing interval unit").
				WithHint("Billing interval unit must be one of day, week, month, year").
				WithReportableDetails(map[string]any{
					"interval_unit": unit,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	return dates, nil
}

// AddClampedMonths adds the given number of months to t, landing on
// anchorDay when the target month has that many days and on the last day
// of the target month otherwise. Leap years are handled by the underlying
// calendar: an anchor day of 29+ lands on Feb 29 in leap years and Feb 28
// in common years.
func AddClampedMonths(t time.Time, months int, anchorDay int) time.Time {
	y, m, _ := t.Date()
	h, min, sec := t.Clock()

	newY := y
	newM := time.Month(int(m) + months)
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	newD := anchorDay
	if last := lastDayOfMonth(newY, newM, t.Location()); newD > last {
		newD = last
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month, loc *time.Location) int {
	firstOfNextMonth := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return firstOfNextMonth.AddDate(0, 0, -1).Day()
}

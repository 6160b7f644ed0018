package types

import (
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/samber/lo"
)

// BillingIntervalUnit is the calendar unit a recurrence advances by
type BillingIntervalUnit string

const (
	BillingIntervalDay   BillingIntervalUnit = "day"
	BillingIntervalWeek  BillingIntervalUnit = "week"
	BillingIntervalMonth BillingIntervalUnit = "month"
	BillingIntervalYear  BillingIntervalUnit = "year"
)

func (u BillingIntervalUnit) String() string {
	return string(u)
}

func (u BillingIntervalUnit) Validate() error {
	allowedValues := []BillingIntervalUnit{
		BillingIntervalDay,
		BillingIntervalWeek,
		BillingIntervalMonth,
		BillingIntervalYear,
	}

	if !lo.Contains(allowedValues, u) {
		return ierr.NewError("invalid billing interval unit").
			WithHint("Billing interval unit must be one of day, week, month, year").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": u,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// RecurrenceMode distinguishes schedules with a fixed number of periods
// from open-ended ones. The two are mutually exclusive: total_periods is
// set iff the mode is fixed.
type RecurrenceMode string

const (
	RecurrenceModeFixed         RecurrenceMode = "fixed"
	RecurrenceModeIndeterminate RecurrenceMode = "indeterminate"
)

func (m RecurrenceMode) String() string {
	return string(m)
}

func (m RecurrenceMode) Validate() error {
	allowedValues := []RecurrenceMode{
		RecurrenceModeFixed,
		RecurrenceModeIndeterminate,
	}

	if !lo.Contains(allowedValues, m) {
		return ierr.NewError("invalid recurrence mode").
			WithHint("Recurrence mode must be fixed or indeterminate").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": m,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// RecurrenceStatus is the activation state of a recurrence rule
type RecurrenceStatus string

const (
	RecurrenceStatusActive   RecurrenceStatus = "active"
	RecurrenceStatusInactive RecurrenceStatus = "inactive"
)

func (s RecurrenceStatus) String() string {
	return string(s)
}

// BillingOrigin identifies which entity anchors a billing stream
type BillingOrigin string

const (
	BillingOriginContract BillingOrigin = "contract"
	BillingOriginSale     BillingOrigin = "sale"
)

func (o BillingOrigin) String() string {
	return string(o)
}

func (o BillingOrigin) Validate() error {
	allowedValues := []BillingOrigin{
		BillingOriginContract,
		BillingOriginSale,
	}

	if !lo.Contains(allowedValues, o) {
		return ierr.NewError("invalid billing origin").
			WithHint("Billing origin must be contract or sale").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": o,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

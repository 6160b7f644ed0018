package recurrence

import (
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// Recurrence is the policy describing how often a billable item recurs
// and for how long. Exactly one billable item references a rule; the rule
// is anchored either on a contract or on a sale, never both.
type Recurrence struct {
	// Unique identifier for this recurrence rule
	ID string `db:"id" json:"id"`
	// The interval_unit is the calendar unit each period advances by (day, week, month, year)
	IntervalUnit types.BillingIntervalUnit `db:"interval_unit" json:"interval_unit"`
	// The interval_count is the number of units between consecutive periods
	IntervalCount int `db:"interval_count" json:"interval_count"`
	// The mode distinguishes fixed-count schedules from open-ended ones
	Mode types.RecurrenceMode `db:"mode" json:"mode"`
	// The total_periods field is set iff mode is fixed
	TotalPeriods *int `db:"total_periods" json:"total_periods,omitempty"`
	// The billed_periods counter tracks how many periods have produced a charge,
	// used to detect exhaustion of fixed-count schedules
	BilledPeriods int `db:"billed_periods" json:"billed_periods"`
	// The recurrence_status activates or deactivates the rule
	RecurrenceStatus types.RecurrenceStatus `db:"recurrence_status" json:"recurrence_status"`
	// The origin identifies which entity anchors the billing stream
	Origin types.BillingOrigin `db:"origin" json:"origin"`
	// The contract_id is set when origin is contract (optional)
	ContractID *string `db:"contract_id" json:"contract_id,omitempty"`
	// The sale_id is set when origin is sale (optional)
	SaleID *string `db:"sale_id" json:"sale_id,omitempty"`

	types.BaseModel
}

// Validate validates the recurrence rule
func (r *Recurrence) Validate() error {
	if err := r.IntervalUnit.Validate(); err != nil {
		return err
	}
	if r.IntervalCount <= 0 {
		return ierr.NewError("invalid interval count").
			WithHint("Interval count must be a positive integer").
			Mark(ierr.ErrValidation)
	}
	if err := r.Mode.Validate(); err != nil {
		return err
	}
	if err := r.Origin.Validate(); err != nil {
		return err
	}

	// fixed and indeterminate are mutually exclusive, total_periods is
	// set iff the mode is fixed
	if r.Mode == types.RecurrenceModeFixed {
		if r.TotalPeriods == nil || *r.TotalPeriods <= 0 {
			return ierr.NewError("fixed recurrence requires total periods").
				WithHint("Total periods must be a positive integer for fixed schedules").
				Mark(ierr.ErrValidation)
		}
	} else if r.TotalPeriods != nil {
		return ierr.NewError("indeterminate recurrence cannot carry total periods").
			WithHint("Total periods is only valid for fixed schedules").
			Mark(ierr.ErrValidation)
	}

	switch r.Origin {
	case types.BillingOriginContract:
		if r.ContractID == nil || *r.ContractID == "" {
			return ierr.NewError("contract recurrence requires a contract id").
				Mark(ierr.ErrValidation)
		}
	case types.BillingOriginSale:
		if r.SaleID == nil || *r.SaleID == "" {
			return ierr.NewError("sale recurrence requires a sale id").
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}

// IsExhausted reports whether a fixed-count schedule has produced all of
// its periods. Indeterminate schedules are never exhausted.
func (r *Recurrence) IsExhausted() bool {
	if r.Mode != types.RecurrenceModeFixed || r.TotalPeriods == nil {
		return false
	}
	return r.BilledPeriods >= *r.TotalPeriods
}

// IsActive reports whether the rule should still be billed
func (r *Recurrence) IsActive() bool {
	return r.RecurrenceStatus == types.RecurrenceStatusActive && !r.IsExhausted()
}

// TableName returns the table name for the recurrence rule
func (r *Recurrence) TableName() string {
	return "recurrences"
}

package billable

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// Payer carries the client profile a charge is issued against
type Payer struct {
	Name     string `db:"payer_name" json:"payer_name"`
	TaxID    string `db:"payer_tax_id" json:"payer_tax_id"`
	Email    string `db:"payer_email" json:"payer_email"`
	Street   string `db:"payer_street" json:"payer_street"`
	Number   string `db:"payer_number" json:"payer_number"`
	District string `db:"payer_district" json:"payer_district"`
	City     string `db:"payer_city" json:"payer_city"`
	State    string `db:"payer_state" json:"payer_state"`
	ZipCode  string `db:"payer_zip_code" json:"payer_zip_code"`
}

// Item is a contract or a sale acting as the billing anchor for one
// stream of charges. Contract items carry a rolling next due date that
// the generator advances; sale items are one per period and never mutate
// their own due date.
type Item struct {
	// Unique identifier for this billable item
	ID string `db:"id" json:"id"`
	// The origin identifies whether a contract or a sale anchors this item
	Origin types.BillingOrigin `db:"origin" json:"origin"`
	// The contract_id is the anchoring contract, or the originating
	// contract for sales materialized from a contract schedule (optional)
	ContractID *string `db:"contract_id" json:"contract_id,omitempty"`
	// The sale_id is the anchoring sale (optional)
	SaleID *string `db:"sale_id" json:"sale_id,omitempty"`
	// The recurrence_id links the governing recurrence rule (optional)
	RecurrenceID *string `db:"recurrence_id" json:"recurrence_id,omitempty"`
	// The amount billed each period
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// The due_date is the next due date for contract items and the
	// period's date for sale items; null means due immediately
	DueDate *time.Time `db:"due_date" json:"due_date,omitempty"`
	// The anchor_day is the day-of-month of the schedule's first
	// occurrence, preserved with clamping across monthly periods
	AnchorDay int `db:"anchor_day" json:"anchor_day"`
	// The payer block feeds the provider's payer payload
	Payer
	// The bank_account_id selects a specific credential; when empty the
	// tenant default is used (optional)
	BankAccountID *string `db:"bank_account_id" json:"bank_account_id,omitempty"`
	// The category_id inherited by sale records on payment (optional)
	CategoryID *string `db:"category_id" json:"category_id,omitempty"`
	// The cost_center_id inherited by sale records on payment (optional)
	CostCenterID *string `db:"cost_center_id" json:"cost_center_id,omitempty"`
	// The ready_to_bill flag marks standalone sales billed without a
	// recurrence rule
	ReadyToBill bool `db:"ready_to_bill" json:"ready_to_bill"`

	types.BaseModel
}

// Validate validates the billable item
func (i *Item) Validate() error {
	if i.Amount.IsZero() || i.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if err := i.Origin.Validate(); err != nil {
		return err
	}
	if i.Origin == types.BillingOriginContract && (i.ContractID == nil || *i.ContractID == "") {
		return ierr.NewError("contract item requires a contract id").
			Mark(ierr.ErrValidation)
	}
	if i.Origin == types.BillingOriginSale && (i.SaleID == nil || *i.SaleID == "") {
		return ierr.NewError("sale item requires a sale id").
			Mark(ierr.ErrValidation)
	}
	if i.Payer.Name == "" || i.Payer.TaxID == "" {
		return ierr.NewError("missing payer identity").
			WithHint("Payer name and tax id are required to issue a charge").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EffectiveDueDate resolves the date the next charge should be due:
// the stored due date when present, otherwise due immediately
func (i *Item) EffectiveDueDate(now time.Time) time.Time {
	if i.DueDate != nil {
		return *i.DueDate
	}
	return now
}

// EffectiveAnchorDay falls back to the due date's day when no anchor day
// was recorded, which is the case for legacy contract rows
func (i *Item) EffectiveAnchorDay() int {
	if i.AnchorDay > 0 {
		return i.AnchorDay
	}
	if i.DueDate != nil {
		return i.DueDate.Day()
	}
	return 1
}

// TableName returns the table name for the billable item
func (i *Item) TableName() string {
	return "billable_items"
}

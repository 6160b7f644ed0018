package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// Transaction is the financial ledger row created at most once per
// charge transitioning to PAID. Never mutated by this subsystem.
type Transaction struct {
	// Unique identifier for this ledger transaction
	ID string `db:"id" json:"id"`
	// The charge_id this transaction settles; unique per charge
	ChargeID string `db:"charge_id" json:"charge_id"`
	// The client_name of the payer resolved as a client
	ClientName string `db:"client_name" json:"client_name"`
	// The client_tax_id of the payer resolved as a client
	ClientTaxID string `db:"client_tax_id" json:"client_tax_id"`
	// The amount actually received
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// The transaction_date is the provider-reported payment date
	TransactionDate time.Time `db:"transaction_date" json:"transaction_date"`
	// The description of the transaction
	Description string `db:"description" json:"description"`

	types.BaseModel
}

// Validate validates the ledger transaction
func (t *Transaction) Validate() error {
	if t.ChargeID == "" {
		return ierr.NewError("missing charge id").
			Mark(ierr.ErrValidation)
	}
	if t.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the ledger transaction
func (t *Transaction) TableName() string {
	return "ledger_transactions"
}

// SaleRecord is the sale ledger row created at most once per charge
// transitioning to PAID, carrying category and cost-center attribution
// inherited from the originating contract when present
type SaleRecord struct {
	// Unique identifier for this sale record
	ID string `db:"id" json:"id"`
	// The charge_id this record settles; unique per charge
	ChargeID string `db:"charge_id" json:"charge_id"`
	// The sale_id the charge was billing on behalf of (optional)
	SaleID *string `db:"sale_id" json:"sale_id,omitempty"`
	// The contract_id the sale originated from (optional)
	ContractID *string `db:"contract_id" json:"contract_id,omitempty"`
	// The amount actually received
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// The sale_date is the provider-reported payment date
	SaleDate time.Time `db:"sale_date" json:"sale_date"`
	// The category_id inherited from the originating contract (optional)
	CategoryID *string `db:"category_id" json:"category_id,omitempty"`
	// The cost_center_id inherited from the originating contract (optional)
	CostCenterID *string `db:"cost_center_id" json:"cost_center_id,omitempty"`

	types.BaseModel
}

// Validate validates the sale record
func (s *SaleRecord) Validate() error {
	if s.ChargeID == "" {
		return ierr.NewError("missing charge id").
			Mark(ierr.ErrValidation)
	}
	if s.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the sale record
func (s *SaleRecord) TableName() string {
	return "sale_records"
}

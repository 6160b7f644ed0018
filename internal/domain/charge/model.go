package charge

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// Charge is a bank-issued billing instrument ("boleto"): a payable
// document with a due date, barcode and trackable payment status. A
// charge references a contract or a sale, never both. Charges are
// created by the generator, mutated only by the reconciliation job and
// never deleted.
type Charge struct {
	// Unique identifier for this charge
	ID string `db:"id" json:"id"`
	// The external_id is the provider's correlation id for this charge
	ExternalID string `db:"external_id" json:"external_id"`
	// The reference_code sent to the provider on creation
	ReferenceCode string `db:"reference_code" json:"reference_code"`
	// The contract_id anchors legacy contract-path charges (optional)
	ContractID *string `db:"contract_id" json:"contract_id,omitempty"`
	// The sale_id anchors sale-path charges (optional)
	SaleID *string `db:"sale_id" json:"sale_id,omitempty"`
	// The billable_item_id links back to the originating item
	BillableItemID string `db:"billable_item_id" json:"billable_item_id"`
	// The amount the charge was issued for
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// The due_date of the charge
	DueDate time.Time `db:"due_date" json:"due_date"`
	// The raw_status is the provider's last reported status, kept
	// verbatim so transitions can be detected
	RawStatus string `db:"raw_status" json:"raw_status"`
	// The charge_status is the consolidated OPEN/PAID/CANCELED view
	ChargeStatus types.ChargeStatus `db:"charge_status" json:"charge_status"`
	// The received_amount reported by the provider on payment (optional)
	ReceivedAmount *decimal.Decimal `db:"received_amount" json:"received_amount,omitempty"`
	// The paid_at timestamp reported by the provider (optional)
	PaidAt *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	// The canceled_at timestamp reported by the provider (optional)
	CanceledAt *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	// The cancel_reason reported by the provider (optional)
	CancelReason *string `db:"cancel_reason" json:"cancel_reason,omitempty"`
	// The payment_link returned by the provider on creation (optional)
	PaymentLink *string `db:"payment_link" json:"payment_link,omitempty"`
	// The barcode returned by the provider on creation (optional)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`
	// The bank_account_id of the credential the charge was issued with
	BankAccountID string `db:"bank_account_id" json:"bank_account_id"`

	types.BaseModel
}

// Validate validates the charge
func (c *Charge) Validate() error {
	if c.Amount.IsZero() || c.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if c.ExternalID == "" {
		return ierr.NewError("missing external id").
			WithHint("A charge must carry the provider correlation id").
			Mark(ierr.ErrValidation)
	}

	// contract and sale anchors are mutually exclusive
	hasContract := c.ContractID != nil && *c.ContractID != ""
	hasSale := c.SaleID != nil && *c.SaleID != ""
	if hasContract == hasSale {
		return ierr.NewError("charge must reference a contract xor a sale").
			Mark(ierr.ErrValidation)
	}

	return c.ChargeStatus.Validate()
}

// TableName returns the table name for the charge
func (c *Charge) TableName() string {
	return "charges"
}

package banking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/recorrente/recorrente/internal/types"
)

// TokenResponse is the provider's OAuth2 client-credentials response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// PayerPayload is the payer block of a charge creation request
type PayerPayload struct {
	Name       string           `json:"name"`
	TaxID      string           `json:"tax_id"`
	Email      string           `json:"email,omitempty"`
	PersonType types.PersonType `json:"person_type"`
	Street     string           `json:"street,omitempty"`
	Number     string           `json:"number,omitempty"`
	District   string           `json:"district,omitempty"`
	City       string           `json:"city,omitempty"`
	State      string           `json:"state,omitempty"`
	ZipCode    string           `json:"zip_code,omitempty"`
}

// CreateChargeRequest is the payload of POST /billing-instruments
type CreateChargeRequest struct {
	ReferenceCode  string          `json:"reference_code"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date"`
	ExtensionDays  int             `json:"extension_days,omitempty"`
	Payer          PayerPayload    `json:"payer"`
	PaymentMethods []string        `json:"payment_methods,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// CreateChargeResponse is the provider's answer to a charge creation
type CreateChargeResponse struct {
	ExternalID  string `json:"external_id"`
	Status      string `json:"status"`
	PaymentLink string `json:"payment_link,omitempty"`
	Barcode     string `json:"barcode,omitempty"`
	IssueDate   string `json:"issue_date,omitempty"`
}

// ChargeDetail is the provider's view of an issued charge returned by
// GET /billing-instruments/{external_id}
type ChargeDetail struct {
	ExternalID     string           `json:"external_id"`
	Status         string           `json:"status"`
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
	CanceledAt     *time.Time       `json:"canceled_at,omitempty"`
	CancelReason   *string          `json:"cancel_reason,omitempty"`
	// PDFBase64 is set when the provider embeds the document
	PDFBase64 *string `json:"pdf,omitempty"`
}

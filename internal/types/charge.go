package types

import (
	"strings"

	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/samber/lo"
)

// ChargeStatus is the consolidated three-state view of a bank charge.
// The provider reports a much richer raw vocabulary; every raw value is
// folded into one of these through NormalizeRawChargeStatus.
type ChargeStatus string

const (
	ChargeStatusOpen     ChargeStatus = "OPEN"
	ChargeStatusPaid     ChargeStatus = "PAID"
	ChargeStatusCanceled ChargeStatus = "CANCELED"
)

func (s ChargeStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status can no longer change.
// PAID and CANCELED are terminal; reconciliation must never move a
// charge back to OPEN once it has reached either of them.
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusPaid || s == ChargeStatusCanceled
}

func (s ChargeStatus) Validate() error {
	allowedValues := []ChargeStatus{
		ChargeStatusOpen,
		ChargeStatusPaid,
		ChargeStatusCanceled,
	}

	if !lo.Contains(allowedValues, s) {
		return ierr.NewError("invalid charge status").
			WithHint("Charge status must be one of OPEN, PAID, CANCELED").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": s,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// rawChargeStatusMap is the fixed lookup from the provider's raw status
// vocabulary to the consolidated model. The map is exhaustive on purpose:
// an unknown raw status is an error, never a silent OPEN.
var rawChargeStatusMap = map[string]ChargeStatus{
	// open
	"OPEN":                 ChargeStatusOpen,
	"PENDING":              ChargeStatusOpen,
	"ISSUED":               ChargeStatusOpen,
	"REGISTERED":           ChargeStatusOpen,
	"EMITIDO":              ChargeStatusOpen,
	"REGISTRADO":           ChargeStatusOpen,
	"EM_ABERTO":            ChargeStatusOpen,
	"AGUARDANDO_PAGAMENTO": ChargeStatusOpen,

	// paid
	"RECEIVED":  ChargeStatusPaid,
	"SETTLED":   ChargeStatusPaid,
	"CONFIRMED": ChargeStatusPaid,
	"LIQUIDADO": ChargeStatusPaid,
	"RECEBIDO":  ChargeStatusPaid,
	"PAGO":      ChargeStatusPaid,

	// canceled
	"EXPIRED":     ChargeStatusCanceled,
	"WRITTEN_OFF": ChargeStatusCanceled,
	"CANCELED":    ChargeStatusCanceled,
	"CANCELLED":   ChargeStatusCanceled,
	"BAIXADO":     ChargeStatusCanceled,
	"CANCELADO":   ChargeStatusCanceled,
}

// NormalizeRawChargeStatus folds a raw provider status into the
// consolidated three-state model. Unknown vocabulary fails loudly so a
// provider change is caught per item instead of defaulting to OPEN.
func NormalizeRawChargeStatus(raw string) (ChargeStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if status, ok := rawChargeStatusMap[normalized]; ok {
		return status, nil
	}

	return "", ierr.NewError("unknown raw charge status").
		WithHint("The provider returned a status outside the known vocabulary").
		WithReportableDetails(map[string]any{
			"raw_status": raw,
		}).
		Mark(ierr.ErrProvider)
}

// PersonType is the payer classification required by the banking API
type PersonType string

const (
	PersonTypeIndividual   PersonType = "FISICA"
	PersonTypeOrganization PersonType = "JURIDICA"
)

// PersonTypeFromTaxID infers the payer person type from the number of
// digits in the tax id: 11 digits identify an individual (CPF), 14 an
// organization (CNPJ).
func PersonTypeFromTaxID(taxID string) (PersonType, error) {
	digits := 0
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	switch digits {
	case 11:
		return PersonTypeIndividual, nil
	case 14:
		return PersonTypeOrganization, nil
	default:
		return "", ierr.NewError("invalid payer tax id").
			WithHint("Tax id must contain 11 or 14 digits").
			WithReportableDetails(map[string]any{
				"tax_id_digits": digits,
			}).
			Mark(ierr.ErrValidation)
	}
}

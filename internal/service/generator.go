package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/recorrente/recorrente/internal/api/dto"
	"github.com/recorrente/recorrente/internal/banking"
	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	"github.com/recorrente/recorrente/internal/domain/billable"
	"github.com/recorrente/recorrente/internal/domain/charge"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/notification"
	"github.com/recorrente/recorrente/internal/types"
)

// ChargeGeneratorService issues bank charges for due billable items
type ChargeGeneratorService interface {
	// RunDueItemPass scans for due items and generates a charge for each
	// one; a single item's failure is recorded and the pass continues
	RunDueItemPass(ctx context.Context) (*dto.PassResponse, error)

	// GenerateCharge issues one charge for the given item
	GenerateCharge(ctx context.Context, item *billable.Item) (*charge.Charge, error)
}

type chargeGeneratorService struct {
	ServiceParams
	scanner DueItemService
}

// NewChargeGeneratorService creates a new charge generator service
func NewChargeGeneratorService(params ServiceParams, scanner DueItemService) ChargeGeneratorService {
	return &chargeGeneratorService{
		ServiceParams: params,
		scanner:       scanner,
	}
}

func (s *chargeGeneratorService) RunDueItemPass(ctx context.Context) (*dto.PassResponse, error) {
	s.Logger.Infow("starting due item pass",
		"lookahead_days", s.Config.Billing.LookaheadDays)

	items, err := s.scanner.ScanDueItems(ctx, s.Config.Billing.LookaheadDays)
	if err != nil {
		return nil, err
	}

	response := dto.NewPassResponse()
	for _, item := range items {
		if _, err := s.GenerateCharge(ctx, item); err != nil {
			if ierr.IsAlreadyExists(err) {
				// an overlapping run won the race for this period
				response.RecordSkip(item.ID, "charge already exists for period")
				continue
			}
			s.Logger.Errorw("failed to generate charge",
				"item_id", item.ID,
				"error", err)
			response.RecordFailure(item.ID, err)
			continue
		}
		response.RecordSuccess(item.ID)
	}

	s.Logger.Infow("completed due item pass",
		"total", response.Total,
		"succeeded", response.Succeeded,
		"failed", response.Failed,
		"skipped", response.Skipped)

	return response, nil
}

func (s *chargeGeneratorService) GenerateCharge(ctx context.Context, item *billable.Item) (*charge.Charge, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}

	cred, err := s.resolveCredential(ctx, item)
	if err != nil {
		return nil, err
	}

	personType, err := types.PersonTypeFromTaxID(item.Payer.TaxID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dueDate := item.EffectiveDueDate(now)
	referenceCode := s.buildReferenceCode(item, now)

	created, err := s.Bank.CreateCharge(ctx, cred, &banking.CreateChargeRequest{
		ReferenceCode: referenceCode,
		Amount:        item.Amount,
		DueDate:       dueDate.Format("2006-01-02"),
		ExtensionDays: s.Config.Billing.ExtensionDays,
		Payer: banking.PayerPayload{
			Name:       item.Payer.Name,
			TaxID:      item.Payer.TaxID,
			Email:      item.Payer.Email,
			PersonType: personType,
			Street:     item.Payer.Street,
			Number:     item.Payer.Number,
			District:   item.Payer.District,
			City:       item.Payer.City,
			State:      item.Payer.State,
			ZipCode:    item.Payer.ZipCode,
		},
		PaymentMethods: s.Config.Billing.PaymentMethods,
		Message:        s.Config.Billing.ChargeMessage,
	})
	if err != nil {
		return nil, err
	}

	chg := &charge.Charge{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE),
		ExternalID:     created.ExternalID,
		ReferenceCode:  referenceCode,
		BillableItemID: item.ID,
		Amount:         item.Amount,
		DueDate:        dueDate,
		RawStatus:      created.Status,
		ChargeStatus:   types.ChargeStatusOpen,
		BankAccountID:  cred.ID,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if created.PaymentLink != "" {
		chg.PaymentLink = &created.PaymentLink
	}
	if created.Barcode != "" {
		chg.Barcode = &created.Barcode
	}
	if item.Origin == types.BillingOriginContract {
		chg.ContractID = item.ContractID
	} else {
		chg.SaleID = item.SaleID
	}

	if err := s.ChargeRepo.Create(ctx, chg); err != nil {
		return nil, err
	}

	s.Logger.Infow("generated charge",
		"charge_id", chg.ID,
		"external_id", chg.ExternalID,
		"item_id", item.ID,
		"due_date", dueDate.Format("2006-01-02"),
		"amount", item.Amount)

	s.advanceSchedule(ctx, item, dueDate)
	s.dispatchNotification(ctx, cred, item, chg)

	return chg, nil
}

// resolveCredential picks the item's explicit credential selector when
// set and the tenant default otherwise
func (s *chargeGeneratorService) resolveCredential(ctx context.Context, item *billable.Item) (*bankaccount.Credential, error) {
	if item.BankAccountID != nil && *item.BankAccountID != "" {
		return s.BankAccountRepo.Get(ctx, *item.BankAccountID)
	}
	return s.BankAccountRepo.GetDefault(ctx)
}

// buildReferenceCode derives a provider reference from the item type,
// its id and a short unique suffix, truncated to the provider limit
func (s *chargeGeneratorService) buildReferenceCode(item *billable.Item, now time.Time) string {
	discriminator := "C"
	if item.Origin == types.BillingOriginSale {
		discriminator = "S"
	}

	code := fmt.Sprintf("%s%s-%s", discriminator, strings.ToUpper(types.GenerateShortID()), now.Format("060102"))
	if max := s.Config.Billing.ReferenceCodeMaxLen; max > 0 && len(code) > max {
		code = code[:max]
	}
	return code
}

// advanceSchedule moves the rolling next due date of legacy contract
// items and bumps the billed-period counter of the governing rule. Sale
// items are one per period and never mutate their own due date.
func (s *chargeGeneratorService) advanceSchedule(ctx context.Context, item *billable.Item, dueDate time.Time) {
	if item.RecurrenceID != nil && *item.RecurrenceID != "" {
		if err := s.RecurrenceRepo.IncrementBilledPeriods(ctx, *item.RecurrenceID); err != nil {
			s.Logger.Errorw("failed to increment billed periods",
				"recurrence_id", *item.RecurrenceID,
				"error", err)
		}
	}

	if item.Origin != types.BillingOriginContract {
		return
	}

	unit := types.BillingIntervalMonth
	count := 1
	if item.RecurrenceID != nil && *item.RecurrenceID != "" {
		if rule, err := s.RecurrenceRepo.Get(ctx, *item.RecurrenceID); err == nil {
			unit = rule.IntervalUnit
			count = rule.IntervalCount
		}
	}

	next, err := types.NextDueDate(dueDate, item.EffectiveAnchorDay(), unit, count)
	if err != nil {
		s.Logger.Errorw("failed to compute next due date",
			"item_id", item.ID,
			"error", err)
		return
	}

	if err := s.BillableRepo.UpdateDueDate(ctx, item.ID, next); err != nil {
		s.Logger.Errorw("failed to advance contract due date",
			"item_id", item.ID,
			"next_due_date", next.Format("2006-01-02"),
			"error", err)
	}
}

// dispatchNotification mails the charge document to the payer. Failure
// is logged and never rolls back the created charge.
func (s *chargeGeneratorService) dispatchNotification(ctx context.Context, cred *bankaccount.Credential, item *billable.Item, chg *charge.Charge) {
	if item.Payer.Email == "" {
		return
	}

	msg := &notification.Message{
		To:      item.Payer.Email,
		Subject: fmt.Sprintf("Boleto %s", chg.ReferenceCode),
	}
	if chg.PaymentLink != nil {
		msg.HTMLBody = fmt.Sprintf("<p>Seu boleto vence em %s.</p><p><a href=%q>Visualizar boleto</a></p>",
			chg.DueDate.Format("02/01/2006"), *chg.PaymentLink)
	} else {
		msg.HTMLBody = fmt.Sprintf("<p>Seu boleto vence em %s.</p>", chg.DueDate.Format("02/01/2006"))
	}

	pdf, err := s.Bank.GetChargePDF(ctx, cred, chg.ExternalID)
	if err != nil {
		s.Logger.Warnw("charge pdf unavailable, sending notification without attachment",
			"charge_id", chg.ID,
			"error", err)
	} else {
		msg.Attachment = &notification.Attachment{
			Filename: fmt.Sprintf("boleto-%s.pdf", chg.ReferenceCode),
			Content:  pdf,
		}
	}

	if err := s.Notifier.Send(ctx, msg); err != nil {
		s.Logger.Errorw("failed to dispatch charge notification",
			"charge_id", chg.ID,
			"to", item.Payer.Email,
			"error", err)
	}
}

package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/recorrente/recorrente/internal/banking"
	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	ierr "github.com/recorrente/recorrente/internal/errors"
)

// FakeBankClient is a scriptable banking.Client for service tests. It
// records every created charge and serves charge details from the
// Statuses map.
type FakeBankClient struct {
	mu sync.Mutex

	// CreatedCharges records every creation request in order
	CreatedCharges []*banking.CreateChargeRequest

	// Statuses maps external id to the raw status GetCharge reports
	Statuses map[string]string

	// Details overrides the full detail per external id; takes precedence
	// over Statuses
	Details map[string]*banking.ChargeDetail

	// CreateErr fails CreateCharge when set
	CreateErr error
	// GetErr fails GetCharge when set
	GetErr error

	nextID int
}

func NewFakeBankClient() *FakeBankClient {
	return &FakeBankClient{
		CreatedCharges: make([]*banking.CreateChargeRequest, 0),
		Statuses:       make(map[string]string),
		Details:        make(map[string]*banking.ChargeDetail),
	}
}

func (f *FakeBankClient) CreateCharge(ctx context.Context, cred *bankaccount.Credential, req *banking.CreateChargeRequest) (*banking.CreateChargeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.nextID++
	externalID := fmt.Sprintf("ext-%03d", f.nextID)
	f.CreatedCharges = append(f.CreatedCharges, req)
	f.Statuses[externalID] = "EMITIDO"

	return &banking.CreateChargeResponse{
		ExternalID:  externalID,
		Status:      "EMITIDO",
		PaymentLink: "https://bank.test/pay/" + externalID,
		Barcode:     "23790000000000000000000000000000000000000000",
	}, nil
}

func (f *FakeBankClient) GetCharge(ctx context.Context, cred *bankaccount.Credential, externalID string) (*banking.ChargeDetail, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GetErr != nil {
		return nil, nil, f.GetErr
	}

	detail, ok := f.Details[externalID]
	if !ok {
		status, found := f.Statuses[externalID]
		if !found {
			return nil, nil, ierr.NewError("charge not found at provider").
				Mark(ierr.ErrProvider)
		}
		detail = &banking.ChargeDetail{
			ExternalID: externalID,
			Status:     status,
		}
	}

	raw, _ := json.Marshal(detail)
	return detail, raw, nil
}

func (f *FakeBankClient) GetChargePDF(ctx context.Context, cred *bankaccount.Credential, externalID string) ([]byte, error) {
	return []byte("%PDF-1.4 fake"), nil
}

// SetDetail scripts the provider view for one external id
func (f *FakeBankClient) SetDetail(externalID string, detail *banking.ChargeDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Details[externalID] = detail
}

// SetStatus scripts just the raw status for one external id
func (f *FakeBankClient) SetStatus(externalID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Statuses[externalID] = status
	delete(f.Details, externalID)
}

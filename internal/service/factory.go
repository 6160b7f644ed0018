package service

import (
	"time"

	"github.com/recorrente/recorrente/internal/banking"
	"github.com/recorrente/recorrente/internal/config"
	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	"github.com/recorrente/recorrente/internal/domain/billable"
	"github.com/recorrente/recorrente/internal/domain/charge"
	"github.com/recorrente/recorrente/internal/domain/ledger"
	"github.com/recorrente/recorrente/internal/domain/recurrence"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/notification"
	"github.com/recorrente/recorrente/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger   *logger.Logger
	Config   *config.Configuration
	DB       postgres.IClient
	Bank     banking.Client
	Notifier notification.Notifier

	// Now is the clock used by time-sensitive passes; defaults to
	// time.Now when nil
	Now func() time.Time

	// Repositories
	RecurrenceRepo  recurrence.Repository
	BillableRepo    billable.Repository
	ChargeRepo      charge.Repository
	LedgerRepo      ledger.Repository
	BankAccountRepo bankaccount.Repository
}

func (p ServiceParams) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

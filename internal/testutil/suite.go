package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/recorrente/recorrente/internal/config"
	"github.com/recorrente/recorrente/internal/logger"
)

// BaseServiceSuite wires the in-memory stores, fakes and a frozen clock
// for service tests
type BaseServiceSuite struct {
	suite.Suite

	Ctx    context.Context
	Cfg    *config.Configuration
	Logger *logger.Logger

	DB       *InMemoryDB
	Bank     *FakeBankClient
	Notifier *RecordingNotifier

	RecurrenceStore  *InMemoryRecurrenceStore
	BillableStore    *InMemoryBillableStore
	ChargeStore      *InMemoryChargeStore
	LedgerStore      *InMemoryLedgerStore
	BankAccountStore *InMemoryBankAccountStore

	// Clock is the frozen time returned by the services' Now hook; tests
	// reassign it to move time
	Clock time.Time
}

// SetupSuiteComponents resets every store and fake; call from SetupTest
func (s *BaseServiceSuite) SetupSuiteComponents() {
	s.Ctx = SetupContext()
	s.Cfg = config.GetDefaultConfig()

	log, err := logger.NewLogger(s.Cfg)
	s.Require().NoError(err)
	s.Logger = log

	s.DB = NewInMemoryDB()
	s.Bank = NewFakeBankClient()
	s.Notifier = NewRecordingNotifier()

	s.RecurrenceStore = NewInMemoryRecurrenceStore()
	s.BillableStore = NewInMemoryBillableStore()
	s.ChargeStore = NewInMemoryChargeStore()
	s.LedgerStore = NewInMemoryLedgerStore()
	s.BankAccountStore = NewInMemoryBankAccountStore()

	s.Clock = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

// Now is the clock hook handed to ServiceParams
func (s *BaseServiceSuite) Now() time.Time {
	return s.Clock
}

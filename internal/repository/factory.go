package repository

import (
	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	"github.com/recorrente/recorrente/internal/domain/billable"
	"github.com/recorrente/recorrente/internal/domain/charge"
	"github.com/recorrente/recorrente/internal/domain/ledger"
	"github.com/recorrente/recorrente/internal/domain/recurrence"
	"github.com/recorrente/recorrente/internal/logger"
	pgstore "github.com/recorrente/recorrente/internal/postgres"
	repo "github.com/recorrente/recorrente/internal/repository/postgres"
)

func NewRecurrenceRepository(db pgstore.IClient, logger *logger.Logger) recurrence.Repository {
	return repo.NewRecurrenceRepository(db, logger)
}

func NewBillableRepository(db pgstore.IClient, logger *logger.Logger) billable.Repository {
	return repo.NewBillableRepository(db, logger)
}

func NewChargeRepository(db pgstore.IClient, logger *logger.Logger) charge.Repository {
	return repo.NewChargeRepository(db, logger)
}

func NewLedgerRepository(db pgstore.IClient, logger *logger.Logger) ledger.Repository {
	return repo.NewLedgerRepository(db, logger)
}

func NewBankAccountRepository(db pgstore.IClient, logger *logger.Logger) bankaccount.Repository {
	return repo.NewBankAccountRepository(db, logger)
}

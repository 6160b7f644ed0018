package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/recorrente/recorrente/internal/api"
	"github.com/recorrente/recorrente/internal/api/cron"
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
	"github.com/recorrente/recorrente/internal/repository"
	"github.com/recorrente/recorrente/internal/service"
	"github.com/recorrente/recorrente/internal/types"
)

func init() {
	// all scheduling math runs in UTC
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			newDB,
			repository.NewRecurrenceRepository,
			repository.NewBillableRepository,
			repository.NewChargeRepository,
			repository.NewLedgerRepository,
			repository.NewBankAccountRepository,
			banking.NewTokenManager,
			banking.NewClient,
			notification.NewNotifier,
			newServiceParams,
			service.NewDueItemService,
			service.NewChargeGeneratorService,
			service.NewContractRenewalService,
			service.NewReconciliationService,
			cron.NewBillingHandler,
			newRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func newDB(cfg *config.Configuration, log *logger.Logger) (postgres.IClient, error) {
	return postgres.NewDB(cfg, log)
}

func newServiceParams(p serviceDeps) service.ServiceParams {
	return service.ServiceParams{
		Logger:          p.Logger,
		Config:          p.Config,
		DB:              p.DB,
		Bank:            p.Bank,
		Notifier:        p.Notifier,
		RecurrenceRepo:  p.RecurrenceRepo,
		BillableRepo:    p.BillableRepo,
		ChargeRepo:      p.ChargeRepo,
		LedgerRepo:      p.LedgerRepo,
		BankAccountRepo: p.BankAccountRepo,
	}
}

type serviceDeps struct {
	fx.In

	Logger   *logger.Logger
	Config   *config.Configuration
	DB       postgres.IClient
	Bank     banking.Client
	Notifier notification.Notifier

	RecurrenceRepo  recurrence.Repository
	BillableRepo    billable.Repository
	ChargeRepo      charge.Repository
	LedgerRepo      ledger.Repository
	BankAccountRepo bankaccount.Repository
}

func newRouter(billing *cron.BillingHandler, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(api.Handlers{Billing: billing}, log)
}

func startServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Configuration, log *logger.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping server")
			return srv.Shutdown(ctx)
		},
	})
}

package server

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/dwarvesf/payments-backend/internal/billing"
	"github.com/dwarvesf/payments-backend/internal/chainrpc"
	"github.com/dwarvesf/payments-backend/internal/dispatcher"
	"github.com/dwarvesf/payments-backend/internal/keyvault"
	"github.com/dwarvesf/payments-backend/internal/monitoring"
	"github.com/dwarvesf/payments-backend/internal/observer"
	"github.com/dwarvesf/payments-backend/internal/oracle"
	"github.com/dwarvesf/payments-backend/internal/promoter"
	"github.com/dwarvesf/payments-backend/internal/registry"
	"github.com/dwarvesf/payments-backend/internal/store"
	pgstore "github.com/dwarvesf/payments-backend/internal/store/postgres"
	transporthttp "github.com/dwarvesf/payments-backend/internal/transport/http"
	"github.com/dwarvesf/payments-backend/internal/treasury"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
	"github.com/dwarvesf/payments-backend/internal/utils/vault"
	"github.com/dwarvesf/payments-backend/internal/utils/webhook"
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)
	s := store.New()

	// The mnemonic encryption key is fetched once at boot. Running without it
	// would mint deposit accounts nobody can ever recover, so failure is fatal.
	vaultClient, err := vault.New(appConfig.Vault)
	if err != nil {
		logger.Fatal("Failed to init vault client", map[string]string{"error": err.Error()})
	}
	keyHex, err := vaultClient.GetSecretKey(appConfig.Vault.KeyName)
	if err != nil {
		logger.Fatal("Failed to fetch encryption key", map[string]string{"error": err.Error()})
	}
	aead, err := keyvault.New(keyHex)
	if err != nil {
		logger.Fatal("Failed to init mnemonic cipher", map[string]string{"error": err.Error()})
	}

	metricsRegistry := prometheus.NewRegistry()
	pipelineMetrics := monitoring.NewPipelineMetrics()
	pipelineMetrics.MustRegister(metricsRegistry)
	jobMetrics := monitoring.NewBackgroundJobMetrics()
	jobMetrics.MustRegister(metricsRegistry)

	chainRpc := chainrpc.New(appConfig, logger)
	obs := observer.New(db, s, chainRpc, appConfig, logger, pipelineMetrics)

	treasurySvc := treasury.New(appConfig.Chain.SS58Prefix)
	reg := registry.New(db, s, treasurySvc, aead, logger, obs)

	oracleSvc := oracle.New(appConfig, logger)
	if err := oracleSvc.Refresh(); err != nil {
		logger.Error("Initial price refresh failed", map[string]string{"error": err.Error()})
	}

	prom, err := promoter.New(db, s, oracleSvc, appConfig, logger, pipelineMetrics)
	if err != nil {
		logger.Fatal("Failed to init promoter", map[string]string{"error": err.Error()})
	}

	billingClient := monitoring.NewCircuitBreakerBillingClient(
		billing.New(appConfig, logger),
		monitoring.DefaultCircuitBreakerConfig,
		pipelineMetrics,
		logger,
	)
	disp := dispatcher.New(db, s, billingClient, appConfig, logger, pipelineMetrics, webhook.New(logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go obs.Run(ctx)
	go disp.Run(ctx)

	c := cron.New()
	c.AddFunc(appConfig.PriceOracle.RefreshPeriod, jobMetrics.InstrumentJob("oracle_refresh", logger, oracleSvc.Refresh))
	c.AddFunc(appConfig.Promoter.Period, jobMetrics.InstrumentJob("promoter_pass", logger, prom.PromoteOnce))
	c.AddFunc("@every 5m", jobMetrics.InstrumentJob("account_refresh", logger, obs.RefreshKnownAccounts))
	c.Start()
	defer c.Stop()

	router := transporthttp.NewHttpServer(appConfig, logger, reg, oracleSvc, s, db, metricsRegistry)

	srv := &http.Server{
		Addr:    ":" + appConfig.ApiServer.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to run http server", map[string]string{"error": err.Error()})
		}
	}()
	logger.Info("Server started", map[string]string{"port": appConfig.ApiServer.Port})

	<-ctx.Done()
	logger.Info("Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", map[string]string{"error": err.Error()})
	}
}

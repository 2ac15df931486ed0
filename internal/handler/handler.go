package handler

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/handler/deposit"
	"github.com/dwarvesf/payments-backend/internal/handler/depositaccount"
	"github.com/dwarvesf/payments-backend/internal/handler/health"
	handleroracle "github.com/dwarvesf/payments-backend/internal/handler/oracle"
	"github.com/dwarvesf/payments-backend/internal/oracle"
	"github.com/dwarvesf/payments-backend/internal/registry"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

type Handler struct {
	DepositAccountHandler depositaccount.IHandler
	DepositHandler        deposit.IHandler
	OracleHandler         handleroracle.IHandler
	HealthHandler         health.IHandler
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	reg registry.IRegistry,
	oracleSvc oracle.IOracle,
	s *store.Store,
	db *gorm.DB) *Handler {
	return &Handler{
		DepositAccountHandler: depositaccount.New(reg, logger),
		DepositHandler:        deposit.New(db, s, logger),
		OracleHandler:         handleroracle.New(oracleSvc, logger, appConfig),
		HealthHandler:         health.New(db, logger),
	}
}

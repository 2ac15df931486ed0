package http

import (
	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/payments-backend/internal/handler"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler, appConfig *config.AppConfig, logger *logger.Logger) {
	v1 := r.Group("/api/v1")

	depositAccounts := v1.Group("/deposit-accounts")
	{
		depositAccounts.POST("", h.DepositAccountHandler.Create)
		depositAccounts.GET("/:user_id", h.DepositAccountHandler.Get)
	}

	deposits := v1.Group("/deposits")
	{
		deposits.GET("/:user_id", h.DepositHandler.ListByUser)
	}

	oracle := v1.Group("/oracle")
	{
		oracle.GET("/rate", h.OracleHandler.GetRate)
	}

	v1.GET("/health/db", h.HealthHandler.DBStatus)

	// health check
	r.GET("/healthz", h.HealthHandler.Healthz)
}

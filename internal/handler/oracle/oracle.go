package oracle

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/payments-backend/internal/oracle"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
	"github.com/dwarvesf/payments-backend/internal/view"
)

type handler struct {
	oracle    oracle.IOracle
	logger    *logger.Logger
	appConfig *config.AppConfig
}

func New(oracle oracle.IOracle, logger *logger.Logger, appConfig *config.AppConfig) IHandler {
	return &handler{
		oracle:    oracle,
		logger:    logger,
		appConfig: appConfig,
	}
}

type RateResponse struct {
	Rate      string `json:"rate"`
	FetchedAt string `json:"fetched_at"`
	AgeMs     int64  `json:"age_ms"`
	Stale     bool   `json:"stale"`
}

// GetRate godoc
// @Summary Get the cached conversion rate
// @Description Returns the last good token price with its age
// @id getOracleRate
// @Tags Oracle
// @Accept json
// @Produce json
// @Success 200 {object} RateResponse
// @Failure 503 {object} view.Response[any]
// @Router /oracle/rate [get]
func (h *handler) GetRate(c *gin.Context) {
	snapshot, err := h.oracle.GetRate()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, view.CreateResponse[any](nil, err, "no rate available", ""))
		return
	}

	age := snapshot.Age()
	c.JSON(http.StatusOK, view.CreateResponse(RateResponse{
		Rate:      snapshot.Rate.String(),
		FetchedAt: snapshot.FetchedAt.UTC().Format(time.RFC3339),
		AgeMs:     age.Milliseconds(),
		Stale:     age > h.appConfig.PriceOracle.MaxPriceAge,
	}, nil, "", ""))
}

package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

type handler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func New(db *gorm.DB, logger *logger.Logger) IHandler {
	return &handler{
		db:     db,
		logger: logger,
	}
}

// Healthz godoc
// @Summary Liveness probe
// @id healthz
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ok",
	})
}

// DBStatus godoc
// @Summary Database connectivity check
// @id healthDB
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health/db [get]
func (h *handler) DBStatus(c *gin.Context) {
	start := time.Now()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		h.logger.Error("[DBStatus][Ping]", map[string]string{"error": err.Error()})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

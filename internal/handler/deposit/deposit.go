package deposit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
	"github.com/dwarvesf/payments-backend/internal/view"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type handler struct {
	db     *gorm.DB
	store  *store.Store
	logger *logger.Logger
}

func New(db *gorm.DB, s *store.Store, logger *logger.Logger) IHandler {
	return &handler{
		db:     db,
		store:  s,
		logger: logger,
	}
}

// ListByUser godoc
// @Summary List a user's observed deposits
// @Description List deposits recorded for the user's deposit account, newest first
// @id listDepositsByUser
// @Tags Deposit
// @Accept json
// @Produce json
// @Param user_id path string true "user id"
// @Param limit query int false "page size, defaults to 50"
// @Param offset query int false "rows to skip"
// @Success 200 {object} view.Response[[]model.ObservedDeposit]
// @Failure 500 {object} view.Response[any]
// @Router /deposits/{user_id} [get]
func (h *handler) ListByUser(c *gin.Context) {
	userID := c.Param("user_id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	deposits, err := h.store.ObservedDeposit.ListByUser(h.db, userID, limit, offset)
	if err != nil {
		h.logger.Error("[ListByUser][ListByUser]", map[string]string{
			"userID": userID,
			"error":  err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, "can't list deposits", ""))
		return
	}
	if deposits == nil {
		deposits = []model.ObservedDeposit{}
	}

	c.JSON(http.StatusOK, view.CreateResponse(deposits, nil, "", ""))
}

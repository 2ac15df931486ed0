package depositaccount

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/registry"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
	"github.com/dwarvesf/payments-backend/internal/view"
)

type handler struct {
	registry registry.IRegistry
	logger   *logger.Logger
	validate *validator.Validate
}

func New(registry registry.IRegistry, logger *logger.Logger) IHandler {
	return &handler{
		registry: registry,
		logger:   logger,
		validate: validator.New(),
	}
}

type CreateRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

// DepositAccountResponse is the public shape of a deposit account. The
// encrypted mnemonic never leaves the database.
type DepositAccountResponse struct {
	UserID    string `json:"user_id"`
	Address   string `json:"address"`
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
}

func toResponse(account *model.DepositAccount) DepositAccountResponse {
	return DepositAccountResponse{
		UserID:    account.UserID,
		Address:   account.Address,
		AccountID: account.AccountID,
		PublicKey: account.PublicKey,
	}
}

// Create godoc
// @Summary Get or create a deposit account
// @Description Returns the user's deposit account, issuing a fresh address on first call
// @id createDepositAccount
// @Tags DepositAccount
// @Accept json
// @Produce json
// @Param body body CreateRequest true "user to issue an account for"
// @Success 200 {object} DepositAccountResponse
// @Failure 400 {object} view.Response[any]
// @Failure 500 {object} view.Response[any]
// @Router /deposit-accounts [post]
func (h *handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, "invalid request body", ""))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, "invalid request body", ""))
		return
	}

	account, err := h.registry.GetOrCreate(req.UserID)
	if err != nil {
		h.logger.Error("[Create][GetOrCreate]", map[string]string{
			"userID": req.UserID,
			"error":  err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, "can't issue deposit account", ""))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(toResponse(account), nil, "", ""))
}

// Get godoc
// @Summary Get a deposit account
// @Description Look up the deposit account issued to a user
// @id getDepositAccount
// @Tags DepositAccount
// @Accept json
// @Produce json
// @Param user_id path string true "user id"
// @Success 200 {object} DepositAccountResponse
// @Failure 404 {object} view.Response[any]
// @Failure 500 {object} view.Response[any]
// @Router /deposit-accounts/{user_id} [get]
func (h *handler) Get(c *gin.Context) {
	userID := c.Param("user_id")

	account, err := h.registry.GetByUserID(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, view.CreateResponse[any](nil, err, "deposit account not found", ""))
			return
		}
		h.logger.Error("[Get][GetByUserID]", map[string]string{
			"userID": userID,
			"error":  err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, "can't get deposit account", ""))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(toResponse(account), nil, "", ""))
}

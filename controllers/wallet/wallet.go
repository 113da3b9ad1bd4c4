package wallet

import (
	"errors"

	"siamplay/agents"
	"siamplay/helpers"
	"siamplay/middlewares"
	"siamplay/models"
	"siamplay/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	UserID        uint            `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID uint            `json:"bank_account_id"`
}

// DepositHandler opens a PENDING deposit. The player then transfers to the
// system bank account; the notification webhook completes the request.
func DepositHandler(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.UserID == 0 || req.BankAccountID == 0 {
		return helpers.JSONError(c, "USER_ID_AND_BANK_ACCOUNT_REQUIRED")
	}

	w := services.NewWallet(middlewares.TenantDB(c))
	trx, err := w.RequestDeposit(req.UserID, req.Amount, req.BankAccountID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			return helpers.JSONError(c, "INVALID_AMOUNT")
		}
		return helpers.JSONError(c, "FAILED_TO_CREATE_DEPOSIT")
	}

	return helpers.JSONSuccess(c, "Deposit request created", fiber.Map{
		"transaction_id": trx.ID,
		"status":         trx.Status,
		"amount":         trx.Amount,
	})
}

type WithdrawRequest struct {
	UserID uint            `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

func WithdrawHandler(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.UserID == 0 {
		return helpers.JSONError(c, "USER_ID_REQUIRED")
	}

	w := services.NewWallet(middlewares.TenantDB(c))
	trx, err := w.RequestWithdraw(req.UserID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			return helpers.JSONError(c, "INVALID_AMOUNT")
		case errors.Is(err, services.ErrInsufficientBalance):
			return helpers.JSONError(c, "INSUFFICIENT_BALANCE")
		default:
			return helpers.JSONError(c, "FAILED_TO_CREATE_WITHDRAW")
		}
	}

	return helpers.JSONSuccess(c, "Withdraw request created", fiber.Map{
		"transaction_id": trx.ID,
		"status":         trx.Status,
		"amount":         trx.Amount,
	})
}

type ManualRequest struct {
	UserID uint            `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func ManualAdjustHandler(c *fiber.Ctx) error {
	var req ManualRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.UserID == 0 {
		return helpers.JSONError(c, "USER_ID_REQUIRED")
	}

	w := services.NewWallet(middlewares.TenantDB(c))
	trx, err := w.ManualAdjust(req.UserID, req.Amount, req.Note)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			return helpers.JSONError(c, "INVALID_AMOUNT")
		}
		return helpers.JSONError(c, "FAILED_TO_ADJUST")
	}

	return helpers.JSONSuccess(c, "Balance adjusted", fiber.Map{
		"transaction_id": trx.ID,
		"type":           trx.Type,
		"balance_after":  trx.BalanceAfter,
	})
}

// RefreshBalanceHandler re-reads a player's balance from the agent and
// updates the cached mirror on the external account.
func RefreshBalanceHandler(c *fiber.Ctx) error {
	var req struct {
		UserID  uint `json:"user_id"`
		AgentID uint `json:"agent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.UserID == 0 || req.AgentID == 0 {
		return helpers.JSONError(c, "USER_ID_AND_AGENT_ID_REQUIRED")
	}

	db := middlewares.TenantDB(c)

	var account models.ExternalAccount
	if err := db.Where("user_id = ? AND agent_id = ?", req.UserID, req.AgentID).First(&account).Error; err != nil {
		return helpers.JSONError(c, "EXTERNAL_ACCOUNT_NOT_FOUND")
	}

	client, _, err := agents.NewFactory(db).Resolve(req.AgentID)
	if err != nil {
		return helpers.JSONError(c, "AGENT_NOT_CONFIGURED")
	}

	balance, err := client.GetBalance(c.UserContext(), account.ExternalUsername)
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_FETCH_BALANCE")
	}

	if err := db.Model(&account).Update("balance", balance).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_UPDATE_BALANCE")
	}

	return helpers.JSONSuccess(c, "Balance refreshed", fiber.Map{
		"external_username": account.ExternalUsername,
		"balance":           balance,
	})
}

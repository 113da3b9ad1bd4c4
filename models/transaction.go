package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TrxDeposit      = "DEPOSIT"
	TrxWithdraw     = "WITHDRAW"
	TrxBet          = "BET"
	TrxWin          = "WIN"
	TrxBonus        = "BONUS"
	TrxCashback     = "CASHBACK"
	TrxManualAdd    = "MANUAL_ADD"
	TrxManualDeduct = "MANUAL_DEDUCT"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Transaction is the append-mostly source of truth for a player's balance
// history. Rows are immutable once COMPLETED or FAILED; the only legal status
// transition is PENDING -> {COMPLETED, FAILED}. ExternalRef together with Type
// is the dedupe key for externally settled records.
type Transaction struct {
	gorm.Model

	UserID        uint            `gorm:"index" json:"user_id"`
	Type          string          `gorm:"size:16;index;uniqueIndex:idx_type_external_ref" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2)" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance_after"`
	Status        string          `gorm:"size:16;index" json:"status"`
	ExternalRef   *string         `gorm:"size:64;uniqueIndex:idx_type_external_ref" json:"external_ref,omitempty"`
	BankAccountID *uint           `gorm:"index" json:"bank_account_id,omitempty"`
	RefID         string          `gorm:"size:64" json:"ref_id"`
	Note          string          `gorm:"size:255" json:"note"`
}

package services

import (
	"errors"
	"fmt"

	"siamplay/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrLedgerInvariant marks a violation of the balance chain: completing a
	// non-pending transaction, or a before/after mismatch. It always aborts
	// the enclosing database transaction.
	ErrLedgerInvariant = errors.New("ledger invariant violation")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Wallet produces and settles ledger rows for one tenant database.
type Wallet struct {
	db *gorm.DB
}

func NewWallet(db *gorm.DB) *Wallet {
	return &Wallet{db: db}
}

// RequestDeposit opens a PENDING deposit against a system bank account. The
// reconciliation engine completes it when the matching transfer notification
// arrives.
func (w *Wallet) RequestDeposit(userID uint, amount decimal.Decimal, bankAccountID uint) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var trx models.Transaction
	err := w.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}

		trx = models.Transaction{
			UserID:        user.ID,
			Type:          models.TrxDeposit,
			Amount:        amount,
			BalanceBefore: user.Balance,
			BalanceAfter:  user.Balance.Add(amount),
			Status:        models.StatusPending,
			BankAccountID: &bankAccountID,
			RefID:         uuid.New().String(),
			Note:          "Deposit request",
		}
		return tx.Create(&trx).Error
	})
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// RequestWithdraw debits the player immediately and opens a PENDING withdraw
// for operator payout; FailPending refunds it if the payout is rejected.
func (w *Wallet) RequestWithdraw(userID uint, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var trx models.Transaction
	err := w.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}
		if user.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		before := user.Balance
		after := before.Sub(amount)

		trx = models.Transaction{
			UserID:        user.ID,
			Type:          models.TrxWithdraw,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Status:        models.StatusPending,
			RefID:         uuid.New().String(),
			Note:          "Withdraw request",
		}
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("balance", after).Error
	})
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// ManualAdjust applies an operator credit or debit in one unit. Negative
// amounts deduct.
func (w *Wallet) ManualAdjust(userID uint, amount decimal.Decimal, note string) (*models.Transaction, error) {
	if amount.IsZero() {
		return nil, ErrInvalidAmount
	}

	trxType := models.TrxManualAdd
	if amount.IsNegative() {
		trxType = models.TrxManualDeduct
	}

	var trx models.Transaction
	err := w.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return err
		}

		before := user.Balance
		after := before.Add(amount)
		if after.IsNegative() {
			return ErrInsufficientBalance
		}

		trx = models.Transaction{
			UserID:        user.ID,
			Type:          trxType,
			Amount:        amount.Abs(),
			BalanceBefore: before,
			BalanceAfter:  after,
			Status:        models.StatusCompleted,
			RefID:         uuid.New().String(),
			Note:          note,
		}
		if err := tx.Create(&trx).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("balance", after).Error
	})
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// FailPending flips a PENDING transaction to FAILED, refunding a withdraw's
// held amount. Any other starting status violates the ledger lifecycle.
func (w *Wallet) FailPending(trxID uint, reason string) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		var trx models.Transaction
		if err := forUpdate(tx).First(&trx, trxID).Error; err != nil {
			return err
		}
		if trx.Status != models.StatusPending {
			return fmt.Errorf("%w: transaction %d is %s", ErrLedgerInvariant, trx.ID, trx.Status)
		}

		updates := map[string]any{
			"status": models.StatusFailed,
			"note":   trx.Note + " | " + reason,
		}
		if err := tx.Model(&trx).Updates(updates).Error; err != nil {
			return err
		}

		if trx.Type == models.TrxWithdraw {
			var user models.User
			if err := forUpdate(tx).First(&user, trx.UserID).Error; err != nil {
				return err
			}
			return tx.Model(&user).Update("balance", user.Balance.Add(trx.Amount)).Error
		}
		return nil
	})
}

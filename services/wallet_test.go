package services

import (
	"testing"

	"siamplay/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDepositOpensPending(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "100.00")
	account := models.BankAccount{BankName: "KBANK", AccountNumber: "1234567109", Type: "deposit", IsActive: true}
	require.NoError(t, db.Create(&account).Error)

	wallet := NewWallet(db)
	trx, err := wallet.RequestDeposit(user.ID, decimal.RequireFromString("50.00"), account.ID)
	require.NoError(t, err)

	assert.Equal(t, models.TrxDeposit, trx.Type)
	assert.Equal(t, models.StatusPending, trx.Status)
	require.NotNil(t, trx.BankAccountID)
	assert.Equal(t, account.ID, *trx.BankAccountID)
	assert.NotEmpty(t, trx.RefID)

	// Money does not move until the transfer is reconciled.
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("100.00")))
}

func TestRequestDepositRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "100.00")

	wallet := NewWallet(db)
	_, err := wallet.RequestDeposit(user.ID, decimal.Zero, 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = wallet.RequestDeposit(user.ID, decimal.RequireFromString("-5"), 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, countTransactions(t, db))
}

func TestRequestWithdrawHoldsFunds(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "100.00")

	wallet := NewWallet(db)
	trx, err := wallet.RequestWithdraw(user.ID, decimal.RequireFromString("40.00"))
	require.NoError(t, err)

	assert.Equal(t, models.TrxWithdraw, trx.Type)
	assert.Equal(t, models.StatusPending, trx.Status)
	assert.True(t, trx.BalanceBefore.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, trx.BalanceAfter.Equal(decimal.RequireFromString("60.00")))
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("60.00")))
}

func TestRequestWithdrawInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "30.00")

	wallet := NewWallet(db)
	_, err := wallet.RequestWithdraw(user.ID, decimal.RequireFromString("40.00"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("30.00")))
	assert.Zero(t, countTransactions(t, db))
}

func TestManualAdjust(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "100.00")
	wallet := NewWallet(db)

	added, err := wallet.ManualAdjust(user.ID, decimal.RequireFromString("25.00"), "promo credit")
	require.NoError(t, err)
	assert.Equal(t, models.TrxManualAdd, added.Type)
	assert.Equal(t, models.StatusCompleted, added.Status)
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("125.00")))

	deducted, err := wallet.ManualAdjust(user.ID, decimal.RequireFromString("-25.00"), "correction")
	require.NoError(t, err)
	assert.Equal(t, models.TrxManualDeduct, deducted.Type)
	assert.True(t, deducted.Amount.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("100.00")))

	_, err = wallet.ManualAdjust(user.ID, decimal.Zero, "noop")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = wallet.ManualAdjust(user.ID, decimal.RequireFromString("-500.00"), "too much")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("100.00")))
}

func TestFailPendingRefundsWithdraw(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "100.00")
	wallet := NewWallet(db)

	trx, err := wallet.RequestWithdraw(user.ID, decimal.RequireFromString("40.00"))
	require.NoError(t, err)
	require.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("60.00")))

	require.NoError(t, wallet.FailPending(trx.ID, "payout rejected"))

	var failed models.Transaction
	require.NoError(t, db.First(&failed, trx.ID).Error)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Contains(t, failed.Note, "payout rejected")
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("100.00")))
}

func TestFailPendingDepositDoesNotTouchBalance(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "100.00")
	account := models.BankAccount{BankName: "KBANK", AccountNumber: "1234567109", Type: "deposit", IsActive: true}
	require.NoError(t, db.Create(&account).Error)
	wallet := NewWallet(db)

	trx, err := wallet.RequestDeposit(user.ID, decimal.RequireFromString("50.00"), account.ID)
	require.NoError(t, err)

	require.NoError(t, wallet.FailPending(trx.ID, "expired"))
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("100.00")))
}

func TestFailPendingRejectsSettledTransaction(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "somchai", "100.00")
	wallet := NewWallet(db)

	trx, err := wallet.ManualAdjust(user.ID, decimal.RequireFromString("10.00"), "credit")
	require.NoError(t, err)

	err = wallet.FailPending(trx.ID, "late cancel")
	assert.ErrorIs(t, err, ErrLedgerInvariant)

	// The completed row and the balance both stand.
	var kept models.Transaction
	require.NoError(t, db.First(&kept, trx.ID).Error)
	assert.Equal(t, models.StatusCompleted, kept.Status)
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("110.00")))
}

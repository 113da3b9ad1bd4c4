package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"siamplay/models"
	"siamplay/sms"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Outcome string

const (
	OutcomeMatched     Outcome = "MATCHED"
	OutcomeNoMatch     Outcome = "NO_MATCH"
	OutcomeParseFailed Outcome = "PARSE_FAILED"
	OutcomeDuplicate   Outcome = "DUPLICATE"
)

// ReconcileResult is what the webhook reports back to the gateway. Every
// outcome except a transport failure is a success at the HTTP level.
type ReconcileResult struct {
	Outcome     Outcome
	Log         *models.NotificationLog
	Transaction *models.Transaction
}

// Reconciler matches inbound transfer notifications to pending deposits for
// one tenant database.
type Reconciler struct {
	db *gorm.DB
}

func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Reconcile processes one raw bank message end to end: dedupe by content
// hash, parse, match, credit. Unmatched money is never dropped; it lands in
// the notification log for manual follow-up.
func (r *Reconciler) Reconcile(raw string) (*ReconcileResult, error) {
	hash := sms.Hash(raw)

	var existing models.NotificationLog
	err := r.db.Where("message_hash = ?", hash).First(&existing).Error
	if err == nil {
		return &ReconcileResult{Outcome: OutcomeDuplicate, Log: &existing}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	parsed, err := sms.Parse(raw)
	if err != nil {
		entry := &models.NotificationLog{
			MessageHash: hash,
			RawMessage:  raw,
			Status:      models.NotifyParseFailed,
			Error:       err.Error(),
		}
		return r.writeLog(OutcomeParseFailed, entry, nil)
	}

	account, err := r.matchBankAccount(parsed.DestAccountLast4)
	if err != nil {
		return nil, err
	}
	if account == nil {
		entry := r.newLogEntry(hash, raw, parsed, models.NotifyNoMatch)
		entry.Error = "destination account not registered"
		return r.writeLog(OutcomeNoMatch, entry, nil)
	}

	candidate, err := r.pickCandidate(account.ID, parsed)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		entry := r.newLogEntry(hash, raw, parsed, models.NotifyNoMatch)
		entry.Error = "no pending deposit matches amount"
		return r.writeLog(OutcomeNoMatch, entry, nil)
	}

	return r.credit(hash, raw, parsed, candidate)
}

func (r *Reconciler) matchBankAccount(destLast4 string) (*models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.db.Where("type = ? AND is_active = true", "deposit").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if sms.MatchAccountLast4(accounts[i].AccountNumber, destLast4) {
			return &accounts[i], nil
		}
	}
	return nil, nil
}

// pickCandidate narrows the PENDING deposits on the destination account down
// to one. Amount must match exactly; the sender's account digits and bank
// alias each narrow further only when they leave at least one candidate.
// Among survivors the oldest request wins (FIFO).
func (r *Reconciler) pickCandidate(bankAccountID uint, parsed *sms.ParsedTransfer) (*models.Transaction, error) {
	var pending []models.Transaction
	err := r.db.
		Where("type = ? AND status = ? AND bank_account_id = ?", models.TrxDeposit, models.StatusPending, bankAccountID).
		Order("created_at asc, id asc").
		Find(&pending).Error
	if err != nil {
		return nil, err
	}

	var candidates []models.Transaction
	for _, trx := range pending {
		if trx.Amount.Equal(parsed.Amount) {
			candidates = append(candidates, trx)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if len(candidates) > 1 {
		users, err := r.loadUsers(candidates)
		if err != nil {
			return nil, err
		}
		candidates = narrow(candidates, func(trx models.Transaction) bool {
			u, ok := users[trx.UserID]
			return ok && sms.MatchAccountLast4(u.BankAccount, parsed.SourceAccountLast4)
		})
		if len(candidates) > 1 {
			candidates = narrow(candidates, func(trx models.Transaction) bool {
				u, ok := users[trx.UserID]
				return ok && u.BankName != "" && sms.MatchBankName(parsed.SourceBank, u.BankName)
			})
		}
	}

	return &candidates[0], nil
}

// narrow applies a filter but keeps the original set when the filter would
// empty it: the secondary signals refine a match, they never veto it.
func narrow(candidates []models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	var out []models.Transaction
	for _, c := range candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

func (r *Reconciler) loadUsers(candidates []models.Transaction) (map[uint]models.User, error) {
	ids := make([]uint, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.UserID)
	}
	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// credit settles the chosen deposit in one atomic unit: status flip, balance
// chain, player credit, and the MATCHED log row all commit or roll back
// together. The unique hash constraint aborts the loser of a concurrent
// duplicate delivery.
func (r *Reconciler) credit(hash, raw string, parsed *sms.ParsedTransfer, candidate *models.Transaction) (*ReconcileResult, error) {
	var (
		settled models.Transaction
		entry   models.NotificationLog
	)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var trx models.Transaction
		if err := forUpdate(tx).First(&trx, candidate.ID).Error; err != nil {
			return err
		}
		if trx.Status != models.StatusPending {
			return fmt.Errorf("%w: deposit %d is %s", ErrLedgerInvariant, trx.ID, trx.Status)
		}

		var user models.User
		if err := forUpdate(tx).First(&user, trx.UserID).Error; err != nil {
			return err
		}

		before := user.Balance
		after := before.Add(trx.Amount)

		if err := tx.Model(&trx).Updates(map[string]any{
			"status":         models.StatusCompleted,
			"balance_before": before,
			"balance_after":  after,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Update("balance", after).Error; err != nil {
			return err
		}

		logEntry := r.newLogEntry(hash, raw, parsed, models.NotifyMatched)
		logEntry.MatchedUserID = &user.ID
		logEntry.TransactionID = &trx.ID
		if err := tx.Create(logEntry).Error; err != nil {
			return err
		}

		trx.Status = models.StatusCompleted
		trx.BalanceBefore = before
		trx.BalanceAfter = after
		settled = trx
		entry = *logEntry
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ReconcileResult{Outcome: OutcomeDuplicate}, nil
		}
		return nil, err
	}

	log.Printf("[Reconcile] matched deposit %d for user %d amount %s", settled.ID, settled.UserID, settled.Amount)
	return &ReconcileResult{Outcome: OutcomeMatched, Log: &entry, Transaction: &settled}, nil
}

func (r *Reconciler) newLogEntry(hash, raw string, parsed *sms.ParsedTransfer, status string) *models.NotificationLog {
	fields, _ := json.Marshal(parsed)
	return &models.NotificationLog{
		MessageHash:   hash,
		RawMessage:    raw,
		ParsedFields:  datatypes.JSON(fields),
		Amount:        parsed.Amount,
		DestAccount:   parsed.DestAccountLast4,
		SourceBank:    parsed.SourceBank,
		SourceAccount: parsed.SourceAccountLast4,
		SourceName:    parsed.SourceName,
		Status:        status,
	}
}

// writeLog records a terminal non-credit outcome. A duplicate hash means a
// concurrent delivery already recorded it.
func (r *Reconciler) writeLog(outcome Outcome, entry *models.NotificationLog, trx *models.Transaction) (*ReconcileResult, error) {
	if err := r.db.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ReconcileResult{Outcome: OutcomeDuplicate}, nil
		}
		return nil, err
	}
	return &ReconcileResult{Outcome: outcome, Log: entry, Transaction: trx}, nil
}

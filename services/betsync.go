package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"siamplay/agents"
	"siamplay/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxRoundsPerPass = 5

// SyncService drains each agent's bet log into the local ledger exactly once.
// One instance is shared by the whole process; per-key try-locks give each
// tenant/agent pair single-flight passes.
type SyncService struct {
	MaxAttempts int
	Backoff     time.Duration

	locks sync.Map // "tenant/agentID" -> *sync.Mutex
}

func NewSyncService() *SyncService {
	return &SyncService{
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
	}
}

// PassResult summarizes one sync pass.
type PassResult struct {
	Skipped     bool // another pass for the same agent was still running
	Imported    int
	Orphans     int // records with no local account mapping
	Cursor      int64
	HaltedEarly bool
}

func cursorKey(agentCode string) string {
	return "agent:" + strings.ToLower(agentCode) + ":last_log_id"
}

// RunPass executes one sync pass for one agent of one tenant. The cursor is
// persisted at the last fully committed record, so a halted pass resumes from
// there on the next schedule without re-applying anything.
func (s *SyncService) RunPass(ctx context.Context, db *gorm.DB, tenantCode string, client agents.Client, cfg *models.AgentConfig) (*PassResult, error) {
	key := tenantCode + "/" + strconv.FormatUint(uint64(cfg.ID), 10)
	muAny, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	if !mu.TryLock() {
		return &PassResult{Skipped: true}, nil
	}
	defer mu.Unlock()

	cursor, err := s.loadCursor(db, cfg.Code)
	if err != nil {
		return nil, err
	}

	result := &PassResult{Cursor: cursor}
	lastCommitted := cursor

	for round := 0; round < maxRoundsPerPass; round++ {
		records, err := s.fetchWithRetry(ctx, client, lastCommitted)
		if err != nil {
			log.Printf("[Sync] %s %s: fetch halted at cursor %d: %v", tenantCode, cfg.Code, lastCommitted, err)
			result.HaltedEarly = true
			break
		}
		if len(records) == 0 {
			break
		}

		halted := false
		for _, rec := range records {
			if rec.ID <= lastCommitted {
				continue
			}

			applied, err := s.applyRecord(db, client.Brand(), cfg.ID, rec)
			if err != nil {
				log.Printf("[Sync] %s %s: record %d failed, halting pass: %v", tenantCode, cfg.Code, rec.ID, err)
				result.HaltedEarly = true
				halted = true
				break
			}

			if applied {
				result.Imported++
			} else {
				result.Orphans++
			}
			lastCommitted = rec.ID
		}
		if halted {
			break
		}
	}

	if lastCommitted > cursor {
		if err := s.saveCursor(db, cfg.Code, lastCommitted); err != nil {
			return nil, fmt.Errorf("persist cursor: %w", err)
		}
	}
	result.Cursor = lastCommitted
	return result, nil
}

// applyRecord commits one external bet into the ledger: a BET transaction and,
// for positive wins, a paired WIN, balance chained, inside one unit. Replays
// are detected by the (type, external_ref) key and leave everything untouched.
// Records with no local account mapping return (false, nil) and are skipped.
func (s *SyncService) applyRecord(db *gorm.DB, brand string, agentID uint, rec agents.BetRecord) (bool, error) {
	var account models.ExternalAccount
	err := db.Where("agent_id = ? AND external_username = ?", agentID, rec.Username).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	betRef := fmt.Sprintf("%s:%d", strings.ToLower(brand), rec.ID)
	winRef := betRef + ":win"

	err = db.Transaction(func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.Where("type = ? AND external_ref = ?", models.TrxBet, betRef).First(&existing).Error
		if err == nil {
			return nil // already imported
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var user models.User
		if err := forUpdate(tx).First(&user, account.UserID).Error; err != nil {
			return err
		}

		before := user.Balance
		after := before.Sub(rec.BetAmount)

		bet := models.Transaction{
			UserID:        user.ID,
			Type:          models.TrxBet,
			Amount:        rec.BetAmount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Status:        models.StatusCompleted,
			ExternalRef:   &betRef,
			Note:          fmt.Sprintf("%s bet #%d %s", brand, rec.ID, rec.GameCode),
		}
		if err := tx.Create(&bet).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil // lost a race with another importer, same outcome
			}
			return err
		}

		if rec.WinAmount.IsPositive() {
			winBefore := after
			after = after.Add(rec.WinAmount)
			win := models.Transaction{
				UserID:        user.ID,
				Type:          models.TrxWin,
				Amount:        rec.WinAmount,
				BalanceBefore: winBefore,
				BalanceAfter:  after,
				Status:        models.StatusCompleted,
				ExternalRef:   &winRef,
				Note:          fmt.Sprintf("%s win #%d %s", brand, rec.ID, rec.GameCode),
			}
			if err := tx.Create(&win).Error; err != nil {
				return err
			}
		}

		return tx.Model(&user).Update("balance", after).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// fetchWithRetry retries adapter failures with doubling backoff. Anything
// that is not an adapter failure aborts immediately.
func (s *SyncService) fetchWithRetry(ctx context.Context, client agents.Client, cursor int64) ([]agents.BetRecord, error) {
	var lastErr error
	delay := s.Backoff

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		records, err := client.GetBetLog(ctx, cursor)
		if err == nil {
			return records, nil
		}

		var apiError *agents.APIError
		if !errors.As(err, &apiError) {
			return nil, err
		}
		lastErr = err

		if attempt == s.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

func (s *SyncService) loadCursor(db *gorm.DB, agentCode string) (int64, error) {
	var setting models.Setting
	err := db.Where("key = ?", cursorKey(agentCode)).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	cursor, err := strconv.ParseInt(setting.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt cursor %q for %s: %w", setting.Value, agentCode, err)
	}
	return cursor, nil
}

func (s *SyncService) saveCursor(db *gorm.DB, agentCode string, cursor int64) error {
	setting := models.Setting{Key: cursorKey(agentCode), Value: strconv.FormatInt(cursor, 10)}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// SyncTenant runs one pass for every active agent of a tenant.
func (s *SyncService) SyncTenant(ctx context.Context, db *gorm.DB, tenantCode string) {
	factory := agents.NewFactory(db)
	configs, err := factory.ActiveConfigs()
	if err != nil {
		log.Printf("[Sync] %s: list agents: %v", tenantCode, err)
		return
	}

	for i := range configs {
		cfg := configs[i]
		client, _, err := factory.Resolve(cfg.ID)
		if err != nil {
			log.Printf("[Sync] %s %s: %v", tenantCode, cfg.Code, err)
			continue
		}
		result, err := s.RunPass(ctx, db, tenantCode, client, &cfg)
		if err != nil {
			log.Printf("[Sync] %s %s: pass failed: %v", tenantCode, cfg.Code, err)
			continue
		}
		if result.Skipped {
			continue
		}
		if result.Imported > 0 || result.Orphans > 0 {
			log.Printf("[Sync] %s %s: imported=%d orphans=%d cursor=%d", tenantCode, cfg.Code, result.Imported, result.Orphans, result.Cursor)
		}
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"siamplay/agents"
	"siamplay/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubAgent serves a fixed bet log. The first `failures` fetches return
// failWith; entered/release, when set, let a test hold a fetch open.
type stubAgent struct {
	records  []agents.BetRecord
	failures int
	failWith error

	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (s *stubAgent) Brand() string { return agents.BrandBetflix }

func (s *stubAgent) GetBetLog(ctx context.Context, cursor int64) ([]agents.BetRecord, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if call <= s.failures {
		return nil, s.failWith
	}

	var out []agents.BetRecord
	for _, rec := range s.records {
		if rec.ID > cursor {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubAgent) fetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubAgent) Register(ctx context.Context, userID uint, phone string) (*agents.Credentials, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAgent) GetBalance(ctx context.Context, externalUsername string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("not implemented")
}
func (s *stubAgent) GetAgentBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("not implemented")
}
func (s *stubAgent) LaunchGame(ctx context.Context, externalUsername, providerCode, gameCode, lang string) (string, error) {
	return "", errors.New("not implemented")
}
func (s *stubAgent) ListProviders(ctx context.Context) ([]agents.GameProvider, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAgent) ListGames(ctx context.Context, providerCode string) ([]agents.Game, error) {
	return nil, errors.New("not implemented")
}
func (s *stubAgent) CheckStatus(ctx context.Context) error { return errors.New("not implemented") }

func syncAgentConfig() *models.AgentConfig {
	return &models.AgentConfig{Model: gorm.Model{ID: 1}, Code: "BETFLIX", IsActive: true}
}

func linkExternal(t *testing.T, db *gorm.DB, userID, agentID uint, username string) {
	t.Helper()
	require.NoError(t, db.Create(&models.ExternalAccount{
		UserID:           userID,
		AgentID:          agentID,
		ExternalUsername: username,
	}).Error)
}

func fastSyncService() *SyncService {
	svc := NewSyncService()
	svc.Backoff = time.Millisecond
	return svc
}

func record(id int64, username, bet, win string) agents.BetRecord {
	return agents.BetRecord{
		ID:        id,
		Username:  username,
		GameCode:  "slot-777",
		BetAmount: decimal.RequireFromString(bet),
		WinAmount: decimal.RequireFromString(win),
	}
}

func TestRunPassImportsBetAndWin(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()
	user := seedUser(t, db, "somchai", "100.00")
	linkExternal(t, db, user.ID, cfg.ID, "bfx123456")

	stub := &stubAgent{records: []agents.BetRecord{record(1, "bfx123456", "10.00", "25.00")}}
	result, err := fastSyncService().RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, int64(1), result.Cursor)
	assert.False(t, result.HaltedEarly)

	var bet models.Transaction
	require.NoError(t, db.Where("type = ?", models.TrxBet).First(&bet).Error)
	assert.True(t, bet.BalanceBefore.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, bet.BalanceAfter.Equal(decimal.RequireFromString("90.00")))
	assert.Equal(t, models.StatusCompleted, bet.Status)
	require.NotNil(t, bet.ExternalRef)
	assert.Equal(t, "betflix:1", *bet.ExternalRef)

	var win models.Transaction
	require.NoError(t, db.Where("type = ?", models.TrxWin).First(&win).Error)
	assert.True(t, win.BalanceBefore.Equal(decimal.RequireFromString("90.00")))
	assert.True(t, win.BalanceAfter.Equal(decimal.RequireFromString("115.00")))
	require.NotNil(t, win.ExternalRef)
	assert.Equal(t, "betflix:1:win", *win.ExternalRef)

	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("115.00")))

	var cursor models.Setting
	require.NoError(t, db.Where("key = ?", "agent:betflix:last_log_id").First(&cursor).Error)
	assert.Equal(t, "1", cursor.Value)
}

func TestRunPassLostBetHasNoWinRow(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()
	user := seedUser(t, db, "somchai", "100.00")
	linkExternal(t, db, user.ID, cfg.ID, "bfx123456")

	stub := &stubAgent{records: []agents.BetRecord{record(1, "bfx123456", "10.00", "0")}}
	result, err := fastSyncService().RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	assert.Equal(t, int64(1), countTransactions(t, db))
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("90.00")))
}

func TestRunPassReplayLeavesLedgerUntouched(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()
	user := seedUser(t, db, "somchai", "100.00")
	linkExternal(t, db, user.ID, cfg.ID, "bfx123456")

	stub := &stubAgent{records: []agents.BetRecord{
		record(1, "bfx123456", "10.00", "25.00"),
		record(2, "bfx123456", "5.00", "0"),
	}}
	svc := fastSyncService()
	_, err := svc.RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)

	rowsAfterFirst := countTransactions(t, db)
	balanceAfterFirst := userBalance(t, db, user.ID)

	// Losing the cursor re-fetches everything; the ledger must not change.
	require.NoError(t, db.Unscoped().Where("key = ?", "agent:betflix:last_log_id").Delete(&models.Setting{}).Error)
	_, err = svc.RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)

	assert.Equal(t, rowsAfterFirst, countTransactions(t, db))
	assert.True(t, userBalance(t, db, user.ID).Equal(balanceAfterFirst))
}

func TestRunPassOrphanRecordsAdvanceCursor(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()

	stub := &stubAgent{records: []agents.BetRecord{record(1, "nobody", "10.00", "0")}}
	result, err := fastSyncService().RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 1, result.Orphans)
	assert.Equal(t, int64(1), result.Cursor)
	assert.Zero(t, countTransactions(t, db))

	var cursor models.Setting
	require.NoError(t, db.Where("key = ?", "agent:betflix:last_log_id").First(&cursor).Error)
	assert.Equal(t, "1", cursor.Value)
}

func TestRunPassHaltsAtFailedRecordAndResumes(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()
	user := seedUser(t, db, "somchai", "100.00")
	linkExternal(t, db, user.ID, cfg.ID, "bfx123456")
	// A mapping whose user row does not exist yet breaks mid-pass.
	linkExternal(t, db, 999, cfg.ID, "ghost")

	stub := &stubAgent{records: []agents.BetRecord{
		record(1, "bfx123456", "10.00", "0"),
		record(2, "ghost", "5.00", "0"),
		record(3, "bfx123456", "2.00", "0"),
	}}
	svc := fastSyncService()

	result, err := svc.RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)
	assert.True(t, result.HaltedEarly)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, int64(1), result.Cursor)
	assert.Equal(t, int64(1), countTransactions(t, db))
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("90.00")))

	// Once the ghost user exists the next pass resumes after record 1.
	require.NoError(t, db.Create(&models.User{
		Model:    gorm.Model{ID: 999},
		Username: "ghost",
		Balance:  decimal.RequireFromString("50.00"),
		IsActive: true,
	}).Error)

	result, err = svc.RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)
	assert.False(t, result.HaltedEarly)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, int64(3), result.Cursor)

	assert.Equal(t, int64(3), countTransactions(t, db))
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("88.00")))
	assert.True(t, userBalance(t, db, 999).Equal(decimal.RequireFromString("45.00")))
}

func TestRunPassSingleFlight(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()

	stub := &stubAgent{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := fastSyncService()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.RunPass(context.Background(), db, "alpha", stub, cfg)
		assert.NoError(t, err)
	}()

	<-stub.entered

	result, err := svc.RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	close(stub.release)
	<-done
	assert.Equal(t, 1, stub.fetchCalls())
}

func TestRunPassRetriesAdapterFailures(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()
	user := seedUser(t, db, "somchai", "100.00")
	linkExternal(t, db, user.ID, cfg.ID, "bfx123456")

	stub := &stubAgent{
		records:  []agents.BetRecord{record(1, "bfx123456", "10.00", "0")},
		failures: 2,
		failWith: &agents.APIError{Brand: agents.BrandBetflix, Op: "get_bet_log", Detail: "http 502"},
	}

	result, err := fastSyncService().RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.GreaterOrEqual(t, stub.fetchCalls(), 3)
}

func TestRunPassGivesUpAfterMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()

	stub := &stubAgent{
		failures: 100,
		failWith: &agents.APIError{Brand: agents.BrandBetflix, Op: "get_bet_log", Detail: "http 502"},
	}
	result, err := fastSyncService().RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)
	assert.True(t, result.HaltedEarly)
	assert.Equal(t, 3, stub.fetchCalls())
	assert.Equal(t, int64(0), result.Cursor)
}

func TestRunPassDoesNotRetryOtherErrors(t *testing.T) {
	db := newTestDB(t)
	cfg := syncAgentConfig()

	stub := &stubAgent{
		failures: 100,
		failWith: errors.New("context deadline exceeded"),
	}
	result, err := fastSyncService().RunPass(context.Background(), db, "alpha", stub, cfg)
	require.NoError(t, err)
	assert.True(t, result.HaltedEarly)
	assert.Equal(t, 1, stub.fetchCalls())
}

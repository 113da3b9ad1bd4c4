package services

import (
	"testing"
	"time"

	"siamplay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setSigningSecret(t *testing.T, db *gorm.DB, value string) {
	t.Helper()
	require.NoError(t, db.Where("key = ?", SettingKeySigningSecret).
		Assign(models.Setting{Value: value}).
		FirstOrCreate(&models.Setting{Key: SettingKeySigningSecret, Value: value}).Error)
}

func TestSecretCacheReadThrough(t *testing.T) {
	db := newTestDB(t)
	setSigningSecret(t, db, "s3cret")

	cache := NewSecretCache(time.Minute)
	got, err := cache.Get(db)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	// Within the TTL a settings change is not visible.
	setSigningSecret(t, db, "rotated")
	got, err = cache.Get(db)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}

func TestSecretCacheInvalidate(t *testing.T) {
	db := newTestDB(t)
	setSigningSecret(t, db, "s3cret")

	cache := NewSecretCache(time.Minute)
	_, err := cache.Get(db)
	require.NoError(t, err)

	setSigningSecret(t, db, "rotated")
	cache.Invalidate()

	got, err := cache.Get(db)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got)
}

func TestSecretCacheExpiry(t *testing.T) {
	db := newTestDB(t)
	setSigningSecret(t, db, "s3cret")

	cache := NewSecretCache(time.Millisecond)
	_, err := cache.Get(db)
	require.NoError(t, err)

	setSigningSecret(t, db, "rotated")
	time.Sleep(5 * time.Millisecond)

	got, err := cache.Get(db)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got)
}

func TestSecretCacheCachesEmptyValue(t *testing.T) {
	db := newTestDB(t)
	setSigningSecret(t, db, "")

	cache := NewSecretCache(time.Minute)
	got, err := cache.Get(db)
	require.NoError(t, err)
	assert.Empty(t, got)

	// The empty read is cached like any other: within the TTL a new value
	// stays invisible.
	setSigningSecret(t, db, "rotated")
	got, err = cache.Get(db)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSecretCacheMissingSetting(t *testing.T) {
	db := newTestDB(t)

	cache := NewSecretCache(time.Minute)
	_, err := cache.Get(db)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

package services

import (
	"sync"
	"time"

	"siamplay/models"

	"gorm.io/gorm"
)

const SettingKeySigningSecret = "jwt_secret"

// SecretCache is a read-through cache over the persisted gateway signing
// secret. Reads within the TTL hit memory; Invalidate forces the next read
// through so a settings update takes effect without waiting for expiry.
//
// The same contract applies if AgentConfig ever grows a cache: short TTL,
// explicit bust on write.
type SecretCache struct {
	TTL time.Duration

	mu      sync.Mutex
	value   string
	expires time.Time
}

func NewSecretCache(ttl time.Duration) *SecretCache {
	return &SecretCache{TTL: ttl}
}

func (c *SecretCache) Get(db *gorm.DB) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// expires alone signals validity, so an empty stored secret caches too.
	if time.Now().Before(c.expires) {
		return c.value, nil
	}

	var setting models.Setting
	if err := db.Where("key = ?", SettingKeySigningSecret).First(&setting).Error; err != nil {
		return "", err
	}

	c.value = setting.Value
	c.expires = time.Now().Add(c.TTL)
	return c.value, nil
}

func (c *SecretCache) Invalidate() {
	c.mu.Lock()
	c.value = ""
	c.expires = time.Time{}
	c.mu.Unlock()
}

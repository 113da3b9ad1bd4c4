package middlewares

import (
	"crypto/subtle"
	"sync"
	"time"

	"siamplay/helpers"
	"siamplay/services"

	"github.com/gofiber/fiber/v2"
)

// Gateway authenticates calls from the SMS gateway and the admin panel with a
// per-tenant signing secret, read through a short-TTL cache.
type Gateway struct {
	ttl    time.Duration
	caches sync.Map // tenant code -> *services.SecretCache
}

func NewGateway(ttl time.Duration) *Gateway {
	return &Gateway{ttl: ttl}
}

func (g *Gateway) cacheFor(tenant string) *services.SecretCache {
	cached, _ := g.caches.LoadOrStore(tenant, services.NewSecretCache(g.ttl))
	return cached.(*services.SecretCache)
}

// Invalidate busts one tenant's cached secret after a settings update.
func (g *Gateway) Invalidate(tenant string) {
	if cached, ok := g.caches.Load(tenant); ok {
		cached.(*services.SecretCache).Invalidate()
	}
}

func (g *Gateway) Auth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := TenantDB(c)
		if db == nil {
			return helpers.JSONError(c, "UNKNOWN_TENANT")
		}

		secret, err := g.cacheFor(TenantCode(c)).Get(db)
		if err != nil {
			return helpers.JSONError(c, "GATEWAY_SECRET_NOT_CONFIGURED")
		}

		token := c.Get("X-Gateway-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "INVALID_GATEWAY_TOKEN",
				"data":    nil,
			})
		}
		return c.Next()
	}
}

package middlewares

import (
	"siamplay/database"
	"siamplay/helpers"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Tenant resolves the tenant database for a request, by explicit header or by
// request host, and stores the handle in locals. A tenant whose database
// cannot be opened fails only its own requests.
func Tenant(registry *database.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			db  *gorm.DB
			err error
		)
		code := c.Get("X-Tenant-Code")
		if code != "" {
			db, err = registry.Resolve(code)
		} else {
			db, code, err = registry.ResolveByDomain(c.Hostname())
		}
		if err != nil {
			return helpers.JSONError(c, "UNKNOWN_TENANT")
		}

		c.Locals("db", db)
		c.Locals("tenant", code)
		return c.Next()
	}
}

// TenantDB pulls the handle the Tenant middleware stored.
func TenantDB(c *fiber.Ctx) *gorm.DB {
	db, _ := c.Locals("db").(*gorm.DB)
	return db
}

// TenantCode pulls the tenant code the Tenant middleware stored.
func TenantCode(c *fiber.Ctx) string {
	code, _ := c.Locals("tenant").(string)
	return code
}

package middleware

import (
	"ghg-footprint-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the operator key for factor administration routes.
const AdminKeyHeader = "X-Admin-Key"

const adminLocal = "admin"

// RequireAdminKey compares the X-Admin-Key header against a bcrypt hash.
// An empty hash disables the routes entirely (403), so factor sync is never
// left open by omission.
func RequireAdminKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return response.Error(c, "Factor administration is disabled", fiber.StatusForbidden, nil)
		}
		key := c.Get(AdminKeyHeader)
		if key == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(adminLocal, true)
		return c.Next()
	}
}

// IsAdmin reports whether RequireAdminKey accepted the request.
func IsAdmin(c *fiber.Ctx) bool {
	ok, _ := c.Locals(adminLocal).(bool)
	return ok
}

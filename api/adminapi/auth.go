package adminapi

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/drophost/drop/storage/model"
)

const localsAdminKey = "admin-user"

// adminUser returns the authenticated admin set by authMiddleware.
func adminUser(c *fiber.Ctx) *model.User {
	u, _ := c.Locals(localsAdminKey).(*model.User)
	return u
}

// authMiddleware enforces authentication for admin API routes. It requires
// HTTP Basic credentials, validates them against the UsersStore, and rejects
// non-admin users.
func authMiddleware(users model.UsersStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, password, ok := parseBasicAuth(c)
		if !ok {
			c.Set("WWW-Authenticate", "Basic realm=admin")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "error_description": "missing credentials"})
		}
		u, err := users.Authenticate(username, password)
		if err != nil {
			if errors.Is(err, model.ErrInvalidCredentials) {
				c.Set("WWW-Authenticate", "Basic realm=admin")
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "error_description": "invalid credentials"})
			}
			// Storage failures surface through the app error handler.
			return err
		}
		if !u.Admin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "error_description": "admin access required"})
		}
		c.Locals(localsAdminKey, u)
		return c.Next()
	}
}

// parseBasicAuth extracts Basic auth credentials from request headers
func parseBasicAuth(c *fiber.Ctx) (username, password string, ok bool) {
	auth := string(c.Request().Header.Peek("Authorization"))
	if auth == "" {
		return "", "", false
	}
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	b, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}
	creds := string(b)
	i := strings.IndexByte(creds, ':')
	if i < 0 {
		return "", "", false
	}
	return creds[:i], creds[i+1:], true
}

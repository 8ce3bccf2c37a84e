package drop

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/drophost/drop/storage/model"
)

const localsUserKey = "drop-user"

const basicRealm = `Basic realm="drop"`

// requireAuth enforces HTTP Basic authentication and stores the
// authenticated *model.User in the request locals for downstream ownership
// checks.
//
// A syntactically broken header (bad base64, no colon, non-UTF-8 username)
// is a client error and gets 400. Unknown usernames and wrong passwords are
// deliberately indistinguishable: both get a bare 401 with a challenge.
func (d *Drop) requireAuth(c *fiber.Ctx) error {
	header := string(c.Request().Header.Peek(fiber.HeaderAuthorization))
	if header == "" {
		c.Set(fiber.HeaderWWWAuthenticate, basicRealm)
		return c.Status(fiber.StatusUnauthorized).JSON(
			fiber.Map{"error": "unauthorized", "error_description": "missing credentials"},
		)
	}
	username, password, err := parseBasicAuth(header)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			fiber.Map{"error": "invalid_request", "error_description": err.Error()},
		)
	}
	u, err := d.storage.Users.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			c.Set(fiber.HeaderWWWAuthenticate, basicRealm)
			return c.Status(fiber.StatusUnauthorized).JSON(
				fiber.Map{"error": "unauthorized", "error_description": "invalid credentials"},
			)
		}
		return err
	}
	c.Locals(localsUserKey, u)
	return c.Next()
}

// parseBasicAuth decodes a Basic Authorization header value into a
// username/password pair. The password may contain colons; only the first
// one separates the fields.
func parseBasicAuth(header string) (username, password string, err error) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", errors.New("authorization scheme is not Basic")
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", errors.New("credentials are not valid base64")
	}
	creds := string(raw)
	i := strings.IndexByte(creds, ':')
	if i < 0 {
		return "", "", errors.New("credentials are missing a ':' separator")
	}
	username = creds[:i]
	if !utf8.ValidString(username) {
		return "", "", errors.New("username is not valid UTF-8")
	}
	return username, creds[i+1:], nil
}

// requestUser returns the authenticated user set by requireAuth, or nil on
// routes that did not pass through it.
func requestUser(c *fiber.Ctx) *model.User {
	u, _ := c.Locals(localsUserKey).(*model.User)
	return u
}

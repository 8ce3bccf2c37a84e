package drop

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drophost/drop/storage/model"
)

// handleError is the central fiber error handler. It maps the storage error
// types onto http statuses and hides the detail of everything unexpected.
func handleError(c *fiber.Ctx, err error) error {
	var (
		notFound model.NotFoundError
		exists   model.AlreadyExistsError
		fiberErr *fiber.Error
	)
	switch {
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(
			fiber.Map{"error": "not_found", "error_description": notFound.Error()},
		)
	case errors.As(err, &exists):
		return c.Status(fiber.StatusConflict).JSON(
			fiber.Map{"error": "conflict", "error_description": exists.Error()},
		)
	case errors.Is(err, model.ErrInvalidCredentials):
		c.Set(fiber.HeaderWWWAuthenticate, basicRealm)
		return c.Status(fiber.StatusUnauthorized).JSON(
			fiber.Map{"error": "unauthorized", "error_description": "invalid credentials"},
		)
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(
			fiber.Map{"error": "request_failed", "error_description": fiberErr.Message},
		)
	default:
		log.WithError(err).WithField("path", c.Path()).Error("internal error")
		return c.Status(fiber.StatusInternalServerError).JSON(
			fiber.Map{"error": "server_error", "error_description": "internal server error"},
		)
	}
}

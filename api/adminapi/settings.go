package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drophost/drop/storage"
	"github.com/drophost/drop/storage/model"
)

// maxIDLength bounds the runtime-tunable identifier length. Longer ids are
// pointless and would only bloat urls.
const maxIDLength = 32

// registerSettings wires the runtime settings handlers. Settings are stored
// through the key-value scope of the backend so they survive restarts and
// take effect without one.
func registerSettings(r fiber.Router, kv model.KeyValueStore) {
	g := r.Group("/settings")

	type settings struct {
		IDLength int `json:"id_length"`
	}

	g.Get("/", func(c *fiber.Ctx) error {
		length, err := storage.GetIDLength(kv, 0)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		return c.JSON(settings{IDLength: length})
	})

	g.Put("/", func(c *fiber.Ctx) error {
		var req settings
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "error_description": "invalid body"})
		}
		if req.IDLength < 1 || req.IDLength > maxIDLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "error_description": "id_length must be between 1 and 32"})
		}
		if err := storage.SetIDLength(kv, req.IDLength); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		return c.JSON(req)
	})
}

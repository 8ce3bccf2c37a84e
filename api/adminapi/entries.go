package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drophost/drop/storage/model"
)

// registerEntries wires the entry moderation handlers. Deletes here are
// unconditional: the admin middleware already established the caller, so no
// ownership check applies.
func registerEntries(r fiber.Router, entries model.EntryStore) {
	g := r.Group("/entries")

	g.Get("/", func(c *fiber.Ctx) error {
		list, err := entries.List()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		if list == nil {
			list = []model.Entry{}
		}
		return c.JSON(list)
	})

	g.Get("/:id", func(c *fiber.Ctx) error {
		e, err := entries.Get(c.Params("id"), false)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		if e == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "error_description": "entry not found"})
		}
		return c.JSON(e)
	})

	g.Delete("/:id", func(c *fiber.Ctx) error {
		removed, err := entries.Delete(c.Params("id"), adminUser(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		if removed == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "error_description": "entry not found"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

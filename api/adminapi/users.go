package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drophost/drop/storage/model"
)

// registerUsers wires the user provisioning handlers.
func registerUsers(r fiber.Router, users model.UsersStore) {
	g := r.Group("/users")

	g.Get("/", func(c *fiber.Ctx) error {
		list, err := users.List()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		if list == nil {
			list = []model.User{}
		}
		return c.JSON(list)
	})

	g.Get("/:username", func(c *fiber.Ctx) error {
		u, err := users.Lookup(c.Params("username"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		if u == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "error_description": "user not found"})
		}
		return c.JSON(u)
	})

	type createReq struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Admin    bool   `json:"admin"`
	}
	g.Post("/", func(c *fiber.Ctx) error {
		var req createReq
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "error_description": "invalid body"})
		}
		if req.Username == "" || req.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "error_description": "username and password are required"})
		}
		created, err := users.Create(req.Username, req.Password, req.Admin)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		if !created {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "error_description": "user already exists"})
		}
		u, err := users.Lookup(req.Username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	})

	g.Delete("/:username", func(c *fiber.Ctx) error {
		removed, err := users.Delete(c.Params("username"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server_error", "error_description": err.Error()})
		}
		if removed == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "error_description": "user not found"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

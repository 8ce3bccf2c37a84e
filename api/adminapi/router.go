// Package adminapi mounts the operator-facing management routes: user
// provisioning, entry moderation, and runtime settings. All routes require
// HTTP Basic credentials of an admin user.
package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drophost/drop/storage/model"
)

// Register mounts all admin API routes under the provided group.
func Register(r fiber.Router, storages model.Backends) error {
	r.Use(authMiddleware(storages.Users))

	registerUsers(r, storages.Users)
	registerEntries(r, storages.Entries)
	registerSettings(r, storages.KV)
	return nil
}

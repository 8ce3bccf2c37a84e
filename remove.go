package drop

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drophost/drop/internal/ident"
	"github.com/drophost/drop/storage/model"
)

// remove handles DELETE /:id. Entries that do not exist and entries the
// caller may not delete look identical from outside: both answer 404.
func (d *Drop) remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if !ident.Valid(id) {
		return model.NotFoundErrorFmt("no entry with id '%s'", id)
	}
	removed, err := d.storage.Entries.Delete(id, requestUser(c))
	if err != nil {
		return err
	}
	if removed == nil {
		return model.NotFoundErrorFmt("no entry with id '%s'", id)
	}
	d.invalidate(c, id)
	return c.SendStatus(fiber.StatusNoContent)
}

package drop

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/drophost/drop/internal/ident"
	"github.com/drophost/drop/storage/model"
)

// retrieve handles GET /:id. Files come back as their stored bytes with the
// stored MIME type, links as a 307 redirect, texts as plain UTF-8. Every
// successful retrieval counts one view unless counting is disabled.
func (d *Drop) retrieve(c *fiber.Ctx) error {
	id := c.Params("id")
	if !ident.Valid(id) {
		return model.NotFoundErrorFmt("no entry with id '%s'", id)
	}
	e, err := d.lookup(c, id)
	if err != nil {
		return err
	}
	if e == nil {
		return model.NotFoundErrorFmt("no entry with id '%s'", id)
	}
	c.Set(fiber.HeaderLastModified, e.Created.UTC().Format(http.TimeFormat))
	switch e.Kind {
	case model.KindFile:
		mime := e.File.Mime
		if mime == "" {
			mime = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, mime)
		return c.Send(e.File.Data)
	case model.KindLink:
		return c.Redirect(e.Link.URL, fiber.StatusTemporaryRedirect)
	case model.KindText:
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(e.Text.Contents)
	default:
		return errors.Errorf("stored entry '%s' has unknown kind %d", id, e.Kind)
	}
}

// lookup reads the entry for id. The cache is only consulted when view
// counting is off, since serving a cached copy would skip the counter.
func (d *Drop) lookup(c *fiber.Ctx, id string) (*model.Entry, error) {
	if !d.countViews && d.cache != nil {
		if raw, err := d.cache.Get(c.UserContext(), cacheKey(id)); err == nil && raw != nil {
			var cached model.Entry
			if err = msgpack.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
			log.WithError(err).WithField("id", id).Debug("discarding undecodable cache entry")
		}
	}
	e, err := d.storage.Entries.Get(id, d.countViews)
	if err != nil || e == nil {
		return nil, err
	}
	if !d.countViews && d.cache != nil {
		if raw, err := msgpack.Marshal(e); err == nil {
			_ = d.cache.Set(c.UserContext(), cacheKey(id), raw, d.cacheTTL)
		}
	}
	return e, nil
}

// invalidate drops id from the cache after a write. Failures only degrade
// freshness when counting is off, so they are not surfaced.
func (d *Drop) invalidate(c *fiber.Ctx, id string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Delete(c.UserContext(), cacheKey(id)); err != nil {
		log.WithError(err).WithField("id", id).Debug("cache invalidation failed")
	}
}

func cacheKey(id string) string {
	return "entry:" + id
}

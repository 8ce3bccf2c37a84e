package drop

import (
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/drophost/drop/internal/ident"
	"github.com/drophost/drop/storage"
	"github.com/drophost/drop/storage/model"
)

// uploadFile handles POST /f: store the uploaded bytes under a fresh
// identifier and answer 201 with the identifier as plain text.
func (d *Drop) uploadFile(c *fiber.Ctx) error {
	data, mime, err := fileBody(c)
	if err != nil {
		return err
	}
	owner := requestUser(c).ID
	return d.insertFresh(
		c, func(id string) (bool, error) {
			return storage.InsertFile(d.storage.Entries, id, owner, data, mime)
		},
	)
}

// uploadLink handles POST /l. The body is the redirect target and must be an
// absolute http(s) url.
func (d *Drop) uploadLink(c *fiber.Ctx) error {
	target, err := linkBody(c)
	if err != nil {
		return err
	}
	owner := requestUser(c).ID
	return d.insertFresh(
		c, func(id string) (bool, error) {
			return storage.InsertLink(d.storage.Entries, id, owner, target)
		},
	)
}

// uploadText handles POST /t. The body is stored verbatim.
func (d *Drop) uploadText(c *fiber.Ctx) error {
	contents, err := textBody(c)
	if err != nil {
		return err
	}
	owner := requestUser(c).ID
	return d.insertFresh(
		c, func(id string) (bool, error) {
			return storage.InsertText(d.storage.Entries, id, owner, contents)
		},
	)
}

// replaceFile handles PUT /f/:id with a caller-chosen identifier.
func (d *Drop) replaceFile(c *fiber.Ctx) error {
	data, mime, err := fileBody(c)
	if err != nil {
		return err
	}
	return d.insertAt(
		c, func(id, owner string) (bool, error) {
			return storage.InsertFile(d.storage.Entries, id, owner, data, mime)
		},
	)
}

// replaceLink handles PUT /l/:id.
func (d *Drop) replaceLink(c *fiber.Ctx) error {
	target, err := linkBody(c)
	if err != nil {
		return err
	}
	return d.insertAt(
		c, func(id, owner string) (bool, error) {
			return storage.InsertLink(d.storage.Entries, id, owner, target)
		},
	)
}

// replaceText handles PUT /t/:id.
func (d *Drop) replaceText(c *fiber.Ctx) error {
	contents, err := textBody(c)
	if err != nil {
		return err
	}
	return d.insertAt(
		c, func(id, owner string) (bool, error) {
			return storage.InsertText(d.storage.Entries, id, owner, contents)
		},
	)
}

// insertFresh allocates identifiers until insert succeeds. The allocator
// probes for free ids, but the insert itself is the uniqueness guarantee, so
// a lost race simply allocates again.
func (d *Drop) insertFresh(c *fiber.Ctx, insert func(id string) (bool, error)) error {
	length := d.length()
	for {
		id, err := ident.Allocate(c.UserContext(), d.storage.Entries, length)
		if err != nil {
			return err
		}
		inserted, err := insert(id)
		if err != nil {
			return err
		}
		if inserted {
			return c.Status(fiber.StatusCreated).SendString(id)
		}
	}
}

// insertAt stores content under the identifier from the route. An occupied
// identifier is replaced when the caller owns it (or is an admin) and
// answered with 409 otherwise.
func (d *Drop) insertAt(c *fiber.Ctx, insert func(id, owner string) (bool, error)) error {
	id := c.Params("id")
	if !ident.Valid(id) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid identifier")
	}
	u := requestUser(c)
	for {
		existing, err := d.storage.Entries.Get(id, false)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.CanDelete(u) {
				return model.AlreadyExistsErrorFmt("'%s' is already taken", id)
			}
			if _, err = d.storage.Entries.Delete(id, u); err != nil {
				return err
			}
		}
		inserted, err := insert(id, u.ID)
		if err != nil {
			return err
		}
		if inserted {
			d.invalidate(c, id)
			return c.Status(fiber.StatusCreated).SendString(id)
		}
		// Lost an insert race, re-check who owns the id now.
	}
}

func fileBody(c *fiber.Ctx) (data []byte, mime string, err error) {
	contentType := string(c.Request().Header.ContentType())
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, "", fiber.NewError(fiber.StatusBadRequest, "malformed multipart body")
		}
		var header *multipart.FileHeader
		for _, headers := range form.File {
			if len(headers) > 0 {
				header = headers[0]
				break
			}
		}
		if header == nil {
			return nil, "", fiber.NewError(fiber.StatusBadRequest, "multipart body contains no file")
		}
		f, err := header.Open()
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to open uploaded file")
		}
		defer f.Close()
		data, err = io.ReadAll(f)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to read uploaded file")
		}
		mime = header.Header.Get(fiber.HeaderContentType)
		if mime == "" {
			mime = fiber.MIMEOctetStream
		}
		return data, mime, nil
	}
	data = c.BodyRaw()
	if len(data) == 0 {
		return nil, "", fiber.NewError(fiber.StatusBadRequest, "empty body")
	}
	// BodyRaw aliases fasthttp's buffer which is recycled after the handler
	buf := make([]byte, len(data))
	copy(buf, data)
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	return buf, contentType, nil
}

func linkBody(c *fiber.Ctx) (string, error) {
	target := strings.TrimSpace(string(c.BodyRaw()))
	if target == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "empty body")
	}
	parsed, err := url.ParseRequestURI(target)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fiber.NewError(fiber.StatusBadRequest, "body is not an absolute http(s) url")
	}
	return target, nil
}

func textBody(c *fiber.Ctx) (string, error) {
	body := c.BodyRaw()
	if len(body) == 0 {
		return "", fiber.NewError(fiber.StatusBadRequest, "empty body")
	}
	return string(body), nil
}

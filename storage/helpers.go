package storage

import (
	"strings"

	"github.com/drophost/drop/internal/ident"
	"github.com/drophost/drop/storage/model"
)

// InsertFile builds a file entry and inserts it; the absence check is the
// store's. Returns false when the id is occupied.
func InsertFile(store model.EntryStore, id, owner string, data []byte, mime string) (bool, error) {
	return store.Insert(id, model.NewFileEntry(id, owner, data, mime))
}

// InsertLink builds a link entry and inserts it.
func InsertLink(store model.EntryStore, id, owner, url string) (bool, error) {
	return store.Insert(id, model.NewLinkEntry(id, owner, url))
}

// InsertText builds a text entry and inserts it.
func InsertText(store model.EntryStore, id, owner, contents string) (bool, error) {
	return store.Insert(id, model.NewTextEntry(id, owner, contents))
}

// GetIDLength returns the configured length for newly allocated entry ids,
// falling back to def (or the package default) when unset.
func GetIDLength(kv model.KeyValueStore, def int) (int, error) {
	if def <= 0 {
		def = ident.DefaultLength
	}
	if kv == nil {
		return def, nil
	}
	var length int
	found, err := kv.GetAs(model.KeyValueScopeSettings, model.KeyValueKeyIDLength, &length)
	if err != nil {
		return def, err
	}
	if !found || length <= 0 {
		return def, nil
	}
	return length, nil
}

// SetIDLength stores the length for newly allocated entry ids.
func SetIDLength(kv model.KeyValueStore, length int) error {
	return kv.SetAny(model.KeyValueScopeSettings, model.KeyValueKeyIDLength, length)
}

// isUniqueConstraintError reports whether err is a duplicate-key error from
// one of the supported relational drivers.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	// sqlite | mysql | postgres common markers
	if
	// SQLite
	(containsAny(msg, "UNIQUE constraint failed", "constraint failed")) ||
		// MySQL
		(containsAny(msg, "Duplicate entry", "Error 1062")) ||
		// Postgres
		(containsAny(msg, "duplicate key value", "violates unique constraint")) {
		return true
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/drophost/drop/internal/passwd"
)

// BadgerStorage is the embedded key-value storage backend. Entries, users
// and settings live in named sub-namespaces of one Badger database.
type BadgerStorage struct {
	*badger.DB
	Path string
}

// NewBadgerStorage opens (or creates) a Badger database at the passed
// storage location and starts its value log GC loop.
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open badger database")
	}
	store := &BadgerStorage{DB: db, Path: path}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
		again:
			err := db.RunValueLogGC(0.7)
			if err == nil {
				goto again
			}
		}
	}()

	return store, nil
}

// EntryStorage gives a BadgerEntryStorage
func (store *BadgerStorage) EntryStorage() *BadgerEntryStorage {
	return &BadgerEntryStorage{
		store: &badgerSubStorage{db: store, subKey: "entries"},
	}
}

// UsersStorage gives a BadgerUsersStorage
func (store *BadgerStorage) UsersStorage(hasher *passwd.Hasher) *BadgerUsersStorage {
	return &BadgerUsersStorage{
		store:  &badgerSubStorage{db: store, subKey: "users"},
		hasher: hasher,
	}
}

// KeyValue gives a BadgerKeyValueStorage
func (store *BadgerStorage) KeyValue() *BadgerKeyValueStorage {
	return &BadgerKeyValueStorage{
		store: &badgerSubStorage{db: store, subKey: "kv"},
	}
}

// update runs fn in a managed read-write transaction and retries it when the
// commit hits a conflict with a concurrently committed transaction. This is
// what turns a read-modify-write closure into a single indivisible operation:
// of two racing transactions touching the same key, exactly one commits and
// the other re-runs against the new state.
func (store *BadgerStorage) update(fn func(txn *badger.Txn) error) error {
	for {
		err := store.DB.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		log.Debug("badger: transaction conflict, retrying")
	}
}

// badgerSubStorage is a named sub-namespace of a BadgerStorage
type badgerSubStorage struct {
	db     *BadgerStorage
	subKey string
}

func (store *badgerSubStorage) key(key string) []byte {
	return []byte(store.subKey + ":" + key)
}

// get reads the raw value for key within a transaction; (nil, nil) if absent
func (store *badgerSubStorage) get(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get(store.key(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read '%s'", key)
	}
	return item.ValueCopy(nil)
}

// exists reports whether key is present in this sub-namespace
func (store *badgerSubStorage) exists(key string) (found bool, err error) {
	err = store.db.View(
		func(txn *badger.Txn) error {
			_, e := txn.Get(store.key(key))
			if errors.Is(e, badger.ErrKeyNotFound) {
				return nil
			}
			if e != nil {
				return e
			}
			found = true
			return nil
		},
	)
	return
}

// readIterator uses the passed iterator function to iterate over all the
// key-value-pairs in this sub storage
func (store *badgerSubStorage) readIterator(do func(k, v []byte) error) error {
	return store.db.View(
		func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			scanPrefix := []byte(store.subKey + ":")
			for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
				item := it.Item()
				k := item.Key()
				err := item.Value(
					func(v []byte) error {
						return do(k, v)
					},
				)
				if err != nil {
					return err
				}
			}
			return nil
		},
	)
}

// BadgerKeyValueStorage implements model.KeyValueStore on a Badger
// sub-namespace; values are stored as raw JSON like in the relational
// backend, keyed by "<scope>|<key>".
type BadgerKeyValueStorage struct {
	store *badgerSubStorage
}

func (s *BadgerKeyValueStorage) key(scope, key string) string {
	return scope + "|" + key
}

// Get returns the JSON value for a (scope, key). If not found, returns nil, nil.
func (s *BadgerKeyValueStorage) Get(scope, key string) (datatypes.JSON, error) {
	var raw []byte
	err := s.store.db.View(
		func(txn *badger.Txn) error {
			v, err := s.store.get(txn, s.key(scope, key))
			raw = v
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw, nil
}

// Set stores/replaces the JSON value for a (scope, key).
func (s *BadgerKeyValueStorage) Set(scope, key string, value datatypes.JSON) error {
	return s.store.db.update(
		func(txn *badger.Txn) error {
			return txn.Set(s.store.key(s.key(scope, key)), value)
		},
	)
}

// Delete removes a (scope, key) pair. No error if it's missing.
func (s *BadgerKeyValueStorage) Delete(scope, key string) error {
	return s.store.db.update(
		func(txn *badger.Txn) error {
			return txn.Delete(s.store.key(s.key(scope, key)))
		},
	)
}

// GetAs retrieves and unmarshals the value for (scope, key) into out.
// Returns (false, nil) if not found.
func (s *BadgerKeyValueStorage) GetAs(scope, key string, out any) (bool, error) {
	raw, err := s.Get(scope, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// SetAny marshals v to JSON and stores it at (scope, key).
func (s *BadgerKeyValueStorage) SetAny(scope, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(scope, key, datatypes.JSON(b))
}

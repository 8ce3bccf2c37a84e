package storage

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/drophost/drop/storage/model"
)

// BadgerEntryStorage implements model.EntryStore on the `entries`
// sub-namespace. Records are msgpack-encoded.
type BadgerEntryStorage struct {
	store *badgerSubStorage
}

// Get returns the entry for id, or nil if absent. With incrementViews the
// read, the counter bump and the write-back happen in one transaction;
// Badger's conflict detection replays the transaction when a concurrent
// commit touched the key, so no increment is ever lost.
func (s *BadgerEntryStorage) Get(id string, incrementViews bool) (*model.Entry, error) {
	var e *model.Entry

	if !incrementViews {
		err := s.store.db.View(
			func(txn *badger.Txn) error {
				var err error
				e, err = s.read(txn, id)
				return err
			},
		)
		if err != nil {
			return nil, err
		}
		return e, nil
	}

	err := s.store.db.update(
		func(txn *badger.Txn) error {
			var err error
			e, err = s.read(txn, id)
			if err != nil || e == nil {
				return err
			}
			e.Views++
			return s.write(txn, id, e)
		},
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Insert stores e under id only if the id is unused. The existence check and
// the write share one transaction, so two racing inserts on the same fresh
// id commit exactly once.
func (s *BadgerEntryStorage) Insert(id string, e *model.Entry) (bool, error) {
	var inserted bool
	err := s.store.db.update(
		func(txn *badger.Txn) error {
			inserted = false
			existing, err := s.store.get(txn, id)
			if err != nil {
				return err
			}
			if existing != nil {
				return nil
			}
			if err := s.write(txn, id, e); err != nil {
				return err
			}
			inserted = true
			return nil
		},
	)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Delete removes the entry for id when requester is authorized and returns
// the removed entry. Absent and not-authorized both yield nil.
func (s *BadgerEntryStorage) Delete(id string, requester *model.User) (*model.Entry, error) {
	var removed *model.Entry
	err := s.store.db.update(
		func(txn *badger.Txn) error {
			removed = nil
			e, err := s.read(txn, id)
			if err != nil || e == nil {
				return err
			}
			if !e.CanDelete(requester) {
				return nil
			}
			if err := txn.Delete(s.store.key(id)); err != nil {
				return err
			}
			removed = e
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Exists reports whether id is currently occupied
func (s *BadgerEntryStorage) Exists(id string) (bool, error) {
	return s.store.exists(id)
}

// List returns all entries without their file payloads
func (s *BadgerEntryStorage) List() (entries []model.Entry, err error) {
	err = s.store.readIterator(
		func(k, v []byte) error {
			var e model.Entry
			if err := msgpack.Unmarshal(v, &e); err != nil {
				return errors.Wrapf(err, "failed to decode entry '%s'", strings.TrimPrefix(string(k), "entries:"))
			}
			if e.File != nil {
				e.File.Data = nil
			}
			entries = append(entries, e)
			return nil
		},
	)
	return
}

func (s *BadgerEntryStorage) read(txn *badger.Txn, id string) (*model.Entry, error) {
	raw, err := s.store.get(txn, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var e model.Entry
	if err = msgpack.Unmarshal(raw, &e); err != nil {
		return nil, errors.Wrapf(err, "failed to decode entry '%s'", id)
	}
	return &e, nil
}

func (s *BadgerEntryStorage) write(txn *badger.Txn, id string, e *model.Entry) error {
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "failed to encode entry '%s'", id)
	}
	return txn.Set(s.store.key(id), raw)
}

package storage

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/drophost/drop/internal/passwd"
	"github.com/drophost/drop/storage/model"
)

// BadgerUsersStorage implements model.UsersStore on the `users`
// sub-namespace.
type BadgerUsersStorage struct {
	store  *badgerSubStorage
	hasher *passwd.Hasher
}

// Lookup returns a user by username, or nil if absent
func (s *BadgerUsersStorage) Lookup(id string) (*model.User, error) {
	var u *model.User
	err := s.store.db.View(
		func(txn *badger.Txn) error {
			var err error
			u, err = s.read(txn, id)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List returns all users (without password hashes)
func (s *BadgerUsersStorage) List() (users []model.User, err error) {
	err = s.store.readIterator(
		func(_, v []byte) error {
			var u model.User
			if err := msgpack.Unmarshal(v, &u); err != nil {
				return errors.Wrap(err, "failed to decode user")
			}
			u.PasswordHash = ""
			users = append(users, u)
			return nil
		},
	)
	return
}

// Create hashes the password and stores a new user only if the username is
// unused; the existence check and the write share one transaction.
func (s *BadgerUsersStorage) Create(id, password string, admin bool) (bool, error) {
	if len(id) == 0 || len(password) == 0 {
		return false, errors.Errorf("username and password are required")
	}
	hash, err := s.hasher.Hash(context.Background(), []byte(password))
	if err != nil {
		return false, err
	}
	u := &model.User{
		ID:           id,
		PasswordHash: hash,
		Admin:        admin,
		Created:      time.Now().UTC(),
	}
	var created bool
	err = s.store.db.update(
		func(txn *badger.Txn) error {
			created = false
			existing, err := s.store.get(txn, id)
			if err != nil {
				return err
			}
			if existing != nil {
				return nil
			}
			raw, err := msgpack.Marshal(u)
			if err != nil {
				return errors.Wrap(err, "failed to encode user")
			}
			if err = txn.Set(s.store.key(id), raw); err != nil {
				return err
			}
			created = true
			return nil
		},
	)
	if err != nil {
		return false, err
	}
	return created, nil
}

// Delete unconditionally removes a user by username and returns the removed
// record, or nil if absent
func (s *BadgerUsersStorage) Delete(id string) (*model.User, error) {
	var removed *model.User
	err := s.store.db.update(
		func(txn *badger.Txn) error {
			removed = nil
			u, err := s.read(txn, id)
			if err != nil || u == nil {
				return err
			}
			if err = txn.Delete(s.store.key(id)); err != nil {
				return err
			}
			removed = u
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Authenticate validates a username/password pair. An unknown username still
// pays for a full hash computation so the two failure modes are
// indistinguishable from outside.
func (s *BadgerUsersStorage) Authenticate(id, password string) (*model.User, error) {
	u, err := s.Lookup(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		_, _ = s.hasher.Hash(context.Background(), []byte(password))
		return nil, model.ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(context.Background(), u.PasswordHash, []byte(password))
	if err != nil {
		return nil, errors.Wrap(err, "users: password verification failed")
	}
	if !ok {
		return nil, model.ErrInvalidCredentials
	}
	return u, nil
}

func (s *BadgerUsersStorage) read(txn *badger.Txn, id string) (*model.User, error) {
	raw, err := s.store.get(txn, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var u model.User
	if err = msgpack.Unmarshal(raw, &u); err != nil {
		return nil, errors.Wrapf(err, "failed to decode user '%s'", id)
	}
	return &u, nil
}

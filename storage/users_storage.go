package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/drophost/drop/internal/passwd"
	"github.com/drophost/drop/storage/model"
)

// UsersStorage implements model.UsersStore using GORM
type UsersStorage struct {
	db     *gorm.DB
	hasher *passwd.Hasher
}

// Lookup returns a user by username, or nil if absent
func (s *UsersStorage) Lookup(id string) (*model.User, error) {
	var rec userRecord
	if err := s.db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "users: lookup failed")
	}
	return recordToUser(rec), nil
}

// List returns all users (without password hashes)
func (s *UsersStorage) List() ([]model.User, error) {
	var recs []userRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "users: list failed")
	}
	users := make([]model.User, 0, len(recs))
	for _, rec := range recs {
		u := recordToUser(rec)
		u.PasswordHash = ""
		users = append(users, *u)
	}
	return users, nil
}

// Create hashes the password and stores a new user; it returns false when
// the username is already taken. The uniqueness decision is made by the
// primary-key constraint.
func (s *UsersStorage) Create(id, password string, admin bool) (bool, error) {
	if len(id) == 0 || len(password) == 0 {
		return false, errors.Errorf("username and password are required")
	}
	hash, err := s.hasher.Hash(context.Background(), []byte(password))
	if err != nil {
		return false, err
	}
	rec := userRecord{
		ID:           id,
		PasswordHash: hash,
		Admin:        admin,
		Created:      time.Now().UTC(),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "users: create failed")
	}
	return true, nil
}

// Delete unconditionally removes a user by username and returns the removed
// record, or nil if absent
func (s *UsersStorage) Delete(id string) (*model.User, error) {
	var removed *model.User
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			var rec userRecord
			if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return errors.Wrap(err, "users: delete lookup failed")
			}
			if err := tx.Where("id = ?", id).Delete(&userRecord{}).Error; err != nil {
				return errors.Wrap(err, "users: delete failed")
			}
			removed = recordToUser(rec)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Authenticate validates a username/password pair. An unknown username still
// pays for a full hash verification so the two failure modes are
// indistinguishable from outside.
func (s *UsersStorage) Authenticate(id, password string) (*model.User, error) {
	u, err := s.Lookup(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		// Pay for a full hash anyway so an unknown username is not
		// observably cheaper than a wrong password.
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

func recordToUser(rec userRecord) *model.User {
	return &model.User{
		ID:           rec.ID,
		PasswordHash: rec.PasswordHash,
		Admin:        rec.Admin,
		Created:      rec.Created,
	}
}

package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/drophost/drop/internal/passwd"
	"github.com/drophost/drop/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db     *gorm.DB
	hasher *passwd.Hasher
}

var models = []any{
	&entryRecord{},
	&userRecord{},
	&model.KeyValue{},
}

// NewStorage creates a new GORM-based storage
func NewStorage(config Config, hasher *passwd.Hasher) (*Storage, error) {
	db, err := Connect(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate the schemas
	if err = db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{
		db:     db,
		hasher: hasher,
	}, nil
}

// EntryStorage returns an EntryStorage
func (s *Storage) EntryStorage() *EntryStorage {
	return &EntryStorage{db: s.db}
}

// UsersStorage returns a UsersStorage
func (s *Storage) UsersStorage() *UsersStorage {
	return &UsersStorage{db: s.db, hasher: s.hasher}
}

// KeyValue provides an accessor for scoped key-value storage.
func (s *Storage) KeyValue() *KeyValueStorage {
	return &KeyValueStorage{db: s.db}
}

// entryRecord is the relational row shape of a model.Entry. The three
// content variants share one table: Kind discriminates, file bytes live in
// Data, link targets and text snippets in Val.
type entryRecord struct {
	ID      string `gorm:"primaryKey;size:64"`
	Owner   string `gorm:"index;size:255"`
	Created time.Time
	Views   uint64
	Kind    int
	Mime    string
	Data    []byte
	Val     string
}

func (entryRecord) TableName() string { return "entries" }

// userRecord is the relational row shape of a model.User.
type userRecord struct {
	ID           string `gorm:"primaryKey;size:255"`
	PasswordHash string
	Admin        bool
	Created      time.Time
}

func (userRecord) TableName() string { return "users" }

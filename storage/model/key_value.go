package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// KeyValueScopeSettings groups runtime-tunable service settings.
	KeyValueScopeSettings = "settings"

	// KeyValueKeyIDLength is the length of newly allocated entry ids.
	KeyValueKeyIDLength = "id_length"
)

// KeyValue stores arbitrary key-value data in the relational backend.
//
// The `Scope` field enables namespacing to avoid key collisions across
// different features. The Badger backend stores the same (scope, key, JSON
// value) triples under its `kv` namespace instead.
type KeyValue struct {
	CreatedAt int            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Scope allows grouping keys by namespace; empty string is global scope.
	Scope string `gorm:"primaryKey" json:"scope"`

	// Key is the identifier within a scope.
	Key string `gorm:"primaryKey" json:"key"`

	// Value is stored as native JSON/JSONB (where supported) using datatypes.JSON.
	Value datatypes.JSON `json:"value"`
}

// KeyValueStore defines common operations for scoped key-value storage.
type KeyValueStore interface {
	// Get retrieves the value for a (scope, key). Returns (nil, nil) if not found.
	Get(scope, key string) (datatypes.JSON, error)

	// Set stores/replaces the value for a (scope, key).
	Set(scope, key string, value datatypes.JSON) error

	// Delete removes the entry for a (scope, key). No error if missing.
	Delete(scope, key string) error

	// GetAs retrieves and unmarshals the value for (scope, key) into out.
	// out must be a pointer to the target type. Returns (false, nil) if not found.
	GetAs(scope, key string, out any) (bool, error)

	// SetAny marshals v to JSON and stores it at (scope, key).
	SetAny(scope, key string, v any) error
}

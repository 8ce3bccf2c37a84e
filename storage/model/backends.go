package model

// Backends groups the storage backends used by the service. The whole group
// is produced by one storage driver; mixing drivers is not supported.
type Backends struct {
	Entries EntryStore
	Users   UsersStore
	KV      KeyValueStore
}

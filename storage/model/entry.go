package model

import (
	"time"
)

// EntryKind discriminates the three content variants an Entry can hold.
type EntryKind int

const (
	// KindFile is a stored file blob served back with its MIME type
	KindFile EntryKind = iota
	// KindLink is a stored redirect target
	KindLink
	// KindText is a stored UTF-8 text snippet
	KindText
)

// String returns the short route prefix used for the kind
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindLink:
		return "link"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// FileContent is the payload of a KindFile Entry.
type FileContent struct {
	Data []byte `json:"-" msgpack:"data"`
	Mime string `json:"mime" msgpack:"mime"`
}

// LinkContent is the payload of a KindLink Entry.
type LinkContent struct {
	URL string `json:"url" msgpack:"url"`
}

// TextContent is the payload of a KindText Entry.
type TextContent struct {
	Contents string `json:"contents" msgpack:"contents"`
}

// Entry is a stored content record addressed by a short identifier.
// Exactly one of File, Link, Text is non-nil, matching Kind; the
// discriminator is persisted alongside the payload.
type Entry struct {
	// ID is the externally visible key, unique within the entry namespace
	ID string `json:"id" msgpack:"id"`
	// Owner references the User that created the entry; immutable
	Owner string `json:"owner" msgpack:"owner"`
	// Created is set once at insertion
	Created time.Time `json:"created" msgpack:"created"`
	// Views only ever increases
	Views uint64 `json:"views" msgpack:"views"`

	Kind EntryKind    `json:"kind" msgpack:"kind"`
	File *FileContent `json:"file,omitempty" msgpack:"file,omitempty"`
	Link *LinkContent `json:"link,omitempty" msgpack:"link,omitempty"`
	Text *TextContent `json:"text,omitempty" msgpack:"text,omitempty"`
}

// NewFileEntry returns an unsaved file Entry with Created set to now and
// Views zeroed.
func NewFileEntry(id, owner string, data []byte, mime string) *Entry {
	return &Entry{
		ID:      id,
		Owner:   owner,
		Created: time.Now().UTC(),
		Kind:    KindFile,
		File:    &FileContent{Data: data, Mime: mime},
	}
}

// NewLinkEntry returns an unsaved link Entry.
func NewLinkEntry(id, owner, url string) *Entry {
	return &Entry{
		ID:      id,
		Owner:   owner,
		Created: time.Now().UTC(),
		Kind:    KindLink,
		Link:    &LinkContent{URL: url},
	}
}

// NewTextEntry returns an unsaved text Entry.
func NewTextEntry(id, owner, contents string) *Entry {
	return &Entry{
		ID:      id,
		Owner:   owner,
		Created: time.Now().UTC(),
		Kind:    KindText,
		Text:    &TextContent{Contents: contents},
	}
}

// CanDelete reports whether u may delete e. Admins may delete any entry,
// everybody else only their own.
func (e *Entry) CanDelete(u *User) bool {
	if u == nil {
		return false
	}
	return u.Admin || u.ID == e.Owner
}

// EntryStore abstracts the entry namespace of a storage backend.
//
// Insert and the incrementing Get are required to be atomic at the store
// level: two concurrent Inserts on the same fresh id must yield exactly one
// true, and n concurrent incrementing Gets must raise Views by exactly n.
type EntryStore interface {
	// Get returns the entry for id, or nil if absent. When incrementViews
	// is set the read and the counter increment happen as one indivisible
	// store operation and the returned entry reflects the new count.
	Get(id string, incrementViews bool) (*Entry, error)
	// Insert stores e under id only if id is currently unused. It returns
	// false, without touching the stored entry, when id is occupied.
	Insert(id string, e *Entry) (bool, error)
	// Delete removes the entry for id if requester is its owner or an
	// admin and returns the removed entry. Absent ids and failed
	// authorization both yield nil; an unauthorized delete never removes.
	Delete(id string, requester *User) (*Entry, error)
	// Exists reports whether id is currently occupied.
	Exists(id string) (bool, error)
	// List returns all stored entries without counting views.
	List() ([]Entry, error)
}

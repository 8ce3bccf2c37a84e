package storage

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/drophost/drop/storage/model"
)

// EntryStorage implements model.EntryStore using GORM
type EntryStorage struct {
	db *gorm.DB
}

// Get returns the entry for id, or nil if absent. With incrementViews the
// counter is raised by a single relational UPDATE expression, so concurrent
// readers never lose an increment.
func (s *EntryStorage) Get(id string, incrementViews bool) (*model.Entry, error) {
	if !incrementViews {
		var rec entryRecord
		if err := s.db.Where("id = ?", id).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, errors.Wrap(err, "entries: get failed")
		}
		return recordToEntry(rec)
	}

	var rec entryRecord
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			res := tx.Model(&entryRecord{}).
				Where("id = ?", id).
				UpdateColumn("views", gorm.Expr("views + ?", 1))
			if res.Error != nil {
				return errors.Wrap(res.Error, "entries: view increment failed")
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return tx.Where("id = ?", id).First(&rec).Error
		},
	)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return recordToEntry(rec)
}

// Insert stores e under id only if the id is unused. Concurrent inserts on
// the same id are decided by the primary-key constraint, not by a separate
// existence check.
func (s *EntryStorage) Insert(id string, e *model.Entry) (bool, error) {
	rec, err := entryToRecord(id, e)
	if err != nil {
		return false, err
	}
	if err := s.db.Create(&rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "entries: insert failed")
	}
	return true, nil
}

// Delete removes the entry for id when requester is authorized and returns
// the removed entry. Absent and not-authorized both yield nil.
func (s *EntryStorage) Delete(id string, requester *model.User) (*model.Entry, error) {
	var removed *model.Entry
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			var rec entryRecord
			if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return errors.Wrap(err, "entries: delete lookup failed")
			}
			e, err := recordToEntry(rec)
			if err != nil {
				return err
			}
			if !e.CanDelete(requester) {
				return nil
			}
			if err := tx.Where("id = ?", id).Delete(&entryRecord{}).Error; err != nil {
				return errors.Wrap(err, "entries: delete failed")
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
func (s *EntryStorage) Exists(id string) (bool, error) {
	var count int64
	if err := s.db.Model(&entryRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "entries: exists check failed")
	}
	return count > 0, nil
}

// List returns all entries without their file payloads
func (s *EntryStorage) List() ([]model.Entry, error) {
	var recs []entryRecord
	if err := s.db.Omit("data").Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "entries: list failed")
	}
	out := make([]model.Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := recordToEntry(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// entryToRecord flattens a model.Entry into its row shape. The switch is
// exhaustive over the content variants; a kind/payload mismatch is an
// internal error, never stored.
func entryToRecord(id string, e *model.Entry) (entryRecord, error) {
	rec := entryRecord{
		ID:      id,
		Owner:   e.Owner,
		Created: e.Created,
		Views:   e.Views,
		Kind:    int(e.Kind),
	}
	switch e.Kind {
	case model.KindFile:
		if e.File == nil {
			return rec, errors.New("entries: file entry without file content")
		}
		rec.Data = e.File.Data
		rec.Mime = e.File.Mime
	case model.KindLink:
		if e.Link == nil {
			return rec, errors.New("entries: link entry without link content")
		}
		rec.Val = e.Link.URL
	case model.KindText:
		if e.Text == nil {
			return rec, errors.New("entries: text entry without text content")
		}
		rec.Val = e.Text.Contents
	default:
		return rec, fmt.Errorf("entries: unknown entry kind %d", e.Kind)
	}
	return rec, nil
}

func recordToEntry(rec entryRecord) (*model.Entry, error) {
	e := &model.Entry{
		ID:      rec.ID,
		Owner:   rec.Owner,
		Created: rec.Created,
		Views:   rec.Views,
		Kind:    model.EntryKind(rec.Kind),
	}
	switch e.Kind {
	case model.KindFile:
		e.File = &model.FileContent{Data: rec.Data, Mime: rec.Mime}
	case model.KindLink:
		e.Link = &model.LinkContent{URL: rec.Val}
	case model.KindText:
		e.Text = &model.TextContent{Contents: rec.Val}
	default:
		return nil, fmt.Errorf("entries: unknown entry kind %d for id %s", rec.Kind, rec.ID)
	}
	return e, nil
}

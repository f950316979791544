// Package layout persists named area layouts and the settings document.
package layout

import (
	"encoding/json"
	"errors"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/errdefs"
	"github.com/screenvoice/platform/internal/settings"
)

const (
	layoutPrefix  = "layout/"
	lastLayoutKey = "meta/last_layout"
	settingsKey   = "meta/settings"
)

// Store is the durable home for layouts and settings.
type Store struct {
	db *badger.DB
}

// NewStore wraps an open database.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// SaveLayout validates and writes the layout, and marks it as the last
// active one.
func (s *Store) SaveLayout(l area.Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(l)
	if err != nil {
		return errdefs.Wrap(err, errdefs.CodeCorruptLayout, "encode layout "+l.Name)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(layoutPrefix+l.Name), data); err != nil {
			return err
		}
		return txn.Set([]byte(lastLayoutKey), []byte(l.Name))
	})
}

// LoadLayout reads and validates a named layout. A stored document that
// no longer parses or validates is reported as corrupt, never partially
// applied.
func (s *Store) LoadLayout(name string) (area.Layout, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(layoutPrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return area.Layout{}, errdefs.Newf(errdefs.CodeNotFound, "layout %q", name)
	}
	if err != nil {
		return area.Layout{}, errdefs.Wrap(err, errdefs.CodeCorruptLayout, "read layout "+name)
	}

	var l area.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return area.Layout{}, errdefs.Wrap(err, errdefs.CodeCorruptLayout, "decode layout "+name)
	}
	if err := l.Validate(); err != nil {
		return area.Layout{}, err
	}
	return l, nil
}

// DeleteLayout removes a stored layout.
func (s *Store) DeleteLayout(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(layoutPrefix + name))
	})
}

// ListLayouts returns the stored layout names.
func (s *Store) ListLayouts() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(layoutPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			names = append(names, strings.TrimPrefix(key, layoutPrefix))
		}
		return nil
	})
	return names, err
}

// LastLayout returns the most recently saved or loaded layout name.
func (s *Store) LastLayout() (string, bool, error) {
	var name string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastLayoutKey))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		name = string(data)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	return name, err == nil, err
}

// SetLastLayout records which layout should be restored on startup.
func (s *Store) SetLastLayout(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lastLayoutKey), []byte(name))
	})
}

// SaveSettings persists the settings document.
func (s *Store) SaveSettings(v settings.Settings) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), data)
	})
}

// LoadSettings reads the persisted settings document, if any.
func (s *Store) LoadSettings() (settings.Settings, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return settings.Settings{}, false, nil
	}
	if err != nil {
		return settings.Settings{}, false, err
	}
	var v settings.Settings
	if err := json.Unmarshal(data, &v); err != nil {
		return settings.Settings{}, false, err
	}
	return v, true, nil
}

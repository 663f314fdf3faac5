// Package store defines the persistent key-value slot the todo list is
// mirrored into, and the list's serialized form.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
	"github.com/idilsaglam/tada/internal/store/memstore"
	"github.com/idilsaglam/tada/internal/store/sqlitestore"
)

// ErrUnknownBackend is returned by Open for a backend name it doesn't know.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Slot is a key-value durability mechanism. Set replaces the whole value;
// Get reports ok=false for an absent key.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open builds the slot described by cfg.
func Open(cfg config.StorageConfig) (Slot, error) {
	switch cfg.Backend {
	case config.BackendFile:
		s, err := jsonstore.New(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// Describe names where a slot built from cfg keeps its data.
func Describe(cfg config.StorageConfig) string {
	switch cfg.Backend {
	case config.BackendFile:
		return filepath.Join(cfg.Dir, cfg.Key+jsonstore.Ext)
	case config.BackendSQLite:
		return cfg.Path + "#" + cfg.Key
	}
	return cfg.Backend
}

// Encode serializes a list as a JSON array of {id, text, completed}.
// A nil list encodes as [] rather than null.
func Encode(items []model.Item) ([]byte, error) {
	if items == nil {
		items = []model.Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return b, nil
}

// Decode parses a serialized list. null and empty input give an empty list.
func Decode(b []byte) ([]model.Item, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return []model.Item{}, nil
	}
	var items []model.Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// JSON-backed storage. One file per key, human-readable, portable.
// Writes go to a temp file renamed over the old one, so readers never see
// half a list.

// Ext is appended to a key to get its file name.
const Ext = ".json"

// ErrInvalidKey is returned for keys that can't be used as file names.
var ErrInvalidKey = errors.New("invalid key")

type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		dir = wd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key+Ext), nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	// Indent valid JSON so the file stays diff-friendly; store anything else verbatim.
	var buf bytes.Buffer
	if json.Valid(value) {
		if err := json.Indent(&buf, value, "", "  "); err != nil {
			return fmt.Errorf("json indent: %w", err)
		}
		buf.WriteByte('\n')
	} else {
		buf.Write(value)
	}
	if err := atomic.WriteFile(p, &buf); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Dir reports the directory holding the files.
func (s *Store) Dir() string { return s.dir }

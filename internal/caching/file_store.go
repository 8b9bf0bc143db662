package caching

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
)

type fileSlotStore struct {
	dir      string
	maxBytes int64
	mu       sync.Mutex
}

// NewFileSlotStore stores each key as a file under dir, creating dir if
// needed. maxBytes bounds a single value; 0 disables the quota.
func NewFileSlotStore(dir string, maxBytes int64) (SlotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", dir)
	}
	return &fileSlotStore{dir: dir, maxBytes: maxBytes}, nil
}

func (f *fileSlotStore) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key)+".json")
}

func (f *fileSlotStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set writes to a temp file in the same directory and renames it over
// the target so a reader sees either the old or the new value.
func (f *fileSlotStore) Set(_ context.Context, key string, value []byte) error {
	if f.maxBytes > 0 && int64(len(value)) > f.maxBytes {
		return ErrQuotaExceeded
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, filepath.Base(key)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, f.path(key))
}

func (f *fileSlotStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *fileSlotStore) Ping(_ context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

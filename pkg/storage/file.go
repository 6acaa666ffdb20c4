package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/levenlabs/go-lflag"
)

// FileStore keeps preferences in a YAML file. Every Set rewrites the whole
// file through a temporary file and a rename.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

func configuredFile() *FileStore {
	path := lflag.String("prefs-file", "elektrodash-prefs.yaml", "Path of the YAML preference file")

	f := &FileStore{}
	lflag.Do(func() {
		f.path = *path
	})
	return f
}

// NewFileStore returns a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Validate checks if the store is properly configured.
func (f *FileStore) Validate() error {
	if f.path == "" {
		return errors.New("prefs-file cannot be empty")
	}
	return nil
}

func (f *FileStore) loadLocked() error {
	if f.loaded {
		return nil
	}
	f.values = map[string]string{}
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read preferences file: %w", err)
	}
	if err := yaml.Unmarshal(b, &f.values); err != nil {
		return fmt.Errorf("failed to parse preferences file %s: %w", f.path, err)
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.loaded = true
	return nil
}

func (f *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadLocked(); err != nil {
		return "", false, err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FileStore) All(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadLocked(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadLocked(); err != nil {
		return err
	}
	if cur, ok := f.values[key]; ok && cur == value {
		return nil
	}
	next := make(map[string]string, len(f.values)+1)
	for k, v := range f.values {
		next[k] = v
	}
	next[key] = value

	b, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp preferences file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close preferences file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	f.values = next
	return nil
}

// Close is a no-op, every Set is already on disk.
func (f *FileStore) Close() error {
	return nil
}

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/spf13/afero"
)

// Store is a simple persisted key-value store.  Values are JSON serialised and the last write wins.
type Store interface {
	// Get decodes the value stored at key into v.  The bool is false if nothing is stored at key.
	Get(key string, v any) (bool, error)
	// Set stores v at key and persists the store before returning
	Set(key string, v any) error
	// Remove deletes key and persists the store before returning
	Remove(key string) error
}

// FileStore keeps every key in a single file on an afero filesystem
type FileStore struct {
	fs    afero.Fs
	path  string
	codec Codec

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// Open loads the store at path.  A missing file is an empty store.  A file that cannot be decoded is discarded and
// the store starts empty, the same way a corrupt obfuscated value is reset.
func Open(fs afero.Fs, path string, codec Codec) (*FileStore, error) {
	s := &FileStore{
		fs:    fs,
		path:  path,
		codec: codec,
		data:  map[string]json.RawMessage{},
	}

	raw, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug("No store file found, starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}

	plain, err := codec.Decode(raw)
	if err == nil {
		err = json.Unmarshal(plain, &s.data)
	}
	if err != nil {
		log.Warn("Store file could not be decoded, resetting it", "path", path, "error", err)
		s.data = map[string]json.RawMessage{}
	}

	return s, nil
}

func (s *FileStore) Get(key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding store key %s: %w", key, err)
	}
	return true, nil
}

func (s *FileStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding store key %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = raw
	return s.persist()
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.persist()
}

// persist writes the whole store to a temp file and renames it over the old one.  Must hold mu.
func (s *FileStore) persist() error {
	plain, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	encoded, err := s.codec.Encode(plain)
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, encoded, 0600); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}

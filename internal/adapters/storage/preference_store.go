package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// FilePreferenceStore persists the storage preference as a small JSON file
type FilePreferenceStore struct {
	mu       sync.Mutex
	path     string
	fallback ports.BackendName
}

// NewFilePreferenceStore creates a store that reports fallback until a
// preference has been saved
func NewFilePreferenceStore(path string, fallback ports.BackendName) *FilePreferenceStore {
	if !fallback.IsValid() {
		fallback = ports.BackendLocal
	}
	return &FilePreferenceStore{path: path, fallback: fallback}
}

func (s *FilePreferenceStore) Load(ctx context.Context) (ports.StoragePreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return ports.StoragePreference{Backend: s.fallback}, nil
	}
	if err != nil {
		return ports.StoragePreference{}, errors.NewStorageError("failed to read storage preference", err)
	}

	var pref ports.StoragePreference
	if err := json.Unmarshal(data, &pref); err != nil || !pref.Backend.IsValid() {
		return ports.StoragePreference{Backend: s.fallback}, nil
	}
	return pref, nil
}

func (s *FilePreferenceStore) Save(ctx context.Context, pref ports.StoragePreference) error {
	if !pref.Backend.IsValid() {
		return errors.NewValidationError("storage preference must be local or remote")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(pref)
	if err != nil {
		return errors.NewStorageError("failed to encode storage preference", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.NewStorageError("failed to create preference directory", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewStorageError("failed to write storage preference", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.NewStorageError("failed to replace storage preference", err)
	}
	return nil
}

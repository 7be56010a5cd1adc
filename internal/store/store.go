// Package store persists calibration in a small slot-addressed byte store
// that survives power loss.
package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned by Get for a slot that was never written.
	ErrNotFound = errors.New("store: slot not found")
	// ErrCorrupt is returned when stored bytes cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt data")
)

// Store is a byte store addressed by slot name.
type Store interface {
	Get(slot string) ([]byte, error)
	Put(slot string, data []byte) error
}

// FileStore keeps all slots in one YAML file, one hex string per slot.
// Writes go to a temporary file
// that is renamed over the original, so a power cut leaves either the old or
// the new contents.
type FileStore struct {
	path string

	mu    sync.Mutex
	slots map[string][]byte
}

// NewFile returns an empty store at path without reading it. The first Put
// replaces whatever the file held.
func NewFile(path string) *FileStore {
	return &FileStore{path: path, slots: map[string][]byte{}}
}

// OpenFile loads the store at path. A missing file is an empty store; an
// unparseable one returns ErrCorrupt.
func OpenFile(path string) (*FileStore, error) {
	s := NewFile(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	var file map[string]string
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for slot, v := range file {
		b, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %s: %v", ErrCorrupt, slot, err)
		}
		s.slots[slot] = b
	}
	return s, nil
}

// Get returns a copy of the slot contents.
func (s *FileStore) Get(slot string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.slots[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Put writes the slot and flushes the whole file.
func (s *FileStore) Put(slot string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.slots[slot]
	s.slots[slot] = append([]byte(nil), data...)
	if err := s.flush(); err != nil {
		if had {
			s.slots[slot] = prev
		} else {
			delete(s.slots, slot)
		}
		return err
	}
	return nil
}

func (s *FileStore) flush() error {
	file := make(map[string]string, len(s.slots))
	for slot, b := range s.slots {
		file[slot] = hex.EncodeToString(b)
	}
	out, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".calibration-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and for running without a
// writable filesystem.
type MemStore struct {
	mu    sync.Mutex
	Slots map[string][]byte
	// PutErr, if set, is returned by Put.
	PutErr error
	// GetErr, if set, is returned by Get.
	GetErr error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{Slots: map[string][]byte{}}
}

// Get returns a copy of the slot contents.
func (m *MemStore) Get(slot string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	b, ok := m.Slots[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Put stores a copy of data.
func (m *MemStore) Put(slot string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Slots[slot] = append([]byte(nil), data...)
	return nil
}

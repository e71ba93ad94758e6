// Package store persists normalized post records as a single JSON array on
// disk, keyed by post id.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the append/update collection of PostRecords. Every
// load-modify-write cycle runs under one mutex so a manual single-shot
// analysis cannot race a batch run and lose its update.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by the JSON document at path. The file is
// created lazily on first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing document's location.
func (s *Store) Path() string {
	return s.path
}

// Load returns all records. A missing or corrupt document yields an empty
// slice, never an error: the store recovers by starting fresh.
func (s *Store) Load() ([]PostRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(), nil
}

// Get returns the record for id, if present.
func (s *Store) Get(id string) (PostRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.loadLocked() {
		if rec.ID == id {
			return rec, true
		}
	}
	return PostRecord{}, false
}

// Upsert replaces any record with the same id and appends the new one.
func (s *Store) Upsert(rec PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked()
	kept := records[:0]
	for _, r := range records {
		if r.ID != rec.ID {
			kept = append(kept, r)
		}
	}
	kept = append(kept, rec)

	return s.saveLocked(kept)
}

// Reset truncates the store to an empty document.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked([]PostRecord{})
}

func (s *Store) loadLocked() []PostRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var records []PostRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// saveLocked serializes the whole array and replaces the document atomically
// via a temp file rename, so readers never observe a half-written store.
func (s *Store) saveLocked(records []PostRecord) error {
	if records == nil {
		records = []PostRecord{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

// Package memory is an in-process store, optionally seeded from a YAML
// snapshot. It backs local runs, the CLI and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

// Seed is the YAML layout of a snapshot file.
type Seed struct {
	Records []core.Record `yaml:"records"`
}

type Store struct {
	mu        sync.RWMutex
	records   map[string]core.Record
	processed core.Date
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(records ...core.Record) *Store {
	s := &Store{records: make(map[string]core.Record), now: time.Now}
	for _, r := range records {
		s.put(r)
	}
	return s
}

// NewFromFile loads a YAML seed. A blank path gives an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	records, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(records...), nil
}

// ParseSeed decodes a YAML snapshot. Records are loaded as written; the
// engine tolerates malformed ones.
func ParseSeed(data []byte) ([]core.Record, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, err
	}
	return seed.Records, nil
}

// MarshalSeed encodes records in the seed layout.
func MarshalSeed(records []core.Record) ([]byte, error) {
	return yaml.Marshal(Seed{Records: records})
}

func (s *Store) put(r core.Record) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.records[r.ID] = r.Clone()
}

func (s *Store) ListRecords(_ context.Context, kind core.RecordKind) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r core.Record) bool { return !r.Archived && r.Kind == kind }), nil
}

func (s *Store) ListArchived(_ context.Context) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r core.Record) bool { return r.Archived }), nil
}

// collect returns matching records oldest first. Caller holds the lock.
func (s *Store) collect(keep func(core.Record) bool) []core.Record {
	out := make([]core.Record, 0, len(s.records))
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) GetRecord(_ context.Context, id string) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return core.Record{}, fmt.Errorf("get %s: %w", id, store.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) SaveRecord(_ context.Context, r core.Record) error {
	if r.ID == "" {
		return fmt.Errorf("save record: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(r)
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

func (s *Store) ArchiveRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return fmt.Errorf("archive %s: %w", id, store.ErrNotFound)
	}
	r.Archived = true
	s.records[id] = r
	return nil
}

func (s *Store) LastProcessed(_ context.Context) (core.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processed, nil
}

// MarkProcessed only moves forward; marking an older day is a no-op.
func (s *Store) MarkProcessed(_ context.Context, day core.Date, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if day.DayKey() > s.processed.DayKey() || s.processed.IsZero() {
		s.processed = day
	}
	return nil
}

func (s *Store) Close() error { return nil }

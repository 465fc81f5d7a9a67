package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/breeding-sim/breeding-sim/sim"
)

// state is the full content of a store, the unit the SQL backends snapshot.
type state struct {
	Populations map[string]PopulationRecord `json:"populations"`
	Mice        map[int64]MouseRecord       `json:"mice"`
	Breeding    []BreedingRecord            `json:"breeding"`
	Validation  []ValidationRecord          `json:"validation"`
}

func newState() state {
	return state{
		Populations: make(map[string]PopulationRecord),
		Mice:        make(map[int64]MouseRecord),
	}
}

// MemoryStore keeps records in process. Safe for concurrent use.
type MemoryStore struct {
	mu  sync.RWMutex
	st  state
	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newState(), now: time.Now}
}

// SavePopulation implements Store.
func (s *MemoryStore) SavePopulation(_ context.Context, rec PopulationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if prev, ok := s.st.Populations[rec.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.st.Populations[rec.ID] = rec
	return nil
}

// GetPopulation implements Store.
func (s *MemoryStore) GetPopulation(_ context.Context, id string) (PopulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.st.Populations[id]
	if !ok {
		return PopulationRecord{}, sim.NotFoundError("population", id)
	}
	return rec, nil
}

// ListPopulations returns every population ordered by creation time, then id.
func (s *MemoryStore) ListPopulations(_ context.Context) ([]PopulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PopulationRecord, 0, len(s.st.Populations))
	for _, rec := range s.st.Populations {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveMice implements Store.
func (s *MemoryStore) SaveMice(_ context.Context, recs ...MouseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, rec := range recs {
		if prev, ok := s.st.Mice[rec.ID]; ok {
			rec.CreatedAt = prev.CreatedAt
		} else if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		s.st.Mice[rec.ID] = rec
	}
	return nil
}

// GetMouse implements Store.
func (s *MemoryStore) GetMouse(_ context.Context, id int64) (MouseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.st.Mice[id]
	if !ok {
		return MouseRecord{}, sim.NotFoundError("mouse", id)
	}
	return rec, nil
}

// ListMice returns the mice of one population ordered by id. An empty
// populationID lists every mouse.
func (s *MemoryStore) ListMice(_ context.Context, populationID string) ([]MouseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []MouseRecord
	for _, rec := range s.st.Mice {
		if populationID == "" || rec.PopulationID == populationID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddBreedingRecord implements Store.
func (s *MemoryStore) AddBreedingRecord(_ context.Context, rec BreedingRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = int64(len(s.st.Breeding)) + 1
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	s.st.Breeding = append(s.st.Breeding, rec)
	return rec.ID, nil
}

// ListBreedingRecords implements Store.
func (s *MemoryStore) ListBreedingRecords(_ context.Context) ([]BreedingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]BreedingRecord(nil), s.st.Breeding...), nil
}

// AddValidationResult implements Store.
func (s *MemoryStore) AddValidationResult(_ context.Context, rec ValidationRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = int64(len(s.st.Validation)) + 1
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	s.st.Validation = append(s.st.Validation, rec)
	return rec.ID, nil
}

// ListValidationResults implements Store.
func (s *MemoryStore) ListValidationResults(_ context.Context) ([]ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ValidationRecord(nil), s.st.Validation...), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// buckets returns the JSON encoding of the named parts of the state, or of
// every part when none are named.
func (s *MemoryStore) buckets(names ...string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parts := map[string]any{
		bucketPopulations: s.st.Populations,
		bucketMice:        s.st.Mice,
		bucketBreeding:    s.st.Breeding,
		bucketValidation:  s.st.Validation,
	}
	if len(names) > 0 {
		selected := make(map[string]any, len(names))
		for _, name := range names {
			selected[name] = parts[name]
		}
		parts = selected
	}
	out := make(map[string][]byte, len(parts))
	for name, v := range parts {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

// restore replaces the state with decoded buckets. Unknown buckets are ignored.
func (s *MemoryStore) restore(payloads map[string][]byte) error {
	st := newState()
	targets := map[string]any{
		bucketPopulations: &st.Populations,
		bucketMice:        &st.Mice,
		bucketBreeding:    &st.Breeding,
		bucketValidation:  &st.Validation,
	}
	for name, data := range payloads {
		target, ok := targets[name]
		if !ok || len(data) == 0 {
			continue
		}
		if err := json.Unmarshal(data, target); err != nil {
			return err
		}
	}
	if st.Populations == nil {
		st.Populations = make(map[string]PopulationRecord)
	}
	if st.Mice == nil {
		st.Mice = make(map[int64]MouseRecord)
	}
	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
	return nil
}

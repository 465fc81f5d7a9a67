// Package store persists session state: population summaries, mice, breeding
// records and validation results. The memory backend holds everything in
// process; the SQL backends snapshot the same state into SQLite or Postgres.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/breeding-sim/breeding-sim/sim"
)

// PopulationRecord summarizes one population.
type PopulationRecord struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Size       int           `json:"size"`
	GoalPreset string        `json:"goal_preset"`
	Generation int           `json:"generation"`
	Latest     *sim.Snapshot `json:"latest,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// MouseRecord is the persisted view of a mouse.
type MouseRecord struct {
	ID           int64             `json:"id"`
	PopulationID string            `json:"population_id,omitempty"`
	Generation   int               `json:"generation"`
	Parents      []int64           `json:"parents,omitempty"`
	Phenotype    map[string]string `json:"phenotype"`
	TraitValue   *float64          `json:"trait_value,omitempty"`
	Genotype     string            `json:"genotype"`
	Strain       string            `json:"strain,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// BreedingRecord logs one mating.
type BreedingRecord struct {
	ID        int64     `json:"id"`
	Parent1   int64     `json:"parent1_id"`
	Parent2   int64     `json:"parent2_id"`
	Offspring []int64   `json:"offspring_ids"`
	CrossType string    `json:"cross_type"` // "simulation" or "real_data"
	Gene      string    `json:"gene,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidationRecord logs one validation method outcome.
type ValidationRecord struct {
	ID        int64              `json:"id"`
	Method    string             `json:"method_name"`
	Passed    bool               `json:"passed"`
	Metrics   map[string]float64 `json:"metrics"`
	Notes     []string           `json:"notes,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewMouseRecord converts a mouse for persistence.
func NewMouseRecord(m *sim.Mouse, populationID string) MouseRecord {
	rec := MouseRecord{
		ID:           m.ID,
		PopulationID: populationID,
		Generation:   m.Generation,
		Phenotype:    m.Phenotype.Clone(),
		Genotype:     m.Genome.GenotypeString(),
		Strain:       m.Strain,
	}
	if m.Parents != nil {
		rec.Parents = []int64{m.Parents.First, m.Parents.Second}
	}
	if v, ok := m.Trait(); ok {
		rec.TraitValue = &v
	}
	return rec
}

// Store is the persistence contract of a session. Save operations upsert by
// identity; Add operations assign the record ID. Lookups of unknown
// identities return an error wrapping sim.ErrNotFound.
type Store interface {
	SavePopulation(ctx context.Context, rec PopulationRecord) error
	GetPopulation(ctx context.Context, id string) (PopulationRecord, error)
	ListPopulations(ctx context.Context) ([]PopulationRecord, error)

	SaveMice(ctx context.Context, recs ...MouseRecord) error
	GetMouse(ctx context.Context, id int64) (MouseRecord, error)
	ListMice(ctx context.Context, populationID string) ([]MouseRecord, error)

	AddBreedingRecord(ctx context.Context, rec BreedingRecord) (int64, error)
	ListBreedingRecords(ctx context.Context) ([]BreedingRecord, error)

	AddValidationResult(ctx context.Context, rec ValidationRecord) (int64, error)
	ListValidationResults(ctx context.Context) ([]ValidationRecord, error)

	Close() error
}

// Backend names accepted by NewStore.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// validBackends lists the accepted store backends. The empty string selects memory.
var validBackends = map[string]bool{
	"":              true,
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendPostgres: true,
}

// IsValidBackend returns true if name is a recognized store backend.
func IsValidBackend(name string) bool {
	return validBackends[name]
}

// ValidBackendNames returns the recognized backend names, sorted.
func ValidBackendNames() []string {
	names := make([]string, 0, len(validBackends))
	for n := range validBackends {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// NewStore opens the named backend. dsn is the SQLite file path or the
// Postgres connection string; empty selects the backend default.
func NewStore(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLite(ctx, dsn)
	case BackendPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store backend %q; valid: %s", backend, strings.Join(ValidBackendNames(), ", "))
	}
}

// Package session is the service surface of the simulator: registries of
// populations and mice keyed by identity and the breed, GRM, inbreeding,
// selection, advancement and validation operations over them. A Session
// serializes every operation behind one mutex, so a whole breed or advance is
// atomic with respect to other callers.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/store"
	"github.com/breeding-sim/breeding-sim/sim/strain"
	"github.com/breeding-sim/breeding-sim/sim/validation"
)

// Options configures a Session.
type Options struct {
	Seed       int64
	Bundle     *sim.Bundle        // nil uses sim.DefaultBundle
	Store      store.Store        // nil disables persistence
	Validation *validation.Config // nil uses validation.DefaultConfig with Seed
}

// RealRequest founds a population from two inbred strains. Empty Loci
// detects the loci where the strains differ.
type RealRequest struct {
	Dataset *strain.Dataset
	StrainA string
	StrainB string
	Models  *strain.GeneModels
	Loci    []strain.Locus
}

// PopulationRequest describes a population to create.
type PopulationRequest struct {
	Size       int
	GoalPreset string // custom goal or preset name; empty selects the default preset
	Name       string
	Real       *RealRequest // nil for simulated founders
}

type entry struct {
	id   string
	name string
	goal string
	pop  *sim.Population
}

// Session owns the identity allocator, the lineage registry of every mouse
// it has seen and the partitioned RNG shared by its populations.
type Session struct {
	mu sync.Mutex

	bundle     sim.Bundle
	validation validation.Config
	store      store.Store

	rng     *sim.PartitionedRNG
	ids     *sim.IDAllocator
	lineage *sim.Pedigree
	breeder *sim.Breeder

	populations map[string]*entry
	order       []string
	owner       map[int64]string // mouse id → population id
}

// New returns an empty session.
func New(opts Options) *Session {
	bundle := sim.DefaultBundle()
	if opts.Bundle != nil {
		bundle = *opts.Bundle
	}
	vcfg := validation.DefaultConfig()
	vcfg.Seed = opts.Seed
	if opts.Validation != nil {
		vcfg = *opts.Validation
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(opts.Seed))
	ids := sim.NewIDAllocator(1)
	return &Session{
		bundle:      bundle,
		validation:  vcfg,
		store:       opts.Store,
		rng:         rng,
		ids:         ids,
		lineage:     sim.NewPedigree(),
		breeder:     sim.NewBreeder(bundle.Genome, bundle.Breeding, ids, rng.ForSubsystem(sim.SubsystemBreeding)),
		populations: make(map[string]*entry),
		owner:       make(map[int64]string),
	}
}

func newPopulationID() string {
	return "pop_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// CreatePopulation founds a population and registers its founders.
func (s *Session) CreatePopulation(ctx context.Context, req PopulationRequest) (string, *sim.Population, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	goalName := req.GoalPreset
	if goalName == "" {
		goalName = sim.DefaultGoalPreset
	}
	goal, ok := s.bundle.Goal(goalName)
	if !ok {
		logrus.Warnf("session: unknown goal %q, using %s", goalName, sim.DefaultGoalPreset)
		goalName = sim.DefaultGoalPreset
		goal, _ = sim.GoalPreset(goalName)
	}

	cfg := s.bundle.PopulationConfig(req.Size, goal)
	if req.Real != nil {
		cfg.Founders = sim.RealStrainFounders{
			Dataset: req.Real.Dataset,
			StrainA: req.Real.StrainA,
			StrainB: req.Real.StrainB,
			Models:  req.Real.Models,
			Loci:    req.Real.Loci,
		}
	}
	pop, err := sim.NewPopulation(cfg, s.rng, s.ids)
	if err != nil {
		return "", nil, err
	}

	id := newPopulationID()
	for s.populations[id] != nil {
		id = newPopulationID()
	}
	e := &entry{id: id, name: req.Name, goal: strings.ToLower(goalName), pop: pop}
	s.populations[id] = e
	s.order = append(s.order, id)
	s.adopt(id, pop.Mice())
	logrus.Infof("session: created population %s (%d mice, goal %s)", id, pop.Size(), pop.Goal)

	if err := s.persistPopulation(ctx, e, pop.Mice()); err != nil {
		return id, pop, err
	}
	return id, pop, nil
}

// adopt registers mice in the lineage and records their owning population.
func (s *Session) adopt(popID string, mice []*sim.Mouse) {
	s.lineage.Register(mice...)
	for _, m := range mice {
		s.owner[m.ID] = popID
	}
}

// Population returns a population by id. The returned population must not be
// used concurrently with session operations.
func (s *Session) Population(id string) (*sim.Population, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.populations[id]
	if !ok {
		return nil, sim.NotFoundError("population", id)
	}
	return e.pop, nil
}

// PopulationIDs returns the population ids in creation order.
func (s *Session) PopulationIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Mouse returns any mouse the session has seen.
func (s *Session) Mouse(id int64) (*sim.Mouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mouse(id)
}

func (s *Session) mouse(id int64) (*sim.Mouse, error) {
	m, ok := s.lineage.Lookup(id)
	if !ok {
		return nil, sim.NotFoundError("mouse", id)
	}
	return m, nil
}

func (s *Session) mice(ids []int64) ([]*sim.Mouse, error) {
	out := make([]*sim.Mouse, len(ids))
	for i, id := range ids {
		m, err := s.mouse(id)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Breed mates two known mice. Parents of the same population breed with that
// population's breeder, so real strain genotypes are inherited; otherwise the
// session breeder is used. n ≤ 0 draws a litter size. Offspring join the
// lineage but no roster.
func (s *Session) Breed(ctx context.Context, p1, p2 int64, n int) ([]*sim.Mouse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	parents, err := s.mice([]int64{p1, p2})
	if err != nil {
		return nil, err
	}
	a, b := parents[0], parents[1]

	popID := ""
	var litter []*sim.Mouse
	if o := s.owner[a.ID]; o != "" && o == s.owner[b.ID] {
		popID = o
		litter, err = s.populations[o].pop.Breed(a, b, n)
	} else if n <= 0 {
		litter, err = s.breeder.Mate(a, b)
	} else {
		litter, err = s.breeder.MateN(a, b, n)
	}
	if err != nil {
		return nil, err
	}
	s.adopt(popID, litter)
	logrus.Debugf("session: bred %d×%d → %d offspring", a.ID, b.ID, len(litter))

	if s.store != nil {
		rec := store.BreedingRecord{Parent1: a.ID, Parent2: b.ID, CrossType: "simulation"}
		if a.RealGenotypes != nil || b.RealGenotypes != nil {
			rec.CrossType = "real_data"
			if e := s.populations[popID]; e != nil && e.pop.Real() != nil && len(e.pop.Real().Loci) > 0 {
				rec.Gene = strings.ToUpper(e.pop.Real().Loci[0].Model)
			}
		}
		recs := make([]store.MouseRecord, len(litter))
		for i, m := range litter {
			rec.Offspring = append(rec.Offspring, m.ID)
			recs[i] = store.NewMouseRecord(m, popID)
		}
		if _, err := s.store.AddBreedingRecord(ctx, rec); err != nil {
			return litter, fmt.Errorf("persisting breeding record: %w", err)
		}
		if err := s.store.SaveMice(ctx, recs...); err != nil {
			return litter, fmt.Errorf("persisting offspring: %w", err)
		}
	}
	return litter, nil
}

// ComputeGRM returns the genomic relationship matrix of the given mice, in
// the order given.
func (s *Session) ComputeGRM(ids []int64) (*sim.GRM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mice, err := s.mice(ids)
	if err != nil {
		return nil, err
	}
	return sim.ComputeGRM(sim.GenotypeMatrix(mice))
}

// InbreedingEntry is one mouse's pedigree and genomic inbreeding.
type InbreedingEntry struct {
	MouseID   int64   `json:"mouse_id"`
	FPedigree float64 `json:"f_pedigree"`
	FGenomic  float64 `json:"f_genomic"`
}

// InbreedingResult reports inbreeding for a set of mice.
type InbreedingResult struct {
	Results       []InbreedingEntry `json:"results"`
	MeanFPedigree float64           `json:"mean_f_pedigree"`
	MeanFGenomic  float64           `json:"mean_f_genomic"`
}

// Inbreeding returns F_ped from the session-wide lineage and F_gen = G_ii − 1
// from a GRM over the given mice.
func (s *Session) Inbreeding(ids []int64) (InbreedingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mice, err := s.mice(ids)
	if err != nil {
		return InbreedingResult{}, err
	}
	grm, err := sim.ComputeGRM(sim.GenotypeMatrix(mice))
	if err != nil {
		return InbreedingResult{}, err
	}
	fGen := grm.GenomicInbreeding()
	fPed := make([]float64, len(mice))
	res := InbreedingResult{Results: make([]InbreedingEntry, len(mice))}
	for i, m := range mice {
		fPed[i] = s.lineage.Inbreeding(m)
		res.Results[i] = InbreedingEntry{MouseID: m.ID, FPedigree: fPed[i], FGenomic: fGen[i]}
	}
	res.MeanFPedigree = stat.Mean(fPed, nil)
	res.MeanFGenomic = stat.Mean(fGen, nil)
	return res, nil
}

// DefaultPedigreeDepth is the number of ancestor generations shown when a
// pedigree depth is not positive.
const DefaultPedigreeDepth = 3

// PedigreeResult is a mouse's pedigree tree and every registered ancestor
// within the same depth.
type PedigreeResult struct {
	Tree      sim.PedigreeNode
	Ancestors []int64
}

// Pedigree returns the pedigree of a known mouse reaching depth generations
// back through the session-wide lineage.
func (s *Session) Pedigree(id int64, depth int) (PedigreeResult, error) {
	if depth <= 0 {
		depth = DefaultPedigreeDepth
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.mouse(id)
	if err != nil {
		return PedigreeResult{}, err
	}
	return PedigreeResult{
		Tree:      s.lineage.Tree(m, depth),
		Ancestors: s.lineage.Ancestors(m, depth),
	}, nil
}

// Select picks the top fraction (0, 1] of a population by trait value.
func (s *Session) Select(popID string, topPercent float64) (sim.SelectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.populations[popID]
	if !ok {
		return sim.SelectionResult{}, sim.NotFoundError("population", popID)
	}
	return e.pop.SelectTop(topPercent)
}

// Advance breeds a population's next generation. An empty strategy uses the
// configured one.
func (s *Session) Advance(ctx context.Context, popID, strategy string, cullRate float64) (sim.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return sim.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.populations[popID]
	if !ok {
		return sim.Snapshot{}, sim.NotFoundError("population", popID)
	}
	if strategy == "" {
		strategy = s.bundle.Selection.Strategy
	}
	snap, err := e.pop.NextGeneration(strategy, cullRate)
	if err != nil {
		return sim.Snapshot{}, err
	}
	roster := e.pop.Mice()
	s.adopt(popID, roster)
	logrus.Infof("session: %s advanced to generation %d (%d mice, avg fitness %.1f)", popID, snap.Generation, snap.PopulationSize, snap.AvgFitness)

	if err := s.persistPopulation(ctx, e, roster); err != nil {
		return snap, err
	}
	return snap, nil
}

// Validate runs the validation suite and records every result.
func (s *Session) Validate(ctx context.Context) (*validation.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, err := validation.RunAll(ctx, s.validation)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		for _, r := range rep.Results {
			rec := store.ValidationRecord{Method: r.Method, Passed: r.Passed, Metrics: r.Metrics, Notes: r.Notes}
			if _, err := s.store.AddValidationResult(ctx, rec); err != nil {
				return rep, fmt.Errorf("persisting validation result: %w", err)
			}
		}
	}
	return rep, nil
}

func (s *Session) persistPopulation(ctx context.Context, e *entry, mice []*sim.Mouse) error {
	if s.store == nil {
		return nil
	}
	latest := e.pop.History[len(e.pop.History)-1]
	rec := store.PopulationRecord{
		ID:         e.id,
		Name:       e.name,
		Size:       e.pop.Size(),
		GoalPreset: e.goal,
		Generation: e.pop.Generation,
		Latest:     &latest,
	}
	if err := s.store.SavePopulation(ctx, rec); err != nil {
		return fmt.Errorf("persisting population %s: %w", e.id, err)
	}
	recs := make([]store.MouseRecord, len(mice))
	for i, m := range mice {
		recs[i] = store.NewMouseRecord(m, e.id)
	}
	if err := s.store.SaveMice(ctx, recs...); err != nil {
		return fmt.Errorf("persisting mice of %s: %w", e.id, err)
	}
	return nil
}

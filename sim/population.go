package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/breeding-sim/breeding-sim/sim/strain"
	"github.com/breeding-sim/breeding-sim/sim/trace"
)

// FounderSource selects how a population's founders are created. It is
// either SimulatedFounders or RealStrainFounders.
type FounderSource interface {
	isFounderSource()
}

// SimulatedFounders draws founders in Hardy-Weinberg proportions.
type SimulatedFounders struct{}

func (SimulatedFounders) isFounderSource() {}

// RealStrainFounders seeds the population from two inbred strains of a
// genotype dataset. Founders alternate StrainA, StrainB. When Loci is empty
// the loci where the two strains differ are detected from Dataset.
type RealStrainFounders struct {
	Dataset *strain.Dataset
	StrainA string
	StrainB string
	Loci    []strain.Locus
	Models  *strain.GeneModels
}

func (RealStrainFounders) isFounderSource() {}

// PopulationConfig groups everything needed to found a population.
type PopulationConfig struct {
	Size     int
	Goal     Goal
	Genome   GenomeConfig
	Breeding BreedingConfig
	Trait    TraitConfig
	Founders FounderSource // nil means SimulatedFounders
	TopN     int           // fitness strategy pair pool, 0 = top half
	Trace    trace.TraceConfig
}

// DefaultPopulationConfig returns 30 simulated founders bred toward large_friendly.
func DefaultPopulationConfig() PopulationConfig {
	goal, _ := GoalPreset(DefaultGoalPreset)
	return PopulationConfig{
		Size:     30,
		Goal:     goal,
		Genome:   DefaultGenomeConfig(),
		Breeding: DefaultBreedingConfig(),
		Trait:    DefaultTraitConfig(),
		Founders: SimulatedFounders{},
	}
}

// Validate returns an error describing the first invalid field.
func (c PopulationConfig) Validate() error {
	if c.Size < 0 {
		return fmt.Errorf("population: size must be >= 0, got %d", c.Size)
	}
	if c.TopN < 0 {
		return fmt.Errorf("population: top_n must be >= 0, got %d", c.TopN)
	}
	if err := c.Goal.Validate(); err != nil {
		return err
	}
	if err := c.Genome.Validate(); err != nil {
		return err
	}
	if err := c.Breeding.Validate(); err != nil {
		return err
	}
	if err := c.Trait.Validate(); err != nil {
		return err
	}
	if !trace.IsValidTraceLevel(string(c.Trace.Level)) {
		return fmt.Errorf("population: unknown trace level %q", c.Trace.Level)
	}
	if real, ok := c.Founders.(RealStrainFounders); ok {
		if real.StrainA == "" || real.StrainB == "" {
			return fmt.Errorf("population: real strain founders need both strain names")
		}
	}
	return nil
}

// Population is a breeding colony: the current roster, the lineage of every
// mouse it has produced, its goal and trait model, and per-generation history.
// Not safe for concurrent use.
type Population struct {
	Goal       Goal
	Generation int
	History    []Snapshot

	cfg         PopulationConfig
	mice        []*Mouse
	pedigree    *Pedigree
	traits      *TraitModel
	frequencies []float64
	breeder     *Breeder
	rng         *PartitionedRNG
	ids         *IDAllocator
	real        *RealStrainFounders
	trace       *trace.MatingTrace
}

// NewPopulation founds a population: founders are created, traits assigned
// and the generation-0 snapshot recorded.
func NewPopulation(cfg PopulationConfig, rng *PartitionedRNG, ids *IDAllocator) (*Population, error) {
	if cfg.Goal == nil {
		cfg.Goal = Goal{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Population{
		Goal:     cfg.Goal.Clone(),
		cfg:      cfg,
		pedigree: NewPedigree(),
		rng:      rng,
		ids:      ids,
		trace:    trace.NewMatingTrace(cfg.Trace),
	}

	founderRNG := rng.ForSubsystem(SubsystemFounders)
	p.frequencies = DrawFounderFrequencies(founderRNG, cfg.Genome)
	p.traits = NewTraitModel(rng.ForSubsystem(SubsystemEffects), cfg.Genome.TotalMarkers(), cfg.Trait)
	p.breeder = NewBreeder(cfg.Genome, cfg.Breeding, ids, rng.ForSubsystem(SubsystemBreeding))

	switch src := cfg.Founders.(type) {
	case RealStrainFounders:
		p.foundFromStrains(src)
	default:
		for i := 0; i < cfg.Size; i++ {
			g := NewFounderGenome(founderRNG, cfg.Genome, p.frequencies)
			p.mice = append(p.mice, NewMouse(ids, g, 0, nil, nil))
		}
	}
	p.pedigree.Register(p.mice...)
	p.AssignTraits()
	p.recordSnapshot()
	logrus.Debugf("population founded: %d mice, goal %s", len(p.mice), p.Goal)
	return p, nil
}

func (p *Population) foundFromStrains(src RealStrainFounders) {
	if src.Dataset == nil {
		logrus.Warnf("population: real strain founders without a dataset; real genotypes unavailable")
		src.Dataset = strain.NewDataset()
	}
	for _, s := range []string{src.StrainA, src.StrainB} {
		if !src.Dataset.HasStrain(s) {
			logrus.Warnf("population: strain %q has no genotype data", s)
		}
	}
	if len(src.Loci) == 0 {
		gene := strain.GeneFromPath(src.Dataset.GenoPath)
		src.Loci = strain.DetectVariableLoci(src.Dataset, src.StrainA, src.StrainB, gene, src.Models, strain.DefaultMaxLoci)
		logrus.Infof("detected %d variable loci between %s and %s (gene %s)", len(src.Loci), src.StrainA, src.StrainB, gene)
	}
	p.real = &src
	p.breeder.WithRealStrain(src.Loci, src.Models)

	n := p.cfg.Size
	if n < 2 {
		n = 2
	}
	founderRNG := p.rng.ForSubsystem(SubsystemFounders)
	for i := 0; i < n; i++ {
		name := src.StrainA
		if i%2 == 1 {
			name = src.StrainB
		}
		real := &RealExpression{Loci: src.Loci, Models: src.Models, Genotypes: src.Dataset.Geno[name]}
		g := NewFounderGenome(founderRNG, p.cfg.Genome, p.frequencies)
		m := NewMouse(p.ids, g, 0, nil, real)
		m.Strain = name
		p.mice = append(p.mice, m)
	}
}

// Mice returns a copy of the current roster.
func (p *Population) Mice() []*Mouse {
	return append([]*Mouse(nil), p.mice...)
}

// Size returns the roster size.
func (p *Population) Size() int {
	return len(p.mice)
}

// Pedigree returns the lineage registry of every mouse this population has held.
func (p *Population) Pedigree() *Pedigree {
	return p.pedigree
}

// TraitModel returns the population's quantitative trait model.
func (p *Population) TraitModel() *TraitModel {
	return p.traits
}

// FounderFrequencies returns the per-marker founder allele frequencies.
func (p *Population) FounderFrequencies() []float64 {
	return append([]float64(nil), p.frequencies...)
}

// Config returns the configuration the population was founded with.
func (p *Population) Config() PopulationConfig {
	return p.cfg
}

// Real returns the real strain founder source, or nil in simulated mode.
func (p *Population) Real() *RealStrainFounders {
	return p.real
}

// Trace returns the mating trace. Records are only collected at TraceLevelMatings.
func (p *Population) Trace() *trace.MatingTrace {
	return p.trace
}

// Lookup resolves an identity against the lineage registry.
func (p *Population) Lookup(id int64) (*Mouse, bool) {
	return p.pedigree.Lookup(id)
}

// Breed mates two mice with the population's breeder and registers the
// offspring in the lineage without adding them to the roster. n ≤ 0 draws
// a litter size.
func (p *Population) Breed(p1, p2 *Mouse, n int) ([]*Mouse, error) {
	var (
		litter []*Mouse
		err    error
	)
	if n <= 0 {
		litter, err = p.breeder.Mate(p1, p2)
	} else {
		litter, err = p.breeder.MateN(p1, p2, n)
	}
	if err != nil {
		return nil, err
	}
	p.pedigree.Register(litter...)
	return litter, nil
}

// AssignTraits re-draws the quantitative trait of every roster member.
func (p *Population) AssignTraits() {
	p.traits.Assign(p.mice, p.rng.ForSubsystem(SubsystemTraits))
}

// NextGeneration breeds the pairs chosen by the named strategy, replaces the
// roster, applies the optional cull, re-assigns traits and records the new
// generation's snapshot.
//
// The roster keeps its pre-generation size: the fittest offspring when there
// are enough, otherwise all offspring plus the fittest parents. A cull rate
// c > 0 then keeps the fittest ⌊n(1−c)⌋ when that is positive, so a rate
// that would empty the roster leaves it uncut.
func (p *Population) NextGeneration(strategy string, cullRate float64) (Snapshot, error) {
	if !IsValidStrategy(strategy) {
		return Snapshot{}, fmt.Errorf("unknown selection strategy %q; valid: %v", strategy, ValidStrategyNames())
	}
	if math.IsNaN(cullRate) || cullRate < 0 || cullRate > 1 {
		return Snapshot{}, fmt.Errorf("cull rate must be in [0, 1], got %g", cullRate)
	}
	s := NewSelectionStrategy(strategy, p.cfg.TopN)
	pairs := s.Pairs(&PairingState{
		Roster:   p.mice,
		Goal:     p.Goal,
		Pedigree: p.pedigree,
		RNG:      p.rng.ForSubsystem(SubsystemSelection),
	})

	next := p.Generation + 1
	var offspring []*Mouse
	for _, pair := range pairs {
		litter, err := p.breeder.Mate(pair.First, pair.Second)
		rec := trace.MatingRecord{
			Generation: next,
			Strategy:   s.Name(),
			Parent1:    pair.First.ID,
			Parent2:    pair.Second.ID,
			LitterSize: len(litter),
		}
		if err != nil {
			logrus.Warnf("generation %d: mating %d×%d failed: %v", next, pair.First.ID, pair.Second.ID, err)
			rec.Reason = err.Error()
		}
		if p.trace.Enabled() {
			rec.Relatedness = p.pedigree.Relatedness(pair.First, pair.Second)
			p.trace.RecordMating(rec)
		}
		offspring = append(offspring, litter...)
	}
	p.pedigree.Register(offspring...)

	target := len(p.mice)
	if len(offspring) >= target {
		p.mice = RankByFitness(offspring, p.Goal)[:target]
	} else {
		keep := target - len(offspring)
		parents := RankByFitness(p.mice, p.Goal)[:keep]
		p.mice = append(parents, offspring...)
	}

	if cullRate > 0 && len(p.mice) > 0 {
		before := len(p.mice)
		keep := int(float64(before) * (1 - cullRate))
		if keep > 0 {
			p.mice = RankByFitness(p.mice, p.Goal)[:keep]
		}
		if p.trace.Enabled() {
			p.trace.RecordCull(trace.CullRecord{Generation: next, Before: before, After: len(p.mice), CullRate: cullRate})
		}
	}

	p.AssignTraits()
	p.Generation = next
	snap := p.recordSnapshot()
	logrus.Debugf("generation %d (%s): %d pairs, %d offspring, roster %d, avg fitness %.1f",
		next, s.Name(), len(pairs), len(offspring), len(p.mice), snap.AvgFitness)
	return snap, nil
}

// Stats computes the current statistics without recording them.
func (p *Population) Stats() Snapshot {
	return computeSnapshot(p.Generation, p.mice, p.Goal, p.pedigree, p.cfg.Trait.Heritability)
}

func (p *Population) recordSnapshot() Snapshot {
	s := p.Stats()
	p.History = append(p.History, s)
	return s
}

// CheckVictory reports whether at least threshold percent of the roster
// matches every goal trait. With an empty goal the genetic diversity score
// is compared with threshold instead. An empty roster never wins.
func (p *Population) CheckVictory(threshold float64) bool {
	if len(p.mice) == 0 {
		return false
	}
	if len(p.Goal) == 0 {
		return GeneticDiversity(p.mice) >= threshold
	}
	matching := 0
	for _, m := range p.mice {
		if m.Fitness(p.Goal) == 100 {
			matching++
		}
	}
	return float64(matching)/float64(len(p.mice))*100 >= threshold
}

// ComputeGRM returns the genomic relationship matrix of the roster.
func (p *Population) ComputeGRM() (*GRM, error) {
	return ComputeGRM(GenotypeMatrix(p.mice))
}

// GenomicInbreeding returns G_ii − 1 for roster members of the given
// generation, or of every generation when generation < 0.
func (p *Population) GenomicInbreeding(generation int) (map[int64]float64, error) {
	grm, err := p.ComputeGRM()
	if err != nil {
		return nil, err
	}
	f := grm.GenomicInbreeding()
	out := make(map[int64]float64)
	for i, m := range p.mice {
		if generation < 0 || m.Generation == generation {
			out[m.ID] = f[i]
		}
	}
	return out, nil
}

// SelectionResult reports a truncation selection on the quantitative trait.
type SelectionResult struct {
	Selected       []*Mouse
	MeanSelected   float64
	MeanPopulation float64
	Differential   float64 // S = MeanSelected − MeanPopulation
}

// SelectTop picks the top fraction of the roster by trait value, at least one
// mouse. Mice without a trait value rank as 0.
func (p *Population) SelectTop(fraction float64) (SelectionResult, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return SelectionResult{}, fmt.Errorf("selection fraction must be in (0, 1], got %g", fraction)
	}
	if len(p.mice) == 0 {
		return SelectionResult{}, ComputationError("selection: empty roster")
	}
	ranked := append([]*Mouse(nil), p.mice...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].TraitValue() > ranked[j].TraitValue() })
	n := int(float64(len(ranked)) * fraction)
	if n < 1 {
		n = 1
	}
	res := SelectionResult{Selected: ranked[:n]}
	res.MeanSelected = meanTrait(res.Selected)
	res.MeanPopulation = meanTrait(p.mice)
	res.Differential = res.MeanSelected - res.MeanPopulation
	return res, nil
}

func meanTrait(mice []*Mouse) float64 {
	if len(mice) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range mice {
		sum += m.TraitValue()
	}
	return sum / float64(len(mice))
}

// Package validation checks the breeding engine against theoretical
// population-genetics expectations. Each method builds its own fixture from a
// seed, runs the engine and reports pass/fail with its diagnostics.
package validation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/strain"
)

// Method names, as stored with validation results.
const (
	MethodMendelian    = "mendelian_ratios"
	MethodGRM          = "grm_relationships"
	MethodInbreeding   = "inbreeding_correlation"
	MethodHeritability = "heritability"
	MethodRealMode     = "real_mode_predictions"
)

// MinPassing is the number of methods that must pass for the suite to pass.
const MinPassing = 3

// Result is the outcome of one validation method.
type Result struct {
	Method  string             `json:"method" yaml:"method"`
	Passed  bool               `json:"passed" yaml:"passed"`
	Metrics map[string]float64 `json:"metrics" yaml:"metrics"`
	Notes   []string           `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func newResult(method string) Result {
	return Result{Method: method, Metrics: make(map[string]float64)}
}

func (r *Result) notef(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Report aggregates a full suite run.
type Report struct {
	Results     []Result `json:"results" yaml:"results"`
	PassCount   int      `json:"pass_count" yaml:"pass_count"`
	Total       int      `json:"total_count" yaml:"total_count"`
	OverallPass bool     `json:"overall_pass" yaml:"overall_pass"`
}

// Config sizes the validation fixtures. Zero fields take DefaultConfig values.
type Config struct {
	Seed     int64
	Genome   sim.GenomeConfig
	Breeding sim.BreedingConfig
	Trait    sim.TraitConfig

	MendelianOffspring int // offspring of the heterozygous cross

	GRMFamilies int // two founders and two full-sib offspring each

	InbreedingLines          int // independent sib-mating lines
	InbreedingMaxGenerations int // lines run 0..max generations of sib mating
	InbreedingChromosomes    int // chromosomes of the inbreeding genome

	HeritabilityFounders int     // base population size
	HeritabilitySelected float64 // selected fraction

	PredictionOffspring int // F1 and F2 offspring bred in real mode

	// Real mode fixture; nil Dataset uses a built-in two-strain dominant locus.
	Dataset *strain.Dataset
	Models  *strain.GeneModels
	StrainA string
	StrainB string
	Loci    []strain.Locus
}

// DefaultConfig returns the fixture sizes the suite is calibrated for.
func DefaultConfig() Config {
	return Config{
		Seed:                     42,
		Genome:                   sim.DefaultGenomeConfig(),
		Breeding:                 sim.DefaultBreedingConfig(),
		Trait:                    sim.DefaultTraitConfig(),
		MendelianOffspring:       1000,
		GRMFamilies:              50,
		InbreedingLines:          44,
		InbreedingMaxGenerations: 10,
		InbreedingChromosomes:    10,
		HeritabilityFounders:     3000,
		HeritabilitySelected:     0.2,
		PredictionOffspring:      2000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Genome.Chromosomes == 0 {
		c.Genome = d.Genome
	}
	if c.Breeding.LitterMin == 0 {
		c.Breeding = d.Breeding
	}
	if c.Trait.Heritability == 0 {
		c.Trait = d.Trait
	}
	if c.MendelianOffspring <= 0 {
		c.MendelianOffspring = d.MendelianOffspring
	}
	if c.GRMFamilies <= 0 {
		c.GRMFamilies = d.GRMFamilies
	}
	if c.InbreedingLines <= 0 {
		c.InbreedingLines = d.InbreedingLines
	}
	if c.InbreedingMaxGenerations <= 0 {
		c.InbreedingMaxGenerations = d.InbreedingMaxGenerations
	}
	if c.InbreedingChromosomes <= 0 {
		c.InbreedingChromosomes = d.InbreedingChromosomes
	}
	if c.HeritabilityFounders <= 0 {
		c.HeritabilityFounders = d.HeritabilityFounders
	}
	if c.HeritabilitySelected <= 0 || c.HeritabilitySelected > 1 {
		c.HeritabilitySelected = d.HeritabilitySelected
	}
	if c.PredictionOffspring < 2 {
		c.PredictionOffspring = d.PredictionOffspring
	}
	return c
}

// fixture bundles the seeded generators a method draws from.
type fixture struct {
	rng *sim.PartitionedRNG
	ids *sim.IDAllocator
}

func newFixture(seed int64) *fixture {
	return &fixture{
		rng: sim.NewPartitionedRNG(sim.NewSimulationKey(seed)),
		ids: sim.NewIDAllocator(1),
	}
}

func (f *fixture) breeder(genome sim.GenomeConfig, cfg sim.BreedingConfig) *sim.Breeder {
	return sim.NewBreeder(genome, cfg, f.ids, f.rng.ForSubsystem(sim.SubsystemBreeding))
}

// founders draws n Hardy-Weinberg founders sharing one frequency draw.
func (f *fixture) founders(genome sim.GenomeConfig, n int) []*sim.Mouse {
	rng := f.rng.ForSubsystem(sim.SubsystemFounders)
	freqs := sim.DrawFounderFrequencies(rng, genome)
	out := make([]*sim.Mouse, n)
	for i := range out {
		out[i] = sim.NewMouse(f.ids, sim.NewFounderGenome(rng, genome, freqs), 0, nil, nil)
	}
	return out
}

type method struct {
	name string
	run  func(Config) (Result, error)
}

func methods() []method {
	return []method{
		{MethodMendelian, MendelianRatios},
		{MethodGRM, GRMRelationships},
		{MethodInbreeding, InbreedingCorrelation},
		{MethodHeritability, RealizedHeritability},
		{MethodRealMode, RealModePredictions},
	}
}

// MethodNames returns the method names in run order.
func MethodNames() []string {
	ms := methods()
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.name
	}
	return names
}

// RunAll runs every method in order. A method that errors is reported as
// failed with the error in its notes. The suite passes when at least
// MinPassing methods pass. Cancellation is checked between methods.
func RunAll(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	rep := &Report{}
	for _, m := range methods() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := m.run(cfg)
		if err != nil {
			logrus.Warnf("validation %s: %v", m.name, err)
			res = newResult(m.name)
			res.notef("error: %v", err)
		}
		logrus.Infof("validation %s: passed=%t %v", m.name, res.Passed, res.Metrics)
		rep.Results = append(rep.Results, res)
		if res.Passed {
			rep.PassCount++
		}
	}
	rep.Total = len(rep.Results)
	rep.OverallPass = rep.PassCount >= MinPassing
	return rep, nil
}

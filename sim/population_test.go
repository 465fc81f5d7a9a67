package sim

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeding-sim/breeding-sim/sim/strain"
	"github.com/breeding-sim/breeding-sim/sim/trace"
)

func testPopulationConfig(size int) PopulationConfig {
	cfg := DefaultPopulationConfig()
	cfg.Size = size
	cfg.Genome = smallGenomeConfig()
	return cfg
}

func newTestPopulation(t *testing.T, seed int64, cfg PopulationConfig) *Population {
	t.Helper()
	p, err := NewPopulation(cfg, NewPartitionedRNG(NewSimulationKey(seed)), NewIDAllocator(1))
	require.NoError(t, err)
	return p
}

func TestNewPopulation_Founders(t *testing.T) {
	p := newTestPopulation(t, 42, testPopulationConfig(20))

	assert.Equal(t, 20, p.Size())
	assert.Equal(t, 0, p.Generation)
	require.Len(t, p.History, 1)
	assert.Equal(t, 20, p.History[0].PopulationSize)
	assert.Equal(t, 20, p.Pedigree().Len())
	assert.Len(t, p.FounderFrequencies(), 40)
	assert.Nil(t, p.Real())
	for _, m := range p.Mice() {
		assert.True(t, m.IsFounder())
		_, ok := m.Trait()
		assert.True(t, ok, "founder %d has a trait", m.ID)
	}
}

func TestNewPopulation_Reproducible(t *testing.T) {
	run := func() []string {
		p := newTestPopulation(t, 7, testPopulationConfig(10))
		for i := 0; i < 3; i++ {
			_, err := p.NextGeneration("fitness", 0)
			require.NoError(t, err)
		}
		var out []string
		for _, m := range p.Mice() {
			out = append(out, m.String())
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestNewPopulation_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PopulationConfig)
	}{
		{"negative size", func(c *PopulationConfig) { c.Size = -1 }},
		{"bad goal", func(c *PopulationConfig) { c.Goal = Goal{"tail": "long"} }},
		{"bad trace level", func(c *PopulationConfig) { c.Trace.Level = "verbose" }},
		{"missing strain", func(c *PopulationConfig) { c.Founders = RealStrainFounders{StrainA: "A"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testPopulationConfig(4)
			tt.mutate(&cfg)
			_, err := NewPopulation(cfg, NewPartitionedRNG(NewSimulationKey(1)), NewIDAllocator(1))
			assert.Error(t, err)
		})
	}
}

func TestNextGeneration_KeepsSizeAndAdvances(t *testing.T) {
	for _, strategy := range []string{"random", "fitness", "diverse"} {
		t.Run(strategy, func(t *testing.T) {
			p := newTestPopulation(t, 11, testPopulationConfig(16))

			snap, err := p.NextGeneration(strategy, 0)
			require.NoError(t, err)

			assert.Equal(t, 1, p.Generation)
			assert.Equal(t, 1, snap.Generation)
			assert.Equal(t, 16, p.Size())
			assert.Len(t, p.History, 2)
			assert.Greater(t, p.Pedigree().Len(), 16, "offspring registered in the lineage")
		})
	}
}

func TestNextGeneration_TopsUpWithParents(t *testing.T) {
	// GIVEN a fixed litter of 1 so the fitness strategy breeds too few offspring
	cfg := testPopulationConfig(10)
	cfg.Breeding.LitterMin, cfg.Breeding.LitterMax = 1, 1
	p := newTestPopulation(t, 12, cfg)

	// WHEN advancing (top 5 → 2 pairs → 2 offspring)
	_, err := p.NextGeneration("fitness", 0)
	require.NoError(t, err)

	// THEN the roster is 8 fittest parents plus 2 offspring
	gens := map[int]int{}
	for _, m := range p.Mice() {
		gens[m.Generation]++
	}
	assert.Equal(t, map[int]int{0: 8, 1: 2}, gens)
}

func TestNextGeneration_Cull(t *testing.T) {
	p := newTestPopulation(t, 13, testPopulationConfig(20))
	_, err := p.NextGeneration("random", 0.25)
	require.NoError(t, err)
	assert.Equal(t, 15, p.Size())
}

func TestNextGeneration_CullThatWouldEmptyRosterIsSkipped(t *testing.T) {
	tests := []struct {
		name     string
		cullRate float64
	}{
		{name: "full cull", cullRate: 1},
		{name: "cull rounding to zero survivors", cullRate: 0.95},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a roster of 6 founders with culls traced
			cfg := testPopulationConfig(6)
			cfg.Trace = trace.TraceConfig{Level: trace.TraceLevelMatings}
			p := newTestPopulation(t, 17, cfg)

			// WHEN a generation culls every mouse
			_, err := p.NextGeneration("random", tc.cullRate)
			require.NoError(t, err)

			// THEN the roster keeps its size and the skipped cull is still traced
			assert.Equal(t, 6, p.Size())
			assert.Equal(t, 1, p.Generation)
			require.Len(t, p.Trace().Culls, 1)
			assert.Equal(t, 6, p.Trace().Culls[0].After)
		})
	}
}

func TestNextGeneration_InvalidArguments(t *testing.T) {
	p := newTestPopulation(t, 14, testPopulationConfig(6))
	_, err := p.NextGeneration("tournament", 0)
	assert.Error(t, err)
	_, err = p.NextGeneration("fitness", 1.5)
	assert.Error(t, err)
	_, err = p.NextGeneration("fitness", -0.1)
	assert.Error(t, err)
	assert.Equal(t, 0, p.Generation)
}

func TestNextGeneration_RecordsTrace(t *testing.T) {
	cfg := testPopulationConfig(8)
	cfg.Trace = trace.TraceConfig{Level: trace.TraceLevelMatings}
	p := newTestPopulation(t, 15, cfg)

	_, err := p.NextGeneration("random", 0.5)
	require.NoError(t, err)

	tr := p.Trace()
	require.Len(t, tr.Matings, 4)
	for _, rec := range tr.Matings {
		assert.Equal(t, 1, rec.Generation)
		assert.Equal(t, "random", rec.Strategy)
		assert.Equal(t, 0.0, rec.Relatedness, "founders are unrelated")
		assert.Empty(t, rec.Reason)
	}
	require.Len(t, tr.Culls, 1)
	assert.Equal(t, trace.CullRecord{Generation: 1, Before: 8, After: 4, CullRate: 0.5}, tr.Culls[0])
	assert.Equal(t, 4, trace.Summarize(tr).TotalMatings)
}

func TestNextGeneration_SingleMouseBreedsNothing(t *testing.T) {
	p := newTestPopulation(t, 16, testPopulationConfig(1))
	_, err := p.NextGeneration("fitness", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Size())
	assert.Equal(t, 0, p.Mice()[0].Generation)
}

func TestPopulation_SibMatingRaisesInbreeding(t *testing.T) {
	// GIVEN six mice and a fixed litter of six, so each generation is one
	// full-sib family
	cfg := testPopulationConfig(6)
	cfg.Breeding.LitterMin, cfg.Breeding.LitterMax = 6, 6
	p := newTestPopulation(t, 17, cfg)
	for i := 0; i < 3; i++ {
		_, err := p.NextGeneration("fitness", 0)
		require.NoError(t, err)
	}

	// THEN pedigree inbreeding follows the sib-mating series 0, 0, .25, .375
	assert.InDelta(t, 0.25, p.History[2].MeanFPedigree, 1e-12)
	assert.InDelta(t, 0.375, p.History[3].MeanFPedigree, 1e-12)
	assert.Equal(t, 0.0, p.History[0].MeanFPedigree)
}

func TestPopulation_BreedKeepsRoster(t *testing.T) {
	p := newTestPopulation(t, 18, testPopulationConfig(4))
	mice := p.Mice()

	litter, err := p.Breed(mice[0], mice[1], 3)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Size(), "Breed does not change the roster")
	_, ok := p.Lookup(litter[0].ID)
	assert.True(t, ok, "offspring resolvable through the lineage")
}

func TestPopulation_BreedErrors(t *testing.T) {
	p := newTestPopulation(t, 19, testPopulationConfig(2))
	_, err := p.Breed(p.Mice()[0], nil, 0)
	assert.True(t, errors.Is(err, ErrComputation))
}

func TestPopulation_CheckVictory(t *testing.T) {
	ids := NewIDAllocator(1)
	cfg := smallGenomeConfig()
	p := newTestPopulation(t, 20, testPopulationConfig(0))
	assert.False(t, p.CheckVictory(0), "empty roster never wins")

	p.mice = []*Mouse{
		uniformMouse(ids, cfg, lociOf("BB", "LL", "NN", "FF"), 0, 0),
		uniformMouse(ids, cfg, lociOf("BB", "LL", "NN", "AA"), 0, 0),
	}
	assert.True(t, p.CheckVictory(50))
	assert.False(t, p.CheckVictory(51))

	// Empty goal compares diversity: only temperament segregates, so the score
	// is 0.5 / (4 × 0.5) = 25%.
	p.Goal = Goal{}
	assert.True(t, p.CheckVictory(25))
	assert.False(t, p.CheckVictory(30))
}

func TestPopulation_GenomicInbreedingByGeneration(t *testing.T) {
	p := newTestPopulation(t, 21, testPopulationConfig(10))
	_, err := p.NextGeneration("fitness", 0)
	require.NoError(t, err)

	all, err := p.GenomicInbreeding(-1)
	require.NoError(t, err)
	assert.Len(t, all, p.Size())

	gen1, err := p.GenomicInbreeding(1)
	require.NoError(t, err)
	for id := range gen1 {
		m, _ := p.Lookup(id)
		assert.Equal(t, 1, m.Generation)
	}

	empty := newTestPopulation(t, 22, testPopulationConfig(0))
	_, err = empty.ComputeGRM()
	assert.True(t, errors.Is(err, ErrComputation))
}

func TestPopulation_SelectTop(t *testing.T) {
	p := newTestPopulation(t, 23, testPopulationConfig(20))

	res, err := p.SelectTop(0.2)
	require.NoError(t, err)
	require.Len(t, res.Selected, 4)
	assert.Greater(t, res.Differential, 0.0)
	assert.InDelta(t, res.MeanSelected-res.MeanPopulation, res.Differential, 1e-12)
	for i := 1; i < len(res.Selected); i++ {
		assert.GreaterOrEqual(t, res.Selected[i-1].TraitValue(), res.Selected[i].TraitValue())
	}

	res, err = p.SelectTop(0.01)
	require.NoError(t, err)
	assert.Len(t, res.Selected, 1)

	for _, f := range []float64{0, -1, 1.5} {
		_, err = p.SelectTop(f)
		assert.Error(t, err, "fraction %g", f)
	}
	empty := newTestPopulation(t, 24, testPopulationConfig(0))
	_, err = empty.SelectTop(0.5)
	assert.True(t, errors.Is(err, ErrComputation))
}

func TestPopulation_RealStrainFounders(t *testing.T) {
	// GIVEN the TYRP1 demo dataset
	dir := filepath.Join("strain", "testdata")
	ds := strain.LoadDataset(filepath.Join(dir, "snp_TYRP1_demo.csv"), filepath.Join(dir, "phenotypes.csv"))
	models := strain.LoadGeneModels(filepath.Join(dir, "gene_models.yaml"))
	cfg := testPopulationConfig(1)
	cfg.Founders = RealStrainFounders{Dataset: ds, StrainA: "C57BL/6J", StrainB: "BALB/cJ", Models: models}

	// WHEN founding a population
	p := newTestPopulation(t, 25, cfg)

	// THEN loci are detected, founders alternate strains and coat color follows the gene model
	require.NotNil(t, p.Real())
	assert.Len(t, p.Real().Loci, 2)
	require.Equal(t, 2, p.Size(), "at least two founders in real mode")
	mice := p.Mice()
	assert.Equal(t, "C57BL/6J", mice[0].Strain)
	assert.Equal(t, "BALB/cJ", mice[1].Strain)
	assert.Equal(t, "black", mice[0].Phenotype[TraitCoatColor])
	assert.Equal(t, "brown", mice[1].Phenotype[TraitCoatColor])

	// AND the F1 is heterozygous at every detected locus
	litter, err := p.Breed(mice[0], mice[1], 10)
	require.NoError(t, err)
	for _, c := range litter {
		for _, l := range p.Real().Loci {
			assert.Equal(t, 1, c.RealGenotypes[l.Key()])
		}
		assert.Equal(t, "black", c.Phenotype[TraitCoatColor])
	}
}

func TestPopulation_RealStrainWithoutDataset(t *testing.T) {
	cfg := testPopulationConfig(4)
	cfg.Founders = RealStrainFounders{StrainA: "A", StrainB: "B"}
	p := newTestPopulation(t, 26, cfg)

	assert.Equal(t, 4, p.Size())
	assert.Empty(t, p.Real().Loci)
	_, err := p.NextGeneration("random", 0)
	assert.NoError(t, err)
}

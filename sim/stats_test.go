package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraitFrequencies(t *testing.T) {
	ids := NewIDAllocator(1)
	cfg := smallGenomeConfig()
	mice := []*Mouse{
		uniformMouse(ids, cfg, lociOf("bb", "LL", "NN", "FF"), 0, 0),
		uniformMouse(ids, cfg, lociOf("Bb", "LL", "DD", "FF"), 0, 0),
		uniformMouse(ids, cfg, lociOf("bb", "ss", "DD", "FF"), 0, 0),
		uniformMouse(ids, cfg, lociOf("bb", "ss", "DD", "AA"), 0, 0),
	}

	freqs := TraitFrequencies(mice)
	assert.Equal(t, map[string]float64{"white": 75, "black": 25}, freqs[TraitCoatColor])
	assert.Equal(t, map[string]float64{"large": 50, "small": 50}, freqs[TraitSize])
	assert.Equal(t, map[string]float64{"normal": 25, "dumbo": 75}, freqs[TraitEarShape])
	assert.Equal(t, map[string]float64{"friendly": 75, "aggressive": 25}, freqs[TraitTemperament])
	assert.Empty(t, TraitFrequencies(nil))
}

func TestGeneticDiversity(t *testing.T) {
	ids := NewIDAllocator(1)
	cfg := smallGenomeConfig()
	fixed := []*Mouse{
		uniformMouse(ids, cfg, lociOf("BB", "LL", "NN", "FF"), 0, 0),
		uniformMouse(ids, cfg, lociOf("BB", "LL", "NN", "FF"), 0, 0),
	}
	het := []*Mouse{
		uniformMouse(ids, cfg, lociOf("Bb", "Ls", "ND", "FA"), 0, 0),
	}

	assert.Equal(t, 0.0, GeneticDiversity(fixed))
	assert.InDelta(t, 100, GeneticDiversity(het), 1e-12)
	assert.Equal(t, 0.0, GeneticDiversity(nil))
}

func TestComputeSnapshot(t *testing.T) {
	// GIVEN two unrelated opposite homozygotes and their two children
	ids := NewIDAllocator(1)
	cfg := smallGenomeConfig()
	p1 := uniformMouse(ids, cfg, lociOf("BB", "LL", "NN", "FF"), 0, 0)
	p2 := uniformMouse(ids, cfg, lociOf("bb", "ss", "DD", "AA"), 1, 1)
	b := NewBreeder(cfg, noMutation(), ids, testRNG(51))
	kids, err := b.MateN(p1, p2, 2)
	assert.NoError(t, err)
	ped := NewPedigree()
	ped.Register(p1, p2)
	ped.Register(kids...)
	roster := append([]*Mouse{p1, p2}, kids...)
	for i, m := range roster {
		m.SetTrait(float64(i))
	}
	goal, _ := GoalPreset(GoalLargeFriendly)

	// WHEN computing the snapshot
	s := computeSnapshot(3, roster, goal, ped, 0.4)

	// THEN the summary fields reflect the roster
	assert.Equal(t, 3, s.Generation)
	assert.Equal(t, 4, s.PopulationSize)
	assert.Equal(t, 100.0, s.MaxFitness)
	assert.Equal(t, 0.0, s.MinFitness)
	assert.Equal(t, 0.0, s.MeanFPedigree)
	assert.InDelta(t, 0.5, s.HeterozygositySNP, 1e-12)
	assert.InDelta(t, 1.5, s.TraitMean, 1e-12)
	assert.InDelta(t, 1.25/2.25, s.H2Empirical, 1e-12)
	assert.Equal(t, 0.4, s.H2Target)
	assert.NotZero(t, s.MeanGii)
}

func TestComputeSnapshot_Empty(t *testing.T) {
	s := computeSnapshot(0, nil, Goal{}, NewPedigree(), 0.4)
	assert.Equal(t, 0, s.PopulationSize)
	assert.Equal(t, 0.0, s.AvgFitness)
}

func TestCorrelation_DegenerateIsZero(t *testing.T) {
	assert.Equal(t, 0.0, correlation([]float64{1}, []float64{2}))
	assert.Equal(t, 0.0, correlation([]float64{1, 1, 1}, []float64{1, 2, 3}))
	assert.InDelta(t, 1, correlation([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
}

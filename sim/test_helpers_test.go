package sim

import (
	"math/rand"
)

// smallGenomeConfig keeps genomes short so tests that breed thousands of
// offspring stay fast.
func smallGenomeConfig() GenomeConfig {
	return GenomeConfig{
		Chromosomes:          2,
		MarkersPerChromosome: 20,
		ChromosomeLengthCM:   100,
		FounderFreqMin:       0.05,
		FounderFreqMax:       0.5,
	}
}

// noMutation disables both mutation processes.
func noMutation() BreedingConfig {
	cfg := DefaultBreedingConfig()
	cfg.SNPMutationRate = 0
	cfg.TraitMutationRate = 0
	return cfg
}

func newTestBreeder(seed int64, genome GenomeConfig, cfg BreedingConfig) (*Breeder, *IDAllocator) {
	ids := NewIDAllocator(1)
	return NewBreeder(genome, cfg, ids, testRNG(seed)), ids
}

// lociOf builds trait loci from four two-letter strings in genome order,
// e.g. lociOf("Bb", "LL", "ND", "FA").
func lociOf(coat, size, ears, temp string) [NumTraitLoci]AllelePair {
	var out [NumTraitLoci]AllelePair
	for i, s := range []string{coat, size, ears, temp} {
		out[i] = AllelePair{s[0], s[1]}
	}
	return out
}

// uniformMouse creates a founder whose maternal and paternal strands are
// filled with the given alleles.
func uniformMouse(ids *IDAllocator, genome GenomeConfig, loci [NumTraitLoci]AllelePair, maternal, paternal uint8) *Mouse {
	return NewMouse(ids, NewUniformGenome(genome, loci, maternal, paternal), 0, nil, nil)
}

// pedigreeMouse creates a genome-less mouse for kinship tests.
func pedigreeMouse(id int64, gen int, first, second int64) *Mouse {
	m := &Mouse{ID: id, Generation: gen}
	if first != 0 || second != 0 {
		m.Parents = &ParentPair{First: first, Second: second}
	}
	return m
}

func testRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

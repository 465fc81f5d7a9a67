package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible run. Two runs with the same key and
// configuration draw identical founders, offspring and trait values.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemFounders draws founder allele frequencies and founder genomes.
	// It uses the master seed directly.
	SubsystemFounders = "founders"

	// SubsystemEffects draws the per-marker effect sizes of the trait model.
	SubsystemEffects = "effects"

	// SubsystemBreeding draws litter sizes, crossovers, mutations and allele picks.
	SubsystemBreeding = "breeding"

	// SubsystemTraits draws environmental noise for trait assignment.
	SubsystemTraits = "traits"

	// SubsystemSelection draws shuffles for pairing strategies.
	SubsystemSelection = "selection"
)

// PartitionedRNG hands out one deterministically seeded *rand.Rand per subsystem.
//
// Seed derivation: SubsystemFounders uses the master seed; every other
// subsystem uses masterSeed XOR fnv1a64(name).
//
// Not safe for concurrent use.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the cached RNG for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	seed := int64(p.key)
	if name != SubsystemFounders {
		seed ^= fnv1a64(name)
	}
	rng := rand.New(rand.NewSource(seed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

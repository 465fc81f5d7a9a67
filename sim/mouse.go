package sim

import (
	"fmt"

	"github.com/breeding-sim/breeding-sim/sim/strain"
)

// IDAllocator hands out unique, monotonically increasing mouse identities.
// Not safe for concurrent use.
type IDAllocator struct {
	next int64
}

// NewIDAllocator returns an allocator whose first identity is start.
func NewIDAllocator(start int64) *IDAllocator {
	return &IDAllocator{next: start}
}

// Next returns a fresh identity.
func (a *IDAllocator) Next() int64 {
	id := a.next
	a.next++
	return id
}

// Peek returns the identity the next call to Next will return.
func (a *IDAllocator) Peek() int64 {
	return a.next
}

// ParentPair records a mouse's two parents by identity.
type ParentPair struct {
	First  int64
	Second int64
}

// Mouse is one individual. All fields are fixed at construction except the
// quantitative trait value, which the owning population assigns.
type Mouse struct {
	ID         int64
	Generation int
	Parents    *ParentPair // nil for founders
	Genome     *Genome
	Phenotype  Phenotype

	// Real mode only.
	Strain        string
	RealGenotypes strain.Genotypes

	trait    float64
	hasTrait bool
}

// NewMouse allocates an identity and expresses the phenotype. real is nil in
// simulated mode; otherwise its Genotypes become the mouse's real genotypes.
func NewMouse(ids *IDAllocator, genome *Genome, generation int, parents *ParentPair, real *RealExpression) *Mouse {
	m := &Mouse{
		ID:         ids.Next(),
		Generation: generation,
		Parents:    parents,
		Genome:     genome,
		Phenotype:  genome.ExpressPhenotype(real),
	}
	if real != nil {
		m.RealGenotypes = real.Genotypes
	}
	return m
}

// IsFounder reports whether the mouse has no recorded parents.
func (m *Mouse) IsFounder() bool {
	return m.Parents == nil
}

// Fitness scores the cached phenotype against goal.
func (m *Mouse) Fitness(goal Goal) float64 {
	return goal.Fitness(m.Phenotype)
}

// Trait returns the quantitative trait value and whether one was assigned.
func (m *Mouse) Trait() (float64, bool) {
	return m.trait, m.hasTrait
}

// TraitValue returns the trait value, or 0 when unassigned.
func (m *Mouse) TraitValue() float64 {
	return m.trait
}

// SetTrait assigns the quantitative trait value.
func (m *Mouse) SetTrait(v float64) {
	m.trait = v
	m.hasTrait = true
}

func (m *Mouse) String() string {
	if m.Parents == nil {
		return fmt.Sprintf("Mouse#%d(gen %d, founder, %s)", m.ID, m.Generation, m.Genome.GenotypeString())
	}
	return fmt.Sprintf("Mouse#%d(gen %d, %d×%d, %s)", m.ID, m.Generation, m.Parents.First, m.Parents.Second, m.Genome.GenotypeString())
}

// SNPGenotypes is shorthand for m.Genome.SNPGenotypes().
func (m *Mouse) SNPGenotypes() []int {
	return m.Genome.SNPGenotypes()
}

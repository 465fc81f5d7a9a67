package sim

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/breeding-sim/breeding-sim/sim/strain"
)

// Breeder produces offspring from two parents: Poisson recombination per
// chromosome, per-marker flip mutation, and trait-allele inheritance with
// mutation. In real mode it also samples each child's strain genotypes.
type Breeder struct {
	genome   GenomeConfig
	cfg      BreedingConfig
	ids      *IDAllocator
	rng      *rand.Rand
	realLoci []strain.Locus
	models   *strain.GeneModels
	real     bool
}

// NewBreeder creates a simulated-mode breeder drawing from rng and allocating
// child identities from ids.
func NewBreeder(genome GenomeConfig, cfg BreedingConfig, ids *IDAllocator, rng *rand.Rand) *Breeder {
	return &Breeder{genome: genome, cfg: cfg, ids: ids, rng: rng}
}

// WithRealStrain switches the breeder to real mode over the given loci.
func (b *Breeder) WithRealStrain(loci []strain.Locus, models *strain.GeneModels) *Breeder {
	b.realLoci = loci
	b.models = models
	b.real = true
	return b
}

// LitterSize draws a litter size uniformly from [LitterMin, LitterMax].
func (b *Breeder) LitterSize() int {
	return b.cfg.LitterMin + b.rng.Intn(b.cfg.LitterMax-b.cfg.LitterMin+1)
}

// Mate breeds a litter of random size. Children belong to generation
// max(parent generations)+1 and record (p1, p2) as parents.
func (b *Breeder) Mate(p1, p2 *Mouse) ([]*Mouse, error) {
	if err := checkParents(p1, p2); err != nil {
		return nil, err
	}
	return b.litter(p1, p2, b.LitterSize()), nil
}

// MateN breeds exactly n offspring. n ≤ 0 returns an empty litter.
func (b *Breeder) MateN(p1, p2 *Mouse, n int) ([]*Mouse, error) {
	if err := checkParents(p1, p2); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []*Mouse{}, nil
	}
	return b.litter(p1, p2, n), nil
}

func checkParents(p1, p2 *Mouse) error {
	if p1 == nil || p2 == nil || p1.Genome == nil || p2.Genome == nil {
		return ComputationError("mate: both parents need a genome")
	}
	return compatible(p1.Genome, p2.Genome)
}

func (b *Breeder) litter(p1, p2 *Mouse, n int) []*Mouse {
	gen := p1.Generation
	if p2.Generation > gen {
		gen = p2.Generation
	}
	gen++
	parents := ParentPair{First: p1.ID, Second: p2.ID}

	out := make([]*Mouse, 0, n)
	for i := 0; i < n; i++ {
		g := b.childGenome(p1.Genome, p2.Genome)
		var real *RealExpression
		if b.real {
			real = &RealExpression{
				Loci:      b.realLoci,
				Models:    b.models,
				Genotypes: strain.ChildGenotypes(p1.RealGenotypes, p2.RealGenotypes, b.realLoci, b.rng),
			}
		}
		pp := parents
		out = append(out, NewMouse(b.ids, g, gen, &pp, real))
	}
	return out
}

func (b *Breeder) childGenome(g1, g2 *Genome) *Genome {
	chroms := len(g1.Haplotypes)
	child := &Genome{Haplotypes: make([]HaplotypePair, chroms)}
	gametes1 := make([][]uint8, chroms)
	gametes2 := make([][]uint8, chroms)
	for c := 0; c < chroms; c++ {
		gametes1[c] = b.formGamete(g1.Haplotypes[c])
	}
	for c := 0; c < chroms; c++ {
		gametes2[c] = b.formGamete(g2.Haplotypes[c])
	}
	for c := 0; c < chroms; c++ {
		b.mutate(gametes1[c])
	}
	for c := 0; c < chroms; c++ {
		b.mutate(gametes2[c])
	}
	for c := 0; c < chroms; c++ {
		child.Haplotypes[c] = HaplotypePair{Maternal: gametes1[c], Paternal: gametes2[c]}
	}
	for i, l := range TraitLoci {
		child.Loci[i] = b.inheritLocus(l, g1.Loci[i], g2.Loci[i])
	}
	return child
}

// formGamete recombines one chromosome. The crossover count is
// Poisson(cM/100); crossover boundaries fall uniformly on the n−1 gaps between
// adjacent markers and the gamete switches strand at each of them, starting
// from a random strand. Coincident crossovers cancel.
func (b *Breeder) formGamete(h HaplotypePair) []uint8 {
	n := h.Len()
	k := b.crossovers()
	if k == 0 || n < 2 {
		src := h.Maternal
		if b.rng.Float64() >= 0.5 {
			src = h.Paternal
		}
		return append([]uint8(nil), src...)
	}

	positions := make([]int, k)
	for i := range positions {
		positions[i] = 1 + b.rng.Intn(n-1)
	}
	sort.Ints(positions)

	cur, other := h.Maternal, h.Paternal
	if b.rng.Float64() >= 0.5 {
		cur, other = other, cur
	}
	gamete := make([]uint8, n)
	idx := 0
	for i := 0; i < n; i++ {
		for idx < len(positions) && i >= positions[idx] {
			cur, other = other, cur
			idx++
		}
		gamete[i] = cur[i]
	}
	return gamete
}

func (b *Breeder) mutate(gamete []uint8) {
	rate := b.cfg.SNPMutationRate
	if rate <= 0 {
		return
	}
	for i := range gamete {
		if b.rng.Float64() < rate {
			gamete[i] = 1 - gamete[i]
		}
	}
}

// inheritLocus takes one allele from each parent, then flips each to the
// opposite allele independently at the trait mutation rate.
func (b *Breeder) inheritLocus(l TraitLocus, a, c AllelePair) AllelePair {
	out := AllelePair{a.Pick(b.rng), c.Pick(b.rng)}
	for i := range out {
		if b.rng.Float64() < b.cfg.TraitMutationRate {
			out[i] = l.Opposite(out[i])
		}
	}
	return out
}

// crossovers draws the crossover count of one meiosis, Poisson with mean
// equal to the chromosome length in Morgans.
func (b *Breeder) crossovers() int {
	lambda := b.genome.ChromosomeLengthCM / 100
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: b.rng}.Rand())
}

package sim

import (
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/breeding-sim/breeding-sim/sim/strain"
)

// HaplotypePair is the maternal and paternal strand of one chromosome.
// Both strands hold 0/1 marker alleles and have equal length.
type HaplotypePair struct {
	Maternal []uint8
	Paternal []uint8
}

// Len returns the number of markers on the chromosome.
func (h HaplotypePair) Len() int {
	return len(h.Maternal)
}

// Genotype returns the 0/1/2 allele count at marker j.
func (h HaplotypePair) Genotype(j int) int {
	return int(h.Maternal[j]) + int(h.Paternal[j])
}

func (h HaplotypePair) clone() HaplotypePair {
	return HaplotypePair{
		Maternal: append([]uint8(nil), h.Maternal...),
		Paternal: append([]uint8(nil), h.Paternal...),
	}
}

// Genome is the diploid genetic record of one mouse: four Mendelian trait
// loci (indexed as TraitLoci) and one haplotype pair per chromosome.
type Genome struct {
	Loci       [NumTraitLoci]AllelePair
	Haplotypes []HaplotypePair
}

// RealExpression carries the strain-derived context used to override
// simulated phenotypes in real mode. A nil *RealExpression means simulated mode.
type RealExpression struct {
	Loci      []strain.Locus
	Models    *strain.GeneModels
	Genotypes strain.Genotypes
}

// DrawFounderFrequencies draws one reference allele frequency per marker,
// uniform on [FounderFreqMin, FounderFreqMax].
func DrawFounderFrequencies(rng *rand.Rand, cfg GenomeConfig) []float64 {
	freqs := make([]float64, cfg.TotalMarkers())
	span := cfg.FounderFreqMax - cfg.FounderFreqMin
	for j := range freqs {
		freqs[j] = cfg.FounderFreqMin + rng.Float64()*span
	}
	return freqs
}

// NewFounderGenome draws a founder genome in Hardy-Weinberg proportions at the
// given per-marker frequencies: genotype ~ Binomial(2, p_j) with heterozygotes
// placed on either strand with equal probability. Trait alleles are uniform.
// A nil or mis-sized freqs slice is replaced by a fresh draw.
func NewFounderGenome(rng *rand.Rand, cfg GenomeConfig, freqs []float64) *Genome {
	if len(freqs) != cfg.TotalMarkers() {
		freqs = DrawFounderFrequencies(rng, cfg)
	}
	g := &Genome{Haplotypes: make([]HaplotypePair, cfg.Chromosomes)}
	for i, l := range TraitLoci {
		g.Loci[i] = l.RandomPair(rng)
	}
	m := cfg.MarkersPerChromosome
	for c := 0; c < cfg.Chromosomes; c++ {
		h := HaplotypePair{Maternal: make([]uint8, m), Paternal: make([]uint8, m)}
		for j := 0; j < m; j++ {
			gt := int(distuv.Binomial{N: 2, P: freqs[c*m+j], Src: rng}.Rand())
			switch gt {
			case 2:
				h.Maternal[j], h.Paternal[j] = 1, 1
			case 1:
				if rng.Float64() < 0.5 {
					h.Maternal[j] = 1
				} else {
					h.Paternal[j] = 1
				}
			}
		}
		g.Haplotypes[c] = h
	}
	return g
}

// NewUniformGenome builds a genome whose strands are all filled with the given
// maternal and paternal allele. Useful for inbred-strain founders and tests.
func NewUniformGenome(cfg GenomeConfig, loci [NumTraitLoci]AllelePair, maternal, paternal uint8) *Genome {
	g := &Genome{Loci: loci, Haplotypes: make([]HaplotypePair, cfg.Chromosomes)}
	m := cfg.MarkersPerChromosome
	for c := range g.Haplotypes {
		h := HaplotypePair{Maternal: make([]uint8, m), Paternal: make([]uint8, m)}
		for j := 0; j < m; j++ {
			h.Maternal[j] = maternal
			h.Paternal[j] = paternal
		}
		g.Haplotypes[c] = h
	}
	return g
}

// ExpressPhenotype applies complete dominance at every trait locus. When real
// is non-nil, each mapped coat_color locus with a known genotype overrides
// coat_color with the gene-model phenotype.
func (g *Genome) ExpressPhenotype(real *RealExpression) Phenotype {
	p := make(Phenotype, NumTraitLoci)
	for i, l := range TraitLoci {
		p[l.Trait] = l.Express(g.Loci[i])
	}
	if real == nil || real.Genotypes == nil {
		return p
	}
	for _, locus := range real.Loci {
		if locus.Trait != TraitCoatColor {
			continue
		}
		gt, ok := real.Genotypes[locus.Key()]
		if !ok {
			continue
		}
		p[TraitCoatColor] = real.Models.Phenotype(locus.Model, gt)
	}
	return p
}

// Fitness returns the goal score of the expressed phenotype.
func (g *Genome) Fitness(goal Goal, real *RealExpression) float64 {
	return goal.Fitness(g.ExpressPhenotype(real))
}

// MarkerCount returns the total number of SNP markers.
func (g *Genome) MarkerCount() int {
	n := 0
	for _, h := range g.Haplotypes {
		n += h.Len()
	}
	return n
}

// SNPGenotypes returns per-marker allele counts, chromosome 1 first.
func (g *Genome) SNPGenotypes() []int {
	out := make([]int, 0, g.MarkerCount())
	for _, h := range g.Haplotypes {
		for j := 0; j < h.Len(); j++ {
			out = append(out, h.Genotype(j))
		}
	}
	return out
}

// GenotypeString renders the trait loci, e.g. "Coat:Bb Size:Ls Ears:ND Temp:FA".
func (g *Genome) GenotypeString() string {
	parts := make([]string, NumTraitLoci)
	for i, l := range TraitLoci {
		parts[i] = l.Short + ":" + l.Format(g.Loci[i])
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy.
func (g *Genome) Clone() *Genome {
	out := &Genome{Loci: g.Loci, Haplotypes: make([]HaplotypePair, len(g.Haplotypes))}
	for i, h := range g.Haplotypes {
		out.Haplotypes[i] = h.clone()
	}
	return out
}

// compatible returns an error unless both genomes share chromosome count and
// strand lengths, and each genome's strands agree with each other.
func compatible(a, b *Genome) error {
	if len(a.Haplotypes) != len(b.Haplotypes) {
		return ComputationError("chromosome count mismatch: %d vs %d", len(a.Haplotypes), len(b.Haplotypes))
	}
	for c := range a.Haplotypes {
		ha, hb := a.Haplotypes[c], b.Haplotypes[c]
		if len(ha.Maternal) != len(ha.Paternal) || len(hb.Maternal) != len(hb.Paternal) {
			return ComputationError("chromosome %d: strand length mismatch within a parent", c+1)
		}
		if ha.Len() != hb.Len() {
			return ComputationError("chromosome %d: marker count mismatch: %d vs %d", c+1, ha.Len(), hb.Len())
		}
	}
	return nil
}

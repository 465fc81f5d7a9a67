package strain

import (
	"math/rand"
	"sort"
	"strings"
)

// DefaultMaxLoci bounds DetectVariableLoci.
const DefaultMaxLoci = 10

// DefaultPunnettDraws is the Monte Carlo sample size of PunnettProbabilities.
const DefaultPunnettDraws = 10000

// Locus is a genomic position mapped to a trait through a gene model.
type Locus struct {
	Trait string
	Chr   string
	Pos   int
	Model string // gene model name, lower-case gene symbol
}

// Key returns the genomic position of the locus.
func (l Locus) Key() LocusKey {
	return LocusKey{Chr: l.Chr, Pos: l.Pos}
}

// DetectVariableLoci returns the loci genotyped in both strains whose
// genotypes differ, in (chr, pos) order, at most maxLoci of them. Each locus is
// attributed to gene and to the trait its gene model names.
func DetectVariableLoci(ds *Dataset, strainA, strainB, gene string, models *GeneModels, maxLoci int) []Locus {
	if ds == nil {
		return nil
	}
	if maxLoci <= 0 {
		maxLoci = DefaultMaxLoci
	}
	ga, gb := ds.Geno[strainA], ds.Geno[strainB]
	trait := models.Trait(gene)
	var loci []Locus
	for _, key := range ga.SortedKeys() {
		b, ok := gb[key]
		if !ok || ga[key] == b {
			continue
		}
		loci = append(loci, Locus{Trait: trait, Chr: key.Chr, Pos: key.Pos, Model: strings.ToLower(gene)})
		if len(loci) >= maxLoci {
			break
		}
	}
	return loci
}

// InheritAllele samples the allele a parent passes at a locus with genotype gt:
// 0 passes 0, 2 passes 1, 1 passes either with equal probability.
func InheritAllele(gt int, rng *rand.Rand) int {
	switch gt {
	case 0:
		return 0
	case 2:
		return 1
	default:
		return rng.Intn(2)
	}
}

// ChildGenotypes samples a child's genotype at every locus. A locus missing
// from a parent's map is treated as genotype 0.
func ChildGenotypes(p1, p2 Genotypes, loci []Locus, rng *rand.Rand) Genotypes {
	child := make(Genotypes, len(loci))
	for _, l := range loci {
		k := l.Key()
		child[k] = InheritAllele(p1[k], rng) + InheritAllele(p2[k], rng)
	}
	return child
}

// PhenotypeProbability is one entry of a Punnett prediction.
type PhenotypeProbability struct {
	Phenotype   string
	Probability float64
}

// PunnettProbabilities estimates offspring phenotype frequencies at the first
// locus by drawing children from the two parental genotype maps. The result is
// sorted by descending probability, then phenotype.
func PunnettProbabilities(p1, p2 Genotypes, loci []Locus, models *GeneModels, draws int, rng *rand.Rand) []PhenotypeProbability {
	if len(loci) == 0 {
		return nil
	}
	if draws <= 0 {
		draws = DefaultPunnettDraws
	}
	locus := loci[0]
	k := locus.Key()
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		gt := InheritAllele(p1[k], rng) + InheritAllele(p2[k], rng)
		counts[models.Phenotype(locus.Model, gt)]++
	}
	out := make([]PhenotypeProbability, 0, len(counts))
	for ph, c := range counts {
		out = append(out, PhenotypeProbability{Phenotype: ph, Probability: float64(c) / float64(draws)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].Phenotype < out[j].Phenotype
	})
	return out
}

// ProbabilityOf returns the probability of phenotype in a prediction, or 0.
func ProbabilityOf(probs []PhenotypeProbability, phenotype string) float64 {
	for _, p := range probs {
		if p.Phenotype == phenotype {
			return p.Probability
		}
	}
	return 0
}

package sim

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Snapshot is the statistics record of one generation.
type Snapshot struct {
	Generation           int                           `json:"generation" yaml:"generation"`
	PopulationSize       int                           `json:"population_size" yaml:"population_size"`
	AvgFitness           float64                       `json:"avg_fitness" yaml:"avg_fitness"`
	MaxFitness           float64                       `json:"max_fitness" yaml:"max_fitness"`
	MinFitness           float64                       `json:"min_fitness" yaml:"min_fitness"`
	TraitFrequencies     map[string]map[string]float64 `json:"trait_frequencies" yaml:"trait_frequencies"` // trait → label → percent
	GeneticDiversity     float64                       `json:"genetic_diversity" yaml:"genetic_diversity"`
	MeanFPedigree        float64                       `json:"mean_f_pedigree" yaml:"mean_f_pedigree"`
	MeanFGenomic         float64                       `json:"mean_f_genomic" yaml:"mean_f_genomic"`
	CorrFPedigreeGenomic float64                       `json:"corr_f_pedigree_genomic" yaml:"corr_f_pedigree_genomic"`
	MeanGii              float64                       `json:"mean_g_ii" yaml:"mean_g_ii"`
	MeanOffDiagG         float64                       `json:"mean_offdiag_g" yaml:"mean_offdiag_g"`
	HeterozygositySNP    float64                       `json:"heterozygosity_snp" yaml:"heterozygosity_snp"`
	TraitMean            float64                       `json:"trait_mean" yaml:"trait_mean"`
	TraitSD              float64                       `json:"trait_sd" yaml:"trait_sd"`
	H2Target             float64                       `json:"h2_target" yaml:"h2_target"`
	H2Empirical          float64                       `json:"h2_empirical" yaml:"h2_empirical"`
}

// TraitFrequencies returns, per Mendelian trait, the percentage of mice
// expressing each observed label.
func TraitFrequencies(mice []*Mouse) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, NumTraitLoci)
	if len(mice) == 0 {
		return out
	}
	for _, trait := range TraitNames() {
		counts := make(map[string]float64)
		for _, m := range mice {
			counts[m.Phenotype[trait]]++
		}
		for label, c := range counts {
			counts[label] = c / float64(len(mice)) * 100
		}
		out[trait] = counts
	}
	return out
}

// GeneticDiversity scores trait-allele variation 0–100: the summed expected
// heterozygosity 1 − Σf² of the four trait loci over its maximum of 4 × 0.5.
func GeneticDiversity(mice []*Mouse) float64 {
	if len(mice) == 0 {
		return 0
	}
	total := 0.0
	for i := range TraitLoci {
		counts := make(map[byte]int)
		for _, m := range mice {
			counts[m.Genome.Loci[i][0]]++
			counts[m.Genome.Loci[i][1]]++
		}
		alleles := float64(2 * len(mice))
		het := 1.0
		for _, c := range counts {
			f := float64(c) / alleles
			het -= f * f
		}
		total += het
	}
	return total / (NumTraitLoci * 0.5) * 100
}

// computeSnapshot derives the generation statistics of a roster. GRM failures
// leave the genomic fields at zero.
func computeSnapshot(generation int, mice []*Mouse, goal Goal, pedigree *Pedigree, h2 float64) Snapshot {
	s := Snapshot{
		Generation:       generation,
		PopulationSize:   len(mice),
		TraitFrequencies: TraitFrequencies(mice),
		H2Target:         h2,
	}
	n := len(mice)
	if n == 0 {
		return s
	}

	s.MinFitness = math.Inf(1)
	s.MaxFitness = math.Inf(-1)
	sum := 0.0
	for _, m := range mice {
		f := m.Fitness(goal)
		sum += f
		s.MinFitness = math.Min(s.MinFitness, f)
		s.MaxFitness = math.Max(s.MaxFitness, f)
	}
	s.AvgFitness = sum / float64(n)
	s.GeneticDiversity = GeneticDiversity(mice)

	fPed := make([]float64, n)
	for i, m := range mice {
		fPed[i] = pedigree.Inbreeding(m)
	}
	s.MeanFPedigree = stat.Mean(fPed, nil)

	genotypes := GenotypeMatrix(mice)
	s.HeterozygositySNP = MeanHeterozygosity(genotypes)
	if grm, err := ComputeGRM(genotypes); err != nil {
		logrus.Warnf("generation %d: grm: %v", generation, err)
	} else {
		fGen := grm.GenomicInbreeding()
		s.MeanFGenomic = stat.Mean(fGen, nil)
		s.MeanGii = grm.MeanDiagonal()
		s.MeanOffDiagG = grm.MeanOffDiagonal()
		s.CorrFPedigreeGenomic = correlation(fPed, fGen)
	}

	var traits []float64
	for _, m := range mice {
		if y, ok := m.Trait(); ok {
			traits = append(traits, y)
		}
	}
	if len(traits) > 0 {
		mean, variance := stat.PopMeanVariance(traits, nil)
		s.TraitMean = mean
		s.TraitSD = math.Sqrt(variance)
		if variance > 0 {
			s.H2Empirical = variance / (variance + 1)
		}
	}
	return s
}

// correlation returns the Pearson correlation, or 0 when either side has
// no variance or fewer than two values.
func correlation(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

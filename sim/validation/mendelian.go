package validation

import (
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/breeding-sim/breeding-sim/sim"
)

// ChiSquareCritical2DF is the χ² critical value at α = 0.05 with two degrees
// of freedom.
const ChiSquareCritical2DF = 5.991

// ChiSquare returns Pearson's statistic Σ(o−e)²/e and its upper-tail p-value
// with len(observed)−1 degrees of freedom.
func ChiSquare(observed, expected []float64) (chi2, p float64) {
	chi2 = stat.ChiSquare(observed, expected)
	df := float64(len(observed) - 1)
	if df < 1 {
		return chi2, 1
	}
	return chi2, distuv.ChiSquared{K: df}.Survival(chi2)
}

// MendelianRatios crosses two parents heterozygous at every marker and tests
// the offspring genotype counts at one marker against 1:2:1.
func MendelianRatios(cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	res := newResult(MethodMendelian)
	f := newFixture(cfg.Seed)

	loci := [sim.NumTraitLoci]sim.AllelePair{{'B', 'b'}, {'L', 's'}, {'N', 'D'}, {'F', 'A'}}
	p1 := sim.NewMouse(f.ids, sim.NewUniformGenome(cfg.Genome, loci, 0, 1), 0, nil, nil)
	p2 := sim.NewMouse(f.ids, sim.NewUniformGenome(cfg.Genome, loci, 0, 1), 0, nil, nil)
	if p1.Genome.MarkerCount() == 0 {
		res.notef("genome has no markers")
		return res, nil
	}
	litter, err := f.breeder(cfg.Genome, cfg.Breeding).MateN(p1, p2, cfg.MendelianOffspring)
	if err != nil {
		return res, err
	}

	marker := cfg.Genome.MarkersPerChromosome / 2
	counts := make([]float64, 3)
	for _, c := range litter {
		counts[c.SNPGenotypes()[marker]]++
	}
	n := float64(len(litter))
	expected := []float64{0.25 * n, 0.5 * n, 0.25 * n}
	chi2, p := ChiSquare(counts, expected)

	res.Metrics["offspring"] = n
	res.Metrics["count_0"] = counts[0]
	res.Metrics["count_1"] = counts[1]
	res.Metrics["count_2"] = counts[2]
	res.Metrics["chi_square"] = chi2
	res.Metrics["p_value"] = p
	res.Passed = chi2 < ChiSquareCritical2DF
	return res, nil
}

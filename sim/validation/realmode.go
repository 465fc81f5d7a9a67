package validation

import (
	"math"
	"sort"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/strain"
)

// PredictionTolerance is the allowed absolute difference between a predicted
// and an observed phenotype frequency.
const PredictionTolerance = 0.05

// Built-in real mode fixture: two inbred strains fixed for opposite
// genotypes at one dominant coat color locus.
const (
	demoStrainA = "DEMO_A"
	demoStrainB = "DEMO_B"
	demoGene    = "TYRP1"
)

var demoLocus = strain.Locus{Trait: sim.TraitCoatColor, Chr: "chr4", Pos: 80000100, Model: "tyrp1"}

// DemoStrains returns the built-in real mode fixture: a dataset of two
// strains homozygous 2 and 0 at one TYRP1 locus and a dominant gene model
// (0 brown, 1 and 2 black).
func DemoStrains() (*strain.Dataset, *strain.GeneModels, []strain.Locus) {
	ds := strain.NewDataset()
	ds.GenoPath = "snp_TYRP1_demo.csv"
	ds.SetGenotype(demoStrainA, demoLocus.Key(), 2)
	ds.SetGenotype(demoStrainB, demoLocus.Key(), 0)
	ds.Pheno[demoStrainA] = map[string]string{sim.TraitCoatColor: "black"}
	ds.Pheno[demoStrainB] = map[string]string{sim.TraitCoatColor: "brown"}
	models := strain.NewGeneModels(map[string]strain.GeneModel{
		demoGene: {
			Name:  demoGene,
			Trait: sim.TraitCoatColor,
			Model: strain.GenotypeModel{Type: "dominant", Genotypes: map[string]strain.GenotypeEffect{
				"0": {Phenotype: "brown"},
				"1": {Phenotype: "black"},
				"2": {Phenotype: "black"},
			}},
		},
	})
	return ds, models, []strain.Locus{demoLocus}
}

// RealModePredictions founds a real-strain population from two strains,
// predicts F1 and F2 coat color frequencies with a Punnett Monte Carlo and
// compares them with the frequencies observed when the engine breeds the
// crosses. Every phenotype of both crosses must agree within
// PredictionTolerance.
func RealModePredictions(cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	res := newResult(MethodRealMode)
	f := newFixture(cfg.Seed)

	src := sim.RealStrainFounders{Dataset: cfg.Dataset, StrainA: cfg.StrainA, StrainB: cfg.StrainB, Loci: cfg.Loci, Models: cfg.Models}
	if src.Dataset == nil {
		src.Dataset, src.Models, src.Loci = DemoStrains()
		src.StrainA, src.StrainB = demoStrainA, demoStrainB
	}
	pop, err := sim.NewPopulation(sim.PopulationConfig{
		Size:     2,
		Goal:     sim.Goal{},
		Genome:   cfg.Genome,
		Breeding: cfg.Breeding,
		Trait:    cfg.Trait,
		Founders: src,
	}, f.rng, f.ids)
	if err != nil {
		return res, err
	}
	loci := pop.Real().Loci
	if len(loci) == 0 {
		res.notef("no variable loci between %s and %s", src.StrainA, src.StrainB)
		return res, nil
	}
	founders := pop.Mice()
	a, b := founders[0], founders[1]
	predRNG := f.rng.ForSubsystem("prediction")

	f1Pred := strain.PunnettProbabilities(a.RealGenotypes, b.RealGenotypes, loci, src.Models, strain.DefaultPunnettDraws, predRNG)
	f1, err := pop.Breed(a, b, cfg.PredictionOffspring)
	if err != nil {
		return res, err
	}

	// F2: intercross consecutive F1 pairs round-robin, one child per mating.
	pairs := len(f1) / 2
	var f2 []*sim.Mouse
	for i := 0; len(f2) < cfg.PredictionOffspring; i++ {
		j := 2 * (i % pairs)
		kids, err := pop.Breed(f1[j], f1[j+1], 1)
		if err != nil {
			return res, err
		}
		f2 = append(f2, kids...)
	}
	f2Pred := strain.PunnettProbabilities(f1[0].RealGenotypes, f1[1].RealGenotypes, loci, src.Models, strain.DefaultPunnettDraws, predRNG)

	okF1 := comparePrediction(&res, "f1", f1Pred, f1)
	okF2 := comparePrediction(&res, "f2", f2Pred, f2)
	res.Metrics["loci"] = float64(len(loci))
	res.Passed = okF1 && okF2
	return res, nil
}

// comparePrediction records predicted and observed frequencies of every
// phenotype seen on either side and reports whether all agree.
func comparePrediction(res *Result, cross string, pred []strain.PhenotypeProbability, mice []*sim.Mouse) bool {
	observed := make(map[string]float64)
	for _, m := range mice {
		observed[m.Phenotype[sim.TraitCoatColor]]++
	}
	for ph := range observed {
		observed[ph] /= float64(len(mice))
	}
	seen := make(map[string]bool)
	var phenotypes []string
	for _, p := range pred {
		seen[p.Phenotype] = true
		phenotypes = append(phenotypes, p.Phenotype)
	}
	for ph := range observed {
		if !seen[ph] {
			phenotypes = append(phenotypes, ph)
		}
	}
	sort.Strings(phenotypes)

	ok := true
	maxDiff := 0.0
	for _, ph := range phenotypes {
		want := strain.ProbabilityOf(pred, ph)
		got := observed[ph]
		res.Metrics[cross+"_predicted_"+ph] = want
		res.Metrics[cross+"_observed_"+ph] = got
		diff := math.Abs(want - got)
		maxDiff = math.Max(maxDiff, diff)
		if diff > PredictionTolerance {
			ok = false
			res.notef("%s %s: predicted %.3f, observed %.3f", cross, ph, want, got)
		}
	}
	res.Metrics[cross+"_max_difference"] = maxDiff
	return ok
}

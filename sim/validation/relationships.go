package validation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/breeding-sim/breeding-sim/sim"
)

// GRMTolerance is the allowed absolute deviation of each mean GRM entry from
// its expected relationship.
const GRMTolerance = 0.10

// GRMRelationships breeds families of two unrelated founders and two full-sib
// offspring, computes one GRM over all of them and compares the mean entry of
// each relationship class with its expectation: unrelated 0, parent-offspring
// 0.5, full sibs 0.5, self 1.
func GRMRelationships(cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	res := newResult(MethodGRM)
	f := newFixture(cfg.Seed)

	founders := f.founders(cfg.Genome, 2*cfg.GRMFamilies)
	b := f.breeder(cfg.Genome, cfg.Breeding)
	var mice []*sim.Mouse
	for fam := 0; fam < cfg.GRMFamilies; fam++ {
		dam, sire := founders[2*fam], founders[2*fam+1]
		kids, err := b.MateN(dam, sire, 2)
		if err != nil {
			return res, err
		}
		mice = append(mice, dam, sire, kids[0], kids[1])
	}

	grm, err := sim.ComputeGRM(sim.GenotypeMatrix(mice))
	if err != nil {
		return res, err
	}

	var unrelated, parentOffspring, sibs, self []float64
	for fam := 0; fam < cfg.GRMFamilies; fam++ {
		i := 4 * fam
		dam, sire, k1, k2 := i, i+1, i+2, i+3
		unrelated = append(unrelated, grm.At(dam, sire))
		for _, parent := range []int{dam, sire} {
			parentOffspring = append(parentOffspring, grm.At(parent, k1), grm.At(parent, k2))
		}
		sibs = append(sibs, grm.At(k1, k2))
		for _, j := range []int{dam, sire, k1, k2} {
			self = append(self, grm.At(j, j))
		}
	}

	checks := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"unrelated", stat.Mean(unrelated, nil), 0},
		{"parent_offspring", stat.Mean(parentOffspring, nil), 0.5},
		{"full_sibs", stat.Mean(sibs, nil), 0.5},
		{"self", stat.Mean(self, nil), 1},
	}
	res.Passed = true
	for _, c := range checks {
		dev := math.Abs(c.got - c.expected)
		res.Metrics[c.name] = c.got
		res.Metrics[c.name+"_deviation"] = dev
		if dev > GRMTolerance {
			res.Passed = false
			res.notef("%s: mean G %.3f, expected %.1f ± %.2f", c.name, c.got, c.expected, GRMTolerance)
		}
	}
	res.Metrics["families"] = float64(cfg.GRMFamilies)
	res.Metrics["markers"] = float64(cfg.Genome.TotalMarkers())
	return res, nil
}

package validation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/breeding-sim/breeding-sim/sim"
)

// MinInbreedingCorrelation is the pass threshold of corr(F_ped, F_gen).
const MinInbreedingCorrelation = 0.85

// InbreedingCorrelation runs independent full-sib mating lines for 0 to
// InbreedingMaxGenerations generations, then correlates the pedigree
// inbreeding coefficient of each line's final mouse with its genomic
// inbreeding G_ii − 1 computed over all final mice.
func InbreedingCorrelation(cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	res := newResult(MethodInbreeding)
	f := newFixture(cfg.Seed)

	genome := cfg.Genome
	genome.Chromosomes = cfg.InbreedingChromosomes
	founders := f.founders(genome, 2*cfg.InbreedingLines)
	b := f.breeder(genome, cfg.Breeding)
	ped := sim.NewPedigree()
	ped.Register(founders...)

	finals := make([]*sim.Mouse, cfg.InbreedingLines)
	for line := range finals {
		dam, sire := founders[2*line], founders[2*line+1]
		generations := line % (cfg.InbreedingMaxGenerations + 1)
		for g := 0; g < generations; g++ {
			kids, err := b.MateN(dam, sire, 2)
			if err != nil {
				return res, err
			}
			ped.Register(kids...)
			dam, sire = kids[0], kids[1]
		}
		finals[line] = dam
	}

	grm, err := sim.ComputeGRM(sim.GenotypeMatrix(finals))
	if err != nil {
		return res, err
	}
	fGen := grm.GenomicInbreeding()
	fPed := make([]float64, len(finals))
	for i, m := range finals {
		fPed[i] = ped.Inbreeding(m)
	}

	r := stat.Correlation(fPed, fGen, nil)
	if math.IsNaN(r) {
		r = 0
		res.notef("no variance in inbreeding coefficients")
	}
	res.Metrics["lines"] = float64(len(finals))
	res.Metrics["markers"] = float64(genome.TotalMarkers())
	res.Metrics["mean_f_pedigree"] = stat.Mean(fPed, nil)
	res.Metrics["mean_f_genomic"] = stat.Mean(fGen, nil)
	res.Metrics["correlation"] = r
	res.Passed = r > MinInbreedingCorrelation
	return res, nil
}

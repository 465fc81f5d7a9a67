package validation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/breeding-sim/breeding-sim/sim"
)

// HeritabilityTolerance is the allowed relative error of realized h².
const HeritabilityTolerance = 0.15

// RealizedHeritability selects the top fraction of a founder population by
// trait value (fixed effects removed), breeds random pairs of the selected
// parents and estimates h² = R/S from the response R of the offspring mean
// and the selection differential S. Offspring traits reuse the founders'
// marker effects and are standardized against the founder population.
func RealizedHeritability(cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	res := newResult(MethodHeritability)
	f := newFixture(cfg.Seed)

	base := f.founders(cfg.Genome, cfg.HeritabilityFounders)
	model := sim.NewTraitModel(f.rng.ForSubsystem(sim.SubsystemEffects), cfg.Genome.TotalMarkers(), cfg.Trait)
	traitRNG := f.rng.ForSubsystem(sim.SubsystemTraits)
	model.Assign(base, traitRNG)

	ranked := append([]*sim.Mouse(nil), base...)
	sort.SliceStable(ranked, func(i, j int) bool { return model.Adjusted(ranked[i]) > model.Adjusted(ranked[j]) })
	n := int(float64(len(ranked)) * cfg.HeritabilitySelected)
	if n < 2 {
		n = 2
	}
	if n > len(ranked) {
		return res, sim.ComputationError("heritability: %d founders cannot supply %d parents", len(ranked), n)
	}
	selected := ranked[:n]

	meanBase := meanAdjusted(model, base)
	s := meanAdjusted(model, selected) - meanBase

	selRNG := f.rng.ForSubsystem(sim.SubsystemSelection)
	selRNG.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	b := f.breeder(cfg.Genome, cfg.Breeding)
	var offspring []*sim.Mouse
	for i := 0; i+1 < len(selected); i += 2 {
		litter, err := b.Mate(selected[i], selected[i+1])
		if err != nil {
			return res, err
		}
		offspring = append(offspring, litter...)
	}
	model.AssignRelativeTo(offspring, base, traitRNG)
	r := meanAdjusted(model, offspring) - meanBase

	res.Metrics["founders"] = float64(len(base))
	res.Metrics["selected"] = float64(n)
	res.Metrics["offspring"] = float64(len(offspring))
	res.Metrics["selection_differential"] = s
	res.Metrics["response"] = r
	res.Metrics["h2_target"] = cfg.Trait.Heritability
	if s <= 0 {
		res.notef("no selection differential")
		return res, nil
	}
	h2 := r / s
	relErr := math.Abs(h2-cfg.Trait.Heritability) / cfg.Trait.Heritability
	res.Metrics["h2_realized"] = h2
	res.Metrics["relative_error"] = relErr
	res.Passed = relErr <= HeritabilityTolerance
	return res, nil
}

func meanAdjusted(model *sim.TraitModel, mice []*sim.Mouse) float64 {
	if len(mice) == 0 {
		return 0
	}
	v := make([]float64, len(mice))
	for i, m := range mice {
		v[i] = model.Adjusted(m)
	}
	return stat.Mean(v, nil)
}

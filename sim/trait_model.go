package sim

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// TraitModel is the polygenic quantitative trait of a population:
//
//	y = intercept + sizeEffect·[size = large] + u_std + e
//
// where u = Σ_j g_j β_j is standardized to unit variance over a reference
// roster and e ~ N(0, (1−h²)/h²). The marker effects β are drawn once.
type TraitModel struct {
	cfg     TraitConfig
	Effects []float64
}

// NewTraitModel draws one effect β_j ~ N(0, EffectSD²) per marker.
func NewTraitModel(rng *rand.Rand, markers int, cfg TraitConfig) *TraitModel {
	effects := make([]float64, markers)
	for j := range effects {
		effects[j] = rng.NormFloat64() * cfg.EffectSD
	}
	return &TraitModel{cfg: cfg, Effects: effects}
}

// Config returns the model parameters.
func (t *TraitModel) Config() TraitConfig {
	return t.cfg
}

// GeneticValue returns the raw breeding value u = Σ g_j β_j. Markers beyond
// the effect vector contribute nothing.
func (t *TraitModel) GeneticValue(m *Mouse) float64 {
	u := 0.0
	for j, gt := range m.SNPGenotypes() {
		if j >= len(t.Effects) {
			break
		}
		u += float64(gt) * t.Effects[j]
	}
	return u
}

// FixedEffect returns intercept plus the size effect when the mouse is large.
func (t *TraitModel) FixedEffect(m *Mouse) float64 {
	v := t.cfg.Intercept
	if m.Phenotype[TraitSize] == "large" {
		v += t.cfg.SizeEffect
	}
	return v
}

// Adjusted returns the trait value with the fixed effects removed, or 0 when
// no trait is assigned.
func (t *TraitModel) Adjusted(m *Mouse) float64 {
	y, ok := m.Trait()
	if !ok {
		return 0
	}
	return y - t.FixedEffect(m)
}

// Assign sets the trait of every mouse, standardizing genetic values over mice.
func (t *TraitModel) Assign(mice []*Mouse, rng *rand.Rand) {
	t.AssignRelativeTo(mice, mice, rng)
}

// AssignRelativeTo sets the trait of every mouse in mice, standardizing
// genetic values with the mean and SD of reference. A zero-variance
// reference centers without scaling.
func (t *TraitModel) AssignRelativeTo(mice, reference []*Mouse, rng *rand.Rand) {
	if len(mice) == 0 {
		return
	}
	mean, sd := t.standardizer(reference)
	sigmaE := math.Sqrt(t.cfg.EnvironmentalVariance())
	for _, m := range mice {
		u := t.GeneticValue(m) - mean
		if sd > 0 {
			u /= sd
		}
		m.SetTrait(t.FixedEffect(m) + u + rng.NormFloat64()*sigmaE)
	}
}

func (t *TraitModel) standardizer(reference []*Mouse) (mean, sd float64) {
	if len(reference) == 0 {
		return 0, 0
	}
	u := make([]float64, len(reference))
	for i, m := range reference {
		u[i] = t.GeneticValue(m)
	}
	mean, variance := stat.PopMeanVariance(u, nil)
	if variance <= 0 {
		return mean, 0
	}
	return mean, math.Sqrt(variance)
}

package sim

import (
	"fmt"
	"math"
)

// GenomeConfig groups marker-map parameters shared by every genome in a run.
type GenomeConfig struct {
	Chromosomes          int     `yaml:"chromosomes"`            // number of chromosomes (≥1, default 2)
	MarkersPerChromosome int     `yaml:"markers_per_chromosome"` // SNP markers per chromosome (≥0, default 100)
	ChromosomeLengthCM   float64 `yaml:"chromosome_length_cm"`   // genetic length; expected crossovers = cM/100 (default 100)
	FounderFreqMin       float64 `yaml:"founder_freq_min"`       // lower bound of founder allele frequency draw (default 0.05)
	FounderFreqMax       float64 `yaml:"founder_freq_max"`       // upper bound of founder allele frequency draw (default 0.5)
}

// DefaultGenomeConfig returns 2 chromosomes × 100 markers of 100 cM.
func DefaultGenomeConfig() GenomeConfig {
	return GenomeConfig{
		Chromosomes:          2,
		MarkersPerChromosome: 100,
		ChromosomeLengthCM:   100,
		FounderFreqMin:       0.05,
		FounderFreqMax:       0.5,
	}
}

// TotalMarkers returns the SNP vector length of a genome.
func (c GenomeConfig) TotalMarkers() int {
	return c.Chromosomes * c.MarkersPerChromosome
}

// Validate returns an error describing the first invalid field.
func (c GenomeConfig) Validate() error {
	if c.Chromosomes < 1 {
		return fmt.Errorf("genome: chromosomes must be >= 1, got %d", c.Chromosomes)
	}
	if c.MarkersPerChromosome < 0 {
		return fmt.Errorf("genome: markers_per_chromosome must be >= 0, got %d", c.MarkersPerChromosome)
	}
	if err := validateFiniteNonNegative("genome: chromosome_length_cm", c.ChromosomeLengthCM); err != nil {
		return err
	}
	if err := validateProbability("genome: founder_freq_min", c.FounderFreqMin); err != nil {
		return err
	}
	if err := validateProbability("genome: founder_freq_max", c.FounderFreqMax); err != nil {
		return err
	}
	if c.FounderFreqMin > c.FounderFreqMax {
		return fmt.Errorf("genome: founder_freq_min %g exceeds founder_freq_max %g", c.FounderFreqMin, c.FounderFreqMax)
	}
	return nil
}

// BreedingConfig groups mutation and litter parameters of the mate algorithm.
type BreedingConfig struct {
	SNPMutationRate   float64 `yaml:"snp_mutation_rate"`   // per-marker flip probability (default 0.001)
	TraitMutationRate float64 `yaml:"trait_mutation_rate"` // per-allele flip probability (default 0.01)
	LitterMin         int     `yaml:"litter_min"`          // inclusive (default 4)
	LitterMax         int     `yaml:"litter_max"`          // inclusive (default 6)
}

// DefaultBreedingConfig returns the standard mutation rates and a 4–6 litter.
func DefaultBreedingConfig() BreedingConfig {
	return BreedingConfig{
		SNPMutationRate:   0.001,
		TraitMutationRate: 0.01,
		LitterMin:         4,
		LitterMax:         6,
	}
}

// Validate returns an error describing the first invalid field.
func (c BreedingConfig) Validate() error {
	if err := validateProbability("breeding: snp_mutation_rate", c.SNPMutationRate); err != nil {
		return err
	}
	if err := validateProbability("breeding: trait_mutation_rate", c.TraitMutationRate); err != nil {
		return err
	}
	if c.LitterMin < 1 {
		return fmt.Errorf("breeding: litter_min must be >= 1, got %d", c.LitterMin)
	}
	if c.LitterMax < c.LitterMin {
		return fmt.Errorf("breeding: litter_max %d is below litter_min %d", c.LitterMax, c.LitterMin)
	}
	return nil
}

// TraitConfig groups the quantitative trait model parameters.
type TraitConfig struct {
	Heritability float64 `yaml:"heritability"` // target narrow-sense h² in (0, 1] (default 0.4)
	Intercept    float64 `yaml:"intercept"`    // baseline trait value (default 100)
	SizeEffect   float64 `yaml:"size_effect"`  // fixed effect added for size=large (default 5)
	EffectSD     float64 `yaml:"effect_sd"`    // SD of per-marker effect draws (default 0.1)
}

// DefaultTraitConfig returns h² = 0.4 around a baseline of 100.
func DefaultTraitConfig() TraitConfig {
	return TraitConfig{
		Heritability: 0.4,
		Intercept:    100,
		SizeEffect:   5,
		EffectSD:     0.1,
	}
}

// Validate returns an error describing the first invalid field.
func (c TraitConfig) Validate() error {
	if math.IsNaN(c.Heritability) || c.Heritability <= 0 || c.Heritability > 1 {
		return fmt.Errorf("trait: heritability must be in (0, 1], got %g", c.Heritability)
	}
	if math.IsNaN(c.Intercept) || math.IsInf(c.Intercept, 0) {
		return fmt.Errorf("trait: intercept must be finite, got %g", c.Intercept)
	}
	if math.IsNaN(c.SizeEffect) || math.IsInf(c.SizeEffect, 0) {
		return fmt.Errorf("trait: size_effect must be finite, got %g", c.SizeEffect)
	}
	return validateFiniteNonNegative("trait: effect_sd", c.EffectSD)
}

// EnvironmentalVariance returns σ²_e = (1−h²)/h² for a unit genetic variance.
func (c TraitConfig) EnvironmentalVariance() float64 {
	return (1 - c.Heritability) / c.Heritability
}

func validateProbability(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %g", name, v)
	}
	return nil
}

func validateFiniteNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s must be a finite non-negative number, got %g", name, v)
	}
	return nil
}

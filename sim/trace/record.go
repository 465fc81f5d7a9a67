// Package trace provides mating-decision recording for breeding analysis.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// MatingRecord captures one breeding pair chosen by a selection strategy.
type MatingRecord struct {
	Generation  int     `json:"generation" yaml:"generation"` // generation the offspring belong to
	Strategy    string  `json:"strategy" yaml:"strategy"`
	Parent1     int64   `json:"parent1" yaml:"parent1"`
	Parent2     int64   `json:"parent2" yaml:"parent2"`
	Relatedness float64 `json:"relatedness" yaml:"relatedness"`           // additive relationship 2φ of the parents
	LitterSize  int     `json:"litter_size" yaml:"litter_size"`           // 0 when breeding failed
	Reason      string  `json:"reason,omitempty" yaml:"reason,omitempty"` // non-empty when breeding failed
}

// CullRecord captures a post-breeding cull.
type CullRecord struct {
	Generation int     `json:"generation" yaml:"generation"`
	Before     int     `json:"before" yaml:"before"`
	After      int     `json:"after" yaml:"after"`
	CullRate   float64 `json:"cull_rate" yaml:"cull_rate"`
}

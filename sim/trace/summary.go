package trace

// TraceSummary aggregates statistics from a MatingTrace.
type TraceSummary struct {
	TotalMatings           int         `json:"total_matings" yaml:"total_matings"`
	FailedMatings          int         `json:"failed_matings" yaml:"failed_matings"`
	TotalOffspring         int         `json:"total_offspring" yaml:"total_offspring"`
	MeanRelatedness        float64     `json:"mean_relatedness" yaml:"mean_relatedness"`
	MaxRelatedness         float64     `json:"max_relatedness" yaml:"max_relatedness"`
	UniqueParents          int         `json:"unique_parents" yaml:"unique_parents"`
	OffspringPerGeneration map[int]int `json:"offspring_per_generation" yaml:"offspring_per_generation"` // generation → offspring bred
	TotalCulled            int         `json:"total_culled" yaml:"total_culled"`
}

// Summarize computes aggregate statistics from a MatingTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(mt *MatingTrace) *TraceSummary {
	summary := &TraceSummary{
		OffspringPerGeneration: make(map[int]int),
	}
	if mt == nil {
		return summary
	}

	parents := make(map[int64]bool)
	if len(mt.Matings) > 0 {
		totalRel := 0.0
		for _, m := range mt.Matings {
			summary.TotalMatings++
			if m.Reason != "" {
				summary.FailedMatings++
			}
			summary.TotalOffspring += m.LitterSize
			summary.OffspringPerGeneration[m.Generation] += m.LitterSize
			parents[m.Parent1] = true
			parents[m.Parent2] = true
			totalRel += m.Relatedness
			if m.Relatedness > summary.MaxRelatedness {
				summary.MaxRelatedness = m.Relatedness
			}
		}
		summary.MeanRelatedness = totalRel / float64(len(mt.Matings))
	}
	summary.UniqueParents = len(parents)

	for _, c := range mt.Culls {
		summary.TotalCulled += c.Before - c.After
	}
	return summary
}

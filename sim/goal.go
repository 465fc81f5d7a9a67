package sim

import (
	"fmt"
	"sort"
	"strings"
)

// Goal maps trait name to the desired phenotype label.
type Goal map[string]string

// Goal presets.
const (
	GoalAllWhite          = "all_white"
	GoalLargeFriendly     = "large_friendly"
	GoalDumboEars         = "dumbo_ears"
	GoalMaximizeDiversity = "maximize_diversity"

	// DefaultGoalPreset is used when no preset is named.
	DefaultGoalPreset = GoalLargeFriendly
)

var goalPresets = map[string]Goal{
	GoalAllWhite: {
		TraitCoatColor:   "white",
		TraitSize:        "large",
		TraitEarShape:    "normal",
		TraitTemperament: "friendly",
	},
	GoalLargeFriendly: {
		TraitSize:        "large",
		TraitTemperament: "friendly",
	},
	GoalDumboEars: {
		TraitEarShape:    "dumbo",
		TraitTemperament: "friendly",
	},
	GoalMaximizeDiversity: {},
}

// GoalPreset returns a copy of the named preset. Names are case-insensitive;
// "" selects DefaultGoalPreset.
func GoalPreset(name string) (Goal, bool) {
	if name == "" {
		name = DefaultGoalPreset
	}
	g, ok := goalPresets[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// GoalPresetNames returns the preset names, sorted.
func GoalPresetNames() []string {
	names := make([]string, 0, len(goalPresets))
	for n := range goalPresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of the goal.
func (g Goal) Clone() Goal {
	out := make(Goal, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Validate requires every key to name a Mendelian trait and every value to
// be non-empty. Values are not restricted to the simulated labels since real
// strain gene models introduce their own coat colors.
func (g Goal) Validate() error {
	for _, trait := range g.traits() {
		if !IsValidTrait(trait) {
			return fmt.Errorf("goal: unknown trait %q; valid: %s", trait, strings.Join(TraitNames(), ", "))
		}
		if g[trait] == "" {
			return fmt.Errorf("goal: empty value for trait %q", trait)
		}
	}
	return nil
}

// Fitness returns the percentage of goal traits the phenotype matches, 0–100.
// An empty goal scores 100.
func (g Goal) Fitness(p Phenotype) float64 {
	if len(g) == 0 {
		return 100
	}
	matches := 0
	for trait, want := range g {
		if p[trait] == want {
			matches++
		}
	}
	return float64(matches) / float64(len(g)) * 100
}

func (g Goal) traits() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g Goal) String() string {
	if len(g) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(g))
	for _, k := range g.traits() {
		parts = append(parts, k+"="+g[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

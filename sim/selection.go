package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// Pair is one breeding pair chosen by a selection strategy.
type Pair struct {
	First  *Mouse
	Second *Mouse
}

// PairingState is the view of a population a strategy decides on.
type PairingState struct {
	Roster   []*Mouse
	Goal     Goal
	Pedigree *Pedigree // nil means every pair is unrelated
	RNG      *rand.Rand
}

// SelectionStrategy chooses breeding pairs from a roster. Rosters with fewer
// than two members produce no pairs. Strategies must not modify the roster.
type SelectionStrategy interface {
	Name() string
	Pairs(state *PairingState) []Pair
}

// RandomPairing shuffles the roster and pairs consecutive members; an odd
// member out is left unpaired.
type RandomPairing struct{}

// Name implements SelectionStrategy.
func (RandomPairing) Name() string { return "random" }

// Pairs implements SelectionStrategy for RandomPairing.
func (RandomPairing) Pairs(state *PairingState) []Pair {
	if len(state.Roster) < 2 {
		return nil
	}
	shuffled := append([]*Mouse(nil), state.Roster...)
	state.RNG.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return consecutivePairs(shuffled)
}

// FitnessPairing ranks the roster by goal fitness (stable, descending) and
// pairs consecutive members of the top TopN, or of the top half (at least
// two) when TopN is zero.
type FitnessPairing struct {
	TopN int
}

// Name implements SelectionStrategy.
func (FitnessPairing) Name() string { return "fitness" }

// Pairs implements SelectionStrategy for FitnessPairing.
func (f FitnessPairing) Pairs(state *PairingState) []Pair {
	if len(state.Roster) < 2 {
		return nil
	}
	ranked := RankByFitness(state.Roster, state.Goal)
	n := f.TopN
	if n <= 0 {
		n = len(ranked) / 2
		if n < 2 {
			n = 2
		}
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return consecutivePairs(ranked[:n])
}

// DiversePairing takes the first unpaired member and pairs it with the
// least-related remaining member (first occurrence on ties), repeating until
// fewer than two members remain.
type DiversePairing struct{}

// Name implements SelectionStrategy.
func (DiversePairing) Name() string { return "diverse" }

// Pairs implements SelectionStrategy for DiversePairing.
func (DiversePairing) Pairs(state *PairingState) []Pair {
	if len(state.Roster) < 2 {
		return nil
	}
	remaining := append([]*Mouse(nil), state.Roster...)
	var pairs []Pair
	for len(remaining) >= 2 {
		first := remaining[0]
		best := 1
		bestRel := relatedness(state.Pedigree, first, remaining[1])
		for i := 2; i < len(remaining); i++ {
			if r := relatedness(state.Pedigree, first, remaining[i]); r < bestRel {
				best, bestRel = i, r
			}
		}
		pairs = append(pairs, Pair{First: first, Second: remaining[best]})
		remaining = append(remaining[1:best], remaining[best+1:]...)
	}
	return pairs
}

func relatedness(p *Pedigree, a, b *Mouse) float64 {
	if p == nil {
		return 0
	}
	return p.Relatedness(a, b)
}

func consecutivePairs(mice []*Mouse) []Pair {
	pairs := make([]Pair, 0, len(mice)/2)
	for i := 0; i+1 < len(mice); i += 2 {
		pairs = append(pairs, Pair{First: mice[i], Second: mice[i+1]})
	}
	return pairs
}

// RankByFitness returns a copy of mice sorted by descending goal fitness.
// Equal fitness keeps roster order.
func RankByFitness(mice []*Mouse, goal Goal) []*Mouse {
	type scored struct {
		m *Mouse
		f float64
	}
	s := make([]scored, len(mice))
	for i, m := range mice {
		s[i] = scored{m: m, f: m.Fitness(goal)}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].f > s[j].f })
	out := make([]*Mouse, len(s))
	for i := range s {
		out[i] = s[i].m
	}
	return out
}

// ValidStrategies is the set of recognized selection strategy names.
// "" selects the default, fitness.
var ValidStrategies = map[string]bool{"": true, "random": true, "fitness": true, "diverse": true}

// DefaultStrategy is used when no strategy is named.
const DefaultStrategy = "fitness"

// IsValidStrategy returns true if name is a recognized selection strategy.
func IsValidStrategy(name string) bool {
	return ValidStrategies[name]
}

// ValidStrategyNames returns the named strategies, sorted.
func ValidStrategyNames() []string {
	names := make([]string, 0, len(ValidStrategies))
	for n := range ValidStrategies {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// NewSelectionStrategy creates a strategy by name. topN bounds the fitness
// strategy (0 means top half). Panics on unrecognized names; callers validate
// with IsValidStrategy first.
func NewSelectionStrategy(name string, topN int) SelectionStrategy {
	if !IsValidStrategy(name) {
		panic(fmt.Sprintf("unknown selection strategy %q", name))
	}
	switch name {
	case "", "fitness":
		return FitnessPairing{TopN: topN}
	case "random":
		return RandomPairing{}
	case "diverse":
		return DiversePairing{}
	default:
		panic(fmt.Sprintf("unhandled selection strategy %q", name))
	}
}

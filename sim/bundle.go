package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/breeding-sim/breeding-sim/sim/trace"
)

// Bundle holds the run configuration loadable from a YAML file. Sections
// absent from the file keep their defaults.
type Bundle struct {
	Seed      int64             `yaml:"seed"` // overridden by --seed when set
	Genome    GenomeConfig      `yaml:"genome"`
	Breeding  BreedingConfig    `yaml:"breeding"`
	Trait     TraitConfig       `yaml:"trait"`
	Selection SelectionConfig   `yaml:"selection"`
	Goals     map[string]Goal   `yaml:"goals"` // custom goals, looked up before the presets
	Trace     trace.TraceConfig `yaml:"trace"`
}

// SelectionConfig holds the advancement policy of a run.
type SelectionConfig struct {
	Strategy string  `yaml:"strategy"`  // "random", "fitness" (default) or "diverse"
	TopN     int     `yaml:"top_n"`     // fitness strategy pair pool, 0 = top half
	CullRate float64 `yaml:"cull_rate"` // fraction culled after each generation

	// VictoryThreshold is the percentage of the roster that must match the goal.
	VictoryThreshold float64 `yaml:"victory_threshold"`
}

// DefaultVictoryThreshold is the default SelectionConfig.VictoryThreshold.
const DefaultVictoryThreshold = 90.0

// DefaultSeed is the seed of DefaultBundle.
const DefaultSeed = 42

// DefaultBundle returns the default configuration of every section.
func DefaultBundle() Bundle {
	return Bundle{
		Seed:      DefaultSeed,
		Genome:    DefaultGenomeConfig(),
		Breeding:  DefaultBreedingConfig(),
		Trait:     DefaultTraitConfig(),
		Selection: SelectionConfig{Strategy: DefaultStrategy, VictoryThreshold: DefaultVictoryThreshold},
	}
}

// LoadBundle reads a YAML configuration over DefaultBundle. Unknown keys are
// rejected. The result is validated.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseBundle(data)
}

// ParseBundle decodes YAML bytes over DefaultBundle and validates the result.
func ParseBundle(data []byte) (*Bundle, error) {
	b := DefaultBundle()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate returns an error describing the first invalid field.
func (b *Bundle) Validate() error {
	if err := b.Genome.Validate(); err != nil {
		return err
	}
	if err := b.Breeding.Validate(); err != nil {
		return err
	}
	if err := b.Trait.Validate(); err != nil {
		return err
	}
	if !IsValidStrategy(b.Selection.Strategy) {
		return fmt.Errorf("selection: unknown strategy %q; valid: %s", b.Selection.Strategy, strings.Join(ValidStrategyNames(), ", "))
	}
	if b.Selection.TopN < 0 {
		return fmt.Errorf("selection: top_n must be >= 0, got %d", b.Selection.TopN)
	}
	if c := b.Selection.CullRate; math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("selection: cull_rate must be in [0, 1], got %g", c)
	}
	if v := b.Selection.VictoryThreshold; math.IsNaN(v) || v <= 0 || v > 100 {
		return fmt.Errorf("selection: victory_threshold must be in (0, 100], got %g", v)
	}
	if !trace.IsValidTraceLevel(string(b.Trace.Level)) {
		return fmt.Errorf("trace: unknown level %q", b.Trace.Level)
	}
	for name, g := range b.Goals {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("goals[%s]: %w", name, err)
		}
	}
	return nil
}

// Goal resolves a goal name against the custom goals, then the presets.
func (b *Bundle) Goal(name string) (Goal, bool) {
	if g, ok := b.Goals[name]; ok {
		return g.Clone(), true
	}
	return GoalPreset(name)
}

// PopulationConfig builds a simulated-founder population configuration.
func (b *Bundle) PopulationConfig(size int, goal Goal) PopulationConfig {
	return PopulationConfig{
		Size:     size,
		Goal:     goal,
		Genome:   b.Genome,
		Breeding: b.Breeding,
		Trait:    b.Trait,
		Founders: SimulatedFounders{},
		TopN:     b.Selection.TopN,
		Trace:    b.Trace,
	}
}

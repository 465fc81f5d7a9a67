package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalPreset(t *testing.T) {
	g, ok := GoalPreset("")
	require.True(t, ok)
	assert.Equal(t, Goal{TraitSize: "large", TraitTemperament: "friendly"}, g)

	g, ok = GoalPreset("DUMBO_EARS")
	require.True(t, ok)
	assert.Equal(t, "dumbo", g[TraitEarShape])

	g, ok = GoalPreset(GoalMaximizeDiversity)
	require.True(t, ok)
	assert.Empty(t, g)

	_, ok = GoalPreset("purple")
	assert.False(t, ok)

	assert.Equal(t, []string{"all_white", "dumbo_ears", "large_friendly", "maximize_diversity"}, GoalPresetNames())
}

func TestGoalPreset_ReturnsCopy(t *testing.T) {
	g, _ := GoalPreset(GoalAllWhite)
	g[TraitCoatColor] = "black"

	again, _ := GoalPreset(GoalAllWhite)
	assert.Equal(t, "white", again[TraitCoatColor])
}

func TestGoal_Validate(t *testing.T) {
	tests := []struct {
		name    string
		goal    Goal
		wantErr bool
	}{
		{"empty", Goal{}, false},
		{"known traits", Goal{TraitCoatColor: "brown", TraitSize: "small"}, false},
		{"unknown trait", Goal{"tail": "long"}, true},
		{"empty value", Goal{TraitSize: ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.goal.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGoal_FitnessAndString(t *testing.T) {
	goal := Goal{TraitSize: "large", TraitEarShape: "dumbo", TraitTemperament: "friendly", TraitCoatColor: "white"}
	p := Phenotype{TraitSize: "large", TraitEarShape: "normal", TraitTemperament: "friendly", TraitCoatColor: "black"}

	assert.Equal(t, 50.0, goal.Fitness(p))
	assert.Equal(t, 100.0, Goal{}.Fitness(p))
	assert.Equal(t, "{size=large, temperament=friendly}", Goal{TraitTemperament: "friendly", TraitSize: "large"}.String())
	assert.Equal(t, "{}", Goal{}.String())
}

func TestTraitLocus(t *testing.T) {
	ears := TraitLoci[2]
	assert.Equal(t, "normal", ears.Express(AllelePair{'D', 'N'}))
	assert.Equal(t, "dumbo", ears.Express(AllelePair{'D', 'D'}))
	assert.Equal(t, byte('N'), ears.Opposite('D'))
	assert.Equal(t, byte('D'), ears.Opposite('N'))
	assert.Equal(t, "ND", ears.Format(AllelePair{'D', 'N'}))
	assert.Equal(t, "DN", AllelePair{'D', 'N'}.String())
	assert.True(t, AllelePair{'D', 'N'}.Has('N'))
	assert.Equal(t, []string{"normal", "dumbo"}, ears.Labels())

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		p := ears.RandomPair(rng)
		assert.True(t, p[0] == 'N' || p[0] == 'D')
	}

	i, ok := TraitIndex(TraitTemperament)
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	assert.False(t, IsValidTrait("tail"))
	assert.Equal(t, []string{"coat_color", "size", "ear_shape", "temperament"}, TraitNames())
}

func TestMouse_Basics(t *testing.T) {
	ids := NewIDAllocator(10)
	m := uniformMouse(ids, smallGenomeConfig(), lociOf("bb", "LL", "NN", "FF"), 0, 0)

	assert.Equal(t, int64(10), m.ID)
	assert.Equal(t, int64(11), ids.Peek())
	assert.True(t, m.IsFounder())
	assert.Equal(t, "Mouse#10(gen 0, founder, Coat:bb Size:LL Ears:NN Temp:FF)", m.String())

	_, ok := m.Trait()
	assert.False(t, ok)
	m.SetTrait(3.5)
	v, ok := m.Trait()
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	allWhite, _ := GoalPreset(GoalAllWhite)
	assert.Equal(t, 100.0, m.Fitness(allWhite))

	child := &Mouse{ID: 12, Generation: 1, Parents: &ParentPair{First: 10, Second: 11}, Genome: m.Genome}
	assert.Equal(t, "Mouse#12(gen 1, 10×11, Coat:bb Size:LL Ears:NN Temp:FF)", child.String())
}

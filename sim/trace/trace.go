package trace

// TraceLevel controls the verbosity of mating tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelMatings captures every breeding pair and cull.
	TraceLevelMatings TraceLevel = "matings"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelMatings: true,
	"":                true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel `yaml:"level"`
}

// MatingTrace collects per-generation mating decisions of a population.
type MatingTrace struct {
	Config  TraceConfig
	Matings []MatingRecord
	Culls   []CullRecord
}

// NewMatingTrace creates a MatingTrace ready for recording.
func NewMatingTrace(config TraceConfig) *MatingTrace {
	return &MatingTrace{
		Config:  config,
		Matings: make([]MatingRecord, 0),
		Culls:   make([]CullRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on nil.
func (mt *MatingTrace) Enabled() bool {
	return mt != nil && mt.Config.Level == TraceLevelMatings
}

// RecordMating appends a mating record.
func (mt *MatingTrace) RecordMating(record MatingRecord) {
	mt.Matings = append(mt.Matings, record)
}

// RecordCull appends a cull record.
func (mt *MatingTrace) RecordCull(record CullRecord) {
	mt.Culls = append(mt.Culls, record)
}

package report

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/breeding-sim/breeding-sim/sim"
	"github.com/breeding-sim/breeding-sim/sim/trace"
	"github.com/breeding-sim/breeding-sim/sim/validation"
)

// History is the exported record of one run.
type History struct {
	Seed       int64                `json:"seed" yaml:"seed"`
	Goal       string               `json:"goal" yaml:"goal"`
	Strategy   string               `json:"strategy" yaml:"strategy"`
	CullRate   float64              `json:"cull_rate" yaml:"cull_rate"`
	Victory    bool                 `json:"victory" yaml:"victory"`
	Snapshots  []sim.Snapshot       `json:"snapshots" yaml:"snapshots"`
	Trace      *trace.TraceSummary  `json:"trace,omitempty" yaml:"trace,omitempty"`
	Matings    []trace.MatingRecord `json:"matings,omitempty" yaml:"matings,omitempty"`
	Validation *validation.Report   `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// NewHistory collects the exportable state of a finished population run.
func NewHistory(seed int64, pop *sim.Population, strategy string, cullRate float64, victory bool) History {
	h := History{
		Seed:      seed,
		Goal:      pop.Goal.String(),
		Strategy:  strategy,
		CullRate:  cullRate,
		Victory:   victory,
		Snapshots: append([]sim.Snapshot(nil), pop.History...),
	}
	if mt := pop.Trace(); mt.Enabled() {
		h.Trace = trace.Summarize(mt)
		h.Matings = append([]trace.MatingRecord(nil), mt.Matings...)
	}
	return h
}

// ExportHistory writes name.yaml and name.json to the sink.
func ExportHistory(ctx context.Context, sink Sink, name string, h History) error {
	y, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history yaml: %w", err)
	}
	if err := sink.Put(ctx, name+".yaml", "application/yaml", y); err != nil {
		return err
	}
	j, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history json: %w", err)
	}
	return sink.Put(ctx, name+".json", "application/json", j)
}

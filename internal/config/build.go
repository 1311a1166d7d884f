package config

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/formflow/internal/integrity"
	"github.com/gyaneshwarpardhi/formflow/internal/metrics"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// Form is a built form: its repaired routing graph plus the repair report.
type Form struct {
	ID     string
	Title  string
	Graph  *workflow.Graph
	Repair *integrity.Result
}

// Build turns a validated form definition into a routing graph.
// All rule conditions are compiled here; nothing is parsed at routing time.
// Dangling references are pruned, rules lost to regenerated connection ids are
// re-attached, and cycles are flagged and logged but do not fail the build.
func Build(f FormDef) (*Form, error) {
	conns := make([]workflow.Connection, 0, len(f.Connections))
	for _, def := range f.Connections {
		c, err := def.Connection()
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", def.ID, err)
		}
		conns = append(conns, c)
	}

	res := integrity.Repair(f.Blocks, conns)
	if !res.Pruned.Empty() {
		slog.Info("form has dangling references",
			"form_id", f.ID, "connections_pruned", len(res.Pruned.Connections), "rules_pruned", len(res.Pruned.Rules))
	}
	cyclic := 0
	for _, comp := range res.Cycles {
		cyclic += len(comp)
		slog.Warn("form contains a cycle", "form_id", f.ID, "blocks", comp)
	}
	metrics.CyclicBlocks.WithLabelValues(f.ID).Set(float64(cyclic))

	return &Form{
		ID:     f.ID,
		Title:  f.Title,
		Graph:  workflow.NewGraph(f.Blocks, res.Connections),
		Repair: res,
	}, nil
}

// BuildAll builds every form in the config, in order.
func BuildAll(cfg *Config) ([]*Form, error) {
	forms := make([]*Form, 0, len(cfg.Forms))
	for _, def := range cfg.Forms {
		f, err := Build(def)
		if err != nil {
			return nil, fmt.Errorf("form %s: %w", def.ID, err)
		}
		forms = append(forms, f)
	}
	return forms, nil
}

package config

import (
	"fmt"

	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/logging"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// Config is the top-level YAML structure.
type Config struct {
	Version string         `yaml:"version"`
	Log     logging.Config `yaml:"log"`
	Engine  EngineConf     `yaml:"engine"`
	Forms   []FormDef      `yaml:"forms"`
}

// EngineConf holds tunable routing and simulation settings.
type EngineConf struct {
	SimulateWorkers int `yaml:"simulate_workers"`
	QueueDepth      int `yaml:"queue_depth"`
	MaxSteps        int `yaml:"max_steps"`
	TimeoutMs       int `yaml:"timeout_ms"`
	CacheTTLMs      int `yaml:"cache_ttl_ms"`
}

// FormDef is one form: its blocks and the connections between them.
type FormDef struct {
	ID          string           `yaml:"id"`
	Title       string           `yaml:"title"`
	Blocks      []workflow.Block `yaml:"blocks"`
	Connections []ConnectionDef  `yaml:"connections"`
}

// ConnectionDef is the outgoing routing of one source block.
type ConnectionDef struct {
	ID            string                 `yaml:"id"`
	Source        string                 `yaml:"source"`
	DefaultTarget *string                `yaml:"default_target"`
	ConditionType workflow.ConditionType `yaml:"condition_type"` // empty = conditional when rules are set
	OrderIndex    int                    `yaml:"order_index"`
	Rules         []RuleDef              `yaml:"rules"`
}

// RuleDef is one branch. Conditions are given either as a `when` shorthand
// expression or as an explicit list combined by `match` (all | any).
type RuleDef struct {
	ID         string                   `yaml:"id"`
	Target     string                   `yaml:"target"`
	When       string                   `yaml:"when,omitempty"`
	Match      string                   `yaml:"match,omitempty"`
	Conditions []workflow.ConditionRule `yaml:"conditions,omitempty"`
}

// Group compiles the rule's conditions. Conditions without an id get
// "<rule id>_c<n>".
func (r RuleDef) Group() (workflow.ConditionGroup, error) {
	var group workflow.ConditionGroup
	switch {
	case r.When != "" && len(r.Conditions) > 0:
		return group, fmt.Errorf("only one of when/conditions may be set")
	case r.When != "":
		g, err := condition.ParseGroup(r.When)
		if err != nil {
			return group, fmt.Errorf("parse %q: %w", r.When, err)
		}
		group = g
	default:
		op, err := matchOperator(r.Match)
		if err != nil {
			return group, err
		}
		group.LogicalOperator = op
		group.Conditions = make([]workflow.ConditionRule, len(r.Conditions))
		copy(group.Conditions, r.Conditions)
	}
	for i := range group.Conditions {
		if group.Conditions[i].ID == "" {
			group.Conditions[i].ID = fmt.Sprintf("%s_c%d", r.ID, i)
		}
	}
	return group, nil
}

func matchOperator(match string) (workflow.LogicalOperator, error) {
	switch match {
	case "", "all":
		return workflow.LogicalAnd, nil
	case "any":
		return workflow.LogicalOr, nil
	}
	return "", fmt.Errorf("match must be all or any, got %q", match)
}

// Connection converts the definition into a workflow connection.
func (c ConnectionDef) Connection() (workflow.Connection, error) {
	conn := workflow.Connection{
		ID:              c.ID,
		SourceID:        c.Source,
		DefaultTargetID: c.DefaultTarget,
		ConditionType:   c.ConditionType,
		OrderIndex:      c.OrderIndex,
	}
	if conn.ConditionType == "" {
		conn.ConditionType = workflow.ConditionAlways
		if len(c.Rules) > 0 {
			conn.ConditionType = workflow.ConditionConditional
		}
	}
	for _, r := range c.Rules {
		group, err := r.Group()
		if err != nil {
			return conn, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		conn.Rules = append(conn.Rules, workflow.Rule{ID: r.ID, TargetBlockID: r.Target, ConditionGroup: group})
	}
	return conn, nil
}

// Form returns the form with the given id.
func (c *Config) Form(id string) (*FormDef, bool) {
	for i := range c.Forms {
		if c.Forms[i].ID == id {
			return &c.Forms[i], true
		}
	}
	return nil, false
}

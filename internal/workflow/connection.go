package workflow

// ConditionType tells whether a connection routes through its rules.
type ConditionType string

const (
	ConditionAlways      ConditionType = "always"
	ConditionConditional ConditionType = "conditional"
)

// LogicalOperator combines the conditions of a group.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Operator is a comparison applied by a ConditionRule.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// ConditionRule is a single field/operator/value test against an answer.
// Value holds a string, float64 or bool; the field decides which one is expected.
type ConditionRule struct {
	ID       string      `json:"id" yaml:"id"`
	Field    string      `json:"field" yaml:"field"`
	Operator Operator    `json:"operator" yaml:"operator"`
	Value    interface{} `json:"value" yaml:"value"`
}

// ConditionGroup is a set of conditions combined with one logical operator.
type ConditionGroup struct {
	LogicalOperator LogicalOperator `json:"logical_operator" yaml:"logical_operator"`
	Conditions      []ConditionRule `json:"conditions" yaml:"conditions"`
}

// HasConditions reports whether the group has at least one condition.
func (g ConditionGroup) HasConditions() bool { return len(g.Conditions) > 0 }

// Rule is one conditional branch of a connection.
type Rule struct {
	ID             string         `json:"id"`
	TargetBlockID  string         `json:"target_block_id"`
	ConditionGroup ConditionGroup `json:"condition_group"`
}

// Connection is the outgoing routing decision attached to a source block.
// Rules are evaluated in slice order and the first match wins.
type Connection struct {
	ID              string
	SourceID        string
	DefaultTargetID *string
	Rules           []Rule
	ConditionType   ConditionType
	OrderIndex      int
}

// Unconditional reports whether the connection always routes to its default target.
func (c *Connection) Unconditional() bool {
	return c.ConditionType == ConditionAlways || len(c.Rules) == 0
}

// DefaultTarget returns the default target id, or "" when none is set.
func (c *Connection) DefaultTarget() string {
	if c.DefaultTargetID == nil {
		return ""
	}
	return *c.DefaultTargetID
}

// Targets returns every block id the connection can route to, default first.
func (c *Connection) Targets() []string {
	out := make([]string, 0, len(c.Rules)+1)
	if c.DefaultTargetID != nil {
		out = append(out, *c.DefaultTargetID)
	}
	for _, r := range c.Rules {
		out = append(out, r.TargetBlockID)
	}
	return out
}

// Clone returns a deep copy so callers can filter rules without touching the original.
func (c Connection) Clone() Connection {
	out := c
	if c.DefaultTargetID != nil {
		t := *c.DefaultTargetID
		out.DefaultTargetID = &t
	}
	out.Rules = CloneRules(c.Rules)
	return out
}

// CloneRules deep-copies a rule slice, including each group's conditions.
func CloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = r
		if r.ConditionGroup.Conditions != nil {
			conds := make([]ConditionRule, len(r.ConditionGroup.Conditions))
			copy(conds, r.ConditionGroup.Conditions)
			out[i].ConditionGroup.Conditions = conds
		}
	}
	return out
}

// StringPtr is a small helper for optional default targets.
func StringPtr(s string) *string { return &s }

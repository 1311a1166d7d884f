package workflow_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

const rulesJSON = `[{"id":"r1","target_block_id":"q3","condition_group":{"logical_operator":"OR","conditions":[{"id":"c1","field":"answer","operator":"equals","value":"yes"},{"id":"c2","field":"rating","operator":"greater_than","value":4}]}}]`

func TestDecodeRules(t *testing.T) {
	quoted, err := json.Marshal(rulesJSON)
	require.NoError(t, err)
	doubleQuoted, err := json.Marshal(string(quoted))
	require.NoError(t, err)

	tests := []struct {
		name      string
		raw       string
		wantRules int
	}{
		{"array", rulesJSON, 1},
		{"json string", string(quoted), 1},
		{"double encoded string", string(doubleQuoted), 1},
		{"empty", "", 0},
		{"null", "null", 0},
		{"empty string", `""`, 0},
		{"empty array", `[]`, 0},
		{"malformed", `"{not valid json"`, 0},
		{"malformed raw", `{not valid json`, 0},
		{"wrong shape", `{"id":"r1"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []workflow.Rule
			assert.NotPanics(t, func() {
				got = workflow.DecodeRules("c1", json.RawMessage(tt.raw))
			})
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantRules)
		})
	}
}

func TestDecodeRules_Content(t *testing.T) {
	got := workflow.DecodeRules("c1", json.RawMessage(rulesJSON))
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, "q3", r.TargetBlockID)
	assert.Equal(t, workflow.LogicalOr, r.ConditionGroup.LogicalOperator)
	require.Len(t, r.ConditionGroup.Conditions, 2)
	assert.Equal(t, workflow.OpGreaterThan, r.ConditionGroup.Conditions[1].Operator)
	assert.Equal(t, float64(4), r.ConditionGroup.Conditions[1].Value)
}

func TestConnectionRecord(t *testing.T) {
	var rec workflow.ConnectionRecord
	payload := `{"id":"c1","source_id":"q1","default_target_id":null,"rules":"{not valid json","order_index":2}`
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	c := rec.Connection()
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "q1", c.SourceID)
	assert.Nil(t, c.DefaultTargetID)
	assert.Equal(t, []workflow.Rule{}, c.Rules)
	assert.Equal(t, workflow.ConditionConditional, c.ConditionType)
	assert.Equal(t, 2, c.OrderIndex)
	assert.True(t, c.Unconditional())
}

func TestEncodeConnection(t *testing.T) {
	c := workflow.Connection{
		ID:              "c1",
		SourceID:        "q1",
		DefaultTargetID: workflow.StringPtr("q2"),
		ConditionType:   workflow.ConditionConditional,
		Rules:           workflow.DecodeRules("c1", json.RawMessage(rulesJSON)),
	}
	rec := workflow.EncodeConnection(c)
	assert.JSONEq(t, rulesJSON, string(rec.Rules))
	assert.Equal(t, c, rec.Connection())

	empty := workflow.EncodeConnection(workflow.Connection{ID: "c2", SourceID: "q1"})
	assert.JSONEq(t, `[]`, string(empty.Rules))
}

func TestConnection(t *testing.T) {
	c := workflow.Connection{
		SourceID:        "q1",
		DefaultTargetID: workflow.StringPtr("q2"),
		ConditionType:   workflow.ConditionConditional,
		Rules: []workflow.Rule{
			{ID: "r1", TargetBlockID: "q3"},
			{ID: "r2", TargetBlockID: "q4"},
		},
	}
	assert.False(t, c.Unconditional())
	assert.Equal(t, "q2", c.DefaultTarget())
	assert.Equal(t, []string{"q2", "q3", "q4"}, c.Targets())

	c.ConditionType = workflow.ConditionAlways
	assert.True(t, c.Unconditional())

	clone := c.Clone()
	*clone.DefaultTargetID = "changed"
	clone.Rules[0].TargetBlockID = "changed"
	assert.Equal(t, "q2", c.DefaultTarget())
	assert.Equal(t, "q3", c.Rules[0].TargetBlockID)

	var none workflow.Connection
	assert.Empty(t, none.DefaultTarget())
	assert.Empty(t, none.Targets())
}

func TestGraph(t *testing.T) {
	blocks := []workflow.Block{
		{ID: "c", OrderIndex: 2, Type: workflow.BlockEmail},
		{ID: "a", OrderIndex: 0, Type: workflow.BlockWelcome},
		{ID: "b", OrderIndex: 1, Type: workflow.BlockShortText},
	}
	conns := []workflow.Connection{
		{ID: "late", SourceID: "a", DefaultTargetID: workflow.StringPtr("b"), OrderIndex: 5},
		{ID: "early", SourceID: "a", DefaultTargetID: workflow.StringPtr("c"), OrderIndex: 1},
		{ID: "bc", SourceID: "b", DefaultTargetID: workflow.StringPtr("c")},
	}
	g := workflow.NewGraph(blocks, conns)

	assert.Equal(t, "a", g.First())
	assert.Equal(t, 3, g.BlockCount())
	assert.Equal(t, 2, g.ConnectionCount())
	assert.True(t, g.HasBlock("b"))
	assert.False(t, g.HasBlock("z"))
	assert.Nil(t, g.Block("z"))
	assert.Equal(t, workflow.BlockEmail, g.Block("c").Type)

	require.NotNil(t, g.Connection("a"))
	assert.Equal(t, "early", g.Connection("a").ID)
	assert.Nil(t, g.Connection("c"))

	var ids []string
	for _, b := range g.Blocks() {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	next, ok := g.NextInSequence("a")
	assert.True(t, ok)
	assert.Equal(t, "b", next)
	_, ok = g.NextInSequence("c")
	assert.False(t, ok)
	_, ok = g.NextInSequence("z")
	assert.False(t, ok)

	got := g.Connections()
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "bc", got[1].ID)

	assert.Empty(t, workflow.NewGraph(nil, nil).First())
}

func TestBlockType(t *testing.T) {
	assert.True(t, workflow.BlockCheckboxGroup.Known())
	assert.True(t, workflow.BlockCheckboxGroup.IsChoice())
	assert.True(t, workflow.BlockDropdown.IsChoice())
	assert.False(t, workflow.BlockRating.IsChoice())
	assert.False(t, workflow.BlockPageBreak.IsChoice())
	assert.False(t, workflow.BlockType("signature").Known())
}

func TestChoiceSettings(t *testing.T) {
	b := workflow.Block{
		ID:   "q1",
		Type: workflow.BlockCheckboxGroup,
		Settings: map[string]interface{}{
			"allow_multiple": "true",
			"options": []interface{}{
				"Red",
				map[string]interface{}{"id": "o2", "label": "Dark blue", "value": "blue"},
				map[string]interface{}{"id": "o3", "label": "Green"},
			},
		},
	}
	s, err := b.ChoiceSettings()
	require.NoError(t, err)
	assert.True(t, s.AllowMultiple)
	require.Len(t, s.Options, 3)
	assert.Equal(t, workflow.ChoiceOption{Label: "Red", Value: "Red"}, s.Options[0])
	assert.Equal(t, "o2", s.Options[1].ID)
	assert.Equal(t, []string{"Red", "blue", "Green"}, s.Values())

	empty := workflow.Block{ID: "q2"}
	s, err = empty.ChoiceSettings()
	require.NoError(t, err)
	assert.Empty(t, s.Options)

	bad := workflow.Block{ID: "q3", Settings: map[string]interface{}{"options": 42}}
	_, err = bad.ChoiceSettings()
	assert.Error(t, err)
}

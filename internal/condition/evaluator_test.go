package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

func cond(field string, op workflow.Operator, v interface{}) workflow.ConditionRule {
	return workflow.ConditionRule{ID: "c", Field: field, Operator: op, Value: v}
}

type evalCase struct {
	name    string
	subtype workflow.BlockType
	rule    workflow.ConditionRule
	ans     condition.Answer
	want    bool
}

func TestEvaluate(t *testing.T) {
	cases := []evalCase{
		// Text
		{"text equals", workflow.BlockShortText, cond("answer", workflow.OpEquals, "hello"), condition.Answer{Value: "hello"}, true},
		{"text equals is case sensitive", workflow.BlockShortText, cond("answer", workflow.OpEquals, "Hello"), condition.Answer{Value: "hello"}, false},
		{"text not equals", workflow.BlockLongText, cond("answer", workflow.OpNotEquals, "x"), condition.Answer{Value: "y"}, true},
		{"text contains", workflow.BlockLongText, cond("answer", workflow.OpContains, "ell"), condition.Answer{Value: "hello"}, true},
		{"text greater_than unsupported", workflow.BlockShortText, cond("answer", workflow.OpGreaterThan, "a"), condition.Answer{Value: "b"}, false},
		{"text unanswered", workflow.BlockShortText, cond("answer", workflow.OpNotEquals, "x"), condition.Answer{}, false},
		{"length greater_than", workflow.BlockShortText, cond("length", workflow.OpGreaterThan, float64(3)), condition.Answer{Value: "hello"}, true},
		{"length counts runes", workflow.BlockShortText, cond("length", workflow.OpEquals, float64(2)), condition.Answer{Value: "né"}, true},
		{"length numeric string operand", workflow.BlockShortText, cond("length", workflow.OpLessThan, "10"), condition.Answer{Value: "hello"}, true},
		{"length non-numeric operand", workflow.BlockShortText, cond("length", workflow.OpNotEquals, "many"), condition.Answer{Value: "hello"}, false},
		{"length contains unsupported", workflow.BlockShortText, cond("length", workflow.OpContains, "5"), condition.Answer{Value: "hello"}, false},

		// Email
		{"email domain equals", workflow.BlockEmail, cond("domain", workflow.OpEquals, "acme.com"), condition.Answer{Value: "jo@acme.com"}, true},
		{"email domain contains", workflow.BlockEmail, cond("domain", workflow.OpContains, "acme"), condition.Answer{Value: "jo@mail.acme.io"}, true},
		{"email domain precomputed", workflow.BlockEmail, cond("domain", workflow.OpEquals, "x.org"), condition.Answer{Value: "ignored", Domain: "x.org"}, true},
		{"email without at", workflow.BlockEmail, cond("domain", workflow.OpNotEquals, "acme.com"), condition.Answer{Value: "nobody"}, false},
		{"email answer contains", workflow.BlockEmail, cond("answer", workflow.OpContains, "@"), condition.Answer{Value: "a@b.c"}, true},

		// Number
		{"number greater_than", workflow.BlockNumber, cond("answer", workflow.OpGreaterThan, float64(10)), condition.Answer{Value: float64(11)}, true},
		{"number less_than false", workflow.BlockNumber, cond("answer", workflow.OpLessThan, float64(10)), condition.Answer{Value: float64(11)}, false},
		{"number equals across types", workflow.BlockNumber, cond("answer", workflow.OpEquals, float64(5)), condition.Answer{Value: 5}, true},
		{"number string answer", workflow.BlockNumber, cond("answer", workflow.OpEquals, float64(2.5)), condition.Answer{Value: "2.5"}, true},
		{"number non-numeric answer", workflow.BlockNumber, cond("answer", workflow.OpNotEquals, float64(1)), condition.Answer{Value: "abc"}, false},
		{"number contains unsupported", workflow.BlockNumber, cond("answer", workflow.OpContains, "1"), condition.Answer{Value: float64(1)}, false},

		// Date
		{"date after", workflow.BlockDate, cond("answer", workflow.OpGreaterThan, "2024-01-01"), condition.Answer{Value: "2024-03-01"}, true},
		{"date before", workflow.BlockDate, cond("answer", workflow.OpLessThan, "2024-01-01"), condition.Answer{Value: "2024-03-01"}, false},
		{"date equals", workflow.BlockDate, cond("answer", workflow.OpEquals, "2024-03-01"), condition.Answer{Value: "2024-03-01"}, true},
		{"date unparseable ordering", workflow.BlockDate, cond("answer", workflow.OpGreaterThan, "2024-01-01"), condition.Answer{Value: "soon"}, false},
		{"date unparseable equality", workflow.BlockDate, cond("answer", workflow.OpEquals, "soon"), condition.Answer{Value: "soon"}, true},
		{"weekday name", workflow.BlockDate, cond("weekday", workflow.OpEquals, "Friday"), condition.Answer{Value: "2024-03-01"}, true},
		{"weekday weekend", workflow.BlockDate, cond("weekday", workflow.OpEquals, "Weekend"), condition.Answer{Value: "2024-03-02"}, true},
		{"weekday weekday category", workflow.BlockDate, cond("weekday", workflow.OpNotEquals, "Weekday"), condition.Answer{Value: "2024-03-01"}, false},
		{"weekday precomputed", workflow.BlockDate, cond("weekday", workflow.OpEquals, "Sunday"), condition.Answer{Weekday: "Sunday"}, true},

		// Choice
		{"multiple choice answer", workflow.BlockMultipleChoice, cond("answer", workflow.OpEquals, "Red"), condition.Answer{Value: "Red"}, true},
		{"dropdown contains unsupported", workflow.BlockDropdown, cond("answer", workflow.OpContains, "R"), condition.Answer{Value: "Red"}, false},
		{"choice option selected", workflow.BlockCheckboxGroup, cond("choice:A_0", workflow.OpEquals, true), condition.Answer{Selected: []string{"A"}}, true},
		{"choice option not selected", workflow.BlockCheckboxGroup, cond("choice:B_1", workflow.OpEquals, true), condition.Answer{Selected: []string{"A"}}, false},
		{"choice option not_equals", workflow.BlockCheckboxGroup, cond("choice:B_1", workflow.OpNotEquals, true), condition.Answer{Selected: []string{"A"}}, true},
		{"choice from list value", workflow.BlockCheckboxGroup, cond("choice:B_1", workflow.OpEquals, true), condition.Answer{Value: []interface{}{"A", "B"}}, true},
		{"choice on dropdown", workflow.BlockDropdown, cond("choice:Red_3", workflow.OpEquals, "true"), condition.Answer{Value: "Red"}, true},
		{"choice non-bool operand", workflow.BlockCheckboxGroup, cond("choice:A_0", workflow.OpEquals, "yes please"), condition.Answer{Selected: []string{"A"}}, false},
		{"selected true", workflow.BlockCheckboxGroup, cond("selected", workflow.OpEquals, true), condition.Answer{Selected: []string{"A"}}, true},
		{"selected none", workflow.BlockCheckboxGroup, cond("selected", workflow.OpEquals, false), condition.Answer{}, true},
		{"checkbox answer is not a field", workflow.BlockCheckboxGroup, cond("answer", workflow.OpEquals, "A"), condition.Answer{Value: "A", Selected: []string{"A"}}, false},
		{"selected on text unsupported", workflow.BlockShortText, cond("selected", workflow.OpEquals, true), condition.Answer{Value: "A"}, false},

		// Rating, sentiment
		{"rating less_than", workflow.BlockRating, cond("rating", workflow.OpLessThan, float64(3)), condition.Answer{Value: float64(2)}, true},
		{"rating non-numeric", workflow.BlockRating, cond("rating", workflow.OpGreaterThan, "high"), condition.Answer{Value: float64(2)}, false},
		{"sentiment equals", workflow.BlockAIConversation, cond("sentiment", workflow.OpEquals, "positive"), condition.Answer{Sentiment: "positive"}, true},
		{"sentiment missing", workflow.BlockAIConversation, cond("sentiment", workflow.OpNotEquals, "positive"), condition.Answer{}, false},

		// Table misses
		{"unknown field", workflow.BlockShortText, cond("mood", workflow.OpEquals, "x"), condition.Answer{Value: "x"}, false},
		{"unknown operator", workflow.BlockShortText, cond("answer", "starts_with", "x"), condition.Answer{Value: "x"}, false},
		{"layout block", workflow.BlockStatement, cond("answer", workflow.OpEquals, "x"), condition.Answer{Value: "x"}, false},
		{"unknown block type", "signature", cond("answer", workflow.OpEquals, "x"), condition.Answer{Value: "x"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, condition.Evaluate(tc.rule, tc.subtype, tc.ans))
		})
	}
}

func TestEvaluate_ChoiceField(t *testing.T) {
	ans := condition.Answer{Selected: []string{"A"}}
	a := cond("choice:A_0", workflow.OpEquals, true)
	b := cond("choice:B_1", workflow.OpEquals, true)

	assert.True(t, condition.Evaluate(a, workflow.BlockCheckboxGroup, ans))
	assert.False(t, condition.Evaluate(b, workflow.BlockCheckboxGroup, ans))
}

func TestEvaluateGroup(t *testing.T) {
	yes := cond("answer", workflow.OpEquals, "x")
	no := cond("answer", workflow.OpEquals, "y")
	ans := condition.Answer{Value: "x"}

	group := func(op workflow.LogicalOperator, cs ...workflow.ConditionRule) workflow.ConditionGroup {
		return workflow.ConditionGroup{LogicalOperator: op, Conditions: cs}
	}

	assert.False(t, condition.EvaluateGroup(group(workflow.LogicalAnd, yes, no), workflow.BlockShortText, ans), "AND with one false")
	assert.True(t, condition.EvaluateGroup(group(workflow.LogicalOr, yes, no), workflow.BlockShortText, ans), "OR with one true")
	assert.True(t, condition.EvaluateGroup(group(workflow.LogicalAnd, yes, yes), workflow.BlockShortText, ans))
	assert.False(t, condition.EvaluateGroup(group(workflow.LogicalOr, no, no), workflow.BlockShortText, ans))
	assert.True(t, condition.EvaluateGroup(group("", yes), workflow.BlockShortText, ans), "missing operator means AND")
	assert.True(t, condition.EvaluateGroup(group("or", no, yes), workflow.BlockShortText, ans), "operator is case-insensitive")
	assert.False(t, condition.EvaluateGroup(group("XOR", yes), workflow.BlockShortText, ans), "unknown operator")
	assert.False(t, condition.EvaluateGroup(group(workflow.LogicalAnd), workflow.BlockShortText, ans), "empty AND group")
	assert.False(t, condition.EvaluateGroup(group(workflow.LogicalOr), workflow.BlockShortText, ans), "empty OR group")
}

func TestChoiceValue(t *testing.T) {
	cases := map[string]string{
		"choice:A_0":        "A",
		"choice:Yes_12":     "Yes",
		"choice:snake_case": "snake_case",
		"choice:a_b_3":      "a_b",
		"choice:trailing_":  "trailing_",
		"choice:plain":      "plain",
	}
	for field, want := range cases {
		assert.Equal(t, want, condition.ChoiceValue(field), field)
	}
}

func TestSupportsAndFields(t *testing.T) {
	assert.True(t, condition.Supports(workflow.BlockEmail, "domain", workflow.OpContains))
	assert.False(t, condition.Supports(workflow.BlockEmail, "domain", workflow.OpGreaterThan))
	assert.True(t, condition.Supports(workflow.BlockCheckboxGroup, "choice:Anything_4", workflow.OpNotEquals))
	assert.False(t, condition.Supports(workflow.BlockNumber, "length", workflow.OpEquals))

	assert.Equal(t, []string{"choice:", "selected"}, condition.Fields(workflow.BlockCheckboxGroup))
	assert.Equal(t, []string{"answer", "length"}, condition.Fields(workflow.BlockShortText))
	assert.Empty(t, condition.Fields(workflow.BlockPageBreak))
}

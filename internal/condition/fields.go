package condition

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// ChoicePrefix marks a field that tests one specific option, e.g. "choice:Yes_0".
const ChoicePrefix = "choice:"

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
	kindDate
	kindWeekday
)

// extractor pulls the value a field compares from an answer.
// ok=false means the answer has nothing to compare and the condition is false.
type extractor func(field string, ans Answer) (v interface{}, ok bool)

type fieldSpec struct {
	kind    valueKind
	ops     []workflow.Operator
	extract extractor
}

func (s fieldSpec) allows(op workflow.Operator) bool {
	for _, o := range s.ops {
		if o == op {
			return true
		}
	}
	return false
}

type fieldKey struct {
	subtype workflow.BlockType
	field   string
}

var (
	textOps    = []workflow.Operator{workflow.OpEquals, workflow.OpNotEquals, workflow.OpContains}
	numericOps = []workflow.Operator{workflow.OpEquals, workflow.OpNotEquals, workflow.OpGreaterThan, workflow.OpLessThan}
	equalOps   = []workflow.Operator{workflow.OpEquals, workflow.OpNotEquals}
)

var (
	textAnswer    = fieldSpec{kindString, textOps, rawValue}
	textLength    = fieldSpec{kindNumber, numericOps, answerLength}
	choiceAnswer  = fieldSpec{kindString, equalOps, rawValue}
	choiceOption  = fieldSpec{kindBool, equalOps, optionSelected}
	numericAnswer = fieldSpec{kindNumber, numericOps, rawValue}
)

// fieldTable is the field/operator compatibility matrix. Anything not listed
// evaluates false.
var fieldTable = map[fieldKey]fieldSpec{
	{workflow.BlockShortText, "answer"}: textAnswer,
	{workflow.BlockShortText, "length"}: textLength,
	{workflow.BlockLongText, "answer"}:  textAnswer,
	{workflow.BlockLongText, "length"}:  textLength,

	{workflow.BlockEmail, "answer"}: textAnswer,
	{workflow.BlockEmail, "domain"}: {kindString, textOps, emailDomain},

	{workflow.BlockNumber, "answer"}: numericAnswer,

	{workflow.BlockDate, "answer"}:  {kindDate, numericOps, rawValue},
	{workflow.BlockDate, "weekday"}: {kindWeekday, equalOps, dayName},

	{workflow.BlockMultipleChoice, "answer"}: choiceAnswer,
	{workflow.BlockMultipleChoice, "choice"}: choiceOption,
	{workflow.BlockDropdown, "answer"}:       choiceAnswer,
	{workflow.BlockDropdown, "choice"}:       choiceOption,
	{workflow.BlockCheckboxGroup, "choice"}:  choiceOption,

	{workflow.BlockCheckboxGroup, "selected"}: {kindBool, equalOps, anySelected},

	{workflow.BlockRating, "rating"}: numericAnswer,

	{workflow.BlockAIConversation, "sentiment"}: {kindString, equalOps, sentiment},
	{workflow.BlockAIConversation, "answer"}:    textAnswer,
}

func lookup(subtype workflow.BlockType, field string) (fieldSpec, bool) {
	name := field
	if strings.HasPrefix(field, ChoicePrefix) {
		name = "choice"
	}
	spec, ok := fieldTable[fieldKey{subtype, name}]
	return spec, ok
}

// Supports reports whether op is valid for field on blocks of the given type.
func Supports(subtype workflow.BlockType, field string, op workflow.Operator) bool {
	spec, ok := lookup(subtype, field)
	return ok && spec.allows(op)
}

// Fields lists the field names a block type can be tested on, sorted.
// Choice blocks report "choice:" for their per-option fields.
func Fields(subtype workflow.BlockType) []string {
	var out []string
	for k := range fieldTable {
		if k.subtype != subtype {
			continue
		}
		if k.field == "choice" {
			out = append(out, ChoicePrefix)
			continue
		}
		out = append(out, k.field)
	}
	sort.Strings(out)
	return out
}

// ChoiceValue strips the "choice:" prefix and the "_<index>" suffix that
// disambiguates options sharing a label.
func ChoiceValue(field string) string {
	v := strings.TrimPrefix(field, ChoicePrefix)
	i := strings.LastIndex(v, "_")
	if i < 0 || i == len(v)-1 {
		return v
	}
	for _, r := range v[i+1:] {
		if r < '0' || r > '9' {
			return v
		}
	}
	return v[:i]
}

func rawValue(_ string, ans Answer) (interface{}, bool) {
	return ans.Value, ans.Value != nil
}

func answerLength(_ string, ans Answer) (interface{}, bool) {
	s, ok := stringify(ans.Value)
	if !ok {
		return nil, false
	}
	return float64(utf8.RuneCountInString(s)), true
}

func emailDomain(_ string, ans Answer) (interface{}, bool) {
	d, ok := ans.EmailDomain()
	return d, ok
}

func dayName(_ string, ans Answer) (interface{}, bool) {
	d, ok := ans.DayName()
	return d, ok
}

func anySelected(_ string, ans Answer) (interface{}, bool) {
	return len(ans.Selection()) > 0, true
}

func optionSelected(field string, ans Answer) (interface{}, bool) {
	want := ChoiceValue(field)
	for _, s := range ans.Selection() {
		if s == want {
			return true, true
		}
	}
	return false, true
}

func sentiment(_ string, ans Answer) (interface{}, bool) {
	return ans.Sentiment, ans.Sentiment != ""
}

package condition

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// toFloat64 coerces a numeric value to float64.
// Answers typed into the builder often arrive as strings, so numeric strings count.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// toBool accepts booleans and their string spellings ("true", "false", "1", ...).
func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	return false, false
}

// stringify renders a scalar the way it would appear in the builder.
func stringify(v interface{}) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	}
	if f, ok := toFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func compareNumber(op workflow.Operator, left, right interface{}) bool {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if !lok || !rok {
		return false
	}
	switch op {
	case workflow.OpEquals:
		return lf == rf
	case workflow.OpNotEquals:
		return lf != rf
	case workflow.OpGreaterThan:
		return lf > rf
	case workflow.OpLessThan:
		return lf < rf
	}
	return false
}

// compareString is exact and case-sensitive.
func compareString(op workflow.Operator, left string, right interface{}) bool {
	rs, ok := stringify(right)
	if !ok {
		return false
	}
	switch op {
	case workflow.OpEquals:
		return left == rs
	case workflow.OpNotEquals:
		return left != rs
	case workflow.OpContains:
		return strings.Contains(left, rs)
	}
	return false
}

func compareBool(op workflow.Operator, left bool, right interface{}) bool {
	want, ok := toBool(right)
	if !ok {
		return false
	}
	switch op {
	case workflow.OpEquals:
		return left == want
	case workflow.OpNotEquals:
		return left != want
	}
	return false
}

// compareDate orders parseable dates; equality falls back to the raw strings.
func compareDate(op workflow.Operator, left, right interface{}) bool {
	lt, lok := parseDate(left)
	rt, rok := parseDate(right)
	if lok && rok {
		switch op {
		case workflow.OpEquals:
			return lt.Equal(rt)
		case workflow.OpNotEquals:
			return !lt.Equal(rt)
		case workflow.OpGreaterThan:
			return lt.After(rt)
		case workflow.OpLessThan:
			return lt.Before(rt)
		}
		return false
	}
	ls, ok := stringify(left)
	if !ok {
		return false
	}
	switch op {
	case workflow.OpEquals, workflow.OpNotEquals:
		return compareString(op, ls, right)
	}
	return false
}

// compareWeekday matches a day name or one of the "Weekend"/"Weekday" categories.
func compareWeekday(op workflow.Operator, day string, right interface{}) bool {
	want, ok := right.(string)
	if !ok {
		return false
	}
	match := day == want
	switch want {
	case "Weekend":
		match = day == "Saturday" || day == "Sunday"
	case "Weekday":
		match = day != "" && day != "Saturday" && day != "Sunday"
	}
	switch op {
	case workflow.OpEquals:
		return match
	case workflow.OpNotEquals:
		return !match
	}
	return false
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDate(v interface{}) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		s := strings.TrimSpace(d)
		for _, format := range dateFormats {
			if t, err := time.Parse(format, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

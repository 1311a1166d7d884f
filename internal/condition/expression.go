package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// ParseGroup compiles the shorthand used in form definitions into a ConditionGroup:
//
//	domain == "acme.com" AND length > 3
//	choice:Yes_0 == true OR rating < 2
//
// A group has a single logical operator, so AND and OR cannot be mixed.
// Condition ids are left empty for the caller to assign.
func ParseGroup(expr string) (workflow.ConditionGroup, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return workflow.ConditionGroup{}, err
	}
	p := &parser{tokens: tokens}
	group := workflow.ConditionGroup{LogicalOperator: workflow.LogicalAnd}

	first, err := p.parseComparison()
	if err != nil {
		return workflow.ConditionGroup{}, err
	}
	group.Conditions = append(group.Conditions, first)

	joined := false
	for p.peek().kind == tokWord {
		op := workflow.LogicalOperator(strings.ToUpper(p.peek().val))
		if op != workflow.LogicalAnd && op != workflow.LogicalOr {
			break
		}
		if joined && op != group.LogicalOperator {
			return workflow.ConditionGroup{}, fmt.Errorf("cannot mix AND and OR in one condition group")
		}
		p.consume()
		group.LogicalOperator = op
		joined = true

		next, err := p.parseComparison()
		if err != nil {
			return workflow.ConditionGroup{}, err
		}
		group.Conditions = append(group.Conditions, next)
	}
	if p.peek().kind != tokEOF {
		return workflow.ConditionGroup{}, fmt.Errorf("unexpected token %q after condition", p.peek().val)
	}
	return group, nil
}

// -----------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------

type tokenKind int

const (
	tokWord   tokenKind = iota // field name, keyword or bare literal
	tokOp                      // ==, !=, >, <
	tokString                  // "…" or '…'
	tokNumber                  // 42 | 3.14 | -1
	tokBool                    // true | false
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		r, size := utf8.DecodeRuneInString(expr[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		ch := expr[i]
		// Operators.
		if ch == '=' || ch == '!' || ch == '<' || ch == '>' {
			if i+1 < len(expr) && expr[i+1] == '=' {
				op := expr[i : i+2]
				if op != "==" && op != "!=" {
					return nil, fmt.Errorf("unsupported operator %q at position %d", op, i)
				}
				tokens = append(tokens, token{tokOp, op})
				i += 2
				continue
			}
			if ch == '=' || ch == '!' {
				return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
			}
			tokens = append(tokens, token{tokOp, string(ch)})
			i++
			continue
		}
		// String literals.
		if ch == '"' || ch == '\'' {
			quote := ch
			j := i + 1
			for j < len(expr) && expr[j] != quote {
				if expr[j] == '\\' {
					j++ // skip escaped char
				}
				j++
			}
			if j >= len(expr) {
				return nil, fmt.Errorf("unterminated string starting at position %d", i)
			}
			inner := expr[i+1 : j]
			inner = strings.ReplaceAll(inner, `\"`, `"`)
			inner = strings.ReplaceAll(inner, `\'`, `'`)
			inner = strings.ReplaceAll(inner, `\\`, `\`)
			tokens = append(tokens, token{tokString, inner})
			i = j + 1
			continue
		}
		// Numbers.
		if isDigit(ch) || (ch == '-' && i+1 < len(expr) && isDigit(expr[i+1])) {
			j := i + 1
			for j < len(expr) && (isDigit(expr[j]) || expr[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, expr[i:j]})
			i = j
			continue
		}
		// Words: identifiers, keywords and choice fields like choice:Yes_0.
		if unicode.IsLetter(r) || r == '_' {
			j := i
			for j < len(expr) {
				wr, wsize := utf8.DecodeRuneInString(expr[j:])
				if !isWordRune(wr) {
					break
				}
				j += wsize
			}
			word := expr[i:j]
			switch strings.ToLower(word) {
			case "true", "false":
				tokens = append(tokens, token{tokBool, strings.ToLower(word)})
			default:
				tokens = append(tokens, token{tokWord, word})
			}
			i = j
			continue
		}
		return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
	}
	tokens = append(tokens, token{tokEOF, ""})
	return tokens, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// isWordRune reports whether r may continue a word. Letters and digits of any
// script are allowed so option labels like "Café" stay one word.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_:.-@", r)
}

// -----------------------------------------------------------------------
// Parser
// -----------------------------------------------------------------------

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) consume() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

var symbolOps = map[string]workflow.Operator{
	"==": workflow.OpEquals,
	"!=": workflow.OpNotEquals,
	">":  workflow.OpGreaterThan,
	"<":  workflow.OpLessThan,
}

var wordOps = map[string]workflow.Operator{
	"equals":       workflow.OpEquals,
	"not_equals":   workflow.OpNotEquals,
	"contains":     workflow.OpContains,
	"greater_than": workflow.OpGreaterThan,
	"less_than":    workflow.OpLessThan,
}

// comparison = field operator literal
func (p *parser) parseComparison() (workflow.ConditionRule, error) {
	var rule workflow.ConditionRule

	t := p.peek()
	switch t.kind {
	case tokWord, tokString:
		if t.val == "" {
			return rule, fmt.Errorf("empty field name")
		}
		rule.Field = t.val
		p.consume()
	default:
		return rule, fmt.Errorf("expected field name, got %q", t.val)
	}

	t = p.peek()
	switch {
	case t.kind == tokOp:
		rule.Operator = symbolOps[t.val]
	case t.kind == tokWord && wordOps[strings.ToLower(t.val)] != "":
		rule.Operator = wordOps[strings.ToLower(t.val)]
	default:
		return rule, fmt.Errorf("expected comparison operator after %q, got %q", rule.Field, t.val)
	}
	p.consume()

	v, err := p.parseLiteral()
	if err != nil {
		return rule, err
	}
	rule.Value = v
	return rule, nil
}

// literal = string | number | bool | bare word
func (p *parser) parseLiteral() (interface{}, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.consume()
		return t.val, nil
	case tokNumber:
		p.consume()
		f, err := strconv.ParseFloat(t.val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.val)
		}
		return f, nil
	case tokBool:
		p.consume()
		return t.val == "true", nil
	case tokWord:
		if up := strings.ToUpper(t.val); up == "AND" || up == "OR" {
			return nil, fmt.Errorf("expected value, got %q", t.val)
		}
		p.consume()
		return t.val, nil
	default:
		return nil, fmt.Errorf("expected value, got %q", t.val)
	}
}

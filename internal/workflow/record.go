package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/formflow/internal/metrics"
)

// ConnectionRecord is a connection row as the form storage returns it.
// Rules arrive either as a JSON array or as a string holding one.
type ConnectionRecord struct {
	ID              string          `json:"id"`
	SourceID        string          `json:"source_id"`
	DefaultTargetID *string         `json:"default_target_id"`
	Rules           json.RawMessage `json:"rules,omitempty"`
	ConditionType   ConditionType   `json:"condition_type,omitempty"`
	OrderIndex      int             `json:"order_index"`
}

// Connection converts the record, decoding its rules.
// Unparseable rules become an empty slice; the failure is logged, never returned.
func (r ConnectionRecord) Connection() Connection {
	ct := r.ConditionType
	if ct == "" {
		ct = ConditionConditional
	}
	return Connection{
		ID:              r.ID,
		SourceID:        r.SourceID,
		DefaultTargetID: r.DefaultTargetID,
		Rules:           DecodeRules(r.ID, r.Rules),
		ConditionType:   ct,
		OrderIndex:      r.OrderIndex,
	}
}

// EncodeConnection is the inverse of ConnectionRecord.Connection; rules are written as an array.
func EncodeConnection(c Connection) ConnectionRecord {
	rules := c.Rules
	if rules == nil {
		rules = []Rule{}
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		// Rules hold only strings, numbers and bools once decoded.
		raw = []byte("[]")
	}
	return ConnectionRecord{
		ID:              c.ID,
		SourceID:        c.SourceID,
		DefaultTargetID: c.DefaultTargetID,
		Rules:           raw,
		ConditionType:   c.ConditionType,
		OrderIndex:      c.OrderIndex,
	}
}

// DecodeRules parses a persisted rules value that is either an array or a
// JSON-encoded string containing one. It never fails: malformed input yields
// an empty slice and a warning.
func DecodeRules(connectionID string, raw json.RawMessage) []Rule {
	rules, err := decodeRules(raw)
	if err != nil {
		metrics.MalformedRules.Inc()
		slog.Warn("discarding malformed connection rules", "connection_id", connectionID, "err", err)
		return []Rule{}
	}
	return rules
}

func decodeRules(raw json.RawMessage) ([]Rule, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Rule{}, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("rules string: %w", err)
		}
		if inner == "" {
			return []Rule{}, nil
		}
		return decodeRules(json.RawMessage(inner))
	}
	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("rules array: %w", err)
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}

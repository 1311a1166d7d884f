package condition

import "strings"

// Answer is a respondent's recorded answer for one block.
// Derived fields left empty are computed from Value when a condition needs them.
type Answer struct {
	Value     interface{} `json:"value"`
	Selected  []string    `json:"selected,omitempty"`
	Sentiment string      `json:"sentiment,omitempty"`
	Domain    string      `json:"domain,omitempty"`
	Weekday   string      `json:"weekday,omitempty"`
}

// Selection returns the selected option identifiers. Without an explicit
// Selected list, a string or list Value is read as the selection.
func (a Answer) Selection() []string {
	if a.Selected != nil {
		return a.Selected
	}
	switch v := a.Value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := stringify(item); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// EmailDomain returns the part after the last "@" of the answer.
func (a Answer) EmailDomain() (string, bool) {
	if a.Domain != "" {
		return a.Domain, true
	}
	s, ok := a.Value.(string)
	if !ok {
		return "", false
	}
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return "", false
	}
	return strings.TrimSpace(s[at+1:]), true
}

// DayName returns the weekday name of a date answer ("Monday".."Sunday").
func (a Answer) DayName() (string, bool) {
	if a.Weekday != "" {
		return a.Weekday, true
	}
	t, ok := parseDate(a.Value)
	if !ok {
		return "", false
	}
	return t.Weekday().String(), true
}

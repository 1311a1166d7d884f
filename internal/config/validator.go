package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/formflow/internal/condition"
	"github.com/gyaneshwarpardhi/formflow/internal/workflow"
)

// Validate checks the config for:
//   - Required fields and duplicate ids (forms, blocks, connections, rules)
//   - Unknown block types and duplicate order_index values within a form
//   - Rule conditions that do not compile
//
// Dangling block references are not errors; they are pruned when the form is built.
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string
	forms := make(map[string]int)

	for i, f := range cfg.Forms {
		if f.ID == "" {
			errs = append(errs, fmt.Sprintf("forms[%d]: id is required", i))
			continue
		}
		if prev, ok := forms[f.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate form id %q (forms[%d] and forms[%d])", f.ID, prev, i))
			continue
		}
		forms[f.ID] = i
		validateForm(f, &errs)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateForm(f FormDef, errs *[]string) {
	loc := fmt.Sprintf("form %s", f.ID)
	blocks := make(map[string]bool)
	orders := make(map[int]string)

	for j, b := range f.Blocks {
		if b.ID == "" {
			*errs = append(*errs, fmt.Sprintf("%s.blocks[%d]: id is required", loc, j))
			continue
		}
		if blocks[b.ID] {
			*errs = append(*errs, fmt.Sprintf("%s: duplicate block id %q", loc, b.ID))
			continue
		}
		blocks[b.ID] = true
		if !b.Type.Known() {
			*errs = append(*errs, fmt.Sprintf("%s block %s: unknown type %q", loc, b.ID, b.Type))
		}
		if prev, ok := orders[b.OrderIndex]; ok {
			*errs = append(*errs, fmt.Sprintf("%s: blocks %s and %s share order_index %d", loc, prev, b.ID, b.OrderIndex))
		} else {
			orders[b.OrderIndex] = b.ID
		}
	}

	conns := make(map[string]bool)
	for j, c := range f.Connections {
		if c.ID == "" {
			*errs = append(*errs, fmt.Sprintf("%s.connections[%d]: id is required", loc, j))
			continue
		}
		cloc := fmt.Sprintf("%s connection %s", loc, c.ID)
		if conns[c.ID] {
			*errs = append(*errs, fmt.Sprintf("%s: duplicate connection id %q", loc, c.ID))
			continue
		}
		conns[c.ID] = true
		if c.Source == "" {
			*errs = append(*errs, fmt.Sprintf("%s: source is required", cloc))
		}
		switch c.ConditionType {
		case "", workflow.ConditionAlways, workflow.ConditionConditional:
		default:
			*errs = append(*errs, fmt.Sprintf("%s: condition_type must be always or conditional, got %q", cloc, c.ConditionType))
		}
		validateRules(c, cloc, errs)
	}
}

func validateRules(c ConnectionDef, cloc string, errs *[]string) {
	rules := make(map[string]bool)
	for k, r := range c.Rules {
		if r.ID == "" {
			*errs = append(*errs, fmt.Sprintf("%s.rules[%d]: id is required", cloc, k))
			continue
		}
		rloc := fmt.Sprintf("%s rule %s", cloc, r.ID)
		if rules[r.ID] {
			*errs = append(*errs, fmt.Sprintf("%s: duplicate rule id %q", cloc, r.ID))
			continue
		}
		rules[r.ID] = true
		if r.Target == "" {
			*errs = append(*errs, fmt.Sprintf("%s: target is required", rloc))
		}
		if _, err := r.Group(); err != nil {
			*errs = append(*errs, fmt.Sprintf("%s: %v", rloc, err))
		}
	}
}

// Lint returns warnings for definitions that are valid but will not behave as
// the author probably expects: conditions the source block type cannot test
// (they always evaluate false), choice fields naming options the block does
// not have, references that will be pruned, and extra connections per source.
func Lint(cfg *Config) []string {
	var warnings []string
	for _, f := range cfg.Forms {
		warnings = append(warnings, lintForm(f)...)
	}
	return warnings
}

func lintForm(f FormDef) []string {
	var warnings []string
	blocks := make(map[string]*workflow.Block, len(f.Blocks))
	for i := range f.Blocks {
		blocks[f.Blocks[i].ID] = &f.Blocks[i]
	}
	missing := func(id string) bool { _, ok := blocks[id]; return !ok }
	sources := make(map[string]string)

	for _, c := range f.Connections {
		cloc := fmt.Sprintf("form %s connection %s", f.ID, c.ID)
		if missing(c.Source) {
			warnings = append(warnings, fmt.Sprintf("%s: source %q does not exist, connection will be pruned", cloc, c.Source))
			continue
		}
		if c.DefaultTarget != nil && missing(*c.DefaultTarget) {
			warnings = append(warnings, fmt.Sprintf("%s: default target %q does not exist, connection will be pruned", cloc, *c.DefaultTarget))
		}
		if prev, ok := sources[c.Source]; ok {
			warnings = append(warnings, fmt.Sprintf("%s: block %s already routed by connection %s, only the lowest order_index is used", cloc, c.Source, prev))
		} else {
			sources[c.Source] = c.ID
		}
		if c.ConditionType == workflow.ConditionAlways && len(c.Rules) > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: condition_type always ignores %d rule(s)", cloc, len(c.Rules)))
		}

		src := blocks[c.Source]
		for _, r := range c.Rules {
			rloc := fmt.Sprintf("%s rule %s", cloc, r.ID)
			if missing(r.Target) {
				warnings = append(warnings, fmt.Sprintf("%s: target %q does not exist, rule will be pruned", rloc, r.Target))
			}
			group, err := r.Group()
			if err != nil {
				continue // reported by Validate
			}
			if !group.HasConditions() {
				warnings = append(warnings, fmt.Sprintf("%s: no conditions, rule never matches", rloc))
			}
			warnings = append(warnings, lintConditions(src, group, rloc)...)
		}
	}
	return warnings
}

func lintConditions(src *workflow.Block, group workflow.ConditionGroup, rloc string) []string {
	var warnings []string
	var options map[string]bool
	for _, cond := range group.Conditions {
		if !condition.Supports(src.Type, cond.Field, cond.Operator) {
			warnings = append(warnings, fmt.Sprintf("%s: %s %s is not supported on %s blocks (valid fields: %s)",
				rloc, cond.Field, cond.Operator, src.Type, strings.Join(condition.Fields(src.Type), ", ")))
			continue
		}
		if !src.Type.IsChoice() || !strings.HasPrefix(cond.Field, condition.ChoicePrefix) {
			continue
		}
		if options == nil {
			settings, err := src.ChoiceSettings()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", rloc, err))
				return warnings
			}
			options = make(map[string]bool)
			for _, v := range settings.Values() {
				options[v] = true
			}
		}
		if want := condition.ChoiceValue(cond.Field); !options[want] {
			warnings = append(warnings, fmt.Sprintf("%s: block %s has no option %q", rloc, src.ID, want))
		}
	}
	return warnings
}

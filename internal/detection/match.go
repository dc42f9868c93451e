package detection

import (
	"strings"

	"github.com/sentrywatch/siemcore/internal/condition"
	"github.com/sentrywatch/siemcore/internal/fieldpath"
	"github.com/sentrywatch/siemcore/internal/model"
)

// matchClause evaluates one selection clause against tree. A missing field
// never matches.
func matchClause(tree map[string]any, c model.SelectionClause) bool {
	v, ok := fieldpath.Get(tree, c.Path)
	if !ok {
		return false
	}
	s := condition.ToString(v)
	switch c.Matcher {
	case model.MatchEqual:
		return s == c.Value
	case model.MatchPrefix:
		return strings.HasPrefix(s, c.Value)
	case model.MatchSuffix:
		return strings.HasSuffix(s, c.Value)
	case model.MatchContains:
		return strings.Contains(s, c.Value)
	case model.MatchAnyOf:
		for _, raw := range c.AnyOf {
			if condition.WildcardMatch(s, raw) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchSelection(tree map[string]any, sel model.Selection) bool {
	for _, c := range sel.Clauses {
		if !matchClause(tree, c) {
			return false
		}
	}
	return true
}

// evalConditionExpr interprets a selection-style rule's condition string:
// "all of them" (AND across every selection), "any of them" (OR), or the
// two-operand "<A> and <B>" / "<A> or <B>" forms. No parentheses or operator
// precedence beyond those four shapes is supported.
func evalConditionExpr(expr string, selections map[string]model.Selection, tree map[string]any) bool {
	switch strings.TrimSpace(expr) {
	case "", "all of them":
		for _, sel := range selections {
			if !matchSelection(tree, sel) {
				return false
			}
		}
		return true
	case "any of them":
		for _, sel := range selections {
			if matchSelection(tree, sel) {
				return true
			}
		}
		return false
	}

	if a, b, ok := splitTwoOperand(expr, " and "); ok {
		selA, okA := selections[a]
		selB, okB := selections[b]
		return okA && okB && matchSelection(tree, selA) && matchSelection(tree, selB)
	}
	if a, b, ok := splitTwoOperand(expr, " or "); ok {
		selA, okA := selections[a]
		selB, okB := selections[b]
		return (okA && matchSelection(tree, selA)) || (okB && matchSelection(tree, selB))
	}
	return false
}

func splitTwoOperand(expr, sep string) (a, b string, ok bool) {
	parts := strings.SplitN(expr, sep, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// selectionMatchedFields collects every clause, across every named
// selection in the rule, that individually matched tree — not just the
// clauses belonging to the selection(s) the condition expression picked.
func selectionMatchedFields(tree map[string]any, selections map[string]model.Selection) map[string]any {
	out := make(map[string]any)
	for _, sel := range selections {
		for _, c := range sel.Clauses {
			if matchClause(tree, c) {
				v, _ := fieldpath.Get(tree, c.Path)
				out[c.Path] = v
			}
		}
	}
	return out
}

// conditionMatchedFields collects the {field: actual} pairs for each
// condition that individually evaluated true.
func conditionMatchedFields(tree map[string]any, conds []model.Condition) map[string]any {
	out := make(map[string]any)
	for _, c := range conds {
		if condition.Eval(tree, c) {
			v, _ := fieldpath.Get(tree, c.Path)
			out[c.Path] = v
		}
	}
	return out
}

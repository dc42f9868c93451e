// Package condition evaluates the {field, op, value} grammar shared by
// condition-style detection rules (against an Event) and playbook
// triggers/action conditions (against an Alert). Both walk a tree produced
// by model.Event.Tree or model.Alert.Tree via internal/fieldpath.
package condition

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/sentrywatch/siemcore/internal/fieldpath"
	"github.com/sentrywatch/siemcore/internal/model"
)

// Eval evaluates a single condition against tree. A missing field never
// matches, regardless of operator.
func Eval(tree map[string]any, c model.Condition) bool {
	actual, ok := fieldpath.Get(tree, c.Path)
	if !ok {
		return false
	}
	switch c.Op {
	case model.OpEquals:
		return equal(actual, c.Value)
	case model.OpContains:
		return strings.Contains(ToString(actual), ToString(c.Value))
	case model.OpRegex:
		pattern, _ := c.Value.(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(ToString(actual))
	case model.OpGreaterThan:
		af, aok := ToFloat(actual)
		bf, bok := ToFloat(c.Value)
		return aok && bok && af > bf
	case model.OpLessThan:
		af, aok := ToFloat(actual)
		bf, bok := ToFloat(c.Value)
		return aok && bok && af < bf
	case model.OpMatches:
		return WildcardMatch(ToString(actual), ToString(c.Value))
	case model.OpIn:
		return evalIn(actual, c.Value)
	default:
		return false
	}
}

func evalIn(actual, value any) bool {
	switch list := value.(type) {
	case []string:
		s := ToString(actual)
		for _, v := range list {
			if s == v {
				return true
			}
		}
	case []any:
		for _, v := range list {
			if equal(actual, v) {
				return true
			}
		}
	}
	return false
}

// EvalAll combines conds by combine (default AND when empty or unrecognized).
// An empty condition list is vacuously true.
func EvalAll(tree map[string]any, conds []model.Condition, combine model.BoolOp) bool {
	if len(conds) == 0 {
		return true
	}
	if combine == model.BoolOr {
		for _, c := range conds {
			if Eval(tree, c) {
				return true
			}
		}
		return false
	}
	for _, c := range conds {
		if !Eval(tree, c) {
			return false
		}
	}
	return true
}

// WildcardMatch implements the shared string-matching grammar: "*X*" is a
// substring test, "*X" a suffix test, "X*" a prefix test, anything else
// exact equality.
func WildcardMatch(s, expected string) bool {
	switch {
	case len(expected) >= 2 && strings.HasPrefix(expected, "*") && strings.HasSuffix(expected, "*"):
		return strings.Contains(s, expected[1:len(expected)-1])
	case strings.HasPrefix(expected, "*"):
		return strings.HasSuffix(s, expected[1:])
	case strings.HasSuffix(expected, "*"):
		return strings.HasPrefix(s, expected[:len(expected)-1])
	default:
		return s == expected
	}
}

var opNames = map[string]model.ConditionOp{
	"equals":       model.OpEquals,
	"contains":     model.OpContains,
	"regex":        model.OpRegex,
	"greater_than": model.OpGreaterThan,
	"less_than":    model.OpLessThan,
	"matches":      model.OpMatches,
	"in":           model.OpIn,
}

// ParseOp resolves a rule/playbook-definition operator name (case
// insensitive) to its typed ConditionOp, shared by the detection rule
// loader and the playbook loader so both recognize the same spellings.
func ParseOp(name string) (model.ConditionOp, bool) {
	op, ok := opNames[strings.ToLower(name)]
	return op, ok
}

// ToString coerces an arbitrary decoded value to its string form for
// substring/regex/wildcard comparisons.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// ToFloat coerces a decoded value to float64 for the numeric operators.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func equal(a, b any) bool {
	if af, aok := ToFloat(a); aok {
		if bf, bok := ToFloat(b); bok {
			return af == bf
		}
	}
	return ToString(a) == ToString(b)
}

package model

import "time"

// RuleKind identifies which of the detection engine's rule families a Rule
// belongs to.
type RuleKind string

const (
	KindSelection RuleKind = "selection"
	KindCondition RuleKind = "condition"
	KindSignature RuleKind = "signature"
)

// Matcher is the leaf comparator in a selection-style rule's IR, parsed once
// at load time per the "parse once into typed IR" design note.
type Matcher int

const (
	MatchEqual Matcher = iota
	MatchPrefix
	MatchSuffix
	MatchContains
	MatchAnyOf
)

// SelectionClause is one `field -> expected` entry of a named selection.
type SelectionClause struct {
	Path     string   // dotted path, e.g. "data.status"
	Matcher  Matcher
	Value    string   // used by Equal/Prefix/Suffix/Contains
	AnyOf    []string // used by MatchAnyOf
}

// Selection is a named set of clauses that must ALL hold to match.
type Selection struct {
	Name    string
	Clauses []SelectionClause
}

// ConditionOp is a comparison operator for condition-style rules.
type ConditionOp string

const (
	OpEquals      ConditionOp = "equals"
	OpContains    ConditionOp = "contains"
	OpRegex       ConditionOp = "regex"
	OpGreaterThan ConditionOp = "greater_than"
	OpLessThan    ConditionOp = "less_than"
	// OpMatches and OpIn extend the trigger/condition grammar for Playbook
	// triggers and action conditions, which are evaluated against Alert
	// attributes rather than Event data.
	OpMatches ConditionOp = "matches"
	OpIn      ConditionOp = "in"
)

// Condition is one `{field, op, value}` entry of a condition-style rule or
// a playbook trigger/action condition.
type Condition struct {
	Path  string
	Op    ConditionOp
	Value any
}

// BoolOp combines Conditions or top-level Selections.
type BoolOp string

const (
	BoolAnd BoolOp = "and"
	BoolOr  BoolOp = "or"
)

// Rule is a parsed, immutable detection rule. Exactly one of Selections or
// Conditions is populated, per Kind.
type Rule struct {
	ID       string
	Kind     RuleKind
	Title    string
	Severity Severity
	Tags     []string
	Enabled  bool

	// Selection-style fields.
	Selections     map[string]Selection
	ConditionExpr  string // "all of them" | "any of them" | "<a> and <b>" | "<a> or <b>"

	// Condition-style fields.
	Conditions []Condition
	Combine    BoolOp

	// Signature-style fields: compiled content patterns, checked against an
	// event's file-blob field when present.
	Patterns []SignaturePattern
}

// SignaturePattern is one named byte-pattern in a signature-style rule.
type SignaturePattern struct {
	ID      string
	Pattern []byte
}

// AnomalyModel is a per-event-type ML anomaly scorer configuration.
type AnomalyModel struct {
	EventType string
	Features  []string // ordered feature names; missing fields treated as 0
	Threshold float64  // alert when score < Threshold; default -0.5
}

// Alert is a detection engine or rule-match output.
type Alert struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Severity      Severity       `json:"severity"`
	Timestamp     time.Time      `json:"timestamp"`
	RuleID        string         `json:"rule_id"`
	RuleName      string         `json:"rule_name"`
	SourceEvent   *Event         `json:"source_event,omitempty"`
	MatchedFields map[string]any `json:"matched_fields,omitempty"`
	Tags          []string       `json:"tags,omitempty"`

	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// Tree returns a as a plain map for dotted-path field navigation, the
// same mechanism §4.L's rules use against an Event's Tree, applied here
// by playbook triggers and per-action conditions against an Alert.
func (a *Alert) Tree() map[string]any {
	return map[string]any{
		"id":             a.ID,
		"title":          a.Title,
		"description":    a.Description,
		"severity":       string(a.Severity),
		"rule_id":        a.RuleID,
		"rule_name":      a.RuleName,
		"tags":           a.Tags,
		"matched_fields": a.MatchedFields,
		"acknowledged":   a.Acknowledged,
	}
}

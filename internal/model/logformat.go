package model

// FieldType is the declared type of one captured field in a LogFormat.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldInteger  FieldType = "integer"
	FieldDatetime FieldType = "datetime"
	FieldJSON     FieldType = "json"
)

// LogFormatSpec is the declarative shape of a named log format before it is
// compiled into a parser.LogFormat (regex compilation happens at
// registration, per the "parse once" design note).
type LogFormatSpec struct {
	Name   string
	Regex  string
	Fields map[string]FieldType
	Sample string
}

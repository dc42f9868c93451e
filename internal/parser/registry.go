// Package parser detects a raw log line's format and extracts it into the
// canonical event fields: timestamp, and a flat data map.
package parser

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/sentrywatch/siemcore/internal/model"
)

// Format pairs a compiled detector/extractor regex with its declared field
// types, mirroring model.LogFormatSpec but with the regex pre-compiled.
type Format struct {
	Name   string
	regex  *regexp.Regexp
	Fields map[string]model.FieldType
	Sample string
}

// Compile builds a Format from a spec, failing if the regex doesn't compile
// or doesn't cover every declared field with a matching named group.
func Compile(spec model.LogFormatSpec) (*Format, error) {
	re, err := regexp.Compile(spec.Regex)
	if err != nil {
		return nil, fmt.Errorf("parser: compile %q: %w", spec.Name, err)
	}

	groups := make(map[string]bool)
	for _, name := range re.SubexpNames() {
		groups[name] = true
	}
	for field := range spec.Fields {
		if !groups[field] {
			return nil, fmt.Errorf("parser: format %q: field %q has no named capture group", spec.Name, field)
		}
	}

	return &Format{Name: spec.Name, regex: re, Fields: spec.Fields, Sample: spec.Sample}, nil
}

// Registry holds every known format and tries each in registration order
// when auto-detecting.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	formats map[string]*Format
}

// NewRegistry builds a Registry seeded with the built-in formats.
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]*Format)}
	for _, spec := range builtinFormats {
		f, err := Compile(spec)
		if err != nil {
			// Built-ins are compiled at init from constants we control;
			// a failure here is a programming error, not runtime input.
			panic(err)
		}
		r.Register(f)
	}
	return r
}

// Register adds or replaces a format.
func (r *Registry) Register(f *Format) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formats[f.Name]; !exists {
		r.order = append(r.order, f.Name)
	}
	r.formats[f.Name] = f
}

// Get looks up a format by name.
func (r *Registry) Get(name string) (*Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	return f, ok
}

// Detect returns the name of the first registered format whose regex
// matches line, or "" if none match.
func (r *Registry) Detect(line string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.formats[name].regex.MatchString(line) {
			return name
		}
	}
	return ""
}

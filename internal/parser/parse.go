package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sentrywatch/siemcore/internal/model"
)

// syslogLayout has no year; parseTimestamp (called from ParseLine) stamps
// the current year on since the wire format never carries one.
const syslogLayout = "2006 Jan 2 15:04:05"
const combinedLogLayout = "02/Jan/2006:15:04:05 -0700"

// timestampFields are tried, in order, as the event's timestamp when
// parsed data carries more than one candidate key.
var timestampFields = []string{"timestamp", "@timestamp", "time", "datetime"}

// DetectFormat returns the name of the registered format matching line, or
// "" if none match.
func DetectFormat(r *Registry, line string) string {
	return r.Detect(line)
}

// ParseLine extracts line into a flat field map using formatName, or
// auto-detects a format when formatName is empty. It returns the matched
// format's name alongside the extracted data.
func ParseLine(r *Registry, line string, formatName string) (string, map[string]any, error) {
	if formatName == "" {
		formatName = r.Detect(line)
		if formatName == "" {
			return "", nil, fmt.Errorf("parser: unable to detect format")
		}
	}

	format, ok := r.Get(formatName)
	if !ok {
		return "", nil, fmt.Errorf("parser: unknown format %q", formatName)
	}

	match := format.regex.FindStringSubmatch(line)
	if match == nil {
		return "", nil, fmt.Errorf("parser: line does not match format %q", formatName)
	}

	groupIndex := make(map[string]string, len(match))
	for i, name := range format.regex.SubexpNames() {
		if name == "" || i >= len(match) {
			continue
		}
		groupIndex[name] = match[i]
	}

	data := make(map[string]any, len(format.Fields))
	for field, fieldType := range format.Fields {
		raw := groupIndex[field]
		if err := extractField(data, field, fieldType, raw, formatName); err != nil {
			return "", nil, err
		}
	}

	return formatName, data, nil
}

func extractField(data map[string]any, field string, fieldType model.FieldType, raw, formatName string) error {
	switch fieldType {
	case model.FieldInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parser: field %q: not an integer: %q", field, raw)
		}
		data[field] = n

	case model.FieldDatetime:
		ts, err := parseTimestamp(raw, formatName)
		if err != nil {
			return fmt.Errorf("parser: field %q: %w", field, err)
		}
		data[field] = ts.Format(time.RFC3339Nano)

	case model.FieldJSON:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return fmt.Errorf("parser: field %q: invalid json: %w", field, err)
		}
		for k, v := range parsed {
			data[k] = v
		}

	default:
		data[field] = raw
	}
	return nil
}

func parseTimestamp(raw, formatName string) (time.Time, error) {
	if formatName == "syslog" {
		year := time.Now().Year()
		return time.Parse(syslogLayout, fmt.Sprintf("%d %s", year, raw))
	}
	if t, err := time.Parse(combinedLogLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// CreateEvent builds a canonical Event from parsed field data, promoting
// the first recognized timestamp-like key and removing it from Data.
func CreateEvent(source, eventType string, data map[string]any) model.Event {
	ev := model.Event{Source: source, EventType: eventType, Data: make(map[string]any, len(data))}

	for k, v := range data {
		ev.Data[k] = v
	}

	for _, key := range timestampFields {
		raw, ok := ev.Data[key]
		if !ok {
			continue
		}
		if s, ok := raw.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				ev.Timestamp = t
			}
		}
		delete(ev.Data, key)
		break
	}

	return ev
}

package detection

import (
	"bytes"

	"github.com/sentrywatch/siemcore/internal/model"
)

// fileBlob extracts the raw content of an event's file attachment, when
// present: data.file.content.
func fileBlob(ev *model.Event) ([]byte, bool) {
	fileAny, ok := ev.Data["file"]
	if !ok {
		return nil, false
	}
	file, ok := fileAny.(map[string]any)
	if !ok {
		return nil, false
	}
	content, ok := file["content"].(string)
	if !ok {
		return nil, false
	}
	return []byte(content), true
}

// matchSignatures scans blob against every compiled pattern of every
// signature rule, emitting one alert per matching pattern.
func (e *Engine) matchSignatures(ev *model.Event, blob []byte) []model.Alert {
	var alerts []model.Alert
	for _, rule := range e.signatureRules {
		for _, p := range rule.Patterns {
			if len(p.Pattern) == 0 || !bytes.Contains(blob, p.Pattern) {
				continue
			}
			alerts = append(alerts, model.Alert{
				ID:            e.newAlertID("sig", rule.ID),
				Title:         rule.Title,
				Description:   rule.Title,
				Severity:      model.SeverityHigh,
				Timestamp:     e.now(),
				RuleID:        rule.ID,
				RuleName:      rule.Title,
				SourceEvent:   ev,
				MatchedFields: map[string]any{"pattern_id": p.ID},
				Tags:          append(append([]string{}, rule.Tags...), p.ID),
			})
		}
	}
	return alerts
}

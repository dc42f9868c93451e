package alertdispatch

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sentrywatch/siemcore/internal/model"
)

var sanitizer = bluemonday.StrictPolicy()

// renderBody templates a plain-text alert body and strips any markup that
// made it into rule-controlled fields (title, description, tags), so a
// rule author can never inject HTML/script content into a downstream chat
// or email renderer.
func renderBody(alert *model.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(alert.Severity)), sanitize(alert.Title))
	if alert.Description != "" {
		fmt.Fprintf(&b, "%s\n", sanitize(alert.Description))
	}
	fmt.Fprintf(&b, "rule: %s (%s)\n", sanitize(alert.RuleName), alert.RuleID)
	if len(alert.Tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", sanitize(strings.Join(alert.Tags, ", ")))
	}
	fmt.Fprintf(&b, "alert id: %s\n", alert.ID)
	return b.String()
}

func sanitize(s string) string {
	return sanitizer.Sanitize(s)
}

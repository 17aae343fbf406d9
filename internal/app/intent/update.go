package intent

import (
	"regexp"
	"strings"
)

var (
	updateKeywords   = []string{"update", "edit", "change", "modify", "revise"}
	updateContentRe  = regexp.MustCompile(`(?i)(?:update|edit|change|modify|revise)(?:\s+note)?(?:\s+to)?:?\s*(.*)`)
	updateKeywordsRe = regexp.MustCompile(`(?i)update|edit|change|modify|revise`)
)

// IsUpdateRequest reports whether the message contains an update keyword.
// Matching is by substring, so "changed" counts.
func IsUpdateRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range updateKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// UpdateContent returns what follows the first update keyword, with an
// optional "note", "to" and colon skipped.
func UpdateContent(text string) string {
	m := updateContentRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// StripUpdateKeywords removes every update keyword occurrence and trims the rest.
func StripUpdateKeywords(text string) string {
	return strings.TrimSpace(updateKeywordsRe.ReplaceAllString(text, ""))
}

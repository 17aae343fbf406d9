// Package intent recognises note commands in chat messages without calling the
// model. Extractors are pure: they read the message and the pending follow-up
// state and never touch the store or the conversation.
package intent

import (
	"regexp"
	"strings"

	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// Kind is what a matched message asks for: a note operation or a clarifying question.
type Kind int

const (
	KindDelete Kind = iota + 1
	KindUpdateStatus
	KindUpdateContent

	// Clarifications: the turn ends with a question and a pending field set.
	KindAskDeleteTarget
	KindAskStatus
	KindAskContent
)

func (k Kind) String() string {
	switch k {
	case KindDelete:
		return "delete"
	case KindUpdateStatus:
		return "update_status"
	case KindUpdateContent:
		return "update_content"
	case KindAskDeleteTarget:
		return "ask_delete_target"
	case KindAskStatus:
		return "ask_status"
	case KindAskContent:
		return "ask_content"
	default:
		return "unknown"
	}
}

// Clarifies reports whether the intent asks the user for more input.
func (k Kind) Clarifies() bool {
	return k == KindAskDeleteTarget || k == KindAskStatus || k == KindAskContent
}

// Intent is a recognised command.
type Intent struct {
	Kind      Kind
	Ref       string
	Text      string
	Completed bool

	// FromPending is set when the intent answers a previous clarification,
	// in which case the pending state must be cleared.
	FromPending bool

	// Extractor names the rule that produced the intent, for logging.
	Extractor string
}

// Extractor is one (predicate, handler) rule.
type Extractor struct {
	Name  string
	Match func(text string, pending domain.PendingState) (Intent, bool)
}

// Extractors are tried in order; pending resolvers come first.
var Extractors = []Extractor{
	{Name: "pending_delete", Match: matchPendingDelete},
	{Name: "pending_status", Match: matchPendingStatus},
	{Name: "pending_content", Match: matchPendingContent},
	{Name: "delete_keyword", Match: matchDelete},
	{Name: "status_phrase", Match: matchStatusPhrase},
	{Name: "update_phrase", Match: matchUpdatePhrase},
	{Name: "bare_number", Match: matchBareNumber},
}

// Extract runs the extractors in order and returns the first match.
func Extract(text string, pending domain.PendingState) (Intent, bool) {
	for _, e := range Extractors {
		if in, ok := e.Match(text, pending); ok {
			in.Extractor = e.Name
			return in, true
		}
	}
	return Intent{}, false
}

var (
	digitsOnly   = regexp.MustCompile(`^\d+$`)
	anyNumber    = regexp.MustCompile(`\b\d+\b`)
	statusPhrase = regexp.MustCompile(`(?i)\b(?:mark|set|update|change)\s+(?:note\s+)?#?(\d+)\s+(?:as|to)\s+(.+?)\s*[.!]?$`)
	updatePhrase = regexp.MustCompile(`(?i)\bupdate\s+(?:note\s+)?#?(\d+)(?:\s+content\b)?(?:\s+to\b)?\s*:?\s*(.*)$`)
)

var deleteKeywords = []string{"delete", "remove", "trash"}

func matchPendingDelete(text string, p domain.PendingState) (Intent, bool) {
	text = strings.TrimSpace(text)
	if !p.Delete || !digitsOnly.MatchString(text) {
		return Intent{}, false
	}
	return Intent{Kind: KindDelete, Ref: text, FromPending: true}, true
}

func matchPendingStatus(text string, p domain.PendingState) (Intent, bool) {
	if p.StatusRef == "" {
		return Intent{}, false
	}
	completed, ok := ParseStatus(text)
	if !ok {
		return Intent{}, false
	}
	return Intent{Kind: KindUpdateStatus, Ref: p.StatusRef, Completed: completed, FromPending: true}, true
}

func matchPendingContent(text string, p domain.PendingState) (Intent, bool) {
	text = strings.TrimSpace(text)
	if p.ContentRef == "" || text == "" {
		return Intent{}, false
	}
	return Intent{Kind: KindUpdateContent, Ref: p.ContentRef, Text: text, FromPending: true}, true
}

func matchDelete(text string, _ domain.PendingState) (Intent, bool) {
	lower := strings.ToLower(text)
	found := false
	for _, kw := range deleteKeywords {
		if strings.Contains(lower, kw) {
			found = true
			break
		}
	}
	if !found {
		return Intent{}, false
	}

	if n := anyNumber.FindString(text); n != "" {
		return Intent{Kind: KindDelete, Ref: n}, true
	}
	return Intent{Kind: KindAskDeleteTarget}, true
}

func matchStatusPhrase(text string, _ domain.PendingState) (Intent, bool) {
	m := statusPhrase.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Intent{}, false
	}
	completed, ok := ParseStatus(m[2])
	if !ok {
		return Intent{}, false
	}
	return Intent{Kind: KindUpdateStatus, Ref: m[1], Completed: completed}, true
}

func matchUpdatePhrase(text string, _ domain.PendingState) (Intent, bool) {
	m := updatePhrase.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Intent{}, false
	}
	rest := strings.TrimSpace(m[2])
	if rest == "" {
		return Intent{Kind: KindAskContent, Ref: m[1]}, true
	}
	return Intent{Kind: KindUpdateContent, Ref: m[1], Text: rest}, true
}

func matchBareNumber(text string, p domain.PendingState) (Intent, bool) {
	text = strings.TrimSpace(text)
	if p.Any() || !digitsOnly.MatchString(text) {
		return Intent{}, false
	}
	return Intent{Kind: KindAskStatus, Ref: text}, true
}

// ParseStatus maps a status word to a completion flag.
func ParseStatus(s string) (completed bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "complete", "completed", "done":
		return true, true
	case "false", "pending", "incomplete", "not done":
		return false, true
	default:
		return false, false
	}
}

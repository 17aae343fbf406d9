// Package format renders assistant replies. Every function is deterministic
// and has no side effects.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

const (
	DefaultLayout = "Jan 2, 2006 3:04 PM"

	maxPreviewRunes = 80
)

// Reply texts that do not depend on an observation.
const (
	AskDeleteTargetText = "Which note would you like to delete? Please provide the note ID."
	UpstreamErrorText   = "Sorry, I couldn't understand that. Could you please rephrase your request?"
	StoreErrorText      = "An error occurred while processing your request"
)

type Formatter struct {
	loc    *time.Location
	layout string
}

// New returns a formatter rendering timestamps in loc. A nil loc means UTC.
func New(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc, layout: DefaultLayout}
}

// Render turns an observation into the reply text for its operation.
func (f *Formatter) Render(obs *tools.Observation) string {
	if obs == nil {
		return "Operation completed successfully."
	}

	if !obs.Success {
		return "❌ " + obs.Message
	}

	switch obs.Op.Kind {
	case tools.OpGetNotes:
		return f.list(obs.Notes)
	case tools.OpSearchNote:
		return f.search(obs.Op.Query, obs.Notes)
	}

	n := obs.Note
	switch obs.Op.Kind {
	case tools.OpCreateNote:
		return fmt.Sprintf("✅ %s:\n📝 \"%s\"\n#️⃣ Note ID: %d\n\nWould you like to create another note or see all your notes?",
			obs.Message, n.Text, n.Seq)

	case tools.OpUpdateNote:
		return fmt.Sprintf("✅ %s!\n📝 New content: \"%s\"\n📅 Last modified: %s\n\nWould you like to see your updated note?",
			obs.Message, n.Text, f.timestamp(n.UpdatedAt))

	case tools.OpUpdateNoteStatus:
		return fmt.Sprintf("✅ %s!\n📝 Note: \"%s\"\n✔️ Status: %s\n📅 Last modified: %s",
			obs.Message, n.Text, statusLabel(n.Completed), f.timestamp(n.UpdatedAt))

	case tools.OpDeleteNote:
		return fmt.Sprintf("✅ %s!\n📝 Deleted note: \"%s\"\n\nWould you like to see your remaining notes?",
			obs.Message, n.Text)
	}

	return obs.Message
}

// AskDeleteTarget asks which note to delete.
func (f *Formatter) AskDeleteTarget() string {
	return AskDeleteTargetText
}

// AskStatus asks for the new status of note ref.
func (f *Formatter) AskStatus(ref string) string {
	return fmt.Sprintf("Please provide the status for note #%s (true for complete, false for incomplete):", ref)
}

// AskContent asks for the new content of note ref.
func (f *Formatter) AskContent(ref string) string {
	return fmt.Sprintf("What should note #%s say? Please provide the new content:", ref)
}

func (f *Formatter) list(notes []*domain.Note) string {
	if len(notes) == 0 {
		return "You don't have any notes yet. Would you like to create one?"
	}

	items := make([]string, 0, len(notes))
	for i, n := range notes {
		items = append(items, fmt.Sprintf("%d. 📝 Note: %s\n   #️⃣ Note ID: %d\n   📅 Created: %s\n   ✔️ Status: %s",
			i+1, truncate(n.Text, maxPreviewRunes), n.Seq, f.timestamp(n.UpdatedAt), statusLabel(n.Completed)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Here are all your notes (%d total):\n\n", len(notes))
	b.WriteString(strings.Join(items, "\n\n"))
	b.WriteString("\n\nWhat would you like to do with these notes?\n\n1. Create a new note\n2. Search notes\n3. Update a note\n4. Delete a note")
	return b.String()
}

func (f *Formatter) search(query string, hits []*domain.Note) string {
	if len(hits) == 0 {
		return fmt.Sprintf("🔍 I searched for \"%s\" but couldn't find any matching notes. Would you like to:\n1. Try a different search term\n2. See all your notes\n3. Create a new note", query)
	}

	items := make([]string, 0, len(hits))
	for _, n := range hits {
		items = append(items, fmt.Sprintf("🔎 Found Note #%d: %s\n📅 Created: %s\n✔️ Status: %s",
			n.Seq, truncate(n.Text, maxPreviewRunes), f.timestamp(n.UpdatedAt), statusLabel(n.Completed)))
	}

	return fmt.Sprintf("🔍 Search Results for \"%s\":\n\n%s\n\nFound %d matching note(s). Would you like to perform another search?",
		query, strings.Join(items, "\n\n"), len(hits))
}

func (f *Formatter) timestamp(t time.Time) string {
	return t.In(f.loc).Format(f.layout)
}

func statusLabel(completed bool) string {
	if completed {
		return "Completed ✓"
	}
	return "Pending ⏳"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

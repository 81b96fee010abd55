package persona

import (
	"fmt"
	"strings"

	"github.com/malhajar17/moentreprise/pkg/conversation"
)

// FallbackUtterance replaces a persona response that stayed empty after the
// retry budget, keeping the conversation audibly moving.
const FallbackUtterance = "I think this is really interesting, please continue."

// ErrorSentinel is the history entry recorded for a turn that failed with a
// channel error, so downstream consumers see the gap explicitly.
func ErrorSentinel(name string) string {
	return fmt.Sprintf("[ERROR: %s encountered an issue]", name)
}

// ContextWindow renders the participant list and the trailing slice of
// conversation history into the context block shared by every turn prompt.
func ContextWindow(r *Roster, history []conversation.Entry, window int) string {
	var b strings.Builder
	b.WriteString("PARTICIPANTS: ")
	b.WriteString(strings.Join(r.Speakers(), ", "))
	b.WriteString("\n\n")

	recent := conversation.Window(history, window)
	if len(recent) == 0 {
		b.WriteString("This is the beginning of our conversation with the human.")
		return b.String()
	}
	b.WriteString("RECENT CONVERSATION:")
	for _, e := range recent {
		b.WriteString("\n")
		b.WriteString(e.Speaker)
		b.WriteString(": ")
		b.WriteString(e.Text)
	}
	return b.String()
}

// TurnInstructions resolves the directive sent for one turn. A non-empty
// override replaces the standing persona directive entirely and is consumed
// by the caller; the persona itself is never mutated.
func TurnInstructions(p Persona, override string) string {
	if override != "" {
		return override
	}
	return p.Instructions
}

// TurnPrompt assembles the per-turn user prompt: directive, context block,
// and what was just said. When the previous speaker was the human the prompt
// flags it explicitly so the persona addresses the human directly.
func TurnPrompt(p Persona, directive, context string, last conversation.Entry, haveLast bool) string {
	var b strings.Builder
	b.WriteString(directive)
	b.WriteString("\n\n")
	b.WriteString(context)
	if haveLast {
		b.WriteString("\n\n")
		if last.Speaker == Human {
			b.WriteString("HUMAN JUST SAID: ")
			b.WriteString(last.Text)
			b.WriteString("\nRespond appropriately.")
		} else {
			b.WriteString(last.Speaker)
			b.WriteString(" just said: ")
			b.WriteString(last.Text)
		}
	}
	return b.String()
}

// ReinforcePrompt strengthens a prompt for an empty-response retry.
func ReinforcePrompt(prompt string) string {
	return prompt + "\n\nIMPORTANT: You MUST provide a spoken response. Do not reply with empty content."
}

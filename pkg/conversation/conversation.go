// Package conversation holds the transcript types shared between the
// orchestrator and its collaborators: the append-only conversation entry, the
// bounded trailing window fed into subsequent turns, and conversation IDs.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one completed speaking turn in the transcript. Entries are
// append-only; once recorded they are never mutated.
type Entry struct {
	// Speaker is the participant name ("Marcus", "Sarah", …, or "Human").
	Speaker string

	// Text is the aggregated spoken text of the turn. For error turns this is
	// a sentinel marker such as "[ERROR: Marcus encountered an issue]".
	Text string

	// Timestamp records when the turn completed.
	Timestamp time.Time

	// AudioBytes is the total length of synthesised audio produced during the
	// turn. Zero for text-only turns and human text input.
	AudioBytes int
}

// NewID returns a fresh conversation identifier.
func NewID() string {
	return uuid.NewString()
}

// Window returns the trailing n entries of history. The full history is never
// fed back into a turn — only this bounded window. Returns history itself
// when it already fits.
func Window(history []Entry, n int) []Entry {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Last returns the most recent entry and true, or a zero Entry and false when
// the history is empty.
func Last(history []Entry) (Entry, bool) {
	if len(history) == 0 {
		return Entry{}, false
	}
	return history[len(history)-1], true
}

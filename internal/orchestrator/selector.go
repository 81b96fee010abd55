package orchestrator

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/malhajar17/moentreprise/internal/persona"
)

// Selection is the outcome of decoding one turn's select_next_speaker call.
type Selection struct {
	// Speaker is the resolved roster index of the next participant. The
	// human slot is a valid value.
	Speaker int

	// Reason records how the index was obtained: "explicit" when the model's
	// call decoded cleanly, "fallback" otherwise.
	Reason string

	// Explicit is true only when the model's own selection was used.
	Explicit bool
}

// Selector decodes speaker selections against a fixed roster.
type Selector struct {
	roster *persona.Roster
	log    *slog.Logger
}

// NewSelector creates a selector for the given roster. A nil logger uses the
// default.
func NewSelector(roster *persona.Roster, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{roster: roster, log: log}
}

// Decode resolves the next speaker for the turn of the persona at current.
//
// Precedence: the final tool-call arguments win when they parse to a valid
// index; otherwise the accumulated argument deltas are tried, covering
// providers that close the call before sending complete finals. Anything
// else, including no call at all, degrades to the sequential successor. The
// conversation never stalls on a malformed selection.
func (s *Selector) Decode(current int, finalArgs, buffered string) Selection {
	if idx, ok := s.parse(finalArgs); ok {
		return Selection{Speaker: idx, Reason: "explicit", Explicit: true}
	}
	if idx, ok := s.parse(buffered); ok {
		s.log.Debug("selection recovered from buffered deltas", "speaker", idx)
		return Selection{Speaker: idx, Reason: "explicit", Explicit: true}
	}
	if strings.TrimSpace(finalArgs) == "" && strings.TrimSpace(buffered) == "" {
		s.log.Warn("no speaker selection received, using sequential fallback", "current", current)
	} else {
		s.log.Warn("malformed speaker selection, using sequential fallback",
			"current", current, "args", finalArgs)
	}
	return s.Fallback(current)
}

// Fallback returns the sequential successor of the persona at current.
func (s *Selector) Fallback(current int) Selection {
	return Selection{Speaker: s.roster.Next(current), Reason: "fallback"}
}

// parse extracts and validates a speaker index from tool-call argument JSON.
func (s *Selector) parse(args string) (int, bool) {
	args = strings.TrimSpace(args)
	if args == "" {
		return 0, false
	}
	var payload persona.SelectionArgs
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(payload.SpeakerIndex))
	if err != nil {
		return 0, false
	}
	if idx < 0 || idx > s.roster.HumanIndex() {
		return 0, false
	}
	return idx, true
}

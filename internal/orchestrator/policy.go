package orchestrator

import (
	"context"
)

// Phase names a stage of a scripted conversation. Free-running conversations
// stay in PhaseFree for their whole lifetime.
type Phase string

const (
	PhaseFree         Phase = "free"
	PhaseGreeting     Phase = "greeting"
	PhaseInterview    Phase = "interview"
	PhaseFarewell     Phase = "farewell"
	PhaseIdeationPrep Phase = "ideation_prep"
	PhaseIdeation     Phase = "ideation"
	PhaseShowcase     Phase = "showcase"
	PhaseMarketing    Phase = "marketing"
	PhaseClosing      Phase = "closing"
	PhaseComplete     Phase = "complete"
)

// Step describes the turn that just finished, as input to a policy decision.
type Step struct {
	// Phase the turn ran in.
	Phase Phase

	// Speaker is the roster index of who just spoke; the human slot for
	// human turns.
	Speaker int

	// Text is the aggregated response (or human contribution) of the turn.
	Text string
}

// Resolution is a policy's decision about the next turn.
type Resolution struct {
	// Phase for the next turn.
	Phase Phase

	// Next is the roster index of the next speaker; the human slot hands
	// the floor to the human participant.
	Next int

	// Override, when non-empty, replaces the next speaker's standing
	// directive for that one turn only.
	Override string

	// Status, when non-empty, is surfaced to the presentation layer.
	Status string

	// End marks the conversation as finished; Next is ignored.
	End bool
}

// Policy decides who speaks next and in which phase. Implementations receive
// the free-choice selection already decoded from the finished turn and may
// honour, redirect, or ignore it. Policies are called from the single turn
// loop and need no internal locking against the engine, but must tolerate
// being inspected concurrently if they expose state.
type Policy interface {
	// Start returns the opening phase and the first speaker's roster index.
	Start() (Phase, int)

	// Resolve decides the next step after the given turn. free is the
	// decoded select_next_speaker outcome: for human turns, where no
	// selection tool exists, it is the sequential successor of the last
	// persona that spoke.
	Resolve(ctx context.Context, step Step, free Selection) Resolution
}

// FreePolicy runs an unscripted conversation: every turn goes wherever the
// finished speaker pointed, with sequential rotation as the safety net.
type FreePolicy struct{}

// Start begins with the first roster persona in the free phase.
func (FreePolicy) Start() (Phase, int) { return PhaseFree, 0 }

// Resolve always defers to the free selection.
func (FreePolicy) Resolve(_ context.Context, step Step, free Selection) Resolution {
	return Resolution{Phase: step.Phase, Next: free.Speaker}
}

var _ Policy = FreePolicy{}

package orchestrator

// Events carries the presentation-layer callbacks fired by the engine. Any
// field may be nil; the engine treats missing callbacks as no-ops. Callbacks
// run synchronously on the turn loop, so they must return quickly — hand
// heavy work to a channel or goroutine.
type Events struct {
	// PersonaStarted fires when a persona's turn begins streaming.
	PersonaStarted func(name string)

	// PersonaFinished fires when a persona's response is fully aggregated,
	// with the final text and the total size of streamed audio in bytes.
	PersonaFinished func(name, text string, audioBytes int)

	// AudioChunk fires for every audio fragment as it arrives, in order.
	AudioChunk func(name string, chunk []byte)

	// HumanTurnStarted fires when the floor passes to the human.
	HumanTurnStarted func()

	// HumanTurnEnded fires when the human turn resolves, by submission or
	// timeout.
	HumanTurnEnded func()

	// Status fires for phase and workflow progress notifications meant for
	// display ("research in progress", build output lines and the like).
	Status func(kind, detail string)

	// ConversationComplete fires exactly once when the conversation ends.
	ConversationComplete func()
}

func (e Events) personaStarted(name string) {
	if e.PersonaStarted != nil {
		e.PersonaStarted(name)
	}
}

func (e Events) personaFinished(name, text string, audioBytes int) {
	if e.PersonaFinished != nil {
		e.PersonaFinished(name, text, audioBytes)
	}
}

func (e Events) audioChunk(name string, chunk []byte) {
	if e.AudioChunk != nil {
		e.AudioChunk(name, chunk)
	}
}

func (e Events) humanTurnStarted() {
	if e.HumanTurnStarted != nil {
		e.HumanTurnStarted()
	}
}

func (e Events) humanTurnEnded() {
	if e.HumanTurnEnded != nil {
		e.HumanTurnEnded()
	}
}

func (e Events) status(kind, detail string) {
	if e.Status != nil {
		e.Status(kind, detail)
	}
}

func (e Events) conversationComplete() {
	if e.ConversationComplete != nil {
		e.ConversationComplete()
	}
}

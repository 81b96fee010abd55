package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/malhajar17/moentreprise/internal/persona"
)

// DefaultInterviewQuestions is the stock requirements checklist the
// interviewer works through, one question per human exchange.
var DefaultInterviewQuestions = []string{
	"Who is the target audience?",
	"Which pages do you need?",
	"Preferred colour palette?",
	"Example websites you like?",
	"Timeline and budget?",
	"How will you measure success?",
}

// Summariser condenses interview notes into a briefing paragraph. It must
// not fail the conversation; implementations degrade to a deterministic
// rendering on error.
type Summariser interface {
	Summarise(ctx context.Context, notes []string) string
}

// PhasedPolicy drives the scripted agency flow: the coordinator greets, the
// interviewer runs a fixed question list against the human, research and
// build follow in a fixed ideation order, then showcase, marketing, and a
// closing statement. Transitions the script does not cover defer to the
// free-choice selection.
//
// The policy never mutates personas; per-turn scripting rides on one-shot
// directive overrides in the resolutions it returns.
type PhasedPolicy struct {
	roster    *persona.Roster
	questions []string
	log       *slog.Logger

	summariser Summariser

	// Scripted role indices, resolved once at construction. A missing
	// optional role (marketer, video) is -1 and its stop is skipped.
	coordinator int
	interviewer int
	researcher  int
	builder     int
	marketer    int
	video       int

	asked int
	notes []string
}

// PhasedOption configures a [PhasedPolicy] during construction.
type PhasedOption func(*PhasedPolicy)

// WithQuestions replaces the default interview checklist.
func WithQuestions(questions []string) PhasedOption {
	return func(p *PhasedPolicy) {
		if len(questions) > 0 {
			p.questions = questions
		}
	}
}

// WithSummariser sets the briefing summariser used between the farewell and
// the ideation kickoff. Without one, the briefing is a plain bullet list.
func WithSummariser(s Summariser) PhasedOption {
	return func(p *PhasedPolicy) { p.summariser = s }
}

// NewPhasedPolicy builds the scripted policy for a roster. The roster must
// hold the coordinator, interviewer, researcher, and builder roles; the
// marketing and video roles are optional and their phases are skipped when
// absent.
func NewPhasedPolicy(roster *persona.Roster, log *slog.Logger, opts ...PhasedOption) (*PhasedPolicy, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &PhasedPolicy{
		roster:      roster,
		questions:   DefaultInterviewQuestions,
		log:         log,
		coordinator: roster.ByRole(persona.RoleCoordinator),
		interviewer: roster.ByRole(persona.RoleInterviewer),
		researcher:  roster.ByRole(persona.RoleResearcher),
		builder:     roster.ByRole(persona.RoleBuilder),
		marketer:    roster.ByRole(persona.RoleMarketer),
		video:       roster.ByRole(persona.RoleVideoProducer),
	}
	for _, opt := range opts {
		opt(p)
	}

	for role, idx := range map[persona.Role]int{
		persona.RoleCoordinator: p.coordinator,
		persona.RoleInterviewer: p.interviewer,
		persona.RoleResearcher:  p.researcher,
		persona.RoleBuilder:     p.builder,
	} {
		if idx == -1 {
			return nil, fmt.Errorf("orchestrator: phased policy requires a %s persona", role)
		}
	}
	return p, nil
}

// Start opens with the coordinator's greeting.
func (p *PhasedPolicy) Start() (Phase, int) { return PhaseGreeting, p.coordinator }

// Notes returns the interview answers captured so far.
func (p *PhasedPolicy) Notes() []string {
	out := make([]string, len(p.notes))
	copy(out, p.notes)
	return out
}

// Resolve implements [Policy].
func (p *PhasedPolicy) Resolve(ctx context.Context, step Step, free Selection) Resolution {
	switch step.Phase {
	case PhaseGreeting:
		return p.nextQuestion(PhaseInterview)

	case PhaseInterview:
		return p.resolveInterview(step, free)

	case PhaseFarewell:
		if step.Speaker == p.interviewer {
			return Resolution{
				Phase:    PhaseIdeationPrep,
				Next:     p.coordinator,
				Override: p.ideationBriefing(ctx),
				Status:   "requirements gathered",
			}
		}
		return p.deferFree(step, free)

	case PhaseIdeationPrep:
		if step.Speaker == p.coordinator {
			return Resolution{Phase: PhaseIdeation, Next: p.researcher, Status: "research in progress"}
		}
		return p.deferFree(step, free)

	case PhaseIdeation:
		return p.resolveIdeation(step, free)

	case PhaseShowcase:
		switch step.Speaker {
		case p.builder:
			return Resolution{Phase: PhaseShowcase, Next: p.coordinator, Override: p.showcasePraise()}
		case p.coordinator:
			return p.enterMarketing()
		}
		return p.deferFree(step, free)

	case PhaseMarketing:
		switch step.Speaker {
		case p.marketer:
			if p.video != -1 {
				return Resolution{Phase: PhaseMarketing, Next: p.video, Status: "publishing in progress"}
			}
			return p.enterClosing()
		case p.video:
			return p.enterClosing()
		}
		return p.deferFree(step, free)

	case PhaseClosing:
		if step.Speaker == p.coordinator {
			return Resolution{Phase: PhaseComplete, End: true}
		}
		return p.deferFree(step, free)

	case PhaseComplete:
		return Resolution{Phase: PhaseComplete, End: true}
	}
	return p.deferFree(step, free)
}

func (p *PhasedPolicy) resolveInterview(step Step, free Selection) Resolution {
	switch step.Speaker {
	case p.interviewer:
		// The interviewer asked; the floor goes to the human regardless of
		// any selection the model made.
		return Resolution{Phase: PhaseInterview, Next: p.roster.HumanIndex()}

	case p.roster.HumanIndex():
		p.notes = append(p.notes, step.Text)
		if p.asked < len(p.questions) {
			return p.nextQuestion(PhaseInterview)
		}
		return Resolution{Phase: PhaseFarewell, Next: p.interviewer, Override: p.farewellDirective()}
	}
	return p.deferFree(step, free)
}

func (p *PhasedPolicy) resolveIdeation(step Step, free Selection) Resolution {
	switch step.Speaker {
	case p.researcher:
		// Hard rule: research always reports back to the coordinator, no
		// matter what the model selected.
		return Resolution{Phase: PhaseIdeation, Next: p.coordinator, Override: p.postResearchDirective()}

	case p.coordinator:
		return Resolution{Phase: PhaseIdeation, Next: p.builder}

	case p.builder:
		// The build pipeline has been triggered; the builder presents the
		// result next.
		return Resolution{
			Phase:    PhaseShowcase,
			Next:     p.builder,
			Override: p.showcaseDirective(),
			Status:   "build in progress",
		}
	}
	return p.deferFree(step, free)
}

// nextQuestion scripts the interviewer's next turn and advances the
// checklist cursor.
func (p *PhasedPolicy) nextQuestion(phase Phase) Resolution {
	if p.asked >= len(p.questions) {
		return Resolution{Phase: PhaseFarewell, Next: p.interviewer, Override: p.farewellDirective()}
	}
	q := p.questions[p.asked]
	p.asked++
	return Resolution{
		Phase: phase,
		Next:  p.interviewer,
		Override: fmt.Sprintf(
			"You are the interviewer. Acknowledge the client's last answer in ONE short sentence. "+
				"Then ask exactly this question: %q. After the question call select_next_speaker with speaker_index=%q.",
			q, strconv.Itoa(p.roster.HumanIndex())),
	}
}

func (p *PhasedPolicy) farewellDirective() string {
	return fmt.Sprintf(
		"Thank the client for the information in one friendly sentence and say you will report to the "+
			"project manager, then call select_next_speaker with speaker_index=%q.",
		strconv.Itoa(p.coordinator))
}

// ideationBriefing builds the coordinator's kickoff directive, embedding a
// summary of the captured interview notes.
func (p *PhasedPolicy) ideationBriefing(ctx context.Context) string {
	summary := p.bulletNotes()
	if p.summariser != nil {
		summary = p.summariser.Summarise(ctx, p.notes)
	}
	return fmt.Sprintf(
		"You are the Project Manager. The interview is complete.\n\nSUMMARY OF CLIENT PREFERENCES:\n%s\n\n"+
			"Thank the interviewer for collecting the information, then instruct the researcher to find similar "+
			"websites with screenshots for inspiration. After your two-sentence message, call select_next_speaker "+
			"with speaker_index=%q.",
		summary, strconv.Itoa(p.researcher))
}

func (p *PhasedPolicy) postResearchDirective() string {
	return fmt.Sprintf(
		"You are the Project Manager. The researcher has just completed the screenshot research. Thank them "+
			"briefly in one sentence, then tell the developer to start coding the website based on the gathered "+
			"requirements. Keep it direct and simple. End by calling select_next_speaker with speaker_index=%q.",
		strconv.Itoa(p.builder))
}

func (p *PhasedPolicy) showcaseDirective() string {
	return "You are the Developer. The build pipeline has produced the website. Present the finished site to the " +
		"team in two or three enthusiastic sentences, mentioning what was built. Then call select_next_speaker " +
		"with speaker_index=\"" + strconv.Itoa(p.coordinator) + "\"."
}

func (p *PhasedPolicy) showcasePraise() string {
	next := p.marketer
	if next == -1 {
		next = p.coordinator
	}
	return fmt.Sprintf(
		"You are the Project Manager. The developer has just showcased the completed website and you are very "+
			"impressed. Praise the work in two or three enthusiastic sentences, then mention that marketing will "+
			"handle the launch announcement. End by calling select_next_speaker with speaker_index=%q.",
		strconv.Itoa(next))
}

func (p *PhasedPolicy) enterMarketing() Resolution {
	if p.marketer == -1 {
		return p.enterClosing()
	}
	return Resolution{Phase: PhaseMarketing, Next: p.marketer}
}

func (p *PhasedPolicy) enterClosing() Resolution {
	return Resolution{
		Phase: PhaseClosing,
		Next:  p.coordinator,
		Override: "You are the Project Manager. The launch campaign is done. Thank the marketing team warmly in " +
			"two or three sentences, acknowledge the whole team's work, and conclude by saying the project is " +
			"successfully completed and the session is now closed. Do not call any functions.",
	}
}

// deferFree falls back to the free-choice selection without leaving the
// current phase. Logged because an unmatched step usually means the script
// and the roster disagree.
func (p *PhasedPolicy) deferFree(step Step, free Selection) Resolution {
	p.log.Debug("phase script has no rule for speaker, deferring to free selection",
		"phase", step.Phase, "speaker", step.Speaker)
	return Resolution{Phase: step.Phase, Next: free.Speaker}
}

// bulletNotes renders the notes as the deterministic briefing fallback.
func (p *PhasedPolicy) bulletNotes() string {
	if len(p.notes) == 0 {
		return "(no notes)"
	}
	var b strings.Builder
	for i, n := range p.notes {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(n)
	}
	return b.String()
}

var _ Policy = (*PhasedPolicy)(nil)

// Package summary condenses captured interview notes into the briefing the
// project coordinator reads out before ideation starts. It is backed by
// github.com/mozilla-ai/any-llm-go so the summarising model can run on any
// supported provider, not just the realtime one.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/malhajar17/moentreprise/internal/orchestrator"
)

var _ orchestrator.Summariser = (*Summariser)(nil)

const systemPrompt = "You summarise client interview notes for a web agency. " +
	"Produce a short paragraph covering the business, desired features, style " +
	"preferences, and constraints. Be concrete; do not invent requirements."

// defaultMaxTokens caps the briefing length.
const defaultMaxTokens = 300

// Summariser produces a briefing paragraph from interview notes. Errors never
// surface: the conversation must go on, so any failure degrades to the plain
// bullet rendering of the notes.
type Summariser struct {
	backend anyllmlib.Provider
	model   string
	log     *slog.Logger
}

// New creates a Summariser on the named provider backend.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "mistral", "groq". Without an explicit anyllmlib.WithAPIKey option the
// backend falls back to its usual environment variable.
func New(providerName, model string, log *slog.Logger, opts ...anyllmlib.Option) (*Summariser, error) {
	if model == "" {
		return nil, fmt.Errorf("summary: model must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("summary: create %q backend: %w", providerName, err)
	}
	return &Summariser{backend: backend, model: model, log: log}, nil
}

// NewWithBackend wires an existing any-llm-go provider. Used by tests and by
// callers that already hold a configured backend.
func NewWithBackend(backend anyllmlib.Provider, model string, log *slog.Logger) (*Summariser, error) {
	if backend == nil {
		return nil, fmt.Errorf("summary: backend must not be nil")
	}
	if model == "" {
		return nil, fmt.Errorf("summary: model must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Summariser{backend: backend, model: model, log: log}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, mistral, groq", providerName)
	}
}

// Summarise condenses the notes into a briefing paragraph. On any backend
// failure it logs and returns the deterministic bullet rendering instead.
func (s *Summariser) Summarise(ctx context.Context, notes []string) string {
	if len(notes) == 0 {
		return Bullets(notes)
	}

	temp := 0.3
	maxTokens := defaultMaxTokens
	resp, err := s.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: s.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: "Interview notes:\n" + Bullets(notes)},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		s.log.Warn("briefing summary failed, using raw notes", "err", err)
		return Bullets(notes)
	}
	if len(resp.Choices) == 0 {
		s.log.Warn("briefing summary returned no choices, using raw notes")
		return Bullets(notes)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if text == "" {
		s.log.Warn("briefing summary was empty, using raw notes")
		return Bullets(notes)
	}
	return text
}

// Bullets renders notes as a plain bullet list. It is both the degraded
// summary output and the prompt body handed to the model.
func Bullets(notes []string) string {
	if len(notes) == 0 {
		return "(no notes)"
	}
	var b strings.Builder
	for i, n := range notes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(n)
	}
	return b.String()
}

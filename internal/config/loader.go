package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"realtime": {"openai-realtime", "mock"},
	"llm":      {"openai", "anthropic", "gemini", "ollama", "mistral", "groq"},
}

// validRoles are the persona role slots the phased script understands.
var validRoles = []string{"coordinator", "interviewer", "researcher", "builder", "marketer", "video"}

// phasedRequiredRoles must all be present for phased mode to run.
var phasedRequiredRoles = []string{"coordinator", "interviewer", "researcher", "builder"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. References of the form ${VAR} are expanded from the environment
// before parsing, so API keys can stay out of the file. It is a convenience
// wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}

	cfg, err := LoadFromReader(strings.NewReader(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("realtime", cfg.Realtime.Name)
	validateProviderName("llm", cfg.LLM.Name)

	if cfg.Realtime.Name == "" && len(cfg.Personas) > 0 {
		slog.Warn("no realtime provider configured; personas will not be able to speak")
	}
	if cfg.LLM.Name == "" {
		slog.Warn("no llm provider configured; interview briefings will use raw notes")
	}

	// Personas
	namesSeen := make(map[string]int, len(cfg.Personas))
	rolesSeen := make(map[string]int, len(cfg.Personas))
	for i, p := range cfg.Personas {
		prefix := fmt.Sprintf("personas[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[p.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of personas[%d]", prefix, p.Name, prev))
			}
			namesSeen[p.Name] = i
		}
		if p.Voice == "" {
			errs = append(errs, fmt.Errorf("%s.voice is required", prefix))
		}
		if p.Role != "" {
			if !slices.Contains(validRoles, p.Role) {
				errs = append(errs, fmt.Errorf("%s.role %q is invalid; valid values: %v", prefix, p.Role, validRoles))
			} else if prev, ok := rolesSeen[p.Role]; ok {
				errs = append(errs, fmt.Errorf("%s.role %q is already held by personas[%d]", prefix, p.Role, prev))
			}
			rolesSeen[p.Role] = i
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			errs = append(errs, fmt.Errorf("%s.temperature %.2f is out of range [0, 2]", prefix, p.Temperature))
		}
		if p.MaxResponseTokens < 0 {
			errs = append(errs, fmt.Errorf("%s.max_response_tokens must not be negative", prefix))
		}
	}

	// Phased mode needs its scripted roles filled.
	if cfg.Orchestrator.Phased {
		for _, role := range phasedRequiredRoles {
			if _, ok := rolesSeen[role]; !ok {
				errs = append(errs, fmt.Errorf("orchestrator.phased requires a persona with role %q", role))
			}
		}
	}

	// Orchestrator knobs
	if cfg.Orchestrator.MaxTurns < 0 {
		errs = append(errs, errors.New("orchestrator.max_turns must not be negative"))
	}
	if cfg.Orchestrator.ContextWindow < 0 {
		errs = append(errs, errors.New("orchestrator.context_window must not be negative"))
	}

	// Workflow availability warnings
	if _, ok := rolesSeen["builder"]; ok && len(cfg.Workflows.SiteBuild.Command) == 0 {
		slog.Warn("a builder persona is configured but workflows.site_build.command is empty; site builds will fail")
	}
	if _, ok := rolesSeen["marketer"]; ok && cfg.Workflows.SocialPost.APIKey == "" {
		slog.Warn("a marketer persona is configured but workflows.social_post.api_key is empty; posts will be text-only logs")
	}
	if _, ok := rolesSeen["video"]; ok && cfg.Workflows.PromoVideo.APIKey == "" {
		slog.Warn("a video persona is configured but workflows.promo_video.api_key is empty; video generation is disabled")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

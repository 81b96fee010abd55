// Package config provides the configuration schema, loader, and provider
// registry for the Moentreprise conversation server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration so YAML values like "30s" or "1.5s" parse
// directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for Moentreprise.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Realtime     ProviderEntry      `yaml:"realtime"`
	LLM          ProviderEntry      `yaml:"llm"`
	Workflows    WorkflowsConfig    `yaml:"workflows"`
	Personas     []PersonaConfig    `yaml:"personas"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProviderEntry is the common configuration block shared by external AI
// providers. The Name field is used to look up the constructor in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "openai-realtime", "openai", "mock").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "gpt-4o-realtime-preview", "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// PersonaConfig describes one AI team member.
type PersonaConfig struct {
	// Name is the persona's display name (e.g., "Marcus").
	Name string `yaml:"name"`

	// Voice is the realtime API voice identifier (e.g., "alloy", "sage").
	Voice string `yaml:"voice"`

	// Role assigns the persona a slot in the phased script: coordinator,
	// interviewer, researcher, builder, marketer, or video. Empty means the
	// persona only participates in free selection.
	Role string `yaml:"role"`

	// Instructions is the persona's system prompt.
	Instructions string `yaml:"instructions"`

	// Temperature controls response randomness. Zero uses the provider
	// default.
	Temperature float64 `yaml:"temperature"`

	// MaxResponseTokens caps each spoken response. Zero means unlimited.
	MaxResponseTokens int `yaml:"max_response_tokens"`
}

// WorkflowsConfig holds the side-effect workflow settings.
type WorkflowsConfig struct {
	SiteBuild  SiteBuildConfig  `yaml:"site_build"`
	SocialPost SocialPostConfig `yaml:"social_post"`
	PromoVideo PromoVideoConfig `yaml:"promo_video"`
}

// SiteBuildConfig configures the website build pipeline triggered by the
// builder persona.
type SiteBuildConfig struct {
	// Command is the pipeline invocation, program first.
	Command []string `yaml:"command"`

	// Dir is the working directory for the command.
	Dir string `yaml:"dir"`

	// SiteURL is the address announced once the dev server is up.
	SiteURL string `yaml:"site_url"`

	// ReadyMarker is the output substring that signals readiness.
	ReadyMarker string `yaml:"ready_marker"`
}

// SocialPostConfig configures the marketing post workflow.
type SocialPostConfig struct {
	// APIKey authenticates image generation. Empty disables the workflow.
	APIKey string `yaml:"api_key"`

	// ImageModel overrides the image generation model.
	ImageModel string `yaml:"image_model"`
}

// PromoVideoConfig configures the promotional video workflow.
type PromoVideoConfig struct {
	// APIKey authenticates the Gemini API. Empty disables the workflow.
	APIKey string `yaml:"api_key"`

	// Model overrides the Veo model identifier.
	Model string `yaml:"model"`

	// PollInterval spaces the generation status checks.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxPolls bounds how long one generation is awaited.
	MaxPolls int `yaml:"max_polls"`
}

// OrchestratorConfig holds the conversation loop knobs.
type OrchestratorConfig struct {
	// MaxTurns caps persona turns per conversation. Zero uses the default.
	MaxTurns int `yaml:"max_turns"`

	// ContextWindow is how many recent entries each persona sees. Zero uses
	// the default.
	ContextWindow int `yaml:"context_window"`

	// TurnDelay pauses between consecutive turns.
	TurnDelay Duration `yaml:"turn_delay"`

	// HumanTimeout bounds how long a human turn waits for input.
	HumanTimeout Duration `yaml:"human_timeout"`

	// HumanPollInterval is how often the human gate checks for a submission.
	HumanPollInterval Duration `yaml:"human_poll_interval"`

	// ChunkDuration is the assumed playback time per audio chunk.
	ChunkDuration Duration `yaml:"chunk_duration"`

	// SafetyBuffer is added to every playback estimate.
	SafetyBuffer Duration `yaml:"safety_buffer"`

	// Phased enables the scripted agency flow. When false, speaker order is
	// driven purely by select_next_speaker.
	Phased bool `yaml:"phased"`

	// Questions overrides the interview question list in phased mode.
	Questions []string `yaml:"questions"`
}

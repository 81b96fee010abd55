// Command moentreprise is the main entry point for the Moentreprise
// conversation server: a team of AI personas that interviews a human client
// and builds, promotes, and films a website for them, live.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/malhajar17/moentreprise/internal/config"
	"github.com/malhajar17/moentreprise/internal/observe"
	"github.com/malhajar17/moentreprise/internal/orchestrator"
	"github.com/malhajar17/moentreprise/internal/persona"
	"github.com/malhajar17/moentreprise/internal/summary"
	"github.com/malhajar17/moentreprise/internal/web"
	"github.com/malhajar17/moentreprise/internal/workflow"
	"github.com/malhajar17/moentreprise/pkg/realtime"
	rtmock "github.com/malhajar17/moentreprise/pkg/realtime/mock"
	oart "github.com/malhajar17/moentreprise/pkg/realtime/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "moentreprise: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "moentreprise: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("moentreprise starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "moentreprise",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, logger)

	provider, summariser, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Roster ────────────────────────────────────────────────────────────────
	roster, err := buildRoster(cfg)
	if err != nil {
		slog.Error("failed to build persona roster", "err", err)
		return 1
	}

	// ── Web hub ───────────────────────────────────────────────────────────────
	hub := web.NewHub(logger)
	events := hub.Events()

	// ── Workflows ─────────────────────────────────────────────────────────────
	launcher := workflow.NewLauncher(logger,
		workflow.WithNotifier(workflow.Notifier(events.Status)),
		workflow.WithMetrics(metrics),
	)
	if err := registerWorkflows(ctx, cfg, launcher, events, logger); err != nil {
		slog.Error("failed to register workflows", "err", err)
		return 1
	}

	// ── Conversation engine ───────────────────────────────────────────────────
	policy, err := buildPolicy(cfg, roster, summariser, logger)
	if err != nil {
		slog.Error("failed to build conversation policy", "err", err)
		return 1
	}

	var gateOpts []orchestrator.GateOption
	if d := cfg.Orchestrator.HumanTimeout.Std(); d > 0 {
		gateOpts = append(gateOpts, orchestrator.WithHumanTimeout(d))
	}
	if d := cfg.Orchestrator.HumanPollInterval.Std(); d > 0 {
		gateOpts = append(gateOpts, orchestrator.WithPollInterval(d))
	}
	var trackerOpts []orchestrator.TrackerOption
	if d := cfg.Orchestrator.ChunkDuration.Std(); d > 0 {
		trackerOpts = append(trackerOpts, orchestrator.WithChunkDuration(d))
	}
	if d := cfg.Orchestrator.SafetyBuffer.Std(); d > 0 {
		trackerOpts = append(trackerOpts, orchestrator.WithSafetyBuffer(d))
	}

	engine, err := orchestrator.New(orchestrator.Config{
		Roster:        roster,
		Provider:      provider,
		Policy:        policy,
		Gate:          orchestrator.NewHumanGate(logger, gateOpts...),
		Tracker:       orchestrator.NewChunkTracker(trackerOpts...),
		Workflows:     launcher,
		Events:        events,
		Metrics:       metrics,
		MaxTurns:      cfg.Orchestrator.MaxTurns,
		ContextWindow: cfg.Orchestrator.ContextWindow,
		TurnDelay:     cfg.Orchestrator.TurnDelay.Std(),
		Log:           logger,
	})
	if err != nil {
		slog.Error("failed to build conversation engine", "err", err)
		return 1
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Server.ListenAddr,
		Hub:          hub,
		Conversation: engine,
		Metrics:      metrics,
		Log:          logger,
	})
	if err != nil {
		slog.Error("failed to build web server", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, roster)

	slog.Info("server ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})

	ret := 0
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		ret = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	engine.Stop()
	launcher.CancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return ret
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// summariserProviders lists the chat backends the briefing summariser can run
// on. They all share the any-llm option pattern: optional APIKey + BaseURL.
var summariserProviders = []string{"openai", "anthropic", "gemini", "ollama", "mistral", "groq"}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry, logger *slog.Logger) {
	// ── Realtime ──────────────────────────────────────────────────────────────

	reg.RegisterRealtime("openai-realtime", func(entry config.ProviderEntry) (realtime.Provider, error) {
		if entry.APIKey == "" {
			return nil, errors.New("realtime/openai-realtime: api_key is required")
		}
		var opts []oart.Option
		if entry.Model != "" {
			opts = append(opts, oart.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oart.WithBaseURL(entry.BaseURL))
		}
		return oart.New(entry.APIKey, opts...), nil
	})

	// mock keeps every persona mute but lets the rest of the stack run
	// offline, which is handy for frontend work.
	reg.RegisterRealtime("mock", func(entry config.ProviderEntry) (realtime.Provider, error) {
		return &rtmock.Provider{Script: [][]realtime.TurnEvent{
			rtmock.Spoken("(offline mode — no realtime provider configured)", 0),
		}}, nil
	})

	// ── Summariser ────────────────────────────────────────────────────────────

	for _, providerName := range summariserProviders {
		reg.RegisterSummariser(providerName, func(entry config.ProviderEntry) (orchestrator.Summariser, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return summary.New(providerName, entry.Model, logger, opts...)
		})
	}

	for _, name := range summariserProviders {
		slog.Debug("registered provider", "kind", "llm", "name", name)
	}
}

// buildProviders instantiates the providers named in cfg. The realtime
// provider is mandatory for personas to speak; the summariser is optional and
// degrades to raw interview notes when absent.
func buildProviders(cfg *config.Config, reg *config.Registry) (realtime.Provider, orchestrator.Summariser, error) {
	entry := cfg.Realtime
	if entry.Name == "" {
		slog.Warn("no realtime provider configured — falling back to the mock provider")
		entry = config.ProviderEntry{Name: "mock"}
	}
	provider, err := reg.CreateRealtime(entry)
	if err != nil {
		return nil, nil, fmt.Errorf("create realtime provider %q: %w", entry.Name, err)
	}
	slog.Info("provider created", "kind", "realtime", "name", entry.Name)

	var summariser orchestrator.Summariser
	if name := cfg.LLM.Name; name != "" {
		s, err := reg.CreateSummariser(cfg.LLM)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("llm provider not supported — briefings will use raw notes", "name", name)
		} else if err != nil {
			return nil, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		} else {
			summariser = s
			slog.Info("provider created", "kind", "llm", "name", name)
		}
	}
	return provider, summariser, nil
}

// buildRoster maps the configured personas into a roster. An empty personas
// list falls back to the stock six-member agency cast.
func buildRoster(cfg *config.Config) (*persona.Roster, error) {
	if len(cfg.Personas) == 0 {
		slog.Info("no personas configured — using the default agency roster")
		return persona.Default(), nil
	}
	personas := make([]persona.Persona, len(cfg.Personas))
	for i, pc := range cfg.Personas {
		personas[i] = persona.Persona{
			Name:              pc.Name,
			Voice:             pc.Voice,
			Instructions:      pc.Instructions,
			Temperature:       pc.Temperature,
			MaxResponseTokens: pc.MaxResponseTokens,
			Role:              persona.Role(pc.Role),
		}
	}
	return persona.NewRoster(personas)
}

// buildPolicy picks the conversation policy: the scripted agency flow when
// phased mode is on, free-choice selection otherwise.
func buildPolicy(cfg *config.Config, roster *persona.Roster, summariser orchestrator.Summariser, logger *slog.Logger) (orchestrator.Policy, error) {
	if !cfg.Orchestrator.Phased {
		return orchestrator.FreePolicy{}, nil
	}
	var opts []orchestrator.PhasedOption
	if len(cfg.Orchestrator.Questions) > 0 {
		opts = append(opts, orchestrator.WithQuestions(cfg.Orchestrator.Questions))
	}
	if summariser != nil {
		opts = append(opts, orchestrator.WithSummariser(summariser))
	}
	return orchestrator.NewPhasedPolicy(roster, logger, opts...)
}

// registerWorkflows wires the configured side-effect workflows into the
// launcher under their persona tool names.
func registerWorkflows(ctx context.Context, cfg *config.Config, launcher *workflow.Launcher, events orchestrator.Events, logger *slog.Logger) error {
	if cmd := cfg.Workflows.SiteBuild.Command; len(cmd) > 0 {
		sb := &workflow.SiteBuild{
			Command:     cmd,
			Dir:         cfg.Workflows.SiteBuild.Dir,
			SiteURL:     cfg.Workflows.SiteBuild.SiteURL,
			ReadyMarker: cfg.Workflows.SiteBuild.ReadyMarker,
			OnOutput: func(line string) {
				events.Status("build", line)
			},
			OnReady: func(url string) {
				events.Status("site", "serving at "+url)
			},
			Log: logger,
		}
		if err := launcher.Register(persona.ToolStartSiteBuild, sb); err != nil {
			return err
		}
	}

	if key := cfg.Workflows.SocialPost.APIKey; key != "" {
		var opts []workflow.SocialPostOption
		if m := cfg.Workflows.SocialPost.ImageModel; m != "" {
			opts = append(opts, workflow.WithImageModel(m))
		}
		opts = append(opts, workflow.WithPostNotifier(workflow.Notifier(events.Status)))
		sp, err := workflow.NewSocialPost(key, logger, opts...)
		if err != nil {
			return err
		}
		if err := launcher.Register(persona.ToolPublishSocialPost, sp); err != nil {
			return err
		}
	}

	if key := cfg.Workflows.PromoVideo.APIKey; key != "" {
		var opts []workflow.PromoVideoOption
		if m := cfg.Workflows.PromoVideo.Model; m != "" {
			opts = append(opts, workflow.WithVideoModel(m))
		}
		if iv := cfg.Workflows.PromoVideo.PollInterval.Std(); iv > 0 && cfg.Workflows.PromoVideo.MaxPolls > 0 {
			opts = append(opts, workflow.WithVideoPolling(iv, cfg.Workflows.PromoVideo.MaxPolls))
		}
		opts = append(opts, workflow.WithVideoNotifier(workflow.Notifier(events.Status)))
		pv, err := workflow.NewPromoVideo(ctx, key, logger, opts...)
		if err != nil {
			return err
		}
		if err := launcher.Register(persona.ToolProducePromoVideo, pv); err != nil {
			return err
		}
	}

	return nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, roster *persona.Roster) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      Moentreprise — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Realtime", cfg.Realtime.Name, cfg.Realtime.Model)
	printProvider("LLM", cfg.LLM.Name, cfg.LLM.Model)
	fmt.Printf("║  Personas        : %-19d ║\n", roster.Len())
	mode := "free"
	if cfg.Orchestrator.Phased {
		mode = "phased"
	}
	fmt.Printf("║  Mode            : %-19s ║\n", mode)
	fmt.Printf("║  Site build      : %-19s ║\n", enabled(len(cfg.Workflows.SiteBuild.Command) > 0))
	fmt.Printf("║  Social post     : %-19s ║\n", enabled(cfg.Workflows.SocialPost.APIKey != ""))
	fmt.Printf("║  Promo video     : %-19s ║\n", enabled(cfg.Workflows.PromoVideo.APIKey != ""))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "(disabled)"
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

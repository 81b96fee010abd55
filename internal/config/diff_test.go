package config_test

import (
	"testing"

	"github.com/malhajar17/moentreprise/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Personas: []config.PersonaConfig{
			{Name: "Marcus", Voice: "ash", Instructions: "keeps things moving", Temperature: 0.8},
		},
	}
	d := config.Diff(cfg, cfg)
	if d.PersonasChanged {
		t.Error("expected PersonasChanged=false for identical configs")
	}
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if len(d.PersonaChanges) != 0 {
		t.Errorf("expected 0 persona changes, got %d", len(d.PersonaChanges))
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_InstructionsChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Sarah", Voice: "coral", Instructions: "asks about budgets"},
		},
	}
	new := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Sarah", Voice: "coral", Instructions: "asks about timelines"},
		},
	}

	d := config.Diff(old, new)
	if !d.PersonasChanged {
		t.Error("expected PersonasChanged=true")
	}
	if len(d.PersonaChanges) != 1 {
		t.Fatalf("expected 1 persona change, got %d", len(d.PersonaChanges))
	}
	if !d.PersonaChanges[0].InstructionsChanged {
		t.Error("expected InstructionsChanged=true")
	}
	if d.PersonaChanges[0].VoiceChanged {
		t.Error("expected VoiceChanged=false")
	}
}

func TestDiff_VoiceChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Maya", Voice: "sage"},
		},
	}
	new := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Maya", Voice: "shimmer"},
		},
	}

	d := config.Diff(old, new)
	if !d.PersonasChanged {
		t.Error("expected PersonasChanged=true")
	}
	found := false
	for _, pc := range d.PersonaChanges {
		if pc.Name == "Maya" && pc.VoiceChanged {
			found = true
		}
	}
	if !found {
		t.Error("expected Maya's VoiceChanged=true")
	}
}

func TestDiff_TuningChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Alex", Voice: "echo", Temperature: 0.7, MaxResponseTokens: 300},
		},
	}
	new := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Alex", Voice: "echo", Temperature: 1.1, MaxResponseTokens: 300},
		},
	}

	d := config.Diff(old, new)
	if !d.PersonasChanged {
		t.Error("expected PersonasChanged=true")
	}
	found := false
	for _, pc := range d.PersonaChanges {
		if pc.Name == "Alex" && pc.TuningChanged {
			found = true
		}
	}
	if !found {
		t.Error("expected Alex's TuningChanged=true")
	}
}

func TestDiff_PersonaAdded(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Marcus", Voice: "ash"},
		},
	}
	new := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Marcus", Voice: "ash"},
			{Name: "Sophie", Voice: "ballad"},
		},
	}

	d := config.Diff(old, new)
	if !d.PersonasChanged {
		t.Error("expected PersonasChanged=true")
	}
	found := false
	for _, pc := range d.PersonaChanges {
		if pc.Name == "Sophie" && pc.Added {
			found = true
		}
	}
	if !found {
		t.Error("expected Sophie Added=true")
	}
}

func TestDiff_PersonaRemoved(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Marcus", Voice: "ash"},
			{Name: "Marine", Voice: "verse"},
		},
	}
	new := &config.Config{
		Personas: []config.PersonaConfig{
			{Name: "Marcus", Voice: "ash"},
		},
	}

	d := config.Diff(old, new)
	if !d.PersonasChanged {
		t.Error("expected PersonasChanged=true")
	}
	found := false
	for _, pc := range d.PersonaChanges {
		if pc.Name == "Marine" && pc.Removed {
			found = true
		}
	}
	if !found {
		t.Error("expected Marine Removed=true")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Personas: []config.PersonaConfig{
			{Name: "A", Voice: "ash", Instructions: "first draft"},
			{Name: "B", Voice: "coral"},
		},
	}
	new := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogWarn},
		Personas: []config.PersonaConfig{
			{Name: "A", Voice: "ash", Instructions: "second draft"},
			{Name: "C", Voice: "sage"},
		},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.PersonasChanged {
		t.Error("expected PersonasChanged=true")
	}
	// A: instructions changed, B: removed, C: added
	changes := make(map[string]config.PersonaDiff)
	for _, pc := range d.PersonaChanges {
		changes[pc.Name] = pc
	}
	if !changes["A"].InstructionsChanged {
		t.Error("expected A InstructionsChanged=true")
	}
	if !changes["B"].Removed {
		t.Error("expected B Removed=true")
	}
	if !changes["C"].Added {
		t.Error("expected C Added=true")
	}
}

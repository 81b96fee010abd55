package summary

import (
	"context"
	"log/slog"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_EmptyModel(t *testing.T) {
	if _, err := New("openai", "", testLogger()); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	if _, err := New("fakecloud", "some-model", testLogger(), anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNew_OpenAI_WithAPIKey(t *testing.T) {
	s, err := New("openai", "gpt-4o-mini", testLogger(), anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("expected non-nil summariser")
	}
}

func TestNew_ProviderNameCaseInsensitive(t *testing.T) {
	if _, err := New("OpenAI", "gpt-4o-mini", testLogger(), anyllmlib.WithAPIKey("sk-test")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewWithBackend_NilBackend(t *testing.T) {
	if _, err := NewWithBackend(nil, "gpt-4o-mini", testLogger()); err == nil {
		t.Fatal("expected error for nil backend")
	}
}

// ── Summarise ─────────────────────────────────────────────────────────────────

// TestSummarise_NoNotes checks the no-notes path never touches the backend.
func TestSummarise_NoNotes(t *testing.T) {
	s, err := New("openai", "gpt-4o-mini", testLogger(), anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Summarise(context.Background(), nil)
	if got != "(no notes)" {
		t.Errorf("Summarise(nil) = %q, want (no notes)", got)
	}
}

// ── Bullets ───────────────────────────────────────────────────────────────────

func TestBullets(t *testing.T) {
	tests := []struct {
		name  string
		notes []string
		want  string
	}{
		{"empty", nil, "(no notes)"},
		{"single", []string{"A flower shop"}, "- A flower shop"},
		{"multiple", []string{"A flower shop", "Pastel colours"}, "- A flower shop\n- Pastel colours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bullets(tt.notes); got != tt.want {
				t.Errorf("Bullets(%v) = %q, want %q", tt.notes, got, tt.want)
			}
		})
	}
}

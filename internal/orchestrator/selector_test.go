package orchestrator

import (
	"testing"

	"github.com/malhajar17/moentreprise/internal/persona"
)

func selectorRoster(t *testing.T) *persona.Roster {
	t.Helper()
	r, err := persona.NewRoster([]persona.Persona{
		{Name: "Marcus"}, {Name: "Sarah"}, {Name: "Alex"},
	})
	if err != nil {
		t.Fatalf("NewRoster: %v", err)
	}
	return r
}

func TestSelector_Decode(t *testing.T) {
	t.Parallel()
	s := NewSelector(selectorRoster(t), nil)

	cases := []struct {
		name         string
		current      int
		finalArgs    string
		buffered     string
		wantSpeaker  int
		wantExplicit bool
	}{
		{"valid finals", 0, `{"speaker_index":"2"}`, "", 2, true},
		{"human index valid", 0, `{"speaker_index":"3"}`, "", 3, true},
		{"finals win over buffered", 0, `{"speaker_index":"1"}`, `{"speaker_index":"2"}`, 1, true},
		{"empty finals recovered from buffered", 0, "", `{"speaker_index":"2"}`, 2, true},
		{"malformed finals recovered from buffered", 0, `{"speaker`, `{"speaker_index":"1"}`, 1, true},
		{"out of range falls back", 1, `{"speaker_index":"9"}`, "", 2, false},
		{"negative falls back", 1, `{"speaker_index":"-1"}`, "", 2, false},
		{"non-numeric falls back", 1, `{"speaker_index":"Sarah"}`, "", 2, false},
		{"no call at all falls back", 2, "", "", 0, false},
		{"fallback wraps around", 2, "garbage", "more garbage", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := s.Decode(tc.current, tc.finalArgs, tc.buffered)
			if got.Speaker != tc.wantSpeaker {
				t.Errorf("Speaker = %d; want %d", got.Speaker, tc.wantSpeaker)
			}
			if got.Explicit != tc.wantExplicit {
				t.Errorf("Explicit = %v; want %v", got.Explicit, tc.wantExplicit)
			}
			wantReason := "fallback"
			if tc.wantExplicit {
				wantReason = "explicit"
			}
			if got.Reason != wantReason {
				t.Errorf("Reason = %q; want %q", got.Reason, wantReason)
			}
		})
	}
}

func TestSelector_FallbackIsSequential(t *testing.T) {
	t.Parallel()
	s := NewSelector(selectorRoster(t), nil)

	if got := s.Fallback(0).Speaker; got != 1 {
		t.Errorf("Fallback(0) = %d; want 1", got)
	}
	if got := s.Fallback(2).Speaker; got != 0 {
		t.Errorf("Fallback(2) = %d; want 0 (wrap)", got)
	}
}

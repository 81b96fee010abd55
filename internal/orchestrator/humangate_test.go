package orchestrator

import (
	"context"
	"testing"
	"time"
)

func fastGate(t *testing.T) *HumanGate {
	t.Helper()
	return NewHumanGate(nil,
		WithHumanTimeout(200*time.Millisecond),
		WithPollInterval(10*time.Millisecond),
	)
}

func TestHumanGate_SubmitBeforeAwait(t *testing.T) {
	t.Parallel()
	g := fastGate(t)

	g.SubmitText("hello")
	in, ok := g.Await(context.Background())
	if !ok || in.Text != "hello" {
		t.Fatalf("Await = %+v, %v; want hello, true", in, ok)
	}

	// The slot was consumed; a second Await times out.
	if _, ok := g.Await(context.Background()); ok {
		t.Error("second Await consumed an already-taken submission")
	}
}

func TestHumanGate_SubmitDuringAwait(t *testing.T) {
	t.Parallel()
	g := fastGate(t)

	go func() {
		time.Sleep(40 * time.Millisecond)
		g.SubmitAudio("spoken answer", []byte{1, 2, 3})
	}()

	in, ok := g.Await(context.Background())
	if !ok {
		t.Fatal("Await timed out despite submission")
	}
	if in.Text != "spoken answer" || len(in.Audio) != 3 {
		t.Errorf("Await = %+v; want text and 3 audio bytes", in)
	}
}

func TestHumanGate_LatestSubmissionWins(t *testing.T) {
	t.Parallel()
	g := fastGate(t)

	g.SubmitText("first")
	g.SubmitText("second")
	in, ok := g.Await(context.Background())
	if !ok || in.Text != "second" {
		t.Errorf("Await = %+v, %v; want second", in, ok)
	}
}

func TestHumanGate_Timeout(t *testing.T) {
	t.Parallel()
	g := fastGate(t)

	start := time.Now()
	_, ok := g.Await(context.Background())
	if ok {
		t.Fatal("Await returned a submission; want timeout")
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Await returned after %v; want ~200ms timeout", elapsed)
	}
}

func TestHumanGate_ContextCancellation(t *testing.T) {
	t.Parallel()
	g := NewHumanGate(nil, WithHumanTimeout(10*time.Second), WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	done := make(chan struct{})
	go func() {
		g.Await(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return after context cancellation")
	}
}

func TestHumanGate_Clear(t *testing.T) {
	t.Parallel()
	g := fastGate(t)

	g.SubmitText("stale")
	g.Clear()
	if _, ok := g.Await(context.Background()); ok {
		t.Error("Await returned a cleared submission")
	}
}

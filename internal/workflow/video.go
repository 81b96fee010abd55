package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/malhajar17/moentreprise/internal/persona"
)

const (
	// defaultVideoModel is the Veo generation model used when none is
	// configured.
	defaultVideoModel = "veo-3.0-generate-preview"

	// defaultPollInterval spaces the long-running operation checks.
	defaultPollInterval = 10 * time.Second

	// defaultMaxPolls bounds how long one generation is awaited.
	defaultMaxPolls = 12
)

// PromoVideo generates a short promotional video through the Veo API and
// surfaces the resulting video URI.
type PromoVideo struct {
	client       *genai.Client
	model        string
	pollInterval time.Duration
	maxPolls     int

	// OnVideo receives the generated video URI. May be nil.
	OnVideo func(uri string)

	notify Notifier
	log    *slog.Logger
}

// PromoVideoOption configures a [PromoVideo] during construction.
type PromoVideoOption func(*PromoVideo)

// WithVideoModel overrides the Veo model identifier.
func WithVideoModel(model string) PromoVideoOption {
	return func(v *PromoVideo) {
		if model != "" {
			v.model = model
		}
	}
}

// WithVideoPolling overrides the operation polling cadence.
func WithVideoPolling(interval time.Duration, maxPolls int) PromoVideoOption {
	return func(v *PromoVideo) {
		if interval > 0 {
			v.pollInterval = interval
		}
		if maxPolls > 0 {
			v.maxPolls = maxPolls
		}
	}
}

// WithVideoNotifier sets the progress notifier.
func WithVideoNotifier(n Notifier) PromoVideoOption {
	return func(v *PromoVideo) { v.notify = n }
}

// NewPromoVideo creates the promo video workflow against the Gemini API.
func NewPromoVideo(ctx context.Context, apiKey string, log *slog.Logger, opts ...PromoVideoOption) (*PromoVideo, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("workflow: promo video: apiKey must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("workflow: promo video client: %w", err)
	}

	v := &PromoVideo{
		client:       client,
		model:        defaultVideoModel,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		log:          log,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Run implements [Workflow]: it kicks off generation and polls the
// long-running operation until the video is ready or the poll budget runs
// out.
func (v *PromoVideo) Run(ctx context.Context, args string) error {
	var payload persona.PromoVideoArgs
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		v.log.Warn("promo video arguments malformed, using generic prompt", "err", err)
	}
	if payload.Prompt == "" {
		payload.Prompt = "A short upbeat promotional video showcasing a freshly launched website."
	}

	v.status("generating promotional video")
	op, err := v.client.Models.GenerateVideos(ctx, v.model, payload.Prompt, nil, nil)
	if err != nil {
		return fmt.Errorf("workflow: promo video generate: %w", err)
	}
	v.log.Info("video generation started", "model", v.model, "operation", op.Name)

	for polls := 0; !op.Done; polls++ {
		if polls >= v.maxPolls {
			return fmt.Errorf("workflow: promo video: operation %s not done after %d polls", op.Name, v.maxPolls)
		}
		select {
		case <-time.After(v.pollInterval):
		case <-ctx.Done():
			return fmt.Errorf("workflow: promo video: %w", ctx.Err())
		}
		op, err = v.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return fmt.Errorf("workflow: promo video poll: %w", err)
		}
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return fmt.Errorf("workflow: promo video: operation finished with no video")
	}
	vid := op.Response.GeneratedVideos[0]
	if vid.Video == nil || vid.Video.URI == "" {
		return fmt.Errorf("workflow: promo video: generated video has no URI")
	}

	v.log.Info("promotional video ready", "uri", vid.Video.URI)
	v.status("promotional video ready")
	if v.OnVideo != nil {
		v.OnVideo(vid.Video.URI)
	}
	return nil
}

func (v *PromoVideo) status(detail string) {
	if v.notify != nil {
		v.notify("marketing", detail)
	}
}

var _ Workflow = (*PromoVideo)(nil)

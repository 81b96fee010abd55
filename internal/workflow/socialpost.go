package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/malhajar17/moentreprise/internal/persona"
)

// Post is an assembled launch announcement ready for publication.
type Post struct {
	// Content is the announcement text.
	Content string

	// WebsiteURL is the launched site the post points at.
	WebsiteURL string

	// ImageB64 is the generated marketing image as base64 PNG, empty when
	// image generation was skipped or failed.
	ImageB64 string
}

// Publisher delivers an assembled post to its destination network and
// returns the published post's URL.
type Publisher interface {
	Publish(ctx context.Context, post Post) (string, error)
}

// LogPublisher is the stand-in publisher used when no network integration is
// configured: it logs the post and reports success.
type LogPublisher struct {
	Log *slog.Logger
}

// Publish implements [Publisher].
func (p LogPublisher) Publish(_ context.Context, post Post) (string, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("post assembled (no publisher configured)",
		"website", post.WebsiteURL, "content_length", len(post.Content), "has_image", post.ImageB64 != "")
	return "", nil
}

// SocialPost generates the launch marketing image and hands the assembled
// post to a publisher.
type SocialPost struct {
	client     oai.Client
	imageModel string
	publisher  Publisher
	notify     Notifier
	log        *slog.Logger
}

// SocialPostOption configures a [SocialPost] during construction.
type SocialPostOption func(*SocialPost)

// WithImageModel overrides the image generation model.
func WithImageModel(model string) SocialPostOption {
	return func(s *SocialPost) {
		if model != "" {
			s.imageModel = model
		}
	}
}

// WithPublisher sets the destination network integration. The default logs
// the post instead of publishing it.
func WithPublisher(p Publisher) SocialPostOption {
	return func(s *SocialPost) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithPostNotifier sets the progress notifier.
func WithPostNotifier(n Notifier) SocialPostOption {
	return func(s *SocialPost) { s.notify = n }
}

// NewSocialPost creates the social post workflow backed by the OpenAI image
// API.
func NewSocialPost(apiKey string, log *slog.Logger, opts ...SocialPostOption) (*SocialPost, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("workflow: social post: apiKey must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &SocialPost{
		client:     oai.NewClient(option.WithAPIKey(apiKey)),
		imageModel: string(oai.ImageModelDallE3),
		publisher:  LogPublisher{Log: log},
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run implements [Workflow]. Malformed arguments degrade to a text-only post
// rather than failing the workflow.
func (s *SocialPost) Run(ctx context.Context, args string) error {
	var payload persona.SocialPostArgs
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		s.log.Warn("social post arguments malformed, posting text only", "err", err)
	}
	if payload.Content == "" {
		payload.Content = "Exciting news! Our new website is now live."
	}

	post := Post{Content: payload.Content, WebsiteURL: payload.WebsiteURL}
	if payload.GenerateImage {
		s.status("generating marketing image")
		img, err := s.generateImage(ctx, payload)
		if err != nil {
			// The post still goes out without the image.
			s.log.Warn("marketing image generation failed", "err", err)
		} else {
			post.ImageB64 = img
		}
	}

	s.status("publishing post")
	url, err := s.publisher.Publish(ctx, post)
	if err != nil {
		return fmt.Errorf("workflow: social post publish: %w", err)
	}
	s.log.Info("social post published", "url", url, "website", post.WebsiteURL)
	return nil
}

func (s *SocialPost) generateImage(ctx context.Context, payload persona.SocialPostArgs) (string, error) {
	prompt := fmt.Sprintf(
		"A polished marketing image announcing a website launch. Theme drawn from: %s", payload.Content)
	resp, err := s.client.Images.Generate(ctx, oai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          oai.ImageModel(s.imageModel),
		ResponseFormat: oai.ImageGenerateParamsResponseFormatB64JSON,
		Size:           oai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", fmt.Errorf("generate image: empty response")
	}
	return resp.Data[0].B64JSON, nil
}

func (s *SocialPost) status(detail string) {
	if s.notify != nil {
		s.notify("marketing", detail)
	}
}

var _ Workflow = (*SocialPost)(nil)

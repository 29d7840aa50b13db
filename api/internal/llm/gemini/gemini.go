package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/option"

	"dp-normalizer/api/internal/llm"
)

type Engine struct {
	APIKey string
	Model  string

	// Retries is the number of extra attempts on transient failures.
	Retries uint64
	Backoff time.Duration
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
		Retries: 2,
		Backoff: 300 * time.Millisecond,
	}
}

func (e *Engine) Name() string     { return string(llm.ProviderGemini) }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Invoke(ctx context.Context, req llm.Request) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	model := strings.TrimSpace(req.Profile.Model)
	if model == "" {
		model = e.Model
	}
	m := cl.GenerativeModel(model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = generationConfig(req)
	if s := strings.TrimSpace(req.System); s != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}

	parts := buildParts(req)

	var out string
	backoff := retry.WithMaxRetries(e.Retries, retry.NewExponential(e.backoff()))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			if isTransient(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = firstText(resp)
		if strings.TrimSpace(out) == "" {
			return fmt.Errorf("gemini %s: empty response", model)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (e *Engine) backoff() time.Duration {
	if e.Backoff <= 0 {
		return 300 * time.Millisecond
	}
	return e.Backoff
}

func generationConfig(req llm.Request) genai.GenerationConfig {
	cfg := genai.GenerationConfig{
		Temperature: ptrFloat32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = ptrInt32(int32(req.MaxTokens))
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func buildParts(req llm.Request) []genai.Part {
	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIME, Data: img.Data})
	}
	return append(parts, genai.Text(req.Text))
}

// isTransient reports whether err is worth another attempt. Cancellation,
// deadlines and blocked prompts never are.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var blocked *genai.BlockedError
	return !errors.As(err, &blocked)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }

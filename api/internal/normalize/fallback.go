package normalize

import (
	"context"
	"fmt"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/prompt"
)

// Fallback reformats an unusable reply into strict JSON with one model call.
type Fallback interface {
	RequestFallback(ctx context.Context, raw string, s *fields.Schema, p llm.Profile, hint string) (string, error)
}

// Translator is the model-backed Fallback.
type Translator struct {
	Invoker     llm.Invoker
	Prompts     prompt.Catalog
	Temperature float32
	MaxTokens   int
}

func NewTranslator(inv llm.Invoker, prompts prompt.Catalog) *Translator {
	return &Translator{Invoker: inv, Prompts: prompts, Temperature: 0.1, MaxTokens: 4096}
}

// RequestFallback issues the translation call. Any failure of the call is
// reported as ErrTransport.
func (t *Translator) RequestFallback(ctx context.Context, raw string, s *fields.Schema, p llm.Profile, hint string) (string, error) {
	req := llm.Request{
		Profile:     p,
		System:      t.Prompts.System(prompt.KindTranslation, p),
		Text:        prompt.Translation(raw, s, hint),
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
		JSON:        true,
	}
	out, err := t.Invoker.Invoke(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: translation call (%s): %w", ErrTransport, p.Key, err)
	}
	return out, nil
}

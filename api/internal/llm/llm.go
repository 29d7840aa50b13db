package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

type Provider string

const (
	ProviderNVIDIA Provider = "nvidia"
	ProviderGemini Provider = "gemini"
)

// Reasoning switches: how a profile turns extended reasoning off.
const (
	ReasoningSystemPrefix = "system_prefix" // "/no_think" line in the system message
	ReasoningTemplate     = "chat_template" // chat_template_kwargs.enable_thinking
	ReasoningNone         = ""
)

// NoThinkDirective disables reasoning on models that honour a system prefix.
const NoThinkDirective = "/no_think"

type Image struct {
	MIME string
	Data []byte
}

func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Request is one model invocation. Profile is always explicit so that
// concurrent requests with different model choices never interfere.
type Request struct {
	Profile     Profile
	System      string
	Text        string
	Images      []Image
	Temperature float32
	MaxTokens   int
	// JSON asks engines that support it for a JSON-only response.
	JSON bool
	// Thinking enables extended reasoning; analysis and translation calls keep it off.
	Thinking bool
}

// Invoker is the model invocation service consumed by the pipeline.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

type InvokerFunc func(ctx context.Context, req Request) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

type Engine interface {
	Name() string
	Invoke(ctx context.Context, req Request) (string, error)
}

var ErrUnknownProvider = errors.New("unknown llm provider")

type Engines struct {
	NVIDIA Engine
	Gemini Engine
}

func (e *Engines) GetEngine(p Provider) (Engine, error) {
	var eng Engine
	switch p {
	case ProviderNVIDIA:
		eng = e.NVIDIA
	case ProviderGemini:
		eng = e.Gemini
	default:
		return nil, fmt.Errorf("%w: %q; use 'nvidia' or 'gemini'", ErrUnknownProvider, p)
	}
	if eng == nil {
		return nil, fmt.Errorf("llm provider %q is not configured", p)
	}
	return eng, nil
}

// Invoke dispatches the request to the engine of its profile's provider.
func (e *Engines) Invoke(ctx context.Context, req Request) (string, error) {
	eng, err := e.GetEngine(req.Profile.Provider)
	if err != nil {
		return "", err
	}
	return eng.Invoke(ctx, req)
}

package main

import (
	"fmt"

	"dp-normalizer/api/internal/config"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/llm/gemini"
	"dp-normalizer/api/internal/llm/nvidia"
	"dp-normalizer/api/internal/normalize"
	"dp-normalizer/api/internal/prompt"
)

type app struct {
	cfg        *config.Config
	profiles   *llm.Profiles
	engines    *llm.Engines
	prompts    prompt.Catalog
	normalizer *normalize.Normalizer
}

func newApp(opts ...normalize.Option) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	engines := &llm.Engines{
		NVIDIA: nvidia.New(cfg.NVIDIABaseURL, cfg.NVIDIAKeys),
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
	}
	prompts := prompt.Catalog{Dir: cfg.PromptDir}
	return &app{
		cfg:        cfg,
		profiles:   profiles,
		engines:    engines,
		prompts:    prompts,
		normalizer: normalize.New(normalize.NewTranslator(engines, prompts), opts...),
	}, nil
}

func (a *app) profile(key string) (llm.Profile, error) {
	if key == "" {
		return a.profiles.Default(), nil
	}
	p, ok := a.profiles.Lookup(key)
	if !ok {
		return llm.Profile{}, fmt.Errorf("unknown model %q (available: %v)", key, a.profiles.Keys())
	}
	return p, nil
}

package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dp-normalizer/api/internal/dossier"
	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/logger"
	"dp-normalizer/api/internal/normalize"
	"dp-normalizer/api/internal/prompt"
)

// PhotoLoader turns photo sources into images.
type PhotoLoader interface {
	LoadAll(ctx context.Context, sources []string) ([]llm.Image, error)
	Load(src string) (llm.Image, error)
}

// Alerter is told about terminal failures.
type Alerter interface {
	NotifyFailure(ctx context.Context, sessionID string, p llm.Profile, o normalize.Outcome)
}

type Service struct {
	Invoker    llm.Invoker
	Photos     PhotoLoader
	Prompts    prompt.Catalog
	Normalizer *normalize.Normalizer
	Alerts     Alerter
}

type Request struct {
	SessionID string
	Profile   llm.Profile
	Schema    *fields.Schema
	Project   dossier.Project
	Before    []string
	After     []string
}

var ErrNoPhotos = errors.New("at least one photo is required")

// Analyze compares the before and after photos and normalizes the model's
// answer into a record of the request schema. Photo errors are returned as
// errors; everything after the photos are loaded ends up in the outcome.
func (s *Service) Analyze(ctx context.Context, req Request) (normalize.Outcome, error) {
	if len(req.Before)+len(req.After) == 0 {
		return normalize.Outcome{}, ErrNoPhotos
	}
	schema := req.Schema
	if schema == nil {
		schema = fields.Core()
	}
	images, err := s.Photos.LoadAll(ctx, append(append([]string(nil), req.Before...), req.After...))
	if err != nil {
		return normalize.Outcome{}, fmt.Errorf("load photos: %w", err)
	}

	log := logger.FromContext(ctx).With("session", req.SessionID, "profile", req.Profile.Key)
	ctx = logger.ContextWithLogger(ctx, log)

	call := llm.Request{
		Profile:     req.Profile,
		System:      s.Prompts.System(prompt.KindAnalysis, req.Profile),
		Text:        prompt.Analysis(len(req.Before), len(req.After), req.Project, schema),
		Images:      images,
		Temperature: 0.3,
		MaxTokens:   4096,
		JSON:        true,
	}
	out := s.Normalizer.Run(ctx, s.first(call), schema, req.Profile,
		normalize.WithProjectContext(req.Project.Short()))
	s.finish(ctx, req.SessionID, req.Profile, out)
	return out, nil
}

// GenerateNotice drafts the notice fields from typed project data only.
func (s *Service) GenerateNotice(ctx context.Context, sessionID string, p llm.Profile, project dossier.Project) normalize.Outcome {
	schema := fields.Notice()
	call := llm.Request{
		Profile:     p,
		System:      s.Prompts.System(prompt.KindNotice, p),
		Text:        prompt.Notice(project, schema),
		Temperature: 0.4,
		MaxTokens:   4096,
		JSON:        true,
	}
	out := s.Normalizer.Run(ctx, s.first(call), schema, p,
		normalize.WithProjectContext(project.Short()))
	s.finish(ctx, sessionID, p, out)
	return out
}

// DescribePhoto returns a one or two sentence caption of a single photo.
func (s *Service) DescribePhoto(ctx context.Context, src string, before bool, p llm.Profile) (string, error) {
	img, err := s.Photos.Load(src)
	if err != nil {
		return "", fmt.Errorf("load photo: %w", err)
	}
	out, err := s.Invoker.Invoke(ctx, llm.Request{
		Profile:     p,
		System:      s.Prompts.System(prompt.KindPhoto, p),
		Text:        prompt.PhotoDescription(before),
		Images:      []llm.Image{img},
		Temperature: 0.3,
		MaxTokens:   512,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", normalize.ErrTransport, err)
	}
	return strings.TrimSpace(out), nil
}

func (s *Service) first(req llm.Request) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		out, err := s.Invoker.Invoke(ctx, req)
		if err != nil {
			return "", err
		}
		logger.FromContext(ctx).Debug("first reply", "chars", len(out))
		return out, nil
	}
}

func (s *Service) finish(ctx context.Context, sessionID string, p llm.Profile, out normalize.Outcome) {
	if out.OK() || s.Alerts == nil {
		return
	}
	s.Alerts.NotifyFailure(ctx, sessionID, p, out)
}

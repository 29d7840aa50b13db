package normalize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/logger"
)

// Recorder observes finished normalizations.
type Recorder interface {
	ObserveNormalization(profile llm.Profile, o Outcome, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveNormalization(llm.Profile, Outcome, time.Duration) {}

// Normalizer drives a reply through extraction, flattening and validation,
// with at most one fallback round-trip. It holds no per-request state and is
// safe for concurrent use.
type Normalizer struct {
	fallback Fallback
	rec      Recorder
}

type Option func(*Normalizer)

func WithRecorder(r Recorder) Option {
	return func(n *Normalizer) {
		if r != nil {
			n.rec = r
		}
	}
}

func New(fb Fallback, opts ...Option) *Normalizer {
	n := &Normalizer{fallback: fb, rec: nopRecorder{}}
	for _, o := range opts {
		o(n)
	}
	return n
}

type callConfig struct {
	hint    string
	offline bool
}

type CallOption func(*callConfig)

// WithProjectContext adds a one-line project hint to the fallback prompt.
func WithProjectContext(hint string) CallOption {
	return func(c *callConfig) { c.hint = hint }
}

// WithoutFallback makes the first failed attempt terminal and reports its
// own kind. Used for offline diagnostics.
func WithoutFallback() CallOption {
	return func(c *callConfig) { c.offline = true }
}

// Normalize runs the pipeline on a reply already in hand.
func (n *Normalizer) Normalize(ctx context.Context, raw string, s *fields.Schema, p llm.Profile, opts ...CallOption) Outcome {
	start := time.Now()
	out := n.exec(ctx, raw, s, p, opts)
	n.rec.ObserveNormalization(p, out, time.Since(start))
	return out
}

// Run issues the first call itself, then normalizes its reply. A failed or
// cancelled first call ends in TransportError without a fallback.
func (n *Normalizer) Run(ctx context.Context, first func(context.Context) (string, error), s *fields.Schema, p llm.Profile, opts ...CallOption) Outcome {
	start := time.Now()
	var out Outcome
	raw, err := first(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("first model call failed", "profile", p.Key, "error", err)
		out = TransportFailure(s, err)
	} else {
		out = n.exec(ctx, raw, s, p, opts)
		out.ModelCalls++
	}
	n.rec.ObserveNormalization(p, out, time.Since(start))
	return out
}

func (n *Normalizer) exec(ctx context.Context, raw string, s *fields.Schema, p llm.Profile, opts []CallOption) Outcome {
	var cfg callConfig
	for _, o := range opts {
		o(&cfg)
	}
	r := &run{n: n, schema: s, profile: p, cfg: cfg, raw: raw}
	return r.exec(ctx)
}

// RequestFallback exposes the companion translation call.
func (n *Normalizer) RequestFallback(ctx context.Context, raw string, s *fields.Schema, p llm.Profile) (string, error) {
	if n.fallback == nil {
		return "", ErrNoFallback
	}
	return n.fallback.RequestFallback(ctx, raw, s, p, "")
}

type run struct {
	n       *Normalizer
	schema  *fields.Schema
	profile llm.Profile
	cfg     callConfig

	raw  string
	ext  Extraction
	flat FlatRecord
	out  Outcome
}

func (r *run) exec(ctx context.Context) Outcome {
	log := logger.FromContext(ctx)
	r.out.Schema = r.schema.Name()
	state := AwaitingFirstReply
	for {
		r.out.Trace = append(r.out.Trace, state)
		switch state {
		case AwaitingFirstReply:
			state = Extracting

		case Extracting, Extracting2:
			r.ext = Extract(r.raw)
			state++

		case Flattening, Flattening2:
			if r.ext.Found {
				r.flat = Flatten(r.ext.Object, r.schema)
			} else {
				r.flat = FlatRecord{}
			}
			r.out.Dropped = r.flat.Dropped
			state++

		case Validating, Validating2:
			rec, err := Validate(r.flat, r.schema)
			if err == nil {
				r.out.Record = rec
				state = Success
				continue
			}
			verr := err.(*ValidationError)
			kind := IncompleteFields
			if !r.ext.Found {
				kind = NoJSONFound
			}
			switch {
			case state == Validating2:
				r.fail(&Failure{Kind: FallbackExhausted, Cause: kind, Missing: verr.Missing, Invalid: verr.Invalid, Err: err})
				state = Failed
			case r.cfg.offline || r.n.fallback == nil:
				r.fail(&Failure{Kind: kind, Missing: verr.Missing, Invalid: verr.Invalid, Err: err})
				state = Failed
			default:
				log.Info("fallback issued", "profile", r.profile.Key, "cause", kind,
					"missing", len(verr.Missing), "invalid", len(verr.Invalid))
				state = AwaitingFallbackReply
			}

		case AwaitingFallbackReply:
			r.out.FallbackUsed = true
			r.out.ModelCalls++
			reply, err := r.n.fallback.RequestFallback(ctx, r.raw, r.schema, r.profile, r.cfg.hint)
			if err != nil {
				log.Warn("fallback call failed", "profile", r.profile.Key, "error", err)
				if !errors.Is(err, ErrTransport) {
					err = fmt.Errorf("%w: %w", ErrTransport, err)
				}
				r.fail(&Failure{Kind: TransportError, Err: err})
				state = Failed
				continue
			}
			r.raw = reply
			state = Extracting2

		case Success:
			log.Debug("record normalized", "profile", r.profile.Key, "schema", r.schema.Name(),
				"fallback", r.out.FallbackUsed, "dropped", len(r.out.Dropped))
			return r.out

		case Failed:
			log.Warn("normalization failed", "profile", r.profile.Key, "kind", r.out.Failure.Kind,
				"missing", r.out.Failure.Missing)
			return r.out
		}
	}
}

func (r *run) fail(f *Failure) {
	r.out.Record = nil
	r.out.Failure = f
}

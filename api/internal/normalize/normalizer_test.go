package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/prompt"
)

func TestNormalizeScenarios(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := fields.Core()

	t.Run("Should pass a fenced flat object through unchanged", func(t *testing.T) {
		vals := coreValues()
		fb := &stubFallback{}
		raw := "Voici l'analyse :\n```json\n" + toJSON(t, vals) + "\n```"

		out := New(fb).Normalize(ctx, raw, s, testProfile)
		require.True(t, out.OK(), "%v", out.Failure)
		assert.Equal(t, fields.Record(vals), out.Record)
		assert.Equal(t, 0, fb.Calls())
		assert.False(t, out.FallbackUsed)
		assert.Equal(t, []State{AwaitingFirstReply, Extracting, Flattening, Validating, Success}, out.Trace)
		assert.Equal(t, Success, out.Final())
	})

	t.Run("Should flatten NOTICE and ASPECT groups into one record", func(t *testing.T) {
		vals := coreValues()
		fb := &stubFallback{}

		out := New(fb).Normalize(ctx, toJSON(t, groupedValues(vals)), s, testProfile)
		require.True(t, out.OK(), "%v", out.Failure)
		assert.Equal(t, fields.Record(vals), out.Record)
		assert.Equal(t, 0, fb.Calls())
		assert.Empty(t, out.Dropped)
	})

	t.Run("Should recover prose through the fallback call", func(t *testing.T) {
		vals := coreValues()
		prose := "La maison existante présente une façade en enduit beige et des volets bois."
		fb := &stubFallback{replies: []string{toJSON(t, vals)}}

		out := New(fb).Normalize(ctx, prose, s, testProfile, WithProjectContext("12 rue Haute"))
		require.True(t, out.OK(), "%v", out.Failure)
		assert.Equal(t, fields.Record(vals), out.Record)
		assert.Equal(t, 1, fb.Calls())
		assert.Equal(t, []string{prose}, fb.raws)
		assert.Equal(t, []string{"12 rue Haute"}, fb.hints)
		assert.True(t, out.FallbackUsed)
		assert.Equal(t, 1, out.ModelCalls)
		assert.Equal(t, []State{
			AwaitingFirstReply, Extracting, Flattening, Validating,
			AwaitingFallbackReply, Extracting2, Flattening2, Validating2, Success,
		}, out.Trace)
	})

	t.Run("Should give up after a second incomplete reply", func(t *testing.T) {
		first := coreValues()
		delete(first, "justification")
		delete(first, "couleur_volets")
		delete(first, "toiture_materiaux_existants")
		second := coreValues()
		delete(second, "couleur_volets")
		fb := &stubFallback{replies: []string{toJSON(t, second), toJSON(t, coreValues())}}

		out := New(fb).Normalize(ctx, toJSON(t, first), s, testProfile)
		require.False(t, out.OK())
		assert.Nil(t, out.Record)
		assert.Equal(t, FallbackExhausted, out.Kind())
		assert.Equal(t, IncompleteFields, out.Failure.Cause)
		assert.Equal(t, []string{"couleur_volets"}, out.Failure.Missing)
		assert.Equal(t, 1, fb.Calls())
		assert.Equal(t, Failed, out.Final())
		assert.Contains(t, out.Failure.Error(), "fallback_exhausted after incomplete_fields: missing couleur_volets")

		var verr *ValidationError
		assert.ErrorAs(t, out.Failure, &verr)
	})

	t.Run("Should report prose twice as exhausted", func(t *testing.T) {
		fb := &stubFallback{replies: []string{"Je ne peux pas répondre en JSON."}}

		out := New(fb).Normalize(ctx, "Pas de structure ici.", s, testProfile)
		assert.Equal(t, FallbackExhausted, out.Kind())
		assert.Equal(t, NoJSONFound, out.Failure.Cause)
		assert.Len(t, out.Failure.Missing, fields.TotalCore)
		assert.Equal(t, 1, fb.Calls())
	})

	t.Run("Should not issue a fallback after a failed first call", func(t *testing.T) {
		fb := &stubFallback{}
		first := func(context.Context) (string, error) { return "", context.DeadlineExceeded }

		out := New(fb).Run(ctx, first, s, testProfile)
		assert.Equal(t, TransportError, out.Kind())
		assert.Equal(t, 0, fb.Calls())
		assert.Equal(t, 1, out.ModelCalls)
		assert.ErrorIs(t, out.Failure, ErrTransport)
		assert.ErrorIs(t, out.Failure, context.DeadlineExceeded)
		assert.Equal(t, []State{AwaitingFirstReply, Failed}, out.Trace)
	})

	t.Run("Should surface a failed fallback call as transport error", func(t *testing.T) {
		fb := &stubFallback{err: errors.New("connection reset")}

		out := New(fb).Normalize(ctx, "prose", s, testProfile)
		assert.Equal(t, TransportError, out.Kind())
		assert.ErrorIs(t, out.Failure, ErrTransport)
		assert.Equal(t, 1, fb.Calls())
		assert.True(t, out.FallbackUsed)
	})
}

func TestNormalizeFallbackCap(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"",
		"aucune accolade",
		`{"etat_initial": "seul champ"}`,
		`{"NOTICE": {"etat_initial": {"trop": "profond"}}}`,
		"```json\n{cassé\n```",
	}
	for i, in := range inputs {
		t.Run(fmt.Sprintf("input %d", i), func(t *testing.T) {
			fb := &stubFallback{replies: []string{"toujours de la prose", "encore", "et encore"}}
			out := New(fb).Normalize(context.Background(), in, fields.Core(), testProfile)
			assert.Equal(t, FallbackExhausted, out.Kind())
			assert.Equal(t, 1, fb.Calls())
			assert.LessOrEqual(t, len(out.Trace), 9)
			seen := map[State]bool{}
			for _, st := range out.Trace {
				assert.False(t, seen[st], "state %s revisited", st)
				seen[st] = true
			}
		})
	}
}

func TestNormalizeWithoutFallback(t *testing.T) {
	t.Parallel()
	fb := &stubFallback{}
	out := New(fb).Normalize(context.Background(), "prose", fields.Core(), testProfile, WithoutFallback())
	assert.Equal(t, NoJSONFound, out.Kind())
	assert.Equal(t, 0, fb.Calls())

	out = New(nil).Normalize(context.Background(), `{"etat_initial": "x"}`, fields.Core(), testProfile)
	assert.Equal(t, IncompleteFields, out.Kind())
	assert.Len(t, out.Failure.Missing, fields.TotalCore-1)

	reply, err := New(nil).RequestFallback(context.Background(), "prose", fields.Core(), testProfile)
	assert.ErrorIs(t, err, ErrNoFallback)
	assert.Empty(t, reply)
}

type recorderFunc func(llm.Profile, Outcome, time.Duration)

func (f recorderFunc) ObserveNormalization(p llm.Profile, o Outcome, d time.Duration) { f(p, o, d) }

func TestNormalizeRecorder(t *testing.T) {
	t.Parallel()
	var kinds []Kind
	rec := recorderFunc(func(_ llm.Profile, o Outcome, _ time.Duration) { kinds = append(kinds, o.Kind()) })
	n := New(&stubFallback{}, WithRecorder(rec))

	n.Normalize(context.Background(), toJSON(t, coreValues()), fields.Core(), testProfile)
	n.Run(context.Background(), func(context.Context) (string, error) { return "", errors.New("boom") }, fields.Core(), testProfile)
	assert.Equal(t, []Kind{0, TransportError}, kinds)
}

func TestNormalizeConcurrent(t *testing.T) {
	t.Parallel()
	n := New(&stubFallback{})
	qwen := llm.Profile{Key: "qwen", Provider: llm.ProviderNVIDIA, Model: "qwen/qwen3.5-397b-a17b"}

	var wg sync.WaitGroup
	outs := make([]Outcome, 16)
	for i := range outs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vals := coreValues()
			vals["etat_initial"] = fmt.Sprintf("maison %d", i)
			p := testProfile
			if i%2 == 1 {
				p = qwen
			}
			outs[i] = n.Normalize(context.Background(), toJSON(t, groupedValues(vals)), fields.Core(), p)
		}(i)
	}
	wg.Wait()
	for i, out := range outs {
		require.True(t, out.OK())
		assert.Equal(t, fmt.Sprintf("maison %d", i), out.Record["etat_initial"])
	}
}

func TestTranslator(t *testing.T) {
	t.Parallel()

	t.Run("Should send the field list with reasoning off", func(t *testing.T) {
		var got llm.Request
		inv := llm.InvokerFunc(func(_ context.Context, req llm.Request) (string, error) {
			got = req
			return `{"ok": true}`, nil
		})
		tr := NewTranslator(inv, prompt.Catalog{})
		out, err := tr.RequestFallback(context.Background(), strings.Repeat("é", 5000), fields.Core(), testProfile, "")
		require.NoError(t, err)
		assert.Equal(t, `{"ok": true}`, out)
		assert.False(t, got.Thinking)
		assert.True(t, got.JSON)
		assert.Equal(t, testProfile, got.Profile)
		assert.Contains(t, got.Text, strings.Join(fields.Core().Names(), ", "))
		assert.Contains(t, got.Text, strings.Repeat("é", prompt.MaxTranslationRunes))
		assert.NotContains(t, got.Text, strings.Repeat("é", prompt.MaxTranslationRunes+1))
	})

	t.Run("Should wrap invoker errors as transport errors", func(t *testing.T) {
		inv := llm.InvokerFunc(func(context.Context, llm.Request) (string, error) {
			return "", context.Canceled
		})
		_, err := NewTranslator(inv, prompt.Catalog{}).RequestFallback(context.Background(), "x", fields.Core(), testProfile, "")
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Should feed the pipeline as companion operation", func(t *testing.T) {
		inv := llm.InvokerFunc(func(context.Context, llm.Request) (string, error) {
			return "```json\n" + toJSON(t, coreValues()) + "\n```", nil
		})
		n := New(NewTranslator(inv, prompt.Catalog{}))
		reply, err := n.RequestFallback(context.Background(), "prose", fields.Core(), testProfile)
		require.NoError(t, err)
		out := n.Normalize(context.Background(), reply, fields.Core(), testProfile)
		assert.True(t, out.OK())
	})
}

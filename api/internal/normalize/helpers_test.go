package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
)

var testProfile = llm.Profile{Key: "nemotron", Provider: llm.ProviderNVIDIA, Model: "nvidia/nemotron-nano-12b-v2-vl", Reasoning: llm.ReasoningSystemPrefix}

// coreValues returns one plausible value per core field.
func coreValues() map[string]string {
	out := make(map[string]string, fields.TotalCore)
	for i, n := range fields.Core().Names() {
		out[n] = fmt.Sprintf("valeur %d pour %s", i+1, n)
	}
	out["couleur_facade"] = "Blanc cassé RAL 9001 (confiance élevée)"
	out["couleur_volets"] = "gris anthracite, non déterminable visuellement"
	return out
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// groupedValues splits values into NOTICE and ASPECT headers.
func groupedValues(vals map[string]string) map[string]map[string]string {
	out := map[string]map[string]string{"NOTICE": {}, "ASPECT": {}}
	for _, f := range fields.Core().Fields() {
		g := "ASPECT"
		if f.Group == fields.GroupNotice {
			g = "NOTICE"
		}
		out[g][f.Name] = vals[f.Name]
	}
	return out
}

type stubFallback struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	raws    []string
	hints   []string
}

func (s *stubFallback) RequestFallback(_ context.Context, raw string, _ *fields.Schema, _ llm.Profile, hint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.raws = append(s.raws, raw)
	s.hints = append(s.hints, hint)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *stubFallback) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

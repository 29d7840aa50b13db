package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name string
	got  []Request
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Invoke(_ context.Context, req Request) (string, error) {
	f.got = append(f.got, req)
	return f.name + ":" + req.Profile.Key, nil
}

func TestEnginesInvoke(t *testing.T) {
	t.Parallel()
	nv := &fakeEngine{name: "nvidia"}
	e := &Engines{NVIDIA: nv}
	defs := DefaultProfiles()

	t.Run("Should dispatch by the profile's provider", func(t *testing.T) {
		out, err := e.Invoke(context.Background(), Request{Profile: defs[1], Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, "nvidia:qwen", out)
		require.Len(t, nv.got, 1)
		assert.Equal(t, "x", nv.got[0].Text)
	})

	t.Run("Should fail for an unconfigured provider", func(t *testing.T) {
		_, err := e.Invoke(context.Background(), Request{Profile: defs[2]})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("Should fail for an unknown provider", func(t *testing.T) {
		_, err := e.Invoke(context.Background(), Request{Profile: Profile{Provider: "openai"}})
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestImageDataURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "data:image/png;base64,AQI=", Image{MIME: "image/png", Data: []byte{1, 2}}.DataURL())
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	t.Run("Should look keys up case-insensitively and fall back to the default", func(t *testing.T) {
		p, err := NewProfiles(DefaultProfiles(), " QWEN ")
		require.NoError(t, err)
		assert.Equal(t, "qwen", p.Default().Key)
		pr, ok := p.Lookup("Nemotron")
		require.True(t, ok)
		assert.Equal(t, ReasoningSystemPrefix, pr.Reasoning)
		assert.Equal(t, "qwen", p.Get("unknown").Key)
		assert.Equal(t, []string{"gemini", "nemotron", "qwen"}, p.Keys())
		assert.Equal(t, "Rapide et Efficace", p.Labels()["nemotron"])
	})

	t.Run("Should default to the first profile", func(t *testing.T) {
		p, err := NewProfiles(DefaultProfiles(), "")
		require.NoError(t, err)
		assert.Equal(t, "nemotron", p.Default().Key)
	})

	t.Run("Should reject invalid registries", func(t *testing.T) {
		_, err := NewProfiles(nil, "")
		assert.Error(t, err)
		_, err = NewProfiles(DefaultProfiles(), "mistral")
		assert.Error(t, err)
		dup := append(DefaultProfiles(), DefaultProfiles()[0])
		_, err = NewProfiles(dup, "")
		assert.ErrorContains(t, err, "duplicate")
		_, err = NewProfiles([]Profile{{Key: "x", Provider: "openai", Model: "m"}}, "")
		assert.Error(t, err)
	})

	t.Run("Should load profiles from YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.yaml")
		yml := `default: fast
profiles:
  - key: fast
    label: Rapide
    provider: nvidia
    model: nvidia/nemotron-nano-12b-v2-vl
    reasoning: system_prefix
    system:
      analysis: "Réponds en JSON."
`
		require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
		list, def, err := LoadProfiles(path)
		require.NoError(t, err)
		assert.Equal(t, "fast", def)
		require.Len(t, list, 1)
		assert.Equal(t, "Réponds en JSON.", list[0].System["analysis"])

		_, _, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dp-normalizer/api/internal/dossier"
	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
)

func TestCatalogSystem(t *testing.T) {
	t.Parallel()
	qwen := llm.Profile{Key: "qwen", System: map[string]string{"analysis": "qwen system"}}
	nemotron := llm.Profile{Key: "nemotron"}

	t.Run("Should fall back to built-in text", func(t *testing.T) {
		c := Catalog{}
		assert.Equal(t, defaultSystem[KindTranslation], c.System(KindTranslation, nemotron))
		assert.NotContains(t, c.System(KindAnalysis, nemotron), llm.NoThinkDirective)
	})

	t.Run("Should prefer profile override", func(t *testing.T) {
		assert.Equal(t, "qwen system", Catalog{}.System(KindAnalysis, qwen))
	})

	t.Run("Should prefer saved file", func(t *testing.T) {
		c := Catalog{Dir: t.TempDir()}
		path, err := c.Save("QWEN", KindAnalysis, "  from disk\n")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(c.Dir, "qwen", "analysis.system.txt"), path)
		assert.Equal(t, "from disk", c.System(KindAnalysis, qwen))

		entries, err := os.ReadDir(filepath.Join(c.Dir, "qwen"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("Should reject bad keys", func(t *testing.T) {
		c := Catalog{Dir: t.TempDir()}
		_, err := c.Save("../etc", KindAnalysis, "x")
		require.Error(t, err)
		_, err = c.Save("qwen", Kind("other"), "x")
		require.Error(t, err)
		_, err = Catalog{}.Save("qwen", KindAnalysis, "x")
		require.Error(t, err)
	})
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	k, err := ParseKind(" Translation ")
	require.NoError(t, err)
	assert.Equal(t, KindTranslation, k)
	_, err = ParseKind("detect")
	require.Error(t, err)
}

func TestTranslation(t *testing.T) {
	t.Parallel()

	t.Run("Should list exactly the schema names", func(t *testing.T) {
		s := fields.Core()
		got := Translation("La façade est enduite.", s, "12 rue Haute, Brive")
		assert.Contains(t, got, "exactement ces 15 clés")
		assert.Contains(t, got, strings.Join(s.Names(), ", "))
		assert.Contains(t, got, "Contexte: 12 rue Haute, Brive")
		assert.Contains(t, got, "La façade est enduite.")
		assert.NotContains(t, got, "niveau_confiance_global")
	})

	t.Run("Should truncate long prose by runes", func(t *testing.T) {
		raw := strings.Repeat("é", MaxTranslationRunes+50)
		got := Translation(raw, fields.Core(), "")
		assert.Contains(t, got, strings.Repeat("é", MaxTranslationRunes)+"\n")
		assert.NotContains(t, got, strings.Repeat("é", MaxTranslationRunes+1))
		assert.NotContains(t, got, "Contexte")
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "éa", Truncate("éab", 2))
	assert.Equal(t, "ab", Truncate("ab", 5))
	assert.Equal(t, "", Truncate("ab", 0))
}

func TestAnalysis(t *testing.T) {
	t.Parallel()
	p := dossier.Project{Adresse: "25 Chemin des Vignes", ZonePLU: "UA"}
	got := Analysis(2, 1, p, fields.Extended())
	assert.Contains(t, got, "Analyse ces 3 photos")
	assert.Contains(t, got, "Les 2 premières images")
	assert.Contains(t, got, "- Adresse : 25 Chemin des Vignes")
	assert.Contains(t, got, "zone UA.")
	assert.Contains(t, got, `"niveau_confiance_global": "faible | moyen | élevé"`)
	assert.Contains(t, got, `"couleur_volets": "... (RAL estimé si possible + confiance)"`)
	assert.True(t, strings.HasSuffix(got, "- PAS de texte avant ou après."))

	bare := Analysis(1, 1, dossier.Project{}, fields.Core())
	assert.NotContains(t, bare, "INFORMATIONS DU PROJET")
	assert.Contains(t, bare, "zone UB.")
}

func TestNoticeAndPhoto(t *testing.T) {
	t.Parallel()
	got := Notice(dossier.Project{Commune: "Tulle"}, fields.Notice())
	assert.Contains(t, got, "JSON avec 5 clés")
	assert.Contains(t, got, `"impact_environnemental": "..."`)
	assert.Contains(t, PhotoDescription(true), "existant (avant travaux)")
	assert.Contains(t, PhotoDescription(false), "projeté (après travaux)")
}

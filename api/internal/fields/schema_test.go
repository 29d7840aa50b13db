package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreSchema(t *testing.T) {
	t.Parallel()

	t.Run("Should hold exactly fifteen fields in order", func(t *testing.T) {
		s := Core()
		require.Equal(t, TotalCore, s.Len())
		names := s.Names()
		assert.Equal(t, "etat_initial", names[0])
		assert.Equal(t, "couleur_toiture", names[len(names)-1])
		assert.Len(t, s.Group(GroupNotice), 5)
		assert.Len(t, s.Group(GroupAspect), 10)
	})

	t.Run("Should not leak internal slices", func(t *testing.T) {
		fs := Core().Fields()
		fs[0].Name = "tampered"
		_, ok := Core().Field("etat_initial")
		assert.True(t, ok)
	})

	t.Run("Should fill blank record with defaults", func(t *testing.T) {
		b := Core().Blank()
		require.Len(t, b, TotalCore)
		assert.Equal(t, "Non renseigné", b["etat_initial"])
		assert.Equal(t, "—", b["couleur_volets"])
	})

	t.Run("Should resolve schemas by name", func(t *testing.T) {
		s, ok := ByName("")
		require.True(t, ok)
		assert.Equal(t, CoreName, s.Name())
		s, ok = ByName("Extended")
		require.True(t, ok)
		assert.Equal(t, 26, s.Len())
		s, ok = ByName("notice")
		require.True(t, ok)
		assert.Equal(t, []string{"etat_initial", "etat_projete", "justification", "insertion_paysagere", "impact_environnemental"}, s.Names())
		_, ok = ByName("other")
		assert.False(t, ok)
	})
}

func TestSchemaLookup(t *testing.T) {
	t.Parallel()
	cases := []struct {
		key  string
		want string
		ok   bool
	}{
		{"etat_initial", "etat_initial", true},
		{"ETAT_INITIAL", "etat_initial", true},
		{"État initial", "etat_initial", true},
		{"etat-initial", "etat_initial", true},
		{"couleur.facade", "couleur_facade", true},
		{"etatinitial", "etat_initial", true},
		{"notice", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			f, ok := Core().Lookup(tc.key)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, f.Name)
		})
	}
}

func TestNewSchemaErrors(t *testing.T) {
	t.Parallel()

	t.Run("Should reject folded duplicates", func(t *testing.T) {
		_, err := New("x", []Field{{Name: "a_b"}, {Name: "A-B"}})
		require.Error(t, err)
	})

	t.Run("Should reject category without choices", func(t *testing.T) {
		_, err := New("x", []Field{{Name: "level", Kind: Category}})
		require.Error(t, err)
	})

	t.Run("Should reject empty schema", func(t *testing.T) {
		_, err := New("x", nil)
		require.Error(t, err)
	})
}

func TestMatchChoice(t *testing.T) {
	t.Parallel()
	f, ok := Extended().Field("niveau_confiance_global")
	require.True(t, ok)

	got, ok := f.MatchChoice("Élevé")
	require.True(t, ok)
	assert.Equal(t, "élevé", got)

	got, ok = f.MatchChoice("confiance moyenne à moyen, globalement faible")
	require.True(t, ok)
	assert.Equal(t, "moyen", got)

	_, ok = f.MatchChoice("très bonne")
	assert.False(t, ok)

	_, ok = f.MatchChoice("moyenne")
	assert.False(t, ok)
}

func TestParseColorCode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Blanc cassé RAL 9001 (confiance élevée)", "RAL 9001", true},
		{"ral7016", "RAL 7016", true},
		{"gris #a1b2c3", "#A1B2C3", true},
		{"NCS S 1050-Y90R", "NCS S 1050-Y90R", true},
		{"ton pierre, non déterminable visuellement", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			c, ok := ParseColorCode(tc.in)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.want, c.String())
			}
		})
	}
}

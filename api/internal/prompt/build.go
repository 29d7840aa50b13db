package prompt

import (
	"fmt"
	"strings"

	"dp-normalizer/api/internal/dossier"
	"dp-normalizer/api/internal/fields"
)

// MaxTranslationRunes caps the prose handed to the translation call.
const MaxTranslationRunes = 3000

// Analysis builds the user text of the photo comparison call. The first
// nBefore images are the existing state, the rest the projected one.
func Analysis(nBefore, nAfter int, p dossier.Project, s *fields.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyse ces %d photos avec une précision architecturale et réglementaire maximale.\n\n", nBefore+nAfter)
	fmt.Fprintf(&b, "Les %d premières images correspondent à l'ÉTAT EXISTANT (avant).\n", nBefore)
	fmt.Fprintf(&b, "Les %d dernières images correspondent à l'ÉTAT PROJETÉ (après).\n", nAfter)
	if !p.IsZero() {
		b.WriteString("\nINFORMATIONS DU PROJET :\n")
		for _, l := range p.Lines() {
			b.WriteString("- " + l + "\n")
		}
	}
	b.WriteString(`
MISSION CRUCIALE :
Compare minutieusement l'avant et l'après.
Identifie CHAQUE modification physique visible.
Distingue clairement :
- Modifications esthétiques (couleur, texture, finition)
- Modifications géométriques (dimensions, hauteur, volume)
- Modifications structurelles (ouvertures créées/supprimées, extensions, démolitions)

Ignore totalement les éléments temporaires (météo, végétation, véhicules, ombres).
`)
	fmt.Fprintf(&b, "\nÉvalue la cohérence architecturale avec un environnement résidentiel urbain typique d'une zone %s.\n", p.Zone())
	b.WriteString(`Signale tout risque réglementaire potentiel.
Si un élément n'est pas clairement identifiable visuellement, indique "non déterminable visuellement".
Pour chaque détection matérielle ou colorimétrique, indique un niveau de confiance (faible, moyen, élevé).

Retourne un objet JSON PLAT avec EXACTEMENT ces clés au premier niveau :
`)
	b.WriteString(skeleton(s))
	b.WriteString(strictRules)
	return b.String()
}

const strictRules = `

RÈGLES STRICTES :
- Réponds UNIQUEMENT avec le JSON.
- PAS de sous-objets.
- COMMENCE par { et FINIS par }.
- PAS de texte avant ou après.`

// Translation asks the model to turn prose into a JSON object holding
// exactly the schema's keys. hint is an optional one-line project context.
func Translation(raw string, s *fields.Schema, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Convertis ce texte descriptif en JSON avec exactement ces %d clés :\n", s.Len())
	b.WriteString(strings.Join(s.Names(), ", "))
	b.WriteString("\n")
	if hint = strings.TrimSpace(hint); hint != "" {
		b.WriteString("\nContexte: " + hint + "\n")
	}
	b.WriteString("\nTEXTE :\n")
	b.WriteString(Truncate(raw, MaxTranslationRunes))
	b.WriteString("\n\nN'ajoute aucune autre clé et aucun commentaire. Commence par { et finis par }. RIEN d'autre.")
	return b.String()
}

// Notice drafts the notice fields from the typed project data alone.
func Notice(p dossier.Project, s *fields.Schema) string {
	var b strings.Builder
	b.WriteString("Rédige la notice descriptive pour cette Déclaration Préalable :\n")
	fmt.Fprintf(&b, "TERRAIN : %s, %s\n", strings.TrimSpace(p.Adresse), strings.TrimSpace(p.Commune))
	fmt.Fprintf(&b, "TYPE : %s\n", strings.TrimSpace(p.TypeTravaux))
	fmt.Fprintf(&b, "DESCRIPTION : %s\n\n", strings.TrimSpace(p.Description))
	fmt.Fprintf(&b, "JSON avec %d clés :\n", s.Len())
	b.WriteString(skeleton(s))
	b.WriteString("\n\nCommence par { — RIEN d'autre.")
	return b.String()
}

// PhotoDescription is the single-photo caption request.
func PhotoDescription(before bool) string {
	etat := "projeté (après travaux)"
	if before {
		etat = "existant (avant travaux)"
	}
	return "Décris brièvement cette photo d'un bâtiment dans son état " + etat +
		" pour un dossier de Déclaration Préalable. Factuel et professionnel, 1-2 phrases."
}

func skeleton(s *fields.Schema) string {
	var b strings.Builder
	b.WriteString("{\n")
	fs := s.Fields()
	for i, f := range fs {
		fmt.Fprintf(&b, "  %q: \"%s\"", f.Name, hintFor(f))
		if i < len(fs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func hintFor(f fields.Field) string {
	switch {
	case f.Kind == fields.Color:
		return "... (RAL estimé si possible + confiance)"
	case f.Kind == fields.Category:
		return strings.Join(f.Choices, " | ")
	case f.Group == fields.GroupAspect:
		return "... (avec niveau de confiance)"
	default:
		return "..."
	}
}

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

package fields

import (
	"sort"
	"strings"
)

const (
	notSet     = "Non renseigné"
	noColour   = "—"
	CoreName   = "core"
	ExtName    = "extended"
	NoticeName = "notice"
	TotalCore  = 15
)

var coreFields = []Field{
	{Name: "etat_initial", Kind: Text, Group: GroupNotice, Label: "État initial du terrain et des constructions", Default: notSet},
	{Name: "etat_projete", Kind: Text, Group: GroupNotice, Label: "État projeté", Default: notSet},
	{Name: "justification", Kind: Text, Group: GroupNotice, Label: "Justification du projet", Default: notSet},
	{Name: "insertion_paysagere", Kind: Text, Group: GroupNotice, Label: "Insertion paysagère", Default: notSet},
	{Name: "impact_environnemental", Kind: Text, Group: GroupNotice, Label: "Impact environnemental", Default: notSet},

	{Name: "facade_materiaux_existants", Kind: Text, Group: GroupAspect, Label: "Façade : matériaux existants", Default: noColour},
	{Name: "facade_materiaux_projetes", Kind: Text, Group: GroupAspect, Label: "Façade : matériaux projetés", Default: noColour},
	{Name: "menuiseries_existantes", Kind: Text, Group: GroupAspect, Label: "Menuiseries existantes", Default: noColour},
	{Name: "menuiseries_projetees", Kind: Text, Group: GroupAspect, Label: "Menuiseries projetées", Default: noColour},
	{Name: "toiture_materiaux_existants", Kind: Text, Group: GroupAspect, Label: "Toiture : matériaux existants", Default: noColour},
	{Name: "toiture_materiaux_projetes", Kind: Text, Group: GroupAspect, Label: "Toiture : matériaux projetés", Default: noColour},
	{Name: "couleur_facade", Kind: Color, Group: GroupAspect, Label: "Couleur façade", Default: noColour},
	{Name: "couleur_menuiseries", Kind: Color, Group: GroupAspect, Label: "Couleur menuiseries", Default: noColour},
	{Name: "couleur_volets", Kind: Color, Group: GroupAspect, Label: "Couleur volets", Default: noColour},
	{Name: "couleur_toiture", Kind: Color, Group: GroupAspect, Label: "Couleur toiture", Default: noColour},
}

// Technical-analysis fields requested by the advanced architectural prompt.
var analysisFields = []Field{
	{Name: "modifications_detaillees", Kind: Text, Group: GroupAnalysis, Label: "Modifications détaillées", Default: notSet},
	{Name: "modification_volume", Kind: Text, Group: GroupAnalysis, Label: "Modification du volume", Default: notSet},
	{Name: "modification_emprise_au_sol", Kind: Text, Group: GroupAnalysis, Label: "Modification de l'emprise au sol", Default: notSet},
	{Name: "modification_surface_plancher", Kind: Text, Group: GroupAnalysis, Label: "Modification de la surface de plancher", Default: notSet},
	{Name: "nombre_ouvertures_existantes", Kind: Text, Group: GroupAnalysis, Label: "Ouvertures existantes", Default: notSet},
	{Name: "nombre_ouvertures_projetees", Kind: Text, Group: GroupAnalysis, Label: "Ouvertures projetées", Default: notSet},
	{Name: "hauteur_estimee_existante", Kind: Text, Group: GroupAnalysis, Label: "Hauteur estimée existante", Default: notSet},
	{Name: "hauteur_estimee_projete", Kind: Text, Group: GroupAnalysis, Label: "Hauteur estimée projetée", Default: notSet},
	{Name: "coherence_architecturale", Kind: Text, Group: GroupAnalysis, Label: "Cohérence architecturale", Default: notSet},
	{Name: "risques_reglementaires_potentiels", Kind: Text, Group: GroupAnalysis, Label: "Risques réglementaires potentiels", Default: notSet},
	{Name: "niveau_confiance_global", Kind: Category, Group: GroupAnalysis, Label: "Niveau de confiance global", Default: "moyen",
		Choices: []string{"faible", "moyen", "élevé"}},
}

var (
	core     = MustNew(CoreName, coreFields)
	extended = MustNew(ExtName, append(append([]Field(nil), coreFields...), analysisFields...))
	notice   = MustNew(NoticeName, coreFields[:5])
)

// Core is the 15-field schema every filing needs.
func Core() *Schema { return core }

// Extended is Core plus the technical-analysis fields.
func Extended() *Schema { return extended }

// Notice holds only the five notice fields, for text-only drafts without photos.
func Notice() *Schema { return notice }

// ByName resolves a schema by name; empty means Core.
func ByName(name string) (*Schema, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CoreName:
		return core, true
	case ExtName:
		return extended, true
	case NoticeName:
		return notice, true
	default:
		return nil, false
	}
}

// MatchChoice maps v onto one of the field's choices, ignoring case and
// diacritics. When several choices occur in v the earliest one wins.
func (f Field) MatchChoice(v string) (string, bool) {
	fv := FoldText(v)
	if fv == "" {
		return "", false
	}
	type hit struct {
		pos    int
		choice string
	}
	var hits []hit
	for _, c := range f.Choices {
		fc := FoldText(c)
		if fv == fc {
			return c, true
		}
		if i := indexWord(fv, fc); i >= 0 {
			hits = append(hits, hit{pos: i, choice: c})
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	return hits[0].choice, true
}

// indexWord finds w in s at word boundaries.
func indexWord(s, w string) int {
	off := 0
	for {
		i := strings.Index(s[off:], w)
		if i < 0 {
			return -1
		}
		i += off
		end := i + len(w)
		if (i == 0 || !isWordByte(s[i-1])) && (end == len(s) || !isWordByte(s[end])) {
			return i
		}
		off = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

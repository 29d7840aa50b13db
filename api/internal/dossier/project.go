package dossier

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const unset = "Non renseigné"

// Project is the part of the filing the applicant types in. It feeds the
// analysis prompt and the document header.
type Project struct {
	Adresse     string  `json:"adresse" validate:"max=300"`
	Commune     string  `json:"commune" validate:"max=120"`
	CodePostal  string  `json:"code_postal" validate:"omitempty,numeric,len=5"`
	ZonePLU     string  `json:"zone_plu" validate:"max=16"`
	TypeTravaux string  `json:"type_travaux" validate:"max=200"`
	Description string  `json:"description" validate:"max=4000"`
	Surface     float64 `json:"surface_existante" validate:"gte=0"`
	Hauteur     float64 `json:"hauteur_existante" validate:"gte=0"`
}

func (p Project) IsZero() bool { return p == Project{} }

// Zone returns the PLU zone, or "UB" when the applicant left it empty.
func (p Project) Zone() string {
	if z := strings.TrimSpace(p.ZonePLU); z != "" {
		return z
	}
	return "UB"
}

// Lines renders the project as the bullet list used in prompts.
func (p Project) Lines() []string {
	return []string{
		"Adresse : " + orUnset(p.Adresse),
		fmt.Sprintf("Commune : %s (%s)", orUnset(p.Commune), strings.TrimSpace(p.CodePostal)),
		"Zone PLU : " + strings.TrimSpace(p.ZonePLU),
		"Type : " + orUnset(p.TypeTravaux),
		"Description : " + orUnset(p.Description),
		"Surface déclarée : " + formatArea(p.Surface) + " m²",
	}
}

// Short is the one-line context given to the translation call.
func (p Project) Short() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Adresse, p.Commune, p.TypeTravaux} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func orUnset(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unset
	}
	return s
}

func formatArea(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewReference returns a filing reference such as "DP-20260314-1a2b3c".
func NewReference(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "DP-" + now.Format("20060102") + "-" + id[:6]
}

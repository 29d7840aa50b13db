package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"dp-normalizer/api/internal/dossier"
	"dp-normalizer/api/internal/fields"
)

type rgb struct{ r, g, b int }

// Theme is the colour set of a document.
type Theme struct {
	Name      string
	Primary   rgb
	Secondary rgb
	Title     rgb
	Body      rgb
	Border    rgb
	HeaderBg  rgb
	Tricolore bool
}

var themes = map[string]Theme{
	"classique": {Name: "classique", Primary: rgb{0, 0, 145}, Secondary: rgb{225, 0, 15}, Title: rgb{30, 30, 30},
		Body: rgb{58, 58, 58}, Border: rgb{204, 204, 204}, HeaderBg: rgb{232, 237, 255}, Tricolore: true},
	"moderne": {Name: "moderne", Primary: rgb{34, 40, 49}, Secondary: rgb{0, 173, 181}, Title: rgb{34, 40, 49},
		Body: rgb{57, 62, 70}, Border: rgb{238, 238, 238}, HeaderBg: rgb{228, 233, 242}},
	"nature": {Name: "nature", Primary: rgb{45, 106, 79}, Secondary: rgb{216, 243, 220}, Title: rgb{27, 67, 50},
		Body: rgb{64, 61, 57}, Border: rgb{212, 212, 212}, HeaderBg: rgb{233, 245, 233}},
	"architecte": {Name: "architecte", Primary: rgb{20, 33, 61}, Secondary: rgb{252, 163, 17}, Title: rgb{0, 0, 0},
		Body: rgb{51, 51, 51}, Border: rgb{229, 229, 229}, HeaderBg: rgb{242, 244, 247}},
}

// ThemeByName returns the named theme, or "classique".
func ThemeByName(name string) Theme {
	if t, ok := themes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return themes["classique"]
}

type Document struct {
	Reference string
	Created   time.Time
	Project   dossier.Project
	Record    fields.Record
	Schema    *fields.Schema
	Theme     Theme
}

var sections = []struct {
	group fields.Group
	title string
}{
	{fields.GroupAspect, "Aspect extérieur des constructions"},
	{fields.GroupNotice, "Notice descriptive du projet"},
	{fields.GroupAnalysis, "Analyse technique estimée"},
}

// PDF renders doc as an A4 filing notice. Fields absent from the record print
// their default.
func PDF(w io.Writer, doc Document) error {
	if doc.Schema == nil {
		return errors.New("render: schema is nil")
	}
	if doc.Theme.Name == "" {
		doc.Theme = ThemeByName("")
	}
	if doc.Created.IsZero() {
		doc.Created = time.Now()
	}
	th := doc.Theme

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Déclaration Préalable - "+doc.Reference), false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetHeaderFunc(func() { header(pdf, tr, doc) })
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(th.Body.r, th.Body.g, th.Body.b)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Déclaration Préalable - générée le %s - Page %d",
			doc.Created.Format("02/01/2006"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(th.Title.r, th.Title.g, th.Title.b)
	pdf.CellFormat(0, 9, tr("DÉCLARATION PRÉALABLE DE TRAVAUX"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if !doc.Project.IsZero() {
		sectionHeader(pdf, tr, th, "Projet")
		for _, l := range doc.Project.Lines() {
			body(pdf, tr, th, l)
		}
		pdf.Ln(2)
	}

	n := 0
	for _, sec := range sections {
		fs := doc.Schema.Group(sec.group)
		if len(fs) == 0 {
			continue
		}
		n++
		sectionHeader(pdf, tr, th, fmt.Sprintf("%d - %s", n, sec.title))
		for _, f := range fs {
			fieldRow(pdf, tr, th, f, value(doc.Record, f))
		}
		if sec.group == fields.GroupAspect {
			palette(pdf, tr, th, doc)
		}
		pdf.Ln(3)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return pdf.Output(w)
}

func header(pdf *gofpdf.Fpdf, tr func(string) string, doc Document) {
	th := doc.Theme
	w, _ := pdf.GetPageSize()
	if th.Tricolore {
		pdf.SetFillColor(th.Primary.r, th.Primary.g, th.Primary.b)
		pdf.Rect(0, 0, w/3, 3, "F")
		pdf.SetFillColor(255, 255, 255)
		pdf.Rect(w/3, 0, w/3, 3, "F")
		pdf.SetFillColor(th.Secondary.r, th.Secondary.g, th.Secondary.b)
		pdf.Rect(2*w/3, 0, w/3, 3, "F")
	} else {
		pdf.SetFillColor(th.Primary.r, th.Primary.g, th.Primary.b)
		pdf.Rect(0, 0, w, 3, "F")
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(th.Body.r, th.Body.g, th.Body.b)
	pdf.SetXY(15, 8)
	pdf.CellFormat(0, 4, tr("Réf. "+doc.Reference), "", 1, "R", false, 0, "")
	pdf.SetY(20)
}

func sectionHeader(pdf *gofpdf.Fpdf, tr func(string) string, th Theme, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(th.HeaderBg.r, th.HeaderBg.g, th.HeaderBg.b)
	pdf.SetTextColor(th.Primary.r, th.Primary.g, th.Primary.b)
	pdf.CellFormat(0, 8, tr(strings.ToUpper(title)), "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func fieldRow(pdf *gofpdf.Fpdf, tr func(string) string, th Theme, f fields.Field, v string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(th.Title.r, th.Title.g, th.Title.b)
	pdf.MultiCell(0, 5, tr(f.Label+" :"), "", "L", false)
	body(pdf, tr, th, v)
	pdf.Ln(1)
}

func body(pdf *gofpdf.Fpdf, tr func(string) string, th Theme, text string) {
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(th.Body.r, th.Body.g, th.Body.b)
	pdf.MultiCell(0, 5, tr(text), "", "L", false)
}

// palette lists the colour fields with the code recognised in each value.
func palette(pdf *gofpdf.Fpdf, tr func(string) string, th Theme, doc Document) {
	var rows [][2]string
	for _, f := range doc.Schema.Fields() {
		if f.Kind != fields.Color {
			continue
		}
		code := "—"
		if c, ok := fields.ParseColorCode(value(doc.Record, f)); ok {
			code = c.String()
		}
		rows = append(rows, [2]string{f.Label, code})
	}
	if len(rows) == 0 {
		return
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetDrawColor(th.Border.r, th.Border.g, th.Border.b)
	pdf.SetTextColor(th.Title.r, th.Title.g, th.Title.b)
	pdf.CellFormat(90, 6, tr("Élément"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, tr("Code couleur"), "1", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range rows {
		pdf.CellFormat(90, 6, tr(r[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, tr(r[1]), "1", 1, "L", false, 0, "")
	}
}

func value(r fields.Record, f fields.Field) string {
	if v := strings.TrimSpace(r[f.Name]); v != "" {
		return v
	}
	return f.Default
}

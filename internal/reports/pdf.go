// Package reports renders the monthly submission report as a PDF.
package reports

import (
	"fmt"
	"io"
	"time"

	"evidence-hub/internal/models"
	"evidence-hub/internal/scoring"
	"github.com/go-pdf/fpdf"
)

type column struct {
	title string
	width float64
	align string
	value func(p *models.Project) string
}

var columns = []column{
	{"Public ID", 22, "L", func(p *models.Project) string { return p.PublicID }},
	{"Idea", 62, "L", func(p *models.Project) string { return truncate(p.Idea, 38) }},
	{"Type", 16, "L", func(p *models.Project) string { return string(p.FileType) }},
	{"Owner", 26, "L", func(p *models.Project) string { return truncate(p.Username, 16) }},
	{"Conf.", 16, "R", func(p *models.Project) string { return fmt.Sprintf("%.2f", p.PredictionConfidence) }},
	{"Verdict", 24, "L", func(p *models.Project) string { return p.Verdict }},
	{"Created", 24, "L", func(p *models.Project) string { return p.CreatedAt.Format("2006-01-02") }},
}

// MonthlyPDF writes the submissions of one month, with a short summary, to w.
func MonthlyPDF(w io.Writer, year int, month time.Month, projects []models.Project, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Evidence report %s %d", month, year), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(15, 98, 254)
	pdf.Cell(0, 10, fmt.Sprintf("Monthly Evidence Report: %s %d", month, year))
	pdf.Ln(12)

	var sum float64
	likely := 0
	for i := range projects {
		sum += projects[i].PredictionConfidence
		if projects[i].Verdict == scoring.VerdictLikelyTrue {
			likely++
		}
	}
	avg := "n/a"
	if len(projects) > 0 {
		avg = fmt.Sprintf("%.2f", sum/float64(len(projects)))
	}

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04 MST")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Submissions: %d    Average confidence: %s    Likely true: %d", len(projects), avg, likely))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	if len(projects) == 0 {
		pdf.CellFormat(0, 7, "No submissions recorded for this month.", "1", 1, "C", false, 0, "")
	}
	for i := range projects {
		for _, c := range columns {
			pdf.CellFormat(c.width, 6, tr(c.value(&projects[i])), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

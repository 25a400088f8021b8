package pdf

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"partnerpipeline/internal/models"
)

// Generator renders forecast reports (удобно мокать в тестах).
type Generator interface {
	RenderForecast(w io.Writer, data ForecastData) error
}

// ForecastGenerator draws the pipeline dashboard onto an A4 page. Without a
// readable TTF it falls back to the core Helvetica font.
type ForecastGenerator struct {
	FontPath string
	Company  string
	fontName string
}

type ForecastData struct {
	Title       string
	Currency    string
	GeneratedAt time.Time
	Report      models.ForecastReport
}

func NewForecastGenerator(fontPath, company string) *ForecastGenerator {
	g := &ForecastGenerator{FontPath: fontPath, Company: company, fontName: "Helvetica"}
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err == nil {
			g.fontName = "DejaVu"
		}
	}
	return g
}

func (g *ForecastGenerator) RenderForecast(w io.Writer, data ForecastData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(data.Title, true)
	pdf.SetAuthor(g.Company, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	g.setupFont(pdf)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r := data.Report
	cur := data.Currency

	// ===== Заголовок
	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, data.Title, "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s - %s", g.Company, data.GeneratedAt.Format("02.01.2006 15:04")), "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Forecast")
	g.kvLine(pdf, "Weighted", money(r.WeightedForecast, cur))
	g.kvLine(pdf, "95% interval", fmt.Sprintf("%s - %s", money(r.ConfidenceInterval.Lower, cur), money(r.ConfidenceInterval.Upper, cur)))
	g.kvLine(pdf, "Best case", money(r.Scenarios.BestCase, cur))
	g.kvLine(pdf, "Most likely", money(r.Scenarios.MostLikely, cur))
	g.kvLine(pdf, "Worst case", money(r.Scenarios.WorstCase, cur))
	g.hr(pdf)

	g.sectionTitle(pdf, "Pipeline by stage")
	g.tableHeader(pdf, "Stage", "Deals", "Value", "Weighted")
	for _, s := range r.Stages {
		g.tableRow(pdf, s.Name, fmt.Sprintf("%d", s.Count), money(s.Value, cur), money(s.WeightedValue, cur))
	}
	g.hr(pdf)

	g.sectionTitle(pdf, "Win / loss")
	wl := r.WinLoss
	g.kvLine(pdf, "Closed", fmt.Sprintf("%d (won %d, lost %d)", wl.TotalClosed, wl.Won, wl.Lost))
	g.kvLine(pdf, "Win rate", fmt.Sprintf("%.1f%%", wl.WinRate))
	g.kvLine(pdf, "Avg won", money(wl.AvgWonValue, cur))
	g.kvLine(pdf, "Avg lost", money(wl.AvgLostValue, cur))
	for _, reason := range sortedKeys(wl.LossReasonBreakdown) {
		stat := wl.LossReasonBreakdown[reason]
		g.kvLine(pdf, "  "+reason, fmt.Sprintf("%d / %s", stat.Count, money(stat.Value, cur)))
	}
	g.hr(pdf)

	g.sectionTitle(pdf, "Conversion by partner")
	g.tableHeader(pdf, "Partner", "Deals", "Won", "Rate")
	for _, k := range sortedKeys(r.Conversion.ByPartner) {
		s := r.Conversion.ByPartner[k]
		g.tableRow(pdf, k, fmt.Sprintf("%d", s.Total), fmt.Sprintf("%d", s.Won), fmt.Sprintf("%.1f%%", s.Rate))
	}
	pdf.Ln(2)
	g.sectionTitle(pdf, "Conversion by deal size")
	g.tableHeader(pdf, "Bucket", "Deals", "Won", "Rate")
	for _, k := range sortedKeys(r.Conversion.ByDealSize) {
		s := r.Conversion.ByDealSize[k]
		g.tableRow(pdf, k, fmt.Sprintf("%d", s.Total), fmt.Sprintf("%d", s.Won), fmt.Sprintf("%.1f%%", s.Rate))
	}
	g.hr(pdf)

	g.sectionTitle(pdf, "Pipeline age")
	g.kvLine(pdf, "Stalled deals", fmt.Sprintf("%d (%s)", r.Age.TotalStalled, money(r.Age.StalledValue, cur)))
	for _, k := range []string{"0-30", "31-60", "61-90", "90+"} {
		ag := r.Age.AgeGroups[k]
		g.kvLine(pdf, "  "+k+" days", fmt.Sprintf("%d / %s", ag.Count, money(ag.Value, cur)))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render forecast pdf: %w", err)
	}
	return nil
}

// === helpers ===

func (g *ForecastGenerator) setupFont(pdf *gofpdf.Fpdf) {
	if g.fontName == "DejaVu" {
		pdf.AddUTF8Font(g.fontName, "", g.FontPath)
		pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	}
}

func (g *ForecastGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ForecastGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(55, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

var columnWidths = []float64{60, 25, 45, 40}

func (g *ForecastGenerator) tableHeader(pdf *gofpdf.Fpdf, cols ...string) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.SetFillColor(226, 232, 240)
	for i, col := range cols {
		pdf.CellFormat(columnWidths[i], 7, col, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(g.fontName, "", 10)
}

func (g *ForecastGenerator) tableRow(pdf *gofpdf.Fpdf, cols ...string) {
	for i, col := range cols {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(columnWidths[i], 6, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func (g *ForecastGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func money(v float64, currency string) string {
	return fmt.Sprintf("%.2f %s", v, currency)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

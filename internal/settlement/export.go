package settlement

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/fkhayef/nebenkosten/internal/period"
)

// Export formats
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// BuildStatementPDF renders one statement page per tenant.
func BuildStatementPDF(run *Run) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, res := range run.Results {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(0, 8, tr("Betriebskostenabrechnung"))
		pdf.Ln(10)

		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 6, tr(fmt.Sprintf("Objekt: %s", run.PropertyName)))
		pdf.Ln(5)
		pdf.Cell(0, 6, tr(fmt.Sprintf("Mieter: %s (%s)", res.TenantName, res.UnitLabel)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Abrechnungszeitraum: %s", formatPeriod(run.Period)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Nutzungszeitraum: %s", formatPeriod(res.Occupancy)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Regelwerk: %s, erstellt %s", run.RulesVersion, run.CreatedAt.Format(time.RFC3339)))
		pdf.Ln(8)

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(55, 6, "Kostenart", "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, tr("Schlüssel"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Gesamtkosten", "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, "Ihr Anteil (Einheiten)", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, "Ihre Kosten", "1", 0, "R", false, 0, "")
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, l := range res.Lines {
			pdf.CellFormat(55, 6, tr(l.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, string(l.Key), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 6, tr(euro(l.LineTotal.StringFixed(2))), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%s / %s", l.Measure.Round(2).String(), l.MeasureBase.Round(2).String()), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, tr(euro(l.Share.StringFixed(2))), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)

		pdf.Cell(0, 6, tr(fmt.Sprintf("Summe Ihrer Kosten: %s", euro(res.TotalAllocated.StringFixed(2)))))
		pdf.Ln(5)
		pdf.Cell(0, 6, tr(fmt.Sprintf("Vorauszahlungen: %d x %s = %s",
			res.PrepaymentMonths, euro(res.MonthlyPrepay.StringFixed(2)), euro(res.Prepayments.StringFixed(2)))))
		pdf.Ln(5)

		pdf.SetFont("Arial", "B", 10)
		label := "Guthaben"
		if res.Owes() {
			label = "Nachzahlung"
		}
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %s", label, euro(res.Difference.Abs().StringFixed(2)))))
		pdf.Ln(8)

		if run.Emissions != nil {
			pdf.SetFont("Arial", "", 8)
			pdf.MultiCell(0, 4, tr(fmt.Sprintf(
				"CO2-Kostenaufteilung: %s kg CO2/m²a, Stufe %d, Mieter %d %% / Vermieter %d %% von %s Brennstoffkosten.",
				run.Emissions.Intensity.Round(2).String(), run.Emissions.Tier.Number,
				run.Emissions.TenantPercent, run.Emissions.LandlordPercent, euro(run.Emissions.TotalCost.StringFixed(2)),
			)), "", "L", false)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatementXLSX renders a summary sheet and all tenant lines.
func BuildStatementXLSX(run *Run) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	linesSheet := "lines"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Betriebskostenabrechnung")
	_ = f.SetCellValue(summarySheet, "A2", "Objekt")
	_ = f.SetCellValue(summarySheet, "B2", run.PropertyName)
	_ = f.SetCellValue(summarySheet, "A3", "Zeitraum")
	_ = f.SetCellValue(summarySheet, "B3", formatPeriod(run.Period))
	_ = f.SetCellValue(summarySheet, "A4", "Regelwerk")
	_ = f.SetCellValue(summarySheet, "B4", run.RulesVersion)
	_ = f.SetCellValue(summarySheet, "A5", "Umgelegt")
	_ = f.SetCellValue(summarySheet, "B5", run.ApportionedTotal.InexactFloat64())

	header := []any{"Mieter", "Einheit", "Kosten", "Monate", "Vorauszahlungen", "Differenz"}
	if err := f.SetSheetRow(summarySheet, "A7", &header); err != nil {
		return nil, err
	}
	for i, res := range run.Results {
		row := []any{
			res.TenantName,
			res.UnitLabel,
			res.TotalAllocated.InexactFloat64(),
			res.PrepaymentMonths,
			res.Prepayments.InexactFloat64(),
			res.Difference.InexactFloat64(),
		}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+8), &row); err != nil {
			return nil, err
		}
	}

	lineHeader := []any{"Mieter", "Kostenart", "Bezeichnung", "Schlüssel", "Gesamtkosten", "Anteil", "Basis", "Betrag", "Rechtsgrundlage"}
	if err := f.SetSheetRow(linesSheet, "A1", &lineHeader); err != nil {
		return nil, err
	}
	row := 2
	for _, res := range run.Results {
		for _, l := range res.Lines {
			values := []any{
				res.TenantName,
				l.Category,
				l.Name,
				string(l.Key),
				l.LineTotal.InexactFloat64(),
				l.Measure.InexactFloat64(),
				l.MeasureBase.InexactFloat64(),
				l.Share.InexactFloat64(),
				l.Citation,
			}
			if err := f.SetSheetRow(linesSheet, fmt.Sprintf("A%d", row), &values); err != nil {
				return nil, err
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatPeriod(p period.Period) string {
	return fmt.Sprintf("%s - %s", p.Start.Format("02.01.2006"), p.End.Format("02.01.2006"))
}

func euro(amount string) string {
	return amount + " €"
}

package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	analyticsapp "co2-dashboard/internal/analytics/application"
)

// BuildSummaryPDF renders the dashboard summary as a one page report.
func BuildSummaryPDF(summary analyticsapp.SummaryView, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "CO2 Dashboard Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04:05")))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Today average (ppm): %.1f", summary.Current.Value))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Change vs last month (%%): %.1f", summary.Current.Change))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Monthly average (ppm): %.1f", summary.MonthlyAverage.Value))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Spikes this year: %d", summary.Alerts.TotalWarnings))
	pdf.Ln(5)

	critical := summary.Alerts.CriticalRegion
	region := "n/a"
	switch {
	case critical.City != nil:
		region = *critical.City
	case critical.Lat != nil && critical.Lng != nil:
		region = *critical.Lat + ", " + *critical.Lng
	}
	pdf.Cell(0, 6, fmt.Sprintf("Critical region: %s (+%.1f ppm)", region, critical.Spike))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(20, 6, "Spike", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "From", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "To", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Lat", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Lng", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, spike := range summary.Alerts.Top5 {
		pdf.CellFormat(20, 6, fmt.Sprintf("%.1f", spike.Spike), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, spike.From, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, spike.To, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, deref(spike.Lat), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, deref(spike.Lng), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deref(value *string) string {
	if value == nil {
		return "-"
	}
	return *value
}

package client

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"
)

const missing = "--"

// Gauge shows the filter improvement of the newest fine point.
type Gauge struct {
	Percent float64
	Label   string
}

// ChartPoint is one plotted value.
type ChartPoint struct {
	At    time.Time
	Value float64
}

// Chart plots ambient and filtered co2 over the fine window.
type Chart struct {
	Ambient  []ChartPoint
	Filtered []ChartPoint
	// Labels are the first, middle and last x axis labels.
	Labels [3]string
}

// Empty reports whether there is nothing to plot.
func (c Chart) Empty() bool { return len(c.Ambient) == 0 }

// TableRow is one coarse bucket formatted for display.
type TableRow struct {
	Timestamp   string
	Ambient     string
	Filtered    string
	Delta       string
	Improvement string
}

// Views are the three renderings of a state.
type Views struct {
	Gauge Gauge
	Chart Chart
	Table []TableRow
}

// BuildViews derives every view from the state.
func BuildViews(s State) Views {
	return Views{
		Gauge: GaugeView(s.Fine),
		Chart: ChartView(s.Fine),
		Table: TableView(s.Coarse),
	}
}

// GaugeView clamps the improvement to 0..100 for the dial; the label shows the raw value.
func GaugeView(fine []Point) Gauge {
	if len(fine) == 0 {
		return Gauge{Percent: 0, Label: missing + "%"}
	}
	last := fine[len(fine)-1]
	if !finite(last.Improvement) {
		return Gauge{Percent: 0, Label: missing + "%"}
	}
	return Gauge{
		Percent: math.Max(0, math.Min(100, last.Improvement)),
		Label:   fmt.Sprintf("%.1f%%", last.Improvement),
	}
}

// ChartView plots the fine window.
func ChartView(fine []Point) Chart {
	chart := Chart{
		Ambient:  make([]ChartPoint, 0, len(fine)),
		Filtered: make([]ChartPoint, 0, len(fine)),
	}
	if len(fine) == 0 {
		return chart
	}
	for _, p := range fine {
		chart.Ambient = append(chart.Ambient, ChartPoint{At: p.At, Value: p.Ambient})
		chart.Filtered = append(chart.Filtered, ChartPoint{At: p.At, Value: p.Filtered})
	}
	first, mid, last := fine[0], fine[(len(fine)-1)/2], fine[len(fine)-1]
	chart.Labels = [3]string{axisLabel(first), axisLabel(mid), axisLabel(last)}
	return chart
}

func axisLabel(p Point) string {
	if p.Text != "" {
		return p.Text
	}
	return p.At.Format("15:04:05")
}

// TableView lists the coarse window newest first.
func TableView(coarse []Point) []TableRow {
	rows := make([]TableRow, 0, len(coarse))
	for i := len(coarse) - 1; i >= 0; i-- {
		p := coarse[i]
		rows = append(rows, TableRow{
			Timestamp:   p.Text,
			Ambient:     formatValue(p.Ambient),
			Filtered:    formatValue(p.Filtered),
			Delta:       formatValue(p.Ambient - p.Filtered),
			Improvement: formatValue(p.Improvement) + "%",
		})
	}
	return rows
}

func formatValue(v float64) string {
	if !finite(v) {
		return missing
	}
	return fmt.Sprintf("%.1f", v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TextRenderer draws the views as plain text.
type TextRenderer struct {
	out     io.Writer
	maxRows int
}

// NewTextRenderer constructs a renderer writing to out. maxRows limits the table, 0 shows all rows.
func NewTextRenderer(out io.Writer, maxRows int) *TextRenderer {
	return &TextRenderer{out: out, maxRows: maxRows}
}

// Render writes one frame.
func (r *TextRenderer) Render(v Views) {
	fmt.Fprintf(r.out, "improvement %s\n", v.Gauge.Label)

	if v.Chart.Empty() {
		fmt.Fprintln(r.out, "chart: waiting for data")
	} else {
		last := len(v.Chart.Ambient) - 1
		fmt.Fprintf(r.out, "chart: %d points  %s | %s | %s  ambient %s filtered %s\n",
			len(v.Chart.Ambient),
			v.Chart.Labels[0], v.Chart.Labels[1], v.Chart.Labels[2],
			formatValue(v.Chart.Ambient[last].Value), formatValue(v.Chart.Filtered[last].Value))
	}

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tAMBIENT\tFILTERED\tDELTA\tIMPROVEMENT")
	for i, row := range v.Table {
		if r.maxRows > 0 && i >= r.maxRows {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Timestamp, row.Ambient, row.Filtered, row.Delta, row.Improvement)
	}
	_ = tw.Flush()
}

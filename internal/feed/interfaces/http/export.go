package http

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	feed "co2-dashboard/internal/feed/domain"
)

const exportSheet = "logs"

// BuildLogXLSX renders the feed history as a spreadsheet.
func BuildLogXLSX(entries []feed.LogEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headers := []string{"Timestamp", "CO2 Ambient (ppm)", "CO2 Filtered (ppm)", "Improvement (%)"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(exportSheet, cell, header)
	}
	for i, entry := range entries {
		frame := entry.Frame()
		row := i + 2
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), frame.Timestamp)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), frame.Ambient)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), frame.Filtered)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), frame.Improvement)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

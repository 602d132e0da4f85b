package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/quizbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Supported export formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// SheetName is the sheet holding the exported history
const SheetName = "Sheet1"

// DateLayout is how result dates appear in exports
const DateLayout = "2006-01-02 15:04"

// Header is the first row of every export
var Header = []string{"ID", "Date", "Topic", "Score", "Total", "Difficulty"}

// FileName returns the attachment name for an export
func FileName(format string) string {
	return "quiz_history." + normalizeFormat(format)
}

// ExportHistory writes results, in the given order, as a spreadsheet or CSV file
func ExportHistory(w io.Writer, results []models.QuizResult, format string) error {
	switch normalizeFormat(format) {
	case FormatXLSX:
		return exportToExcel(w, results)
	case FormatCSV:
		return exportToCSV(w, results)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		return FormatXLSX
	}
	return format
}

// exportToExcel writes typed cells so scores stay numeric in the sheet
func exportToExcel(w io.Writer, results []models.QuizResult) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %v", err)
	}

	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %v", i+2, err)
		}
		row := []interface{}{r.ID, r.Date.UTC().Format(DateLayout), r.Topic, r.Score, r.TotalQuestions, r.Difficulty}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %v", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %v", err)
	}
	return nil
}

func exportToCSV(w io.Writer, results []models.QuizResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %v", err)
	}
	for _, r := range results {
		record := []string{
			r.ID,
			r.Date.UTC().Format(DateLayout),
			r.Topic,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.TotalQuestions),
			r.Difficulty,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %v", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %v", err)
	}
	return nil
}

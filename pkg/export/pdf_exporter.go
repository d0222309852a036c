package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// GridCell is one booked slot in the weekly timetable grid.
type GridCell struct {
	Day   int
	Start string
	End   string
	Label string
}

// PDFExporter renders the weekly timetable as a day-by-period grid.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderGrid creates a landscape PDF with one column per weekday and one row
// per distinct start time.
func (e *PDFExporter) RenderGrid(title string, dayNames []string, cells []GridCell) ([]byte, error) {
	if len(dayNames) == 0 {
		return nil, fmt.Errorf("pdf requires at least one day column")
	}

	starts := make([]string, 0)
	seen := make(map[string]bool)
	byKey := make(map[string][]string)
	for _, cell := range cells {
		if !seen[cell.Start] {
			seen[cell.Start] = true
			starts = append(starts, cell.Start)
		}
		key := fmt.Sprintf("%d|%s", cell.Day, cell.Start)
		byKey[key] = append(byKey[key], cell.Label)
	}
	sort.Strings(starts)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	const timeColWidth = 22.0
	colWidth := (277.0 - timeColWidth) / float64(len(dayNames))

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(timeColWidth, 8, "Time", "1", 0, "C", false, 0, "")
	for _, name := range dayNames {
		pdf.CellFormat(colWidth, 8, name, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, start := range starts {
		pdf.CellFormat(timeColWidth, 7, start, "1", 0, "C", false, 0, "")
		for day := range dayNames {
			key := fmt.Sprintf("%d|%s", day+1, start)
			pdf.CellFormat(colWidth, 7, strings.Join(byKey[key], ", "), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

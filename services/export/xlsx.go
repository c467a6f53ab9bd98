// Package export renders resolved reports as an XLSX workbook.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/DGISsoft/prodreport/models"
	"github.com/xuri/excelize/v2"
)

const (
	ReportsSheet  = "Reports"
	ProductsSheet = "Production"
)

var ReportsHeader = []string{
	"Date",
	"Reporter",
	"Email",
	"Status",
	"Submitted At",
	"Complete",
	"Missing Sections",
	"Downtime (min)",
	"Interruptions",
	"Products",
	"Total Quantity",
	"Incident",
	"Media Files",
}

var ProductsHeader = []string{
	"Date",
	"Reporter",
	"Product",
	"Quantity",
	"Unit",
	"Machines",
	"Employees",
}

// Reports builds a workbook with one summary row per report and one row per
// product line on a second sheet.
func Reports(details []*models.ReportDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ProductsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, ReportsSheet, ReportsHeader, headerStyle); err != nil {
		return nil, err
	}
	if err := writeHeader(f, ProductsSheet, ProductsHeader, headerStyle); err != nil {
		return nil, err
	}

	productRow := 2
	for i, d := range details {
		if err := writeRow(f, ReportsSheet, i+2, summary(d)); err != nil {
			return nil, err
		}
		if d.Sections == nil || d.Sections.DailyProduction == nil {
			continue
		}
		for _, p := range d.Sections.DailyProduction.Products {
			row := []any{d.Date, d.ReportedBy, p.Name, p.Quantity, p.Unit, strings.Join(p.MachinesUsed, ", "), employees(p)}
			if err := writeRow(f, ProductsSheet, productRow, row); err != nil {
				return nil, err
			}
			productRow++
		}
	}

	for sheet, widths := range map[string][]float64{
		ReportsSheet:  {12, 20, 26, 12, 20, 10, 40, 14, 14, 10, 14, 30, 12},
		ProductsSheet: {12, 20, 24, 12, 8, 30, 12},
	} {
		for i, w := range widths {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return nil, fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(sheet, col, col, w); err != nil {
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func summary(d *models.ReportDetail) []any {
	submitted := ""
	if d.SubmittedAt != nil {
		submitted = d.SubmittedAt.UTC().Format("2006-01-02 15:04")
	}
	complete := "No"
	if d.Completion.Complete {
		complete = "Yes"
	}

	var (
		downtime, interruptions, products, media int
		quantity                                 float64
		incident                                 string
	)
	if s := d.Sections; s != nil {
		if s.PowerInterruption != nil {
			downtime = s.PowerInterruption.DowntimeMinutes()
			interruptions = len(s.PowerInterruption.Interruptions)
		}
		if s.DailyProduction != nil {
			products = len(s.DailyProduction.Products)
			quantity = s.DailyProduction.TotalQuantity()
		}
		if s.IncidentReport != nil {
			incident = incidentLabel(s.IncidentReport)
		}
		if s.SiteVisuals != nil {
			media = len(s.SiteVisuals.Media)
		}
	}

	return []any{
		d.Date,
		d.ReportedBy,
		d.ReportedByEmail,
		string(d.Status),
		submitted,
		complete,
		strings.Join(d.Completion.Missing, ", "),
		downtime,
		interruptions,
		products,
		quantity,
		incident,
		media,
	}
}

func incidentLabel(i *models.IncidentReport) string {
	if i.NoIncident() {
		return "None"
	}
	if i.InjuryLevel != "" {
		return fmt.Sprintf("%s (%s)", i.Type, i.InjuryLevel)
	}
	return i.Type
}

func employees(p models.Product) any {
	if p.EmployeeCount > 0 {
		return p.EmployeeCount
	}
	return p.Employees
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d on %s: %w", row, sheet, err)
	}
	return nil
}

package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"solpipe/internal"
	"solpipe/internal/util"
)

const masterfileSheet = "Masterfile"

// recordCells renders one record in canonical column order. PAR serializes
// as a plain number and dates in the fixed export layout.
func recordCells(o internal.Opportunity) []any {
	return []any{
		o.Stage,
		o.SolutionResource,
		o.AccountName,
		o.OwnerRole,
		o.Name,
		o.Owner,
		o.MainPrimaryService,
		o.PAR.InexactFloat64(),
		o.StageDuration,
		util.FormatDate(o.CloseDate),
		o.Notes,
		o.Status,
		util.FormatDate(o.ReceivedBySolutions),
		util.FormatDate(o.ClosedBySolutions),
		o.Product,
		o.SolutionsNotes,
		o.Tasks,
		o.ActionItems,
		o.CommentsResults,
	}
}

// ExportXLSX writes the masterfile with the team's workbook styling: navy
// header band, highlighted team-authored columns, bounded column widths.
// Styling is cosmetic; the cell values match the canonical dataset exactly.
func ExportXLSX(records []internal.Opportunity, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), masterfileSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1B2A4A"}},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	teamStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6F4F3"}},
	})
	if err != nil {
		return err
	}

	teamCols := map[string]struct{}{}
	for _, c := range internal.TeamCols {
		teamCols[c] = struct{}{}
	}

	for i, h := range internal.AllCols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(masterfileSheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(masterfileSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	widths := make([]int, len(internal.AllCols))
	for i, h := range internal.AllCols {
		widths[i] = len(h)
	}

	for r, rec := range records {
		for c, v := range recordCells(rec) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(masterfileSheet, cell, v); err != nil {
				return err
			}
			if _, team := teamCols[internal.AllCols[c]]; team {
				_ = f.SetCellStyle(masterfileSheet, cell, cell, teamStyle)
			}
			if l := len(fmt.Sprint(v)); l > widths[c] {
				widths[c] = l
			}
		}
	}

	for i := range internal.AllCols {
		width := widths[i] + 4
		if width > 40 {
			width = 40
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(masterfileSheet, col, col, float64(width))
	}

	_, err = f.WriteTo(w)
	return err
}

// ExportXLSXFile writes the styled workbook to disk, creating parents.
func ExportXLSXFile(records []internal.Opportunity, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	return ExportXLSX(records, out)
}

// ExportCSV writes the canonical columns in canonical order. Same cell
// values as the workbook export, without the cosmetics.
func ExportCSV(records []internal.Opportunity, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(internal.AllCols); err != nil {
		return err
	}
	for _, rec := range records {
		cells := recordCells(rec)
		row := make([]string, len(cells))
		for i, v := range cells {
			switch i {
			case 7: // Opportunity PAR serializes as the exact decimal
				row[i] = rec.PAR.String()
			default:
				row[i] = fmt.Sprint(v)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

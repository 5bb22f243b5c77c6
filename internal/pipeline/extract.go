package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"solpipe/internal"
)

// ErrNoTable means no tabular payload could be located in the input.
var ErrNoTable = errors.New("no tabular data found")

// ErrUnsupportedFormat means the report was recognized but arrived in a
// form that cannot round-trip a column table (a PDF print of the report).
var ErrUnsupportedFormat = errors.New("unsupported report format")

// ExtractTableFromFile decodes an uploaded CRM export by extension.
func ExtractTableFromFile(path string) (internal.RawTable, internal.TableSource, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.RawTable{}, "", err
	}
	return ExtractTable(blob, filepath.Base(path))
}

// ExtractTable decodes export bytes, picking the parser from the filename.
func ExtractTable(blob []byte, filename string) (internal.RawTable, internal.TableSource, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
		table, err := parseXLSX(blob)
		return table, internal.SourceXLSX, err
	case strings.HasSuffix(lower, ".csv"):
		table, err := parseCSV(blob)
		return table, internal.SourceCSV, err
	default:
		return internal.RawTable{}, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// ExtractTableFromEmailRaw locates the CRM export inside a raw RFC 5322
// message. The first spreadsheet or CSV attachment wins; an HTML table in
// the body is the fallback. A PDF print of the report is recognized but
// rejected with ErrUnsupportedFormat so the sender can be told to re-export.
func ExtractTableFromEmailRaw(raw []byte) (internal.RawTable, internal.TableSource, *enmime.Envelope, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.RawTable{}, "", nil, fmt.Errorf("read envelope: %w", err)
	}

	var pdfSeen bool
	for _, att := range env.Attachments {
		lower := strings.ToLower(strings.TrimSpace(att.FileName))
		switch {
		case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
			table, err := parseXLSX(att.Content)
			if err != nil {
				continue
			}
			return table, internal.SourceXLSX, env, nil
		case strings.HasSuffix(lower, ".csv"):
			table, err := parseCSV(att.Content)
			if err != nil {
				continue
			}
			return table, internal.SourceCSV, env, nil
		case strings.HasSuffix(lower, ".pdf"):
			if PDFLooksLikeReport(att.Content) {
				pdfSeen = true
			}
		}
	}

	if env.HTML != "" {
		if table, err := parseHTMLTable(env.HTML); err == nil {
			return table, internal.SourceHTMLTable, env, nil
		}
	}

	if pdfSeen {
		return internal.RawTable{}, "", env, fmt.Errorf("%w: report attached as PDF, re-export as xlsx or csv", ErrUnsupportedFormat)
	}
	return internal.RawTable{}, "", env, ErrNoTable
}

func parseXLSX(content []byte) (internal.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return internal.RawTable{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		headerIdx := -1
		for i, row := range rows {
			if len(normalizeCells(row)) > 0 {
				headerIdx = i
				break
			}
		}
		if headerIdx < 0 {
			continue
		}

		// Header positions must stay aligned with row cells; blank or
		// placeholder headers are dropped later during canonicalization.
		table := internal.RawTable{Headers: rows[headerIdx]}
		for _, row := range rows[headerIdx+1:] {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			table.Rows = append(table.Rows, row)
		}
		return table, nil
	}

	return internal.RawTable{}, ErrNoTable
}

func parseCSV(content []byte) (internal.RawTable, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1

	var table internal.RawTable
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return internal.RawTable{}, fmt.Errorf("read csv: %w", err)
		}
		if table.Headers == nil {
			if len(normalizeCells(record)) == 0 {
				continue
			}
			table.Headers = record
			continue
		}
		if len(normalizeCells(record)) == 0 {
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	if table.Headers == nil {
		return internal.RawTable{}, ErrNoTable
	}
	return table, nil
}

// parseHTMLTable reads the first plausible table out of an HTML mail body.
func parseHTMLTable(html string) (internal.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return internal.RawTable{}, fmt.Errorf("parse html: %w", err)
	}

	var table internal.RawTable
	doc.Find("table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rows := sel.Find("tr")
		if rows.Length() < 2 {
			return true
		}

		rows.Each(func(i int, row *goquery.Selection) {
			var cells []string
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, collapseSpaces(cell.Text()))
			})
			if i == 0 {
				table.Headers = cells
				return
			}
			if len(normalizeCells(cells)) > 0 {
				table.Rows = append(table.Rows, cells)
			}
		})
		return false
	})

	if table.Headers == nil {
		return internal.RawTable{}, ErrNoTable
	}
	return table, nil
}

func collapseSpaces(input string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(input, " ", " ")), " ")
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		if s := strings.TrimSpace(c); s != "" {
			out = append(out, s)
		}
	}
	return out
}

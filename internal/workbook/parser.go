// Package workbook decodes spreadsheet files into ordered sheets of keyed rows.
package workbook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadableWorkbook is returned when the payload is not a readable spreadsheet.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

// Sheet is one tab: its header row and the data rows below it.
type Sheet struct {
	Name    string
	Index   int
	Headers []string
	Rows    []Row
}

// Workbook is the decoded file plus the digest identifying its bytes.
type Workbook struct {
	Sheets      []Sheet
	ContentHash string
	Size        int64
}

// RowCount returns the number of data rows across all sheets.
func (w *Workbook) RowCount() int {
	n := 0
	for _, s := range w.Sheets {
		n += len(s.Rows)
	}
	return n
}

// ContentHash returns the hex SHA-256 digest of the whole file.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parse decodes an xlsx payload. Cell values are read raw so that date cells
// keep their serial number instead of a locale-formatted string.
func Parse(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnreadableWorkbook)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer func() {
		_ = f.Close()
	}()

	wb := &Workbook{
		ContentHash: ContentHash(data),
		Size:        int64(len(data)),
	}

	for i, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrUnreadableWorkbook, name, err)
		}
		wb.Sheets = append(wb.Sheets, buildSheet(name, i, rows))
	}

	return wb, nil
}

func buildSheet(name string, index int, raw [][]string) Sheet {
	sheet := Sheet{Name: name, Index: index}
	if len(raw) == 0 {
		return sheet
	}

	sheet.Headers = buildHeaders(raw[0])

	for r, cells := range raw[1:] {
		width := len(sheet.Headers)
		if len(cells) > width {
			width = len(cells)
		}
		row := Row{Index: r + 2, Cells: make([]Cell, 0, width)}
		for c := 0; c < width; c++ {
			key := columnKey(sheet.Headers, c)
			var value any
			if c < len(cells) {
				value = convertCell(cells[c])
			}
			row.Cells = append(row.Cells, Cell{Key: key, Value: value})
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet
}

// buildHeaders trims header names, names blank headers after their column
// letter and suffixes duplicates so every key in a row is distinct.
func buildHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		h := strings.TrimSpace(c)
		if h == "" {
			h = columnName(i)
		}
		key := normalizeKey(h)
		seen[key]++
		if seen[key] > 1 {
			h = h + "_" + strconv.Itoa(seen[key])
		}
		headers[i] = h
	}
	return headers
}

func columnKey(headers []string, i int) string {
	if i < len(headers) {
		return headers[i]
	}
	return columnName(i)
}

func columnName(i int) string {
	name, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return "Column" + strconv.Itoa(i+1)
	}
	return name
}

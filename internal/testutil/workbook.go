package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// SheetData describes one tab of a synthetic workbook; the first row is the header.
type SheetData struct {
	Name string
	Rows [][]interface{}
}

// BuildWorkbook renders sheets into xlsx bytes.
func BuildWorkbook(t testing.TB, sheets ...SheetData) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(s.Name, cell, &values))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

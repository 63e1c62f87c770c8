package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a fixture workbook.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// WriteWorkbook saves sheets, in order, to path.
func WriteWorkbook(t *testing.T, path string, sheets ...Sheet) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.Name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

// EndpointSheet lays out a BioTek endpoint export of a 96 well plate with
// repeats reads per plate row. Well (row, column) has OD 0.1*column + row index.
func EndpointSheet(repeats int) Sheet {
	rows := [][]interface{}{
		{"Software Version", "3.10"},
		{"Experiment File Path:", `C:\data\run.xpt`},
		{"Plate Type", "96 WELL PLATE"},
		{},
	}
	labels := []interface{}{"", ""}
	for c := 1; c <= 12; c++ {
		labels = append(labels, c)
	}
	rows = append(rows, labels)
	for r := 0; r < 8; r++ {
		for rep := 0; rep < repeats; rep++ {
			row := []interface{}{"", string(rune('A' + r))}
			for c := 1; c <= 12; c++ {
				row = append(row, 0.1*float64(c)+float64(r))
			}
			row = append(row, "600")
			rows = append(rows, row)
		}
	}
	return Sheet{Name: "Plate 1 - Sheet1", Rows: rows}
}

// KineticSheet lays out a BioTek kinetic export of wells A1, A2 and B1 read
// at 0, 10 and 60 minutes. B1 overflowed on the first read.
func KineticSheet() Sheet {
	return Sheet{Name: "Sheet1", Rows: [][]interface{}{
		{"Software Version", "3.10"},
		{},
		{"Read 1:600"},
		{"Time", "T° Read 1:600", "A1", "A2", "B1"},
		{"0:00:00", 37, 0.10, 0.20, "OVRFLW"},
		{"0:10:00", 37, 0.15, 0.25, 0.5},
		{"1:00:00", 37, 0.30, 0.40, 0.6},
		{},
		{"Results"},
	}}
}

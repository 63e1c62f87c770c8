package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"

	apierrors "platereader/internal/errors"
)

// Plate design column headers.
const (
	ColumnPlateWell     = "Plate Well"
	ColumnDescription   = "Description"
	ColumnTreatment     = "Treatment"
	ColumnConcentration = "Concentration"
)

// blankStrain marks wells without inoculum in the Description column.
const blankStrain = "blank"

// DesignWell is the content of one well as laid out in the plate design.
type DesignWell struct {
	Row           string
	Column        int
	Strain        string
	Treatment     string
	Concentration float64
}

// PlateDesign is one sheet of the design workbook.
type PlateDesign struct {
	Experiment string
	Plate      string
	Wells      []DesignWell
}

// Lookup returns the design of the well at row and column.
func (d PlateDesign) Lookup(row string, column int) (DesignWell, bool) {
	for _, w := range d.Wells {
		if w.Row == row && w.Column == column {
			return w, true
		}
	}
	return DesignWell{}, false
}

// ParsePlateDesign reads every sheet of the design workbook. Sheets are
// named EXP_PLATE with an optional suffix.
func ParsePlateDesign(path string) ([]PlateDesign, error) {
	f, err := openRows(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var designs []PlateDesign
	for _, sheet := range f.GetSheetList() {
		parts := strings.Split(sheet, "_")
		if len(parts) < 2 {
			return nil, apierrors.NewInputFormatError(
				fmt.Sprintf("design sheet %q is not named EXP_PLATE", sheet), nil)
		}

		rows, err := sheetRows(f, sheet)
		if err != nil {
			return nil, err
		}
		wells, err := parseDesignSheet(sheet, rows)
		if err != nil {
			return nil, err
		}
		designs = append(designs, PlateDesign{
			Experiment: parts[0],
			Plate:      parts[1],
			Wells:      wells,
		})
	}

	if len(designs) == 0 {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("no plate design in %s", path), nil)
	}
	return designs, nil
}

func parseDesignSheet(sheet string, rows [][]string) ([]DesignWell, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	columnMap := make(map[string]int)
	for i, h := range rows[0] {
		columnMap[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{ColumnPlateWell, ColumnDescription, ColumnTreatment, ColumnConcentration} {
		if _, ok := columnMap[required]; !ok {
			return nil, apierrors.NewInputFormatError(
				fmt.Sprintf("design sheet %q is missing column %q", sheet, required), nil)
		}
	}

	var wells []DesignWell
	for i, row := range rows[1:] {
		well := cell(row, columnMap[ColumnPlateWell])
		if well == "" {
			continue
		}
		m := wellPattern.FindStringSubmatch(strings.ToUpper(well))
		if m == nil {
			return nil, apierrors.NewInputFormatError(
				fmt.Sprintf("design sheet %q row %d: invalid well %q", sheet, i+2, well), nil)
		}
		column, _ := strconv.Atoi(m[2])

		strain := cell(row, columnMap[ColumnDescription])
		if strings.EqualFold(strain, blankStrain) {
			strain = ""
		}

		concentration := 0.0
		if raw := cell(row, columnMap[ColumnConcentration]); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, apierrors.NewInputFormatError(
					fmt.Sprintf("design sheet %q row %d: invalid concentration %q", sheet, i+2, raw), err)
			}
			concentration = v
		}

		wells = append(wells, DesignWell{
			Row:           m[1],
			Column:        column,
			Strain:        strain,
			Treatment:     cell(row, columnMap[ColumnTreatment]),
			Concentration: concentration,
		})
	}
	return wells, nil
}

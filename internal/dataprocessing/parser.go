package dataprocessing

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "platereader/internal/errors"
	"platereader/pkg/contracts/domain"
)

// PlateFormat is the well layout of a microplate.
type PlateFormat struct {
	Rows    int
	Columns int
}

var (
	Plate96  = PlateFormat{Rows: 8, Columns: 12}
	Plate384 = PlateFormat{Rows: 16, Columns: 24}
)

var wellPattern = regexp.MustCompile(`^([A-P])([0-9]{1,2})$`)

func openRows(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("failed to open %s", path), err)
	}
	return f, nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseReading reads a single time point BioTek export.
//
// The results block is the last n rows of the sheet, where n is the number
// of values in the third column after its header; every plate row is read
// n/Rows times in a row. Measurements start at the third column and the last
// column holds the wavelength label.
func ParseReading(path string, format PlateFormat) ([]domain.Reading, error) {
	f, err := openRows(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := sheetRows(f, f.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("could not parse %s: sheet is empty", path), nil)
	}

	// the first row is the sheet header
	data := rows[1:]
	width := 0
	values := 0
	for _, row := range data {
		width = max(width, len(row))
		if cell(row, 2) != "" {
			values++
		}
	}
	width = max(width, len(rows[0]))
	// the first value is the column header of the results block
	values--

	if values <= 0 || values%format.Rows != 0 {
		return nil, apierrors.NewInputFormatError(
			fmt.Sprintf("could not parse %s: found %d measurements, not a multiple of %d", path, values, format.Rows), nil)
	}
	if got := width - 3; got != format.Columns {
		return nil, apierrors.NewInputFormatError(
			fmt.Sprintf("could not parse %s: found %d measurement columns, expected %d", path, got, format.Columns), nil)
	}
	if values > len(data) {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("could not parse %s: results block is truncated", path), nil)
	}

	repeats := values / format.Rows
	slog.Debug("parsed plate reading layout",
		slog.String("file", path),
		slog.Int("repeats", repeats))

	block := data[len(data)-values:]
	out := make([]domain.Reading, 0, values*format.Columns)
	for i, row := range block {
		letter := string(rune('A' + i/repeats))
		for j := 0; j < format.Columns; j++ {
			raw := cell(row, 2+j)
			if raw == "" {
				continue
			}
			od, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				slog.Warn("skipping non-numeric well",
					slog.String("file", path),
					slog.String("well", letter+strconv.Itoa(j+1)),
					slog.String("value", raw))
				continue
			}
			out = append(out, domain.Reading{Row: letter, Column: j + 1, OD600: od})
		}
	}
	return out, nil
}

// ParseTimeSeries reads a kinetic BioTek export: a header row holding "Time"
// followed by well names, then one row per read until the time runs out.
// Times are either h:mm:ss or fractions of a day, and are returned in seconds.
func ParseTimeSeries(path string) ([]domain.Reading, error) {
	f, err := openRows(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := sheetRows(f, f.GetSheetName(0))
	if err != nil {
		return nil, err
	}

	header, timeCol := -1, -1
	wells := make(map[int][2]string)
	for i, row := range rows {
		for j := range row {
			if cell(row, j) != "Time" {
				continue
			}
			for k := j + 1; k < len(row); k++ {
				if m := wellPattern.FindStringSubmatch(cell(row, k)); m != nil {
					wells[k] = [2]string{m[1], m[2]}
				}
			}
			if len(wells) > 0 {
				header, timeCol = i, j
			}
			break
		}
		if header >= 0 {
			break
		}
	}
	if header < 0 {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("could not parse %s: no time series header", path), nil)
	}

	var out []domain.Reading
	for _, row := range rows[header+1:] {
		raw := cell(row, timeCol)
		if raw == "" {
			break
		}
		seconds, err := parseElapsed(raw)
		if err != nil {
			return nil, apierrors.NewInputFormatError(fmt.Sprintf("could not parse %s: bad time %q", path, raw), err)
		}
		for col, well := range wells {
			od, err := strconv.ParseFloat(cell(row, col), 64)
			if err != nil {
				continue
			}
			column, _ := strconv.Atoi(well[1])
			out = append(out, domain.Reading{Row: well[0], Column: column, Time: seconds, OD600: od})
		}
	}
	if len(out) == 0 {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("could not parse %s: no measurements", path), nil)
	}
	return out, nil
}

// parseElapsed converts h:mm:ss or a day fraction to seconds.
func parseElapsed(raw string) (float64, error) {
	if !strings.Contains(raw, ":") {
		days, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, err
		}
		return days * 86400, nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected h:mm:ss, got %q", raw)
	}
	total := 0.0
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		total = total*60 + v
	}
	return total, nil
}

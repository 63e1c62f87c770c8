package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	apierrors "platereader/internal/errors"
	"platereader/internal/exporter"
	"platereader/pkg/contracts/domain"
)

// ReadingColumns are the columns of a readings table.
var ReadingColumns = []string{
	"experiment", "type", "plate", "date", "passage", "row", "column",
	"strain", "treatment", "concentration", "time", "od600",
}

// WriteReadings writes readings as a tab separated table.
func WriteReadings(w io.Writer, readings []domain.Reading) error {
	return exporter.NewTableWriter(nil).Write(w, ReadingColumns, readingRecords(readings))
}

// WriteReadingsFile writes readings to path, creating its directory.
func WriteReadingsFile(path string, readings []domain.Reading) error {
	return exporter.NewTableWriter(nil).WriteSimpleFile(path, ReadingColumns, readingRecords(readings))
}

// RampColumns are the columns of a ramp readings table: a readings table
// with the MIC multiple of each passage appended.
var RampColumns = append(slices.Clone(ReadingColumns), "mic")

// WriteRampReadingsFile writes ramp readings to path, creating its directory.
func WriteRampReadingsFile(path string, readings []RampReading) error {
	plain := make([]domain.Reading, len(readings))
	for i, r := range readings {
		plain[i] = r.Reading
	}
	records := readingRecords(plain)
	for i, r := range readings {
		records[i] = append(records[i], strconv.FormatFloat(r.MIC, 'g', -1, 64))
	}
	return exporter.NewTableWriter(nil).WriteSimpleFile(path, RampColumns, records)
}

func readingRecords(readings []domain.Reading) [][]string {
	format := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	records := make([][]string, 0, len(readings))
	for _, r := range readings {
		records = append(records, []string{
			r.Experiment, r.Type, r.Plate, r.Date, r.Passage, r.Row, strconv.Itoa(r.Column),
			r.Strain, r.Treatment, format(r.Concentration), format(r.Time), format(r.OD600),
		})
	}
	return records
}

// ReadReadings reads a tab separated readings table. Columns are matched by
// header name and may come in any order; only od600 is required. Rows with
// an undefined od600 are skipped and empty numeric cells read as zero.
func ReadReadings(r io.Reader) ([]domain.Reading, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apierrors.NewInputFormatError("readings table is empty", nil)
		}
		return nil, apierrors.NewInputFormatError("failed to read header", err)
	}

	columnMap := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = trimBOM(h)
		}
		columnMap[h] = i
	}
	if _, ok := columnMap["od600"]; !ok {
		return nil, apierrors.NewInputFormatError("readings table has no od600 column", nil)
	}

	var readings []domain.Reading
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apierrors.NewInputFormatError(fmt.Sprintf("line %d", line), err)
		}

		get := func(name string) string {
			if i, ok := columnMap[name]; ok && i < len(record) {
				return record[i]
			}
			return ""
		}
		number := func(name string) (float64, error) {
			v, err := domain.ParseFloat(get(name))
			if err != nil {
				return 0, apierrors.NewInputFormatError(
					fmt.Sprintf("line %d: invalid %s %q", line, name, get(name)), err)
			}
			return v.Or(0), nil
		}

		od, err := domain.ParseFloat(get("od600"))
		if err != nil {
			return nil, apierrors.NewInputFormatError(fmt.Sprintf("line %d: invalid od600 %q", line, get("od600")), err)
		}
		if !od.Valid {
			continue
		}

		reading := domain.Reading{
			Experiment: get("experiment"),
			Type:       get("type"),
			Plate:      get("plate"),
			Date:       get("date"),
			Passage:    get("passage"),
			Row:        get("row"),
			Strain:     get("strain"),
			Treatment:  get("treatment"),
			OD600:      od.Value,
		}
		if reading.Concentration, err = number("concentration"); err != nil {
			return nil, err
		}
		if reading.Time, err = number("time"); err != nil {
			return nil, err
		}
		column, err := number("column")
		if err != nil {
			return nil, err
		}
		reading.Column = int(column)

		readings = append(readings, reading)
	}
	return readings, nil
}

// ReadReadingFiles concatenates the readings tables at paths.
func ReadReadingFiles(paths ...string) ([]domain.Reading, error) {
	var all []domain.Reading
	for _, path := range paths {
		readings, err := readReadingFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, readings...)
	}
	return all, nil
}

func readReadingFile(path string) ([]domain.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	readings, err := ReadReadings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return readings, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

package dataprocessing

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "platereader/internal/errors"
	"platereader/internal/shared/testutil"
)

func TestReadingsRoundTrip(t *testing.T) {
	readings := testutil.DoseResponsePlate("E1", "WT", 1, 2)

	path := filepath.Join(t.TempDir(), "out", "readings.tsv")
	require.NoError(t, WriteReadingsFile(path, readings))

	got, err := ReadReadingFiles(path, path)
	require.NoError(t, err)
	require.Len(t, got, 2*len(readings))
	assert.Equal(t, readings, got[:len(readings)])
}

func TestWriteReadings_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReadings(&buf, testutil.DoseResponsePlate("E1", "WT", 1, 2)[:1]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(ReadingColumns, "\t"), lines[0])
	assert.Equal(t, "E1\tmic\tP1\t2024-01-01\t0\tA\t1\tWT\tancestral\t0\t0\t1", lines[1])
}

func TestReadReadings(t *testing.T) {
	table := "\ufeffrow\tcolumn\tstrain\tod600\ttime\textra\n" +
		"A\t1\tWT\t0.5\t\tx\n" +
		"A\t2\t\tNaN\t60\tx\n" +
		"B\t3\tMUT\t0.25\t120\n"

	readings, err := ReadReadings(strings.NewReader(table))
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "A1", readings[0].Well())
	assert.Equal(t, "WT", readings[0].Strain)
	assert.Equal(t, 0.5, readings[0].OD600)
	assert.Zero(t, readings[0].Time)
	assert.Zero(t, readings[0].Concentration)

	assert.Equal(t, "B3", readings[1].Well())
	assert.Equal(t, 120.0, readings[1].Time)
}

func TestReadReadings_Errors(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{name: "empty", table: ""},
		{name: "no od600 column", table: "row\tcolumn\nA\t1\n"},
		{name: "bad od600", table: "row\tod600\nA\thigh\n"},
		{name: "bad concentration", table: "od600\tconcentration\n0.1\tlots\n"},
		{name: "bad column", table: "od600\tcolumn\n0.1\tfirst\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReadings(strings.NewReader(tt.table))
			assert.ErrorIs(t, err, apierrors.ErrInputFormat)
		})
	}
}

func TestReadReadingFiles_Missing(t *testing.T) {
	_, err := ReadReadingFiles(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.ErrorIs(t, err, apierrors.ErrInputFormat)
}

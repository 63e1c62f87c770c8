package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platereader/internal/analysis"
	"platereader/internal/mic"
	"platereader/internal/shared/testutil"
	"platereader/pkg/contracts/domain"
)

func micReport(plate string) *analysis.MICReport {
	key := domain.DoseKey{Experiment: "E1", Plate: plate, Strain: "WT", Treatment: "cipro", Passage: "0", Date: "20240101"}
	fitted := analysis.MICRow{
		Key: key,
		Hill: mic.FitResult{
			A: domain.Some(1), B: domain.Some(2), C: domain.Some(0.5), D: domain.Some(0.05),
			SDa: domain.Some(0.1), SDb: domain.Some(0.2), SDc: domain.Some(0.01), SDd: domain.Some(0.001),
			Outcome: mic.OutcomeFitted,
		},
		Gompertz:  mic.GompertzResult{MIC: domain.Some(2)},
		Classical: mic.ClassicalResult{MIC: domain.Some(4)},
	}
	failed := analysis.MICRow{
		Key:  domain.DoseKey{Experiment: "E1", Plate: plate, Strain: "MUT", Treatment: "cipro", Passage: "0", Date: "20240101"},
		Hill: mic.FitResult{Outcome: mic.OutcomeNoAnchor},
	}
	return &analysis.MICReport{RunID: "run-1", Rows: []analysis.MICRow{fitted, failed}}
}

func TestMICTable(t *testing.T) {
	headers, records := MICTable(micReport("P1"))

	assert.Equal(t, []string{
		"experiment", "plate", "strain", "treatment", "passage", "date",
		"mic", "cmic", "a", "b", "c", "d", "SDa", "SDb", "SDc", "SDd",
	}, headers)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"E1", "P1", "WT", "cipro", "0", "20240101",
		"2", "4", "1", "2", "0.5", "0.05", "0.1", "0.2", "0.01", "0.001",
	}, records[0])

	for _, cell := range records[1][6:] {
		assert.Equal(t, "NaN", cell)
	}
}

func TestMICTable_Stacked(t *testing.T) {
	headers, records := MICTable(micReport(""))

	assert.NotContains(t, headers, "plate")
	assert.Len(t, records[0], len(headers))
	assert.Equal(t, "WT", records[0][1])
}

func TestGrowthTable(t *testing.T) {
	report := &analysis.GrowthReport{
		RunID: "run-2",
		Rows: []analysis.GrowthRow{
			{
				Key:     domain.WellKey{Plate: "P1", Row: "A", Column: 1, Experiment: "E1", Strain: "WT", Treatment: "ancestral"},
				Grate:   domain.Some(0.6),
				Evolved: "ancestral",
			},
			{
				Key:     domain.WellKey{Plate: "P1", Row: "A", Column: 2, Experiment: "E1", Strain: "WT", Treatment: "cipro", Concentration: 0.25},
				Grate:   domain.Some(0.9),
				Drug:    true,
				Evolved: "evolved",
				Delta:   domain.Some(0.5),
			},
		},
	}

	headers, records := GrowthTable(report)
	assert.Equal(t, GrowthColumns, headers)
	assert.Equal(t, []string{"P1", "A", "1", "E1", "WT", "ancestral", "0", "0.6", "False", "ancestral", "NaN"}, records[0])
	assert.Equal(t, []string{"P1", "A", "2", "E1", "WT", "cipro", "0.25", "0.9", "True", "evolved", "0.5"}, records[1])
}

func TestAppearanceTable(t *testing.T) {
	report := &analysis.EvolutionReport{
		RunID:       "run-4",
		LastPassage: 4,
		Appearance: []analysis.Appearance{
			{Key: analysis.LineageKey{TreatmentID: "cipro-1", Strain: "WT", Lineage: "E1_P1_A1"}, Passage: 2, Emerged: true},
			{Key: analysis.LineageKey{TreatmentID: "cipro-1", Strain: "WT", Lineage: "E1_P1_A2"}, Passage: 5},
		},
	}

	headers, records := AppearanceTable(report)
	assert.Equal(t, AppearanceColumns, headers)
	assert.Equal(t, []string{"cipro-1", "WT", "E1_P1_A1", "2", "True"}, records[0])
	assert.Equal(t, []string{"cipro-1", "WT", "E1_P1_A2", "5", "False"}, records[1])

	path := filepath.Join(t.TempDir(), "appearance.tsv")
	logger, handler := testutil.NewTestLogger(t)
	require.NoError(t, NewResultExporter(logger).ExportAppearance(path, report))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cipro-1\tWT\tE1_P1_A2\t5\tFalse")
	testutil.AssertLogAttr(t, handler, "lineages", int64(2))
}

func TestResultExporter_WriteMIC(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	exp := NewResultExporter(logger)

	var buf bytes.Buffer
	require.NoError(t, exp.WriteMIC(&buf, micReport("P1")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "experiment\tplate\tstrain"))
	assert.True(t, strings.HasPrefix(lines[2], "E1\tP1\tMUT\tcipro\t0\t20240101\tNaN\tNaN"))
}

func TestResultExporter_ExportFiles(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	exp := NewResultExporter(logger)
	dir := filepath.Join(t.TempDir(), "results")

	micPath := filepath.Join(dir, "mic.tsv")
	require.NoError(t, exp.ExportMIC(micPath, micReport("P1")))

	grPath := filepath.Join(dir, "grate.tsv")
	require.NoError(t, exp.ExportGrowth(grPath, &analysis.GrowthReport{RunID: "run-3"}))

	data, err := os.ReadFile(micPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "E1\tP1\tWT")

	data, err = os.ReadFile(grPath)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(GrowthColumns, "\t")+"\n", string(data))

	testutil.AssertLogAttr(t, handler, "run_id", "run-1")
	testutil.AssertLogAttr(t, handler, "file_path", grPath)
}

func TestTableWriter_Append(t *testing.T) {
	w := NewTableWriter(nil)
	path := filepath.Join(t.TempDir(), "table.tsv")

	require.NoError(t, w.WriteFile(path, WriteOptions{
		Headers:   []string{"a", "b"},
		Records:   [][]string{{"1", "2"}},
		BOMPrefix: true,
	}))
	require.NoError(t, w.WriteFile(path, WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"3", "4"}},
		Append:  true,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffa\tb\n1\t2\n3\t4\n", string(data))
}

package exporter

import (
	"io"
	"log/slog"

	"platereader/internal/analysis"
)

// MIC table columns after the curve key.
var MICColumns = []string{"mic", "cmic", "a", "b", "c", "d", "SDa", "SDb", "SDc", "SDd"}

// GrowthColumns are the columns of the growth rate table.
var GrowthColumns = []string{
	"plate", "row", "column", "experiment", "strain", "treatment", "concentration",
	"grate", "drug", "evolved", "delta",
}

// AppearanceColumns are the columns of the first appearance table.
var AppearanceColumns = []string{"treatment-id", "strain", "id", "passage", "emerged"}

// ResultExporter writes analysis reports as tab separated tables.
type ResultExporter struct {
	table  *TableWriter
	logger *slog.Logger
}

// NewResultExporter creates an exporter
func NewResultExporter(logger *slog.Logger) *ResultExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultExporter{
		table:  NewTableWriter(logger),
		logger: logger.With("component", "result_exporter"),
	}
}

// MICTable converts a report to headers and records. The plate column is
// left out when every curve was stacked across plates.
func MICTable(report *analysis.MICReport) ([]string, [][]string) {
	stacked := len(report.Rows) > 0
	for _, row := range report.Rows {
		if row.Key.Plate != "" {
			stacked = false
			break
		}
	}

	headers := []string{"experiment"}
	if !stacked {
		headers = append(headers, "plate")
	}
	headers = append(headers, "strain", "treatment", "passage", "date")
	headers = append(headers, MICColumns...)

	records := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		k := row.Key
		record := []string{k.Experiment}
		if !stacked {
			record = append(record, k.Plate)
		}
		record = append(record, k.Strain, k.Treatment, k.Passage, k.Date,
			formatOptional(row.MIC()), formatOptional(row.CMIC()))
		for _, p := range row.Hill.Params() {
			record = append(record, formatOptional(p))
		}
		for _, sd := range row.Hill.StdErrs() {
			record = append(record, formatOptional(sd))
		}
		records = append(records, record)
	}
	return headers, records
}

// GrowthTable converts a report to headers and records.
func GrowthTable(report *analysis.GrowthReport) ([]string, [][]string) {
	records := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		k := row.Key
		records = append(records, []string{
			k.Plate, k.Row, formatInt(k.Column), k.Experiment, k.Strain, k.Treatment,
			formatFloat(k.Concentration),
			formatOptional(row.Grate), formatBool(row.Drug), row.Evolved, formatOptional(row.Delta),
		})
	}
	return GrowthColumns, records
}

// AppearanceTable lists the first resistant passage of every lineage.
func AppearanceTable(report *analysis.EvolutionReport) ([]string, [][]string) {
	records := make([][]string, 0, len(report.Appearance))
	for _, a := range report.Appearance {
		records = append(records, []string{
			a.Key.TreatmentID, a.Key.Strain, a.Key.Lineage, formatInt(a.Passage), formatBool(a.Emerged),
		})
	}
	return AppearanceColumns, records
}

// WriteMIC writes the MIC table to w.
func (e *ResultExporter) WriteMIC(w io.Writer, report *analysis.MICReport) error {
	headers, records := MICTable(report)
	return e.table.Write(w, headers, records)
}

// WriteGrowth writes the growth rate table to w.
func (e *ResultExporter) WriteGrowth(w io.Writer, report *analysis.GrowthReport) error {
	headers, records := GrowthTable(report)
	return e.table.Write(w, headers, records)
}

// ExportMIC writes the MIC table to filePath.
func (e *ResultExporter) ExportMIC(filePath string, report *analysis.MICReport) error {
	headers, records := MICTable(report)
	e.logger.Info("Exporting MIC table",
		slog.String("run_id", report.RunID),
		slog.Int("curves", len(records)))
	return e.table.WriteSimpleFile(filePath, headers, records)
}

// ExportGrowth writes the growth rate table to filePath.
func (e *ResultExporter) ExportGrowth(filePath string, report *analysis.GrowthReport) error {
	headers, records := GrowthTable(report)
	e.logger.Info("Exporting growth rate table",
		slog.String("run_id", report.RunID),
		slog.Int("wells", len(records)))
	return e.table.WriteSimpleFile(filePath, headers, records)
}

// ExportAppearance writes the first appearance table to filePath.
func (e *ResultExporter) ExportAppearance(filePath string, report *analysis.EvolutionReport) error {
	headers, records := AppearanceTable(report)
	e.logger.Info("Exporting first appearance table",
		slog.String("run_id", report.RunID),
		slog.Int("lineages", len(records)))
	return e.table.WriteSimpleFile(filePath, headers, records)
}

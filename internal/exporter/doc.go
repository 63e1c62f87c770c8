// Package exporter writes analysis results as tab separated tables.
//
// TableWriter is the delimited writer underneath, with optional appending
// and a UTF-8 BOM for spreadsheet applications. ResultExporter renders MIC
// and growth rate reports through it; undefined estimates are written as NaN.
//
//	exp := exporter.NewResultExporter(logger)
//	err := exp.ExportMIC("results/mic.tsv", report)
package exporter

package exporter

import (
	"strconv"

	"platereader/pkg/contracts/domain"
)

// formatFloat renders the shortest representation that round-trips
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatOptional renders undefined values as NaN
func formatOptional(f domain.Float) string {
	return f.String()
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool uses the capitalized spelling of the existing result tables
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

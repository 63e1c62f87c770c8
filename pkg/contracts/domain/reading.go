package domain

import (
	"cmp"
	"fmt"
	"strconv"
)

// Reading is a single OD600 measurement of one well, joined with its plate design.
// This is the row format exchanged between the parser, the analyses and the TSV files.
type Reading struct {
	Experiment    string  `json:"experiment"`
	Type          string  `json:"type,omitempty"`
	Plate         string  `json:"plate"`
	Date          string  `json:"date,omitempty"`
	Passage       string  `json:"passage,omitempty"`
	Row           string  `json:"row"`
	Column        int     `json:"column"`
	Strain        string  `json:"strain"`
	Treatment     string  `json:"treatment"`
	Concentration float64 `json:"concentration"`
	Time          float64 `json:"time"` // seconds since the first read
	OD600         float64 `json:"od600"`
}

// Well returns the plate coordinate, e.g. "B7".
func (r Reading) Well() string {
	return r.Row + strconv.Itoa(r.Column)
}

// DoseKey identifies one dose-response curve.
// Plate is empty when the assay is stacked across plates.
type DoseKey struct {
	Experiment string `json:"experiment"`
	Plate      string `json:"plate"`
	Strain     string `json:"strain"`
	Treatment  string `json:"treatment"`
	Passage    string `json:"passage"`
	Date       string `json:"date"`
}

// String joins the key fields, matching the plot file naming.
func (k DoseKey) String() string {
	if k.Plate == "" {
		return fmt.Sprintf("%s_%s_%s_%s_%s", k.Experiment, k.Strain, k.Treatment, k.Passage, k.Date)
	}
	return fmt.Sprintf("%s_%s_%s_%s_%s_%s", k.Experiment, k.Plate, k.Strain, k.Treatment, k.Passage, k.Date)
}

// Compare orders dose keys field by field.
func (k DoseKey) Compare(o DoseKey) int {
	return cmp.Or(
		cmp.Compare(k.Experiment, o.Experiment),
		cmp.Compare(k.Plate, o.Plate),
		cmp.Compare(k.Strain, o.Strain),
		cmp.Compare(k.Treatment, o.Treatment),
		cmp.Compare(k.Passage, o.Passage),
		cmp.Compare(k.Date, o.Date),
	)
}

// WellKey identifies one growth curve.
type WellKey struct {
	Plate         string  `json:"plate"`
	Row           string  `json:"row"`
	Column        int     `json:"column"`
	Experiment    string  `json:"experiment"`
	Strain        string  `json:"strain"`
	Treatment     string  `json:"treatment"`
	Concentration float64 `json:"concentration"`
}

// String joins the key fields, matching the plot file naming.
func (k WellKey) String() string {
	return fmt.Sprintf("%s_%s_%d_%s_%s_%s_%s", k.Plate, k.Row, k.Column, k.Experiment,
		k.Strain, k.Treatment, strconv.FormatFloat(k.Concentration, 'g', -1, 64))
}

// Compare orders well keys field by field.
func (k WellKey) Compare(o WellKey) int {
	return cmp.Or(
		cmp.Compare(k.Plate, o.Plate),
		cmp.Compare(k.Row, o.Row),
		cmp.Compare(k.Column, o.Column),
		cmp.Compare(k.Experiment, o.Experiment),
		cmp.Compare(k.Strain, o.Strain),
		cmp.Compare(k.Treatment, o.Treatment),
		cmp.Compare(k.Concentration, o.Concentration),
	)
}

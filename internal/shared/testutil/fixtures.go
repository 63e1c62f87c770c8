package testutil

import (
	"math"

	"platereader/pkg/contracts/domain"
)

// DoseSeries is the two-fold dilution series used by the synthetic plates.
var DoseSeries = []float64{0, 0.0625, 0.125, 0.25, 0.5, 1, 2, 4, 8, 16}

// HillOD evaluates a decreasing Hill curve with floor 0.05 and ceiling 1.0.
func HillOD(conc, ic50, slope float64) float64 {
	return 0.05 + 0.95/(1+math.Pow(conc/ic50, slope))
}

// DoseResponsePlate builds one row of endpoint readings for a strain whose
// growth follows HillOD. The concentration-0 well carries the ceiling.
func DoseResponsePlate(experiment, strain string, ic50, slope float64) []domain.Reading {
	rows := make([]domain.Reading, 0, len(DoseSeries))
	for i, c := range DoseSeries {
		od := 1.0
		if c > 0 {
			od = HillOD(c, ic50, slope)
		}
		rows = append(rows, domain.Reading{
			Experiment:    experiment,
			Type:          "mic",
			Plate:         "P1",
			Date:          "2024-01-01",
			Passage:       "0",
			Row:           "A",
			Column:        i + 1,
			Strain:        strain,
			Treatment:     "ancestral",
			Concentration: c,
			OD600:         od,
		})
	}
	return rows
}

// GrowthCurve builds a time series for one well growing exponentially at
// rate per hour from od0, sampled every step seconds for n samples.
func GrowthCurve(well domain.Reading, od0, rate float64, step float64, n int) []domain.Reading {
	rows := make([]domain.Reading, 0, n)
	for i := 0; i < n; i++ {
		r := well
		r.Time = float64(i) * step
		r.OD600 = od0 * math.Exp(rate*r.Time/3600)
		rows = append(rows, r)
	}
	return rows
}

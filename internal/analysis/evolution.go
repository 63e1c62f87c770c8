package analysis

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"platereader/internal/config"
	apierrors "platereader/internal/errors"
	"platereader/internal/infrastructure"
	"platereader/pkg/contracts/domain"
)

// GrowthControl is the treatment of drug-free control wells. All of them
// share one treatment id whatever their concentration.
const GrowthControl = "GC"

// EvolutionParams configures the serial passage analysis.
type EvolutionParams struct {
	// Threshold is the OD600 at or above which a well grew.
	Threshold float64
}

// EvolutionParamsFromConfig copies the evol section of the configuration
func EvolutionParamsFromConfig(cfg config.EvolConfig) EvolutionParams {
	return EvolutionParams{Threshold: cfg.Threshold}
}

// LineageKey identifies a well followed across passages. Lineage is empty
// for series averaged over every well of a strain and treatment.
type LineageKey struct {
	TreatmentID string `json:"treatment_id"`
	Strain      string `json:"strain"`
	Lineage     string `json:"lineage,omitempty"`
}

func (k LineageKey) String() string {
	parts := []string{k.TreatmentID, k.Strain}
	if k.Lineage != "" {
		parts = append(parts, k.Lineage)
	}
	return strings.Join(parts, "_")
}

// Compare orders keys by treatment id, strain and lineage.
func (k LineageKey) Compare(o LineageKey) int {
	return cmp.Or(
		cmp.Compare(k.TreatmentID, o.TreatmentID),
		cmp.Compare(k.Strain, o.Strain),
		cmp.Compare(k.Lineage, o.Lineage),
	)
}

// PassageSeries holds one value per observed passage.
type PassageSeries struct {
	Key    LineageKey      `json:"key"`
	Values map[int]float64 `json:"values"`
}

// Appearance is the first passage at which a lineage grew and kept growing.
// Lineages that never did are placed one passage past the last one.
type Appearance struct {
	Key     LineageKey `json:"key"`
	Passage int        `json:"passage"`
	Emerged bool       `json:"emerged"`
}

// EvolutionReport is the outcome of a serial passage analysis.
type EvolutionReport struct {
	RunID       string `json:"run_id"`
	Passages    []int  `json:"passages"`
	LastPassage int    `json:"last_passage"`
	// OD holds the mean OD600 of every lineage at every passage.
	OD []PassageSeries `json:"od"`
	// Averages holds the mean OD600 over the lineages of a strain and treatment.
	Averages []PassageSeries `json:"averages"`
	// Resistance is 1 at passages where a lineage grew and grew again at the
	// next one, 0 otherwise. Passage 0 is left out.
	Resistance []PassageSeries `json:"resistance"`
	Appearance []Appearance    `json:"appearance"`
}

// EvolutionCalculator follows every well of a serial passage experiment.
type EvolutionCalculator struct {
	params EvolutionParams
	logger *slog.Logger
}

// NewEvolutionCalculator creates a calculator
func NewEvolutionCalculator(params EvolutionParams, logger *slog.Logger) *EvolutionCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvolutionCalculator{
		params: params,
		logger: infrastructure.WithComponent(logger, "evolution_calculator"),
	}
}

// TreatmentID names the treatment and concentration of a reading. Growth
// controls all map to GrowthControl.
func TreatmentID(r domain.Reading) string {
	if r.Treatment == GrowthControl {
		return GrowthControl
	}
	return r.Treatment + "-" + strconv.FormatFloat(r.Concentration, 'g', -1, 64)
}

// LineageID names a well independently of the passage it was read at.
func LineageID(r domain.Reading) string {
	return strings.Join([]string{r.Experiment, r.Plate, r.Well()}, "_")
}

type passageMeans map[int]*meanAcc

type meanAcc struct {
	sum float64
	n   int
}

func accumulate(groups map[LineageKey]passageMeans, key LineageKey, passage int, od float64) {
	m, ok := groups[key]
	if !ok {
		m = make(passageMeans)
		groups[key] = m
	}
	acc, ok := m[passage]
	if !ok {
		acc = &meanAcc{}
		m[passage] = acc
	}
	acc.sum += od
	acc.n++
}

func (m passageMeans) values() map[int]float64 {
	out := make(map[int]float64, len(m))
	for p, acc := range m {
		out[p] = acc.sum / float64(acc.n)
	}
	return out
}

// Calculate averages each lineage per passage and finds the first passage at
// which it became resistant. Readings without a treatment are dropped.
func (c *EvolutionCalculator) Calculate(ctx context.Context, readings []domain.Reading) (*EvolutionReport, error) {
	if c.params.Threshold <= 0 {
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("growth threshold must be positive: %g", c.params.Threshold))
	}

	runID := uuid.New().String()
	if infrastructure.GetTraceID(ctx) == "" {
		ctx = infrastructure.WithTraceID(ctx, runID)
	}
	start := time.Now()

	lineages := make(map[LineageKey]passageMeans)
	averages := make(map[LineageKey]passageMeans)
	passages := make(map[int]bool)
	dropped := 0
	for _, r := range readings {
		if r.Treatment == "" {
			dropped++
			continue
		}
		passage, err := strconv.Atoi(r.Passage)
		if err != nil {
			return nil, apierrors.NewInputFormatError(
				fmt.Sprintf("well %s of plate %s has a non-numeric passage %q", r.Well(), r.Plate, r.Passage), err)
		}

		avg := LineageKey{TreatmentID: TreatmentID(r), Strain: r.Strain}
		key := avg
		key.Lineage = LineageID(r)
		accumulate(lineages, key, passage, r.OD600)
		accumulate(averages, avg, passage, r.OD600)
		passages[passage] = true
	}
	if len(lineages) == 0 {
		return nil, apierrors.NewDataInsufficientError("no treated readings to follow across passages")
	}

	report := &EvolutionReport{RunID: runID}
	for p := range passages {
		report.Passages = append(report.Passages, p)
	}
	slices.Sort(report.Passages)
	report.LastPassage = report.Passages[len(report.Passages)-1]

	c.logger.InfoContext(ctx, "starting passage analysis",
		slog.String("run_id", runID),
		slog.Int("readings", len(readings)),
		slog.Int("untreated", dropped),
		slog.Int("lineages", len(lineages)),
		slog.Int("passages", len(report.Passages)),
		slog.Float64("threshold", c.params.Threshold),
	)

	for _, key := range sortedKeys(lineages, LineageKey.Compare) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		od := lineages[key].values()
		report.OD = append(report.OD, PassageSeries{Key: key, Values: od})

		resistance := c.resistance(od, report.LastPassage)
		if len(resistance) == 0 {
			continue
		}
		report.Resistance = append(report.Resistance, PassageSeries{Key: key, Values: resistance})
		if a, ok := firstAppearance(key, resistance, report.LastPassage); ok {
			report.Appearance = append(report.Appearance, a)
		}
	}
	for _, key := range sortedKeys(averages, LineageKey.Compare) {
		report.Averages = append(report.Averages, PassageSeries{Key: key, Values: averages[key].values()})
	}

	emerged := 0
	for _, a := range report.Appearance {
		if a.Emerged {
			emerged++
		}
	}
	c.logger.InfoContext(ctx, "passage analysis complete",
		slog.String("run_id", runID),
		slog.Int("lineages", len(report.OD)),
		slog.Int("resistant", emerged),
		slog.Int("last_passage", report.LastPassage),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// resistance scores every passage after the first. A well is resistant when
// it grew and either is at the last passage or grew again at the next one.
func (c *EvolutionCalculator) resistance(od map[int]float64, last int) map[int]float64 {
	out := make(map[int]float64)
	for p, v := range od {
		if p <= 0 {
			continue
		}
		score := 0.0
		if v >= c.params.Threshold {
			next, ok := od[p+1]
			if p == last || (ok && next >= c.params.Threshold) {
				score = 1
			}
		}
		out[p] = score
	}
	return out
}

// firstAppearance returns the earliest resistant passage. A lineage that was
// never resistant is only reported when it was still followed at the last
// passage.
func firstAppearance(key LineageKey, resistance map[int]float64, last int) (Appearance, bool) {
	first := -1
	for p, v := range resistance {
		if v > 0 && (first < 0 || p < first) {
			first = p
		}
	}
	if first >= 0 {
		return Appearance{Key: key, Passage: first, Emerged: true}, true
	}
	if _, ok := resistance[last]; ok {
		return Appearance{Key: key, Passage: last + 1}, true
	}
	return Appearance{}, false
}

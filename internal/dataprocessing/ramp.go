package dataprocessing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	apierrors "platereader/internal/errors"
	"platereader/pkg/contracts/domain"
)

// RampType labels readings produced by a concentration ramp.
const RampType = "ramp"

// Ramp defaults: the design holds ten times the highest concentration, which
// is sixteen times the ancestral MIC.
const (
	DefaultRampStock = 10.0
	DefaultRampMIC   = 16.0
)

// RampOptions configures a ramp parse.
type RampOptions struct {
	Format PlateFormat
	// Treatment names the design column holding the stock concentrations.
	Treatment string
	// Prefix is prepended to every strain name.
	Prefix string
	// Stock divides the design concentration to give the highest one used.
	Stock float64
	// MIC is how many ancestral MICs the highest concentration holds.
	MIC float64
}

func (o RampOptions) validate() error {
	switch {
	case strings.TrimSpace(o.Treatment) == "":
		return apierrors.NewAppValidationError("ramp treatment is required")
	case o.Stock <= 0 || math.IsNaN(o.Stock):
		return apierrors.NewAppValidationError(fmt.Sprintf("stock factor must be positive: %g", o.Stock))
	case o.MIC <= 0 || math.IsNaN(o.MIC):
		return apierrors.NewAppValidationError(fmt.Sprintf("MIC factor must be positive: %g", o.MIC))
	}
	return nil
}

// RampWell is one well of the ramp design. High is the concentration used at
// the last passage, already divided by the stock factor.
type RampWell struct {
	Row    string
	Column int
	Strain string
	High   float64
}

// RampDesign maps each well of the ramp plate to its content.
type RampDesign map[string]RampWell

// Lookup returns the design of the well at row and column.
func (d RampDesign) Lookup(row string, column int) (RampWell, bool) {
	w, ok := d[row+strconv.Itoa(column)]
	return w, ok
}

// RampReading is a reading from a ramp with the MIC multiple its passage ran at.
type RampReading struct {
	domain.Reading
	MIC float64
}

// ParseRampDesign reads every sheet of a ramp design workbook. Sheets hold
// the "strain", "row" and "column" columns plus one named after the treatment.
func ParseRampDesign(path string, opts RampOptions) (RampDesign, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	f, err := openRows(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	design := make(RampDesign)
	for _, sheet := range f.GetSheetList() {
		rows, err := sheetRows(f, sheet)
		if err != nil {
			return nil, err
		}
		if err := parseRampSheet(design, sheet, rows, opts); err != nil {
			return nil, err
		}
	}

	if len(design) == 0 {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("no ramp design in %s", path), nil)
	}
	return design, nil
}

func parseRampSheet(design RampDesign, sheet string, rows [][]string, opts RampOptions) error {
	if len(rows) == 0 {
		return nil
	}

	columnMap := make(map[string]int)
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == opts.Treatment {
			columnMap[h] = i
			continue
		}
		columnMap[strings.ToLower(h)] = i
	}
	for _, required := range []string{"strain", "row", "column", opts.Treatment} {
		if _, ok := columnMap[required]; !ok {
			return apierrors.NewInputFormatError(
				fmt.Sprintf("ramp design sheet %q is missing column %q", sheet, required), nil)
		}
	}

	for i, row := range rows[1:] {
		letter := strings.ToUpper(cell(row, columnMap["row"]))
		if letter == "" {
			continue
		}
		column, err := strconv.Atoi(cell(row, columnMap["column"]))
		if err != nil || len(letter) != 1 || letter[0] < 'A' || letter[0] > 'P' {
			return apierrors.NewInputFormatError(
				fmt.Sprintf("ramp design sheet %q row %d: invalid well %s%s", sheet, i+2, letter, cell(row, columnMap["column"])), err)
		}

		raw := cell(row, columnMap[opts.Treatment])
		stock, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return apierrors.NewInputFormatError(
				fmt.Sprintf("ramp design sheet %q row %d: invalid %s concentration %q", sheet, i+2, opts.Treatment, raw), err)
		}

		w := RampWell{Row: letter, Column: column, High: stock / opts.Stock}
		if strain := cell(row, columnMap["strain"]); strain != "" {
			w.Strain = opts.Prefix + strain
		}

		well := letter + strconv.Itoa(column)
		if _, dup := design[well]; dup {
			return apierrors.NewInputFormatError(
				fmt.Sprintf("ramp design sheet %q row %d: well %s listed twice", sheet, i+2, well), nil)
		}
		design[well] = w
	}
	return nil
}

// RampParser reads a ramp experiment: one En_STEP subfolder per passage,
// each holding one export per replicate.
type RampParser struct {
	opts   RampOptions
	logger *slog.Logger
}

// NewRampParser creates a ramp parser
func NewRampParser(opts RampOptions, logger *slog.Logger) *RampParser {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Format.Rows == 0 {
		opts.Format = Plate96
	}
	return &RampParser{opts: opts, logger: logger.With("component", "ramp_parser")}
}

// ParseRampFolder parses a ramp folder with the default logger.
func ParseRampFolder(ctx context.Context, folder, design string, opts RampOptions) ([]RampReading, error) {
	return NewRampParser(opts, nil).Parse(ctx, folder, design)
}

// Parse reads every passage subfolder of folder and joins the last read of
// each export with the ramp design. The last passage ran at the design
// concentration and every earlier one at half the next.
func (p *RampParser) Parse(ctx context.Context, folder, design string) ([]RampReading, error) {
	d, err := ParseRampDesign(design, p.opts)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("failed to read folder %s", folder), err)
	}

	var out []RampReading
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		parts := strings.Split(entry.Name(), "_")
		if len(parts) < 2 {
			p.logger.DebugContext(ctx, "skipping folder", slog.String("folder", entry.Name()))
			continue
		}
		// passages are written E1, E2, ...
		var passage int
		err := errors.New("passage too short")
		if len(parts[0]) >= 2 {
			passage, err = strconv.Atoi(parts[0][1:])
		}
		if err != nil || passage < 0 {
			return nil, apierrors.NewInputFormatError(
				fmt.Sprintf("ramp folder %q has an invalid passage %q", entry.Name(), parts[0]), err)
		}

		readings, err := p.parsePassage(ctx, filepath.Join(folder, entry.Name()), passage, d)
		if err != nil {
			return nil, err
		}
		out = append(out, readings...)
	}

	if len(out) == 0 {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("no ramp passages in %s", folder), nil)
	}

	last := 0
	for _, r := range out {
		n, _ := strconv.Atoi(r.Passage)
		last = max(last, n)
	}
	experiment := filepath.Base(filepath.Clean(folder))
	for i := range out {
		r := &out[i]
		n, _ := strconv.Atoi(r.Passage)
		factor := math.Exp2(float64(last - n))
		r.Experiment = experiment
		r.Type = RampType
		r.Treatment = p.opts.Treatment
		r.MIC = p.opts.MIC / factor
		if w, ok := d.Lookup(r.Row, r.Column); ok {
			r.Concentration = w.High / factor
		}
	}

	slices.SortStableFunc(out, func(a, b RampReading) int {
		return cmp.Or(
			comparePassage(a.Passage, b.Passage),
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.Row, b.Row),
			cmp.Compare(a.Column, b.Column),
		)
	})
	p.logger.InfoContext(ctx, "parsed ramp",
		slog.String("folder", folder),
		slog.String("treatment", p.opts.Treatment),
		slog.Int("passages", last),
		slog.Int("readings", len(out)))
	return out, nil
}

// parsePassage reads the exports of one passage. The replicate is the last
// field of kinetic exports and the second to last of endpoint ones; it is
// kept in the date column.
func (p *RampParser) parsePassage(ctx context.Context, dir string, passage int, d RampDesign) ([]RampReading, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("failed to read folder %s", dir), err)
	}

	var out []RampReading
	for _, entry := range entries {
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if entry.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if ext == ".xls" {
			p.logger.WarnContext(ctx, "skipping legacy xls export, convert it to xlsx",
				slog.String("file", name))
			continue
		}
		if ext != ".xlsx" {
			continue
		}

		fields := strings.Split(strings.TrimSuffix(name, filepath.Ext(name)), "_")
		if len(fields) < 4 {
			p.logger.DebugContext(ctx, "skipping export", slog.String("file", name))
			continue
		}
		replicate := fields[len(fields)-1]
		if len(fields) > 4 {
			replicate = fields[len(fields)-2]
		}

		readings, err := p.lastRead(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		for _, r := range readings {
			w, ok := d.Lookup(r.Row, r.Column)
			if !ok {
				p.logger.DebugContext(ctx, "well missing from ramp design",
					slog.String("file", name),
					slog.String("well", r.Well()))
			}
			r.Strain = w.Strain
			r.Passage = strconv.Itoa(passage)
			r.Date = replicate
			out = append(out, RampReading{Reading: r})
		}
		p.logger.DebugContext(ctx, "parsed export",
			slog.String("file", name),
			slog.Int("passage", passage),
			slog.String("replicate", replicate),
			slog.Int("readings", len(readings)))
	}
	return out, nil
}

// lastRead parses an endpoint export, falling back to a kinetic one of which
// only the last time point is kept.
func (p *RampParser) lastRead(path string) ([]domain.Reading, error) {
	readings, err := ParseReading(path, p.opts.Format)
	if err == nil {
		return readings, nil
	}

	series, serr := ParseTimeSeries(path)
	if serr != nil {
		return nil, apierrors.NewInputFormatError(
			fmt.Sprintf("could not parse %s", filepath.Base(path)), errors.Join(err, serr))
	}
	end := math.Inf(-1)
	for _, r := range series {
		end = math.Max(end, r.Time)
	}
	var last []domain.Reading
	for _, r := range series {
		if r.Time == end {
			r.Time = 0
			last = append(last, r)
		}
	}
	return last, nil
}

package dataprocessing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	apierrors "platereader/internal/errors"
	"platereader/pkg/contracts/domain"
)

// Kind is the experiment type a folder is expected to hold.
type Kind string

const (
	KindEvol  Kind = "evol"
	KindMIC   Kind = "mic"
	KindGrate Kind = "grate"
)

// accepts reports whether a folder typed etype holds a kind experiment.
func (k Kind) accepts(etype string) bool {
	switch k {
	case KindMIC:
		return etype == "mic" || etype == "mics"
	case KindGrate:
		return etype == "grate"
	default:
		return etype == "evol"
	}
}

// FolderParser joins a folder of plate reader exports with a plate design.
type FolderParser struct {
	format PlateFormat
	logger *slog.Logger
}

// NewFolderParser creates a parser for plates of the given format
func NewFolderParser(format PlateFormat, logger *slog.Logger) *FolderParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderParser{format: format, logger: logger.With("component", "folder_parser")}
}

// ParseFolder parses a folder of 96 well exports with the default logger.
func ParseFolder(ctx context.Context, folder, design string, kind Kind) ([]domain.Reading, error) {
	return NewFolderParser(Plate96, nil).Parse(ctx, folder, design, kind)
}

// Parse reads every PLATE_DATE_PASSAGE.xlsx export in folder, which must be
// named EXP_DATE_TYPE_XXXX, and labels each well from its plate design.
// Design wells without a measurement are dropped; measured wells missing
// from the design keep an empty strain.
func (p *FolderParser) Parse(ctx context.Context, folder, design string, kind Kind) ([]domain.Reading, error) {
	parts := strings.Split(filepath.Base(filepath.Clean(folder)), "_")
	if len(parts) < 4 {
		return nil, apierrors.NewInputFormatError(
			fmt.Sprintf("folder %q is not named EXP_DATE_TYPE_XXXX", folder), nil)
	}
	experiment, etype := parts[0], strings.ToLower(parts[2])
	if !kind.accepts(etype) {
		return nil, apierrors.NewInputFormatError(
			fmt.Sprintf("folder %q holds a %s experiment, expected %s", folder, etype, kind), nil)
	}

	designs, err := ParsePlateDesign(design)
	if err != nil {
		return nil, err
	}
	byPlate := make(map[string]PlateDesign, len(designs))
	for _, d := range designs {
		byPlate[d.Plate] = d
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("failed to read folder %s", folder), err)
	}

	var out []domain.Reading
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext == ".xls" {
			p.logger.WarnContext(ctx, "skipping legacy xls export, convert it to xlsx",
				slog.String("file", name))
			continue
		}
		if ext != ".xlsx" || strings.HasPrefix(name, "~$") {
			continue
		}

		readings, err := p.parseFile(ctx, filepath.Join(folder, name), kind, experiment, etype, byPlate)
		if err != nil {
			return nil, err
		}
		out = append(out, readings...)
	}

	if len(out) == 0 {
		return nil, apierrors.NewInputFormatError(fmt.Sprintf("no plate reader exports in %s", folder), nil)
	}

	slices.SortStableFunc(out, compareReadings)
	p.logger.InfoContext(ctx, "parsed folder",
		slog.String("folder", folder),
		slog.String("experiment", experiment),
		slog.Int("readings", len(out)))
	return out, nil
}

func (p *FolderParser) parseFile(ctx context.Context, path string, kind Kind, experiment, etype string, designs map[string]PlateDesign) ([]domain.Reading, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return nil, apierrors.NewInputFormatError(
			fmt.Sprintf("export %q is not named PLATE_DATE_PASSAGE", filepath.Base(path)), nil)
	}
	plate, date, passage := parts[0], parts[1], parts[2]
	if kind == KindEvol {
		// passages are written P1, P2, ...
		var n int
		err := errors.New("passage too short")
		if len(passage) >= 2 {
			n, err = strconv.Atoi(passage[1:])
		}
		if err != nil {
			return nil, apierrors.NewInputFormatError(
				fmt.Sprintf("export %q has an invalid passage %q", filepath.Base(path), passage), err)
		}
		passage = strconv.Itoa(n)
	}

	readings, err := ParseReading(path, p.format)
	if err != nil {
		series, serr := ParseTimeSeries(path)
		if serr != nil {
			return nil, apierrors.NewInputFormatError(
				fmt.Sprintf("could not parse %s", filepath.Base(path)), errors.Join(err, serr))
		}
		readings = series
	}

	d, ok := designs[plate]
	if !ok {
		p.logger.WarnContext(ctx, "plate missing from design",
			slog.String("file", filepath.Base(path)),
			slog.String("plate", plate))
	}

	for i := range readings {
		r := &readings[i]
		r.Experiment = experiment
		r.Type = etype
		r.Plate = plate
		r.Date = date
		r.Passage = passage
		if w, found := d.Lookup(r.Row, r.Column); found {
			r.Strain = w.Strain
			r.Treatment = w.Treatment
			r.Concentration = w.Concentration
		}
	}

	p.logger.DebugContext(ctx, "parsed export",
		slog.String("file", filepath.Base(path)),
		slog.Int("readings", len(readings)))
	return readings, nil
}

func compareReadings(a, b domain.Reading) int {
	return cmp.Or(
		cmp.Compare(a.Plate, b.Plate),
		comparePassage(a.Passage, b.Passage),
		cmp.Compare(a.Date, b.Date),
		cmp.Compare(a.Row, b.Row),
		cmp.Compare(a.Column, b.Column),
		cmp.Compare(a.Time, b.Time),
	)
}

// comparePassage orders numeric passages by value.
func comparePassage(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return cmp.Compare(a, b)
}

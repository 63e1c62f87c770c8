package analysis

import (
	"slices"

	"platereader/pkg/contracts/domain"
)

// GroupDoses splits readings into dose-response curves. Stacked assays
// pool replicates across plates, so the plate is left out of the key.
func GroupDoses(readings []domain.Reading, stacked bool) (map[domain.DoseKey][]domain.Reading, []domain.DoseKey) {
	groups := make(map[domain.DoseKey][]domain.Reading)
	for _, r := range readings {
		key := domain.DoseKey{
			Experiment: r.Experiment,
			Plate:      r.Plate,
			Strain:     r.Strain,
			Treatment:  r.Treatment,
			Passage:    r.Passage,
			Date:       r.Date,
		}
		if stacked {
			key.Plate = ""
		}
		groups[key] = append(groups[key], r)
	}
	return groups, sortedKeys(groups, domain.DoseKey.Compare)
}

// GroupWells splits readings into per-well growth curves.
func GroupWells(readings []domain.Reading) (map[domain.WellKey][]domain.Reading, []domain.WellKey) {
	groups := make(map[domain.WellKey][]domain.Reading)
	for _, r := range readings {
		key := domain.WellKey{
			Plate:         r.Plate,
			Row:           r.Row,
			Column:        r.Column,
			Experiment:    r.Experiment,
			Strain:        r.Strain,
			Treatment:     r.Treatment,
			Concentration: r.Concentration,
		}
		groups[key] = append(groups[key], r)
	}
	return groups, sortedKeys(groups, domain.WellKey.Compare)
}

func sortedKeys[K comparable, V any](m map[K]V, compare func(K, K) int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}

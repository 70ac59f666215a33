package ingest

import "github.com/sguter90/airmaestro/pkg/models"

// Merge concatenates existing and incoming readings and collapses duplicate
// (device, time) keys. A later reading replaces an earlier one with the same
// key, so incoming wins over existing. Each key keeps the position of its
// first occurrence.
func Merge(existing, incoming []models.Reading) []models.Reading {
	merged := make([]models.Reading, 0, len(existing)+len(incoming))
	index := make(map[models.ReadingKey]int, len(existing)+len(incoming))

	add := func(r models.Reading) {
		r.Time = r.Time.UTC()
		key := r.Key()
		if i, ok := index[key]; ok {
			merged[i] = r
			return
		}
		index[key] = len(merged)
		merged = append(merged, r)
	}

	for _, r := range existing {
		add(r)
	}
	for _, r := range incoming {
		add(r)
	}

	return merged
}

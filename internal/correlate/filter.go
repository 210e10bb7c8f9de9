package correlate

import "github.com/entraops/entramap/internal/models"

// sameDayMajority keeps only the records created on the UTC calendar
// day that holds the most records, and reports how many were removed.
// Ties go to the most recent day, since correlation targets the newest
// publish batch. Input must already be sorted; order is preserved.
func sameDayMajority(sorted []models.DirectoryRecord) ([]models.DirectoryRecord, int) {
	if len(sorted) == 0 {
		return sorted, 0
	}

	counts := make(map[string]int)
	for _, rec := range sorted {
		counts[rec.CreatedAt.UTC().Format("2006-01-02")]++
	}

	var majority string
	for day, n := range counts {
		if n > counts[majority] || (n == counts[majority] && day > majority) {
			majority = day
		}
	}

	kept := make([]models.DirectoryRecord, 0, counts[majority])
	for _, rec := range sorted {
		if rec.CreatedAt.UTC().Format("2006-01-02") == majority {
			kept = append(kept, rec)
		}
	}
	return kept, len(sorted) - len(kept)
}

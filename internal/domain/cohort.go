package domain

import "sort"

// Years returns the distinct calendar years present in records, ascending.
func Years(records []EmissionRecord) []int {
	seen := make(map[int]struct{})
	years := make([]int, 0, 2)
	for _, r := range records {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years
}

// SelectYear returns a copy of the records whose Year equals year, preserving order.
func SelectYear(records []EmissionRecord, year int) []EmissionRecord {
	out := make([]EmissionRecord, 0, len(records))
	for _, r := range records {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

// DeriveCohort copies the cohort and fills in the cohort-dependent fields
// (Rank and ScaledRadius). The input slice is not modified.
func DeriveCohort(cohort []EmissionRecord, s Scale) []EmissionRecord {
	out := make([]EmissionRecord, len(cohort))
	copy(out, cohort)
	AssignRanks(out)
	ScaleRadii(out, s)
	return out
}

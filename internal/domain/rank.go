package domain

import "sort"

// AssignRanks sets Rank on every record in place using the competition
// convention: rank = 1 + number of records with a strictly larger Quantity.
// Ties share the lowest rank of their group and the next distinct value skips
// ahead by the size of the tie. Record order is left unchanged.
func AssignRanks(records []EmissionRecord) {
	desc := make([]float64, len(records))
	for i := range records {
		desc[i] = records[i].Quantity
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(desc)))

	for i := range records {
		q := records[i].Quantity
		// index of the first value <= q equals the count of values > q
		greater := sort.Search(len(desc), func(j int) bool { return desc[j] <= q })
		records[i].Rank = greater + 1
	}
}

package analysis

// Coverage is the share of reviews that at least one entity references, under either sentiment.
type Coverage struct {
	Total      int     `json:"total"`
	Covered    int     `json:"covered"`
	Ratio      float64 `json:"ratio"`
	Unattended []int   `json:"unattended"`
}

// ComputeCoverage measures how many of ids appear in store. IDs the store references that are not in
// ids don't count. An empty ids list has ratio 0.
func ComputeCoverage(ids []int, store *Store) Coverage {
	covered := idSet{}
	if store != nil {
		covered.add(store.CoveredReviewIDs()...)
	}

	all := idSet{}
	all.add(ids...)

	c := Coverage{Total: len(all), Unattended: []int{}}
	for _, id := range all.sorted() {
		if _, ok := covered[id]; ok {
			c.Covered++
			continue
		}
		c.Unattended = append(c.Unattended, id)
	}
	if c.Total > 0 {
		c.Ratio = 1 - float64(len(c.Unattended))/float64(c.Total)
	}
	return c
}

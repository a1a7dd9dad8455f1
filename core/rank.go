package core

import (
	"sort"

	"github.com/fleetscan/fleetscan/schema"
)

// rankRecords sorts records by aberrancy score in descending order (worst
// first) and returns the top 'limit' records. Unscored records sink to the
// end; repository name breaks ties so ranking is stable across runs.
func rankRecords(records []schema.RepositoryRecord, limit int) []schema.RepositoryRecord {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Assessment, records[j].Assessment
		switch {
		case a == nil && b == nil:
			return records[i].Repository < records[j].Repository
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Overall != b.Overall:
			return a.Overall > b.Overall
		default:
			return records[i].Repository < records[j].Repository
		}
	})
	if len(records) > limit {
		return records[:limit]
	}
	return records
}

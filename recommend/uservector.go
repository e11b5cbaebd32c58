package recommend

import (
	"fmt"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

// GroupByUser groups raw preferences by user, preserving input order within
// each group. Input order is what makes the duplicate-preference overwrite
// rule deterministic.
func GroupByUser(prefs []Preference) map[core.UserID][]Preference {
	groups := make(map[core.UserID][]Preference)
	for _, p := range prefs {
		groups[p.UserID] = append(groups[p.UserID], p)
	}
	return groups
}

// BuildUserVector materializes one user's preferences as a sparse vector
// over item indices. Multiple preferences for the same item overwrite rather
// than accumulate; the last record in input order wins. A preference for an
// item absent from the index table is a fatal input-consistency error.
func BuildUserVector(prefs []Preference, table *ItemIndexTable) (*vector.Vector, error) {
	v := vector.WithCapacity(len(prefs))
	for _, p := range prefs {
		idx, ok := table.IndexOf(p.ItemID)
		if !ok {
			return nil, fmt.Errorf("%w: user %d, item %d", ErrUnknownItemID, p.UserID, p.ItemID)
		}
		v.Set(idx, p.Value)
	}
	return v, nil
}

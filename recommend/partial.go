package recommend

import (
	"fmt"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

// JoinVectorAndPrefs merges the keyed stream for one item index: exactly one
// co-occurrence column plus the preferences of every user who rated the
// item.
//
// A second column for the same index is an invariant violation and fails the
// phase; a correct upstream can never produce it. An index with a column but
// no contributions is dropped (nil result) - no user rated that item highly
// enough to survive pruning, so it cannot seed any partial product. An index
// with contributions but no column is likewise dropped; its item never
// co-occurred with anything.
func JoinVectorAndPrefs(idx core.ItemIndex, values []VectorOrPref) (*VectorAndPrefs, error) {
	var column *vector.Vector
	var userIDs []core.UserID
	var prefValues []float64
	var excluded []bool

	for _, v := range values {
		if v.Column != nil {
			if column != nil {
				return nil, fmt.Errorf("%w: item index %d", ErrDuplicateCooccurrenceColumn, idx)
			}
			column = v.Column
			continue
		}
		userIDs = append(userIDs, v.UserID)
		prefValues = append(prefValues, v.Value)
		excluded = append(excluded, v.Excluded)
	}

	if column == nil || len(userIDs) == 0 {
		return nil, nil
	}

	return &VectorAndPrefs{
		Column:   column,
		UserIDs:  userIDs,
		Values:   prefValues,
		Excluded: excluded,
	}, nil
}

// PartialProducts fans one joined record out into per-user partial score
// vectors: the co-occurrence column scaled by the user's preference value.
// Contributions tagged excluded carry no usable value and are discarded
// here, before any product is computed.
func PartialProducts(vp *VectorAndPrefs, emit func(user core.UserID, partial *vector.Vector)) {
	for i, user := range vp.UserIDs {
		if vp.Excluded[i] {
			continue
		}
		emit(user, vp.Column.Scaled(vp.Values[i]))
	}
}

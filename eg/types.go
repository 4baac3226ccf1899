// Package eg implements the causal-graph checkout algorithm: replaying an
// ol.OpLog into a concrete document by walking the causal graph and
// retreating/advancing item state as the walk's "current version" moves
// from one op's parents to the next.
//
// This used to carry its own duplicate copy of ol's ID/OpLog types; it now
// builds directly on ol so the op log has exactly one definition.
package eg

import "github.com/kevinxiao27/mergetree-intervals/ol"

type (
	ID    = ol.ID
	LV    = ol.LV
	OpLog[T any] = ol.OpLog[T]
)

const (
	NotYetInserted int = -1
	Inserted       int = 0
	// Deleted is any curState >= 1; a value > 1 means the item has been
	// concurrently deleted more than once.
	Deleted int = 1
)

// CRDTItem is one inserted element's merge-time bookkeeping: where it sits
// relative to its left neighbor at insertion time, and its current
// inserted/deleted state as the walk retreats and advances over concurrent
// ops.
type CRDTItem struct {
	LV         LV
	OriginLeft LV // ol.NoLV if inserted at the very start of the document
	ID         ID
	CurState   int
}

func (it *CRDTItem) IsVisible() bool { return it.CurState == Inserted }

// CRDTDoc is the replay state threaded through Checkout: the ordered item
// list (document order, including tombstones), the current version being
// walked, and the insert->delete-target mapping.
type CRDTDoc struct {
	items          []*CRDTItem
	itemsByLV      []*CRDTItem // index == LV
	currentVersion []LV
	delTargets     []LV // delTargets[deleteOpLV] = target insert's LV
}

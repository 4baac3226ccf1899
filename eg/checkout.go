package eg

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kevinxiao27/mergetree-intervals/ol"
	"github.com/kevinxiao27/mergetree-intervals/util"
)

func expandLVToSet[T any](oplog *ol.OpLog[T], frontier []LV) mapset.Set[LV] {
	set := mapset.NewSet[LV]()
	toExpand := make([]LV, len(frontier))
	copy(toExpand, frontier)

	for len(toExpand) > 0 {
		lv := toExpand[len(toExpand)-1]
		toExpand = toExpand[:len(toExpand)-1]
		if set.Contains(lv) {
			continue
		}

		set.Add(lv)
		op := oplog.Ops[lv]
		toExpand = append(toExpand, op.Parents()...)
	}

	return set
}

type DiffResult struct {
	aOnly []LV
	bOnly []LV
}

// diff splits the ancestor sets of a and b into what's only reachable from
// a and what's only reachable from b. Used both by Checkout (to retreat off
// of the old current version and advance onto the next op's parents) and as
// the model for the branch-rebase commit-graph walk in
// interval/rebase.go, which performs the same "expand to ancestor set,
// set-difference" shape over a changeset DAG instead of an op log.
func diff[T any](oplog *ol.OpLog[T], a []LV, b []LV) DiffResult {
	aExpand := expandLVToSet(oplog, a)
	bExpand := expandLVToSet(oplog, b)

	return DiffResult{
		aOnly: aExpand.Difference(bExpand).ToSlice(),
		bOnly: bExpand.Difference(aExpand).ToSlice(),
	}
}

func retreat[T any](doc *CRDTDoc, oplog *ol.OpLog[T], opLV LV) {
	op := oplog.Ops[opLV]
	target := util.Choose(op.Type() == ol.Insert, opLV, doc.delTargets[opLV])
	doc.itemsByLV[target].CurState-- // INS -> NYI, or D-N -> D-(N-1)
}

func advance[T any](doc *CRDTDoc, oplog *ol.OpLog[T], opLV LV) {
	op := oplog.Ops[opLV]
	target := util.Choose(op.Type() == ol.Insert, opLV, doc.delTargets[opLV])
	doc.itemsByLV[target].CurState++ // NYI -> INS, or D-N -> D-(N+1)
}

// findInsertionIndex locates the position in doc.items (full history order,
// tombstones included) to splice a new item with the given originLeft and
// id. It walks forward from originLeft past any concurrently-inserted
// siblings that this id must sort after, together with every item hanging
// off a skipped sibling, using lexicographic id order as the tie-break
// every site applies identically — the minimum needed for convergence
// without also tracking right-origins (see SPEC_FULL.md §3).
func findInsertionIndex(doc *CRDTDoc, originLeft LV, id ID) int {
	start := 0
	if originLeft != ol.NoLV {
		for i, it := range doc.items {
			if it.LV == originLeft {
				start = i + 1
				break
			}
		}
	}

	i := start
	for i < len(doc.items) {
		sib := doc.items[i]
		if sib.OriginLeft != originLeft {
			// An item whose origin lies in the run already skipped belongs
			// to a skipped sibling's subtree and is skipped with it.
			inSkipped := false
			for _, it := range doc.items[start:i] {
				if it.LV == sib.OriginLeft {
					inSkipped = true
					break
				}
			}
			if !inSkipped {
				break
			}
			i++
			continue
		}
		sa, sb := sib.ID.Unpack()
		ia, ib := id.Unpack()
		if sa > ia || (sa == ia && sb > ib) {
			i++
			continue
		}
		break
	}
	return i
}

// visibleOriginLeft returns the LV of the item currently visible
// immediately before document position pos, or ol.NoLV if pos is 0.
func visibleOriginLeft(doc *CRDTDoc, pos int) LV {
	seen := 0
	last := LV(ol.NoLV)
	for _, it := range doc.items {
		if !it.IsVisible() {
			continue
		}
		if seen == pos {
			return last
		}
		last = it.LV
		seen++
	}
	return last
}

// visibleAt returns the item currently visible at document position pos.
func visibleAt(doc *CRDTDoc, pos int) *CRDTItem {
	seen := 0
	for _, it := range doc.items {
		if !it.IsVisible() {
			continue
		}
		if seen == pos {
			return it
		}
		seen++
	}
	return nil
}

func apply[T any](doc *CRDTDoc, oplog *ol.OpLog[T], opLV LV) {
	op := oplog.Ops[opLV]

	if op.Type() == ol.Insert {
		originLeft := visibleOriginLeft(doc, op.Pos())
		item := &CRDTItem{LV: opLV, OriginLeft: originLeft, ID: op.ID(), CurState: Inserted}
		doc.itemsByLV[opLV] = item
		idx := findInsertionIndex(doc, originLeft, op.ID())
		doc.items = append(doc.items, nil)
		copy(doc.items[idx+1:], doc.items[idx:])
		doc.items[idx] = item
		return
	}

	target := visibleAt(doc, op.Pos())
	if target == nil {
		return // delete of an already-retreated/out-of-range position: no-op
	}
	doc.delTargets[opLV] = target.LV
	target.CurState++ // INSERTED -> DELETED
}

// Result is the outcome of a full Checkout: the visible snapshot, the full
// document order (including tombstoned items, needed to resolve positions
// that reference deleted segments), and every item keyed by its LV.
type Result[T any] struct {
	Snapshot []T
	Order    []LV
	Items    []*CRDTItem // index == LV
}

// Checkout replays oplog from scratch and returns the resulting document.
// It is the teacher's merge algorithm (retreat/advance/diff over the causal
// graph) with the insert/delete `apply` step — left as a TODO in the
// original — filled in.
func Checkout[T any](oplog *ol.OpLog[T]) Result[T] {
	n := len(oplog.Ops)
	doc := &CRDTDoc{
		items:          make([]*CRDTItem, 0, n),
		itemsByLV:      make([]*CRDTItem, n),
		currentVersion: []LV{},
		delTargets:     make([]LV, n),
	}

	for lv := 0; lv < n; lv++ {
		op := oplog.Ops[lv]

		d := diff(oplog, doc.currentVersion, op.Parents())

		for _, i := range d.aOnly {
			retreat(doc, oplog, i)
		}
		for _, i := range d.bOnly {
			advance(doc, oplog, i)
		}

		apply(doc, oplog, LV(lv))
		doc.currentVersion = []LV{LV(lv)}
	}

	// Finish at the log's full frontier so ops concurrent with the last
	// one replayed are advanced back into view.
	d := diff(oplog, doc.currentVersion, oplog.Frontier())
	for _, i := range d.aOnly {
		retreat(doc, oplog, i)
	}
	for _, i := range d.bOnly {
		advance(doc, oplog, i)
	}

	order := make([]LV, len(doc.items))
	snapshot := make([]T, 0, len(doc.items))
	for i, it := range doc.items {
		order[i] = it.LV
		if it.IsVisible() {
			snapshot = append(snapshot, oplog.Ops[it.LV].Content())
		}
	}

	return Result[T]{Snapshot: snapshot, Order: order, Items: doc.itemsByLV}
}

package interval

// OverlapIndex answers range-overlap queries (spec §4.3 "Overlap index"),
// kept sorted by start position so a binary search narrows the scan before
// the O(n) overlap filter (see order_index.go for why a sorted slice
// stands in for a balanced interval tree here).
type OverlapIndex struct {
	*orderedIndex
}

func NewOverlapIndex() *OverlapIndex {
	return &OverlapIndex{newOrderedIndex(compareStartsLess)}
}

// FindOverlappingIntervals returns every indexed interval overlapping
// [startPos, endPos].
func (o *OverlapIndex) FindOverlappingIntervals(startPos, endPos int) []*Interval {
	probe := &Interval{kind: KindNumeric, start: Endpoint{kind: KindNumeric, numeric: startPos}, end: Endpoint{kind: KindNumeric, numeric: endPos}}

	// Every candidate must start at or before endPos; narrow with a binary
	// search on start, then linearly filter by the exact overlap predicate.
	hiIdx := o.searchBound(func(iv *Interval) int {
		if iv.StartPos() > endPos {
			return 1
		}
		return -1
	})

	out := []*Interval{}
	for i := 0; i < hiIdx; i++ {
		iv := o.items[i]
		if numericOverlap(iv.StartPos(), iv.EndPos(), probe.StartPos(), probe.EndPos()) {
			out = append(out, iv)
		}
	}
	return out
}

func numericOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart <= bEnd && aEnd >= bStart
}

// MapRange iterates every indexed interval in start order between the
// bounds [lo, hi], invoking action for each. Mirrors spec §4.3's
// mapRange(action, results, lo, hi) shape used by range queries.
func (o *OverlapIndex) MapRange(lo, hi int, action func(*Interval)) {
	for _, iv := range o.items {
		if iv.StartPos() > hi {
			break
		}
		if iv.StartPos() >= lo {
			action(iv)
		}
	}
}

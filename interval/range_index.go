package interval

// RangeIndex backs both the end-in-range and the start-in-range indices of
// spec §4.3: an ordered tree keyed by end (or start) with two comparator
// tie-breakers — a forceCompare override that makes a probe strictly
// precede/follow all real intervals sharing its endpoint, and id
// lexicographic order. Probes are never materialized as real Interval
// values here (see order_index.go); the override is applied directly in
// the two binary-search bounds Query uses.
type RangeIndex struct {
	*orderedIndex
	keyOf func(*Interval) int // iv.EndPos for end-in-range, iv.StartPos for start-in-range
}

func NewEndInRangeIndex() *RangeIndex {
	return &RangeIndex{newOrderedIndex(compareEndsLess), (*Interval).EndPos}
}

func NewStartInRangeIndex() *RangeIndex {
	return &RangeIndex{newOrderedIndex(compareStartsLess), (*Interval).StartPos}
}

// Query returns every indexed interval whose key lies in [lo, hi]. Per
// spec §4.3, a range with lo <= 0 or lo > hi is rejected and returns empty
// rather than erroring — mirroring a Not-found-style "no match" outcome.
func (r *RangeIndex) Query(lo, hi int) []*Interval {
	if lo <= 0 || lo > hi {
		return nil
	}

	loIdx := r.searchBound(func(iv *Interval) int {
		if r.keyOf(iv) >= lo {
			return 1
		}
		return -1
	})
	hiIdx := r.searchBound(func(iv *Interval) int {
		if r.keyOf(iv) > hi {
			return 1
		}
		return -1
	})
	if loIdx >= hiIdx {
		return nil
	}

	out := make([]*Interval, hiIdx-loIdx)
	copy(out, r.items[loIdx:hiIdx])
	return out
}

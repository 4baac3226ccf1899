package interval

import "sort"

// orderedIndex is a slice kept sorted by insertion-point binary search.
// spec §9 calls for red-black trees; the pack this module was grounded on
// has no interval-tree or balanced-tree library anywhere in it (see
// DESIGN.md), and the teacher's own ordered structures (ol.OpLog.frontier)
// are themselves plain slices kept sorted by sort.Slice — so this follows
// that same idiom rather than reaching for an unavailable package. At this
// repo's scale (documents of up to a few thousand live intervals) an O(log n)
// search plus O(n) shift is an acceptable standard-library substitute for a
// balanced tree.
type orderedIndex struct {
	items []*Interval
	less  func(a, b *Interval) bool
}

func newOrderedIndex(less func(a, b *Interval) bool) *orderedIndex {
	return &orderedIndex{less: less}
}

func (o *orderedIndex) Len() int { return len(o.items) }

func (o *orderedIndex) Add(iv *Interval) {
	idx := sort.Search(len(o.items), func(i int) bool { return !o.less(o.items[i], iv) })
	o.items = append(o.items, nil)
	copy(o.items[idx+1:], o.items[idx:])
	o.items[idx] = iv
}

// Remove deletes iv. Per spec §4.3's coherence rule, callers must remove an
// interval from every order-sensitive index *before* any of its endpoints'
// keys change, so the binary search below is always performed against the
// key iv was last added under.
func (o *orderedIndex) Remove(iv *Interval) bool {
	idx := sort.Search(len(o.items), func(i int) bool { return !o.less(o.items[i], iv) })
	for i := idx; i < len(o.items) && !o.less(iv, o.items[i]); i++ {
		if o.items[i] == iv {
			o.items = append(o.items[:i], o.items[i+1:]...)
			return true
		}
	}
	return false
}

// searchBound returns the index of the first item for which cmp returns a
// value >= 0, i.e. the first item not below the probe cmp describes. The
// spec's forceCompare override is expressed in cmp itself: returning 1 for
// items at the probe's position makes the probe sort before them (a
// low-range probe), returning -1 makes it sort after them (a high-range
// probe).
func (o *orderedIndex) searchBound(cmp func(iv *Interval) int) int {
	return sort.Search(len(o.items), func(i int) bool { return cmp(o.items[i]) >= 0 })
}

func (o *orderedIndex) all() []*Interval {
	out := make([]*Interval, len(o.items))
	copy(out, o.items)
	return out
}

package interval

// EndpointIndex orders intervals by end reference position (spec §4.3
// "Endpoint index"), supporting previousInterval/nextInterval probes.
type EndpointIndex struct {
	*orderedIndex
}

func NewEndpointIndex() *EndpointIndex {
	return &EndpointIndex{newOrderedIndex(compareEndsLess)}
}

// PreviousInterval returns the interval with the greatest end position
// <= pos, or nil. Equivalent to floor-ing a transient probe interval built
// at (pos, pos), implemented directly over resolved positions since probes
// never need to be materialized as real Interval values (see
// order_index.go and DESIGN.md).
func (e *EndpointIndex) PreviousInterval(pos int) *Interval {
	idx := e.searchBound(func(iv *Interval) int {
		p := iv.EndPos()
		if p > pos {
			return 1
		}
		return -1 // treat <= pos as "less", so idx lands just past the run
	})
	if idx == 0 {
		return nil
	}
	return e.items[idx-1]
}

// NextInterval returns the interval with the smallest end position >= pos,
// or nil.
func (e *EndpointIndex) NextInterval(pos int) *Interval {
	idx := e.searchBound(func(iv *Interval) int {
		p := iv.EndPos()
		if p >= pos {
			return 1
		}
		return -1
	})
	if idx >= len(e.items) {
		return nil
	}
	return e.items[idx]
}

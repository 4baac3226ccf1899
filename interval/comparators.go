package interval

// compareEnds/compareStarts are the comparators the endpoint-ordered and
// range indices key on (spec §4.3): position order, with id lexicographic
// order as the deterministic tie-break every site applies identically.
func compareEnds(a, b *Interval) int {
	if c := endpointCompare(a.end, b.end); c != 0 {
		return c
	}
	return compareIDs(a.id, b.id)
}

func compareStarts(a, b *Interval) int {
	if c := endpointCompare(a.start, b.start); c != 0 {
		return c
	}
	return compareIDs(a.id, b.id)
}

func compareIDs(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareEndsLess(a, b *Interval) bool   { return compareEnds(a, b) < 0 }
func compareStartsLess(a, b *Interval) bool { return compareStarts(a, b) < 0 }

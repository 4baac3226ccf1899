package mergetree

// Reference is a PositionReference's anchor into this document: a segment
// plus an in-segment offset (always 0 in this substrate, see document.go),
// with lifecycle flags and callbacks owned by the interval package.
type Reference struct {
	doc      *Document
	seg      SegID
	offset   int
	detached bool
	pref     SlidingPreference
	refType  int // opaque to mergetree; interval package's flag bitmask

	beforeSlide func()
	afterSlide  func()
}

func (r *Reference) Segment() SegID                    { return r.seg }
func (r *Reference) Offset() int                       { return r.offset }
func (r *Reference) IsDetached() bool                  { return r.detached }
func (r *Reference) RefType() int                       { return r.refType }
func (r *Reference) SlidingPreference() SlidingPreference { return r.pref }

// SetCallbacks installs the before/after-slide hooks (spec §4.1).
func (r *Reference) SetCallbacks(before, after func()) {
	r.beforeSlide = before
	r.afterSlide = after
}

// CreateLocalReferencePosition binds a reference to a live segment (spec §6
// Create contract).
func (d *Document) CreateLocalReferencePosition(seg SegID, offset int, refType int, pref SlidingPreference) *Reference {
	ref := &Reference{doc: d, seg: seg, offset: offset, pref: pref, refType: refType}
	d.refsBySeg[seg] = append(d.refsBySeg[seg], ref)
	return ref
}

// CreateDetachedLocalReferencePosition makes a reference whose anchor
// segment has already vanished (spec §6 CreateDetached contract).
func (d *Document) CreateDetachedLocalReferencePosition(refType int) *Reference {
	return &Reference{doc: d, detached: true, refType: refType}
}

// RemoveLocalReferencePosition unregisters a reference from slide tracking.
func (d *Document) RemoveLocalReferencePosition(ref *Reference) {
	if ref == nil || ref.detached {
		return
	}
	refs := d.refsBySeg[ref.seg]
	for i, r := range refs {
		if r == ref {
			d.refsBySeg[ref.seg] = append(refs[:i], refs[i+1:]...)
			return
		}
	}
}

// slideBatch relocates every reference anchored to any of segs to the
// nearest live segment in its preferred direction (falling back to the
// other direction), or marks it detached if the document has no live
// segments left at all.
//
// All affected references' beforeSlide hooks fire first, then every
// reassignment is computed and applied, then every afterSlide hook fires.
// This matters because a single merge can tombstone the segments behind
// both endpoints of the same interval: if before/after were interleaved
// per-segment instead of batched, the first endpoint's afterSlide would
// fire (and the interval would be re-added to the indices) before the
// second endpoint's beforeSlide even ran, breaking the burst-counting
// balance spec §4.4 relies on.
func (d *Document) slideBatch(segs []SegID) {
	type affected struct {
		ref    *Reference
		fromIx int
	}
	var refs []affected
	for _, seg := range segs {
		idx := d.index[seg]
		for _, ref := range d.refsBySeg[seg] {
			refs = append(refs, affected{ref: ref, fromIx: idx})
		}
		delete(d.refsBySeg, seg)
	}

	for _, a := range refs {
		if a.ref.beforeSlide != nil {
			a.ref.beforeSlide()
		}
	}

	for _, a := range refs {
		newSeg, newOff, ok := d.nearestLive(a.fromIx, a.ref.pref)
		if !ok {
			a.ref.detached = true
			a.ref.seg = SegID{}
			a.ref.offset = 0
			continue
		}
		a.ref.seg = newSeg
		a.ref.offset = newOff
		d.refsBySeg[newSeg] = append(d.refsBySeg[newSeg], a.ref)
	}

	for _, a := range refs {
		if a.ref.afterSlide != nil {
			a.ref.afterSlide()
		}
	}
}

// Compare returns a stable total order over two references: by current
// resolved position, then — for references resolving to the same live
// position — by segment id, so ties (rare: only possible for the same
// segment) are still deterministic.
func (d *Document) Compare(a, b *Reference) int {
	pa, pb := d.Resolve(a), d.Resolve(b)
	if pa != pb {
		if pa < pb {
			return -1
		}
		return 1
	}
	aa, ab := a.seg.Unpack()
	ba, bb := b.seg.Unpack()
	if aa != ba {
		if aa < ba {
			return -1
		}
		return 1
	}
	if ab != bb {
		if ab < bb {
			return -1
		}
		return 1
	}
	return 0
}

func (d *Document) Min(a, b *Reference) *Reference {
	if d.Compare(a, b) <= 0 {
		return a
	}
	return b
}

func (d *Document) Max(a, b *Reference) *Reference {
	if d.Compare(a, b) >= 0 {
		return a
	}
	return b
}

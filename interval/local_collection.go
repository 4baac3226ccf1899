package interval

import (
	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// ExtraIndex is a user-attached index kept in lockstep with the built-in
// ones (spec §4.4 appendIndex/removeIndex).
type ExtraIndex interface {
	Add(iv *Interval)
	Remove(iv *Interval)
}

type slideState struct {
	pending  int
	previous *Interval
}

// LocalCollection owns an id index, an endpoint index, an overlap index,
// and any number of user-attached extra indices, and keeps all of them
// updated in lockstep (spec §4.4).
type LocalCollection struct {
	label string
	kind  Kind
	doc   *mergetree.Document

	ids          *IDIndex
	endpoints    *EndpointIndex
	overlaps     *OverlapIndex
	startInRange *RangeIndex
	endInRange   *RangeIndex
	extra        []ExtraIndex

	slideStates map[string]*slideState

	// onPositionChange is invoked once a slide burst settles, with the
	// interval's new and pre-slide state (spec §4.5 ackInterval / events).
	onPositionChange func(iv, previous *Interval)
}

func NewLocalCollection(label string, kind Kind, doc *mergetree.Document) *LocalCollection {
	return &LocalCollection{
		label:        label,
		kind:         kind,
		doc:          doc,
		ids:          NewIDIndex(),
		endpoints:    NewEndpointIndex(),
		overlaps:     NewOverlapIndex(),
		startInRange: NewStartInRangeIndex(),
		endInRange:   NewEndInRangeIndex(),
		slideStates:  map[string]*slideState{},
	}
}

func (lc *LocalCollection) Label() string { return lc.label }
func (lc *LocalCollection) Kind() Kind    { return lc.kind }

func (lc *LocalCollection) GetIntervalById(id string) (*Interval, bool) { return lc.ids.Get(id) }

func (lc *LocalCollection) Count() int { return lc.ids.Len() }

func (lc *LocalCollection) All() []*Interval { return lc.ids.All() }

// Serialize builds a spec §4.4 LocalCollection.serialize() snapshot: every
// held interval converted through toSerialized (the collection-level
// per-interval encoding, which knows about label-stripping), with a legacy
// id synthesized for any interval that somehow reached here without one.
func (lc *LocalCollection) Serialize(toSerialized func(*Interval) Serialized) SerializedCollectionV2 {
	out := SerializedCollectionV2{
		Label:     lc.label,
		Intervals: make([]Serialized, 0, lc.Count()),
	}
	for _, iv := range lc.ids.All() {
		s := toSerialized(iv)
		s.ID = lc.ensureSerializedId(iv)
		out.Intervals = append(out.Intervals, s)
	}
	return out
}

// ensureSerializedId returns iv's id, synthesizing the deterministic legacy
// form if somehow unset (spec §4.4 "ensureSerializedId").
func (lc *LocalCollection) ensureSerializedId(iv *Interval) string {
	if iv.id != "" {
		return iv.id
	}
	return LegacyID(iv.StartPos(), iv.EndPos())
}

func (lc *LocalCollection) AppendIndex(idx ExtraIndex) {
	for _, iv := range lc.ids.All() {
		idx.Add(iv)
	}
	lc.extra = append(lc.extra, idx)
}

func (lc *LocalCollection) RemoveIndex(idx ExtraIndex) bool {
	for i, e := range lc.extra {
		if e == idx {
			lc.extra = append(lc.extra[:i], lc.extra[i+1:]...)
			return true
		}
	}
	return false
}

func (lc *LocalCollection) addToIndices(iv *Interval) {
	lc.endpoints.Add(iv)
	lc.overlaps.Add(iv)
	lc.startInRange.Add(iv)
	lc.endInRange.Add(iv)
	for _, e := range lc.extra {
		e.Add(iv)
	}
}

func (lc *LocalCollection) removeFromIndices(iv *Interval) {
	lc.endpoints.Remove(iv)
	lc.overlaps.Remove(iv)
	lc.startInRange.Remove(iv)
	lc.endInRange.Remove(iv)
	for _, e := range lc.extra {
		e.Remove(iv)
	}
}

// FindIntervalsWithStartInRange and FindIntervalsWithEndInRange answer the
// two range-probe index families of spec §4.3, kept coherent with the
// id/endpoint/overlap indices under the same slide hooks.
func (lc *LocalCollection) FindIntervalsWithStartInRange(lo, hi int) []*Interval {
	return lc.startInRange.Query(lo, hi)
}

func (lc *LocalCollection) FindIntervalsWithEndInRange(lo, hi int) []*Interval {
	return lc.endInRange.Query(lo, hi)
}

// FindOverlappingIntervals answers the overlap-index probe of spec §4.3/§6
// directly against the same OverlapIndex kept coherent by the slide hooks.
func (lc *LocalCollection) FindOverlappingIntervals(startPos, endPos int) []*Interval {
	return lc.overlaps.FindOverlappingIntervals(startPos, endPos)
}

// AddInterval creates the interval's id if absent, validates rangeLabels
// (if present) names this collection, adds it to every index, and installs
// slide listeners on Sequence Intervals (spec §4.4 addInterval).
func (lc *LocalCollection) AddInterval(iv *Interval) error {
	if labels, ok := iv.properties[PropRangeLabels].([]string); ok && len(labels) > 0 {
		if labels[0] != lc.label {
			return usageErrorf("interval's rangeLabels %v does not name this collection (%q)", labels, lc.label)
		}
	}
	if iv.id == "" {
		iv.assignID(NewID())
	}
	lc.ids.Add(iv)
	lc.addToIndices(iv)
	lc.installSlideListeners(iv)
	return nil
}

// RemoveExistingInterval removes iv from every index and its slide
// listeners (spec §4.4 removeExistingInterval).
func (lc *LocalCollection) RemoveExistingInterval(iv *Interval) {
	lc.ids.Remove(iv.id)
	lc.removeFromIndices(iv)
	delete(lc.slideStates, iv.id)
	if iv.kind == KindSequence {
		iv.start.ref.SetCallbacks(nil, nil)
		iv.end.ref.SetCallbacks(nil, nil)
	}
}

// ChangeInterval calls Interval.Modify, removes the old interval and adds
// the new one (spec §4.4 changeInterval). It returns nil, leaving iv in
// place, only when no endpoint or stickiness change is requested; the new
// positions are not compared with the old ones.
func (lc *LocalCollection) ChangeInterval(iv *Interval, newStart, newEnd *int, local bool, stickiness *Stickiness) (*Interval, error) {
	if newStart == nil && newEnd == nil && stickiness == nil {
		return nil, nil
	}
	next, err := iv.Modify(lc.doc, newStart, newEnd, local, stickiness)
	if err != nil {
		return nil, err
	}
	lc.RemoveExistingInterval(iv)
	if err := lc.AddInterval(next); err != nil {
		return nil, err
	}
	return next, nil
}

// installSlideListeners wires both endpoints' before/after-slide callbacks
// into one shared burst counter per spec §4.4: the first beforeSlide of a
// burst clones the interval (for previousInterval in position-change
// events) and pulls it out of the order-sensitive indices; the afterSlide
// that brings the pending count back to zero re-adds it and fires
// onPositionChange.
func (lc *LocalCollection) installSlideListeners(iv *Interval) {
	if iv.kind != KindSequence {
		return
	}
	st := &slideState{}
	lc.slideStates[iv.id] = st

	before := func() {
		st.pending++
		if st.pending == 1 {
			st.previous = cloneForEvent(iv)
			lc.removeFromIndices(iv)
		}
	}
	after := func() {
		st.pending--
		assert(st.pending >= 0, "afterSlide fired without a matching beforeSlide for interval %s", iv.id)
		if st.pending == 0 {
			lc.addToIndices(iv)
			if lc.onPositionChange != nil {
				lc.onPositionChange(iv, st.previous)
			}
			st.previous = nil
		}
	}

	iv.start.ref.SetCallbacks(before, after)
	iv.end.ref.SetCallbacks(before, after)
}

// cloneForEvent makes a point-in-time snapshot of iv's endpoints by cloning
// their underlying references onto the same (segment, offset) they
// currently occupy, so a listener can still read the pre-slide position
// after the live references have moved. Per spec §4.5, previousInterval's
// endpoints are retyped Transient for the duration of event emission.
func cloneForEvent(iv *Interval) *Interval {
	clone := &Interval{
		kind:         iv.kind,
		id:           iv.id,
		idSet:        iv.idSet,
		intervalType: iv.intervalType,
		stickiness:   iv.stickiness,
		properties:   cloneProps(iv.properties),
		propMgr:      iv.propMgr,
	}
	if iv.kind != KindSequence {
		clone.start, clone.end = iv.start, iv.end
		return clone
	}
	doc := iv.start.doc
	startSeg, startOff := iv.start.ref.Segment(), iv.start.ref.Offset()
	endSeg, endOff := iv.end.ref.Segment(), iv.end.ref.Offset()
	startRef := doc.CreateLocalReferencePosition(startSeg, startOff, int(flagTransient), iv.start.ref.SlidingPreference())
	endRef := doc.CreateLocalReferencePosition(endSeg, endOff, int(flagTransient), iv.end.ref.SlidingPreference())
	clone.start = Endpoint{kind: KindSequence, ref: startRef, doc: doc}
	clone.end = Endpoint{kind: KindSequence, ref: endRef, doc: doc}
	return clone
}

// Package mergetree is the minimal sequence-CRDT substrate this module's
// interval engine is layered over. spec.md treats the sequence CRDT as an
// external collaborator and only specifies the surface the interval engine
// consumes from it (spec §6); this package is that surface's concrete
// implementation, grounded directly in the teacher's own op-log/checkout
// merge algorithm (ol + eg) rather than invented from scratch. It is
// deliberately the minimum viable CRDT, not a competitor to a real
// merge-tree: every segment is a single rune and never splits, so the
// (segment, offset) pairs the interval engine's PositionReference carries
// always resolve with offset 0 here. See SPEC_FULL.md §3.
package mergetree

import (
	"fmt"

	"github.com/sanity-io/litter"

	"github.com/kevinxiao27/mergetree-intervals/eg"
	"github.com/kevinxiao27/mergetree-intervals/ol"
)

// SegID identifies a segment: the op that inserted it.
type SegID = ol.ID

// DetachedPosition is returned by Resolve for a reference whose segment has
// slid off the document entirely. It never overlaps any live range.
const DetachedPosition = -1

type SlidingPreference int

const (
	SlideForward SlidingPreference = iota
	SlideBackward
)

// CollabWindow is the mutable local-sequence-number counter the interval
// engine draws strictly increasing local-seq values from (spec §5 guarantee
// 1, §6).
type CollabWindow struct {
	LocalSeq int
}

// Document is one site's view of a shared rune sequence: an op log plus the
// replayed (checked-out) document it currently represents.
type Document struct {
	agent     string
	log       ol.OpLog[rune]
	window    CollabWindow
	connected bool

	result    eg.Result[rune]
	index     map[SegID]int // SegID -> index into result.Order
	live      map[SegID]bool
	rank      []int // parallel to result.Order: visible-position of order[i]

	refsBySeg map[SegID][]*Reference

	normalizeListeners []func()

	pending []pendingLocalOp
}

type pendingLocalOp struct {
	lvs    []ol.LV
	refSeq int // GetCurrentSeq() at time of submission
}

func NewDocument(agent string) *Document {
	d := &Document{
		agent:     agent,
		log:       ol.NewOpLog[rune](),
		connected: true,
		index:     map[SegID]int{},
		live:      map[SegID]bool{},
		refsBySeg: map[SegID][]*Reference{},
	}
	d.recheckout()
	return d
}

func (d *Document) Agent() string { return d.agent }

// Content returns the currently visible document text.
func (d *Document) Content() []rune { return d.result.Snapshot }

func (d *Document) GetCurrentSeq() int { return len(d.log.Ops) }

func (d *Document) GetCollabWindow() *CollabWindow { return &d.window }

func (d *Document) GetLongClientId(id SegID) string { return id.Agent() }

func (d *Document) Connected() bool { return d.connected }

// OnNormalize registers an observer fired when pending local ops are
// rebased after reconnect (spec §6 "normalize" event).
func (d *Document) OnNormalize(fn func()) {
	d.normalizeListeners = append(d.normalizeListeners, fn)
}

func (d *Document) fireNormalize() {
	for _, fn := range d.normalizeListeners {
		fn()
	}
}

// LocalInsert inserts content at pos and recomputes the checkout, sliding
// any references whose segments are affected.
func (d *Document) LocalInsert(pos int, content string) []SegID {
	return d.LocalInsertAs(d.agent, pos, content)
}

// LocalDelete removes delLen elements starting at pos.
func (d *Document) LocalDelete(pos int, delLen int) []SegID {
	return d.LocalDeleteAs(d.agent, pos, delLen)
}

// LocalInsertAs is LocalInsert with an explicit authoring agent, for a host
// (such as cmd/server) that multiplexes several clients over one shared
// Document instead of giving each client its own.
func (d *Document) LocalInsertAs(agent string, pos int, content string) []SegID {
	lvs := ol.LocalInsert(&d.log, agent, pos, []rune(content))
	d.window.LocalSeq++
	if !d.connected {
		d.pending = append(d.pending, pendingLocalOp{lvs: lvs, refSeq: d.GetCurrentSeq()})
	}
	d.recheckout()
	return lvsToIDs(&d.log, lvs)
}

// LocalDeleteAs is LocalDelete with an explicit authoring agent.
func (d *Document) LocalDeleteAs(agent string, pos int, delLen int) []SegID {
	lvs := ol.LocalDelete(&d.log, agent, pos, delLen)
	d.window.LocalSeq++
	if !d.connected {
		d.pending = append(d.pending, pendingLocalOp{lvs: lvs, refSeq: d.GetCurrentSeq()})
	}
	d.recheckout()
	return lvsToIDs(&d.log, lvs)
}

func lvsToIDs(log *ol.OpLog[rune], lvs []ol.LV) []SegID {
	out := make([]SegID, len(lvs))
	for i, lv := range lvs {
		out[i] = log.Ops[lv].ID()
	}
	return out
}

// MergeFrom pulls every op of src into d, recomputes the checkout, and
// slides any references anchored to segments that just became tombstoned.
func (d *Document) MergeFrom(src *Document) {
	ol.MergeInto(&d.log, &src.log)
	d.recheckout()
}

// SetConnected models the host toggling connectivity (spec §5 "Shared
// resources" / §4.5 state machine). Reconnecting fires the normalize event,
// which drives Collection's rebase-then-resubmit path.
func (d *Document) SetConnected(connected bool) {
	was := d.connected
	d.connected = connected
	if !was && connected {
		d.pending = nil
		d.fireNormalize()
	}
}

func (d *Document) recheckout() {
	res := eg.Checkout(&d.log)

	newIndex := make(map[SegID]int, len(res.Order))
	newLive := make(map[SegID]bool, len(res.Order))
	rank := make([]int, len(res.Order))
	visibleCount := 0
	for i, lv := range res.Order {
		item := res.Items[lv]
		segID := item.ID
		newIndex[segID] = i
		isLive := item.IsVisible()
		newLive[segID] = isLive
		rank[i] = visibleCount
		if isLive {
			visibleCount++
		}
	}

	var toSlide []SegID
	for segID, wasLive := range d.live {
		if wasLive && !newLive[segID] {
			toSlide = append(toSlide, segID)
		}
	}

	d.result = res
	d.index = newIndex
	d.live = newLive
	d.rank = rank

	d.slideBatch(toSlide)
}

// GetContainingSegment resolves a document position to the segment
// currently occupying it. Rejects out-of-range positions the same way the
// real contract does ("creating past end throws", spec §8).
func (d *Document) GetContainingSegment(pos int) (SegID, int, error) {
	if pos < 0 || pos > len(d.result.Snapshot) {
		return SegID{}, 0, fmt.Errorf("mergetree: position %d out of range [0,%d]", pos, len(d.result.Snapshot))
	}
	if pos == len(d.result.Snapshot) {
		return SegID{}, 0, fmt.Errorf("mergetree: position %d is past the end of the document", pos)
	}
	for i, lv := range d.result.Order {
		item := d.result.Items[lv]
		if item.IsVisible() && d.rank[i] == pos {
			return item.ID, 0, nil
		}
	}
	return SegID{}, 0, fmt.Errorf("mergetree: position %d not found", pos)
}

// Resolve returns the current numeric position of a reference, or
// DetachedPosition if its segment has slid off the document.
func (d *Document) Resolve(ref *Reference) int {
	if ref == nil || ref.detached {
		return DetachedPosition
	}
	idx, ok := d.index[ref.seg]
	if !ok {
		return DetachedPosition
	}
	return d.rank[idx] + ref.offset
}

// GetSlideToSegment returns the nearest live segment to (seg, offset) in
// the given direction, trying the other direction if none exists, matching
// the slide protocol in spec §4.1. ok is false if the document has no live
// segments at all (fully detached).
func (d *Document) GetSlideToSegment(seg SegID, offset int, pref SlidingPreference) (SegID, int, bool) {
	if d.live[seg] {
		return seg, offset, true
	}
	idx, ok := d.index[seg]
	if !ok {
		return SegID{}, 0, false
	}
	return d.nearestLive(idx, pref)
}

func (d *Document) nearestLive(fromIdx int, pref SlidingPreference) (SegID, int, bool) {
	order := d.result.Order
	forward := func() (SegID, int, bool) {
		for i := fromIdx + 1; i < len(order); i++ {
			if id := order[i]; d.live[d.result.Items[id].ID] {
				return d.result.Items[id].ID, 0, true
			}
		}
		return SegID{}, 0, false
	}
	backward := func() (SegID, int, bool) {
		for i := fromIdx - 1; i >= 0; i-- {
			if id := order[i]; d.live[d.result.Items[id].ID] {
				return d.result.Items[id].ID, 0, true
			}
		}
		return SegID{}, 0, false
	}

	if pref == SlideForward {
		if seg, off, ok := forward(); ok {
			return seg, off, ok
		}
		return backward()
	}
	if seg, off, ok := backward(); ok {
		return seg, off, ok
	}
	return forward()
}

// FindReconnectionPosition returns the current position of a segment the
// caller last knew about at local-seq localSeq. This substrate has no
// client-side optimistic staging layer to reconcile against, so localSeq is
// accepted for API parity with spec §6 but unused: the segment's current
// resolved position is always returned.
func (d *Document) FindReconnectionPosition(seg SegID, localSeq int) (int, error) {
	_ = localSeq
	idx, ok := d.index[seg]
	if !ok {
		return DetachedPosition, fmt.Errorf("mergetree: segment %v unknown", seg)
	}
	return d.rank[idx], nil
}

func (d *Document) DebugDump() string {
	return litter.Sdump(d.result)
}

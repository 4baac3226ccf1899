package interval

import (
	"github.com/sanity-io/litter"

	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// EventType names the events a Collection fires (spec §4.5). Modeled as an
// explicit listener registry rather than reaching for a generic pub/sub
// package, since nothing in the retrieved examples pulls one in for this
// shape of in-process fan-out (spec §9 "Event emitter").
type EventType int

const (
	EventAdd EventType = iota
	EventDelete
	EventChange
	EventPropertyChanged
)

// Listener receives an event; previous is non-nil only for EventChange,
// carrying the pre-slide/pre-modify snapshot. local reports whether this
// side originated the change.
type Listener func(iv, previous *Interval, local bool)

// Collection is the public surface layered over LocalCollection: op
// emission/ack, pending-change FIFO queues per spec §4.4, and event
// delivery (spec §4.5).
type Collection struct {
	doc               *mergetree.Document
	local             *LocalCollection
	submit            func(op any)
	stickinessEnabled bool

	listeners map[EventType][]Listener

	// pendingStart/pendingEnd hold, per interval id, the localSeq of every
	// local change to that endpoint not yet acked. While non-empty, an
	// inbound remote change to the same endpoint is suppressed: local
	// wins until ack (spec §4.4).
	pendingStart map[string][]int
	pendingEnd   map[string][]int

	localSeqToSerialized map[int]Serialized

	// localSeqCounter is this Collection's own monotonic op counter (spec §5
	// guarantee 1, "strictly increasing local-seq values"). It is distinct
	// from the document's LocalSeq, which only advances on text edits: two
	// interval ops submitted back to back with no intervening text edit must
	// still draw different local-seq values.
	localSeqCounter int

	// pending holds, in submission order, every local add and endpoint
	// change not yet acked, so onNormalize can rebase and resubmit them on
	// reconnect (spec §4.6). Deletes and property-only changes are not
	// recorded here, so reconnect does not resubmit them.
	pending []pendingOp

	// convergedIDs records every interval id a remote add arrived for while
	// this side already held an interval under that same id (e.g. two
	// offline clients independently creating the same legacy id). Consulted
	// by dropConvergedPendingAdds on reconnect to prune any now-redundant
	// pending local add instead of resubmitting it (spec §4.6 "advanced
	// over").
	convergedIDs map[string]bool
}

type pendingOp struct {
	name     string
	op       any
	localSeq int
}

// nextLocalSeq draws this Collection's next strictly-increasing local-seq
// value (spec §5 guarantee 1).
func (c *Collection) nextLocalSeq() int {
	c.localSeqCounter++
	return c.localSeqCounter
}

// Serialize builds a full V2 snapshot of this Collection's intervals (spec
// §4.4/§6).
func (c *Collection) Serialize() SerializedCollectionV2 {
	return c.local.Serialize(c.serialize)
}

// Store is the §6 companion to NewCollectionFromSerialized: a named alias
// for Serialize so the store/load round trip reads the way the spec names
// it (spec §8 "load(store(c)) == c").
func (c *Collection) Store() SerializedCollectionV2 {
	return c.Serialize()
}

// Load populates this Collection from a V2 snapshot, skipping any interval
// whose id is already present (idempotent against a snapshot this
// Collection already holds).
func (c *Collection) Load(snapshot SerializedCollectionV2) error {
	for _, s := range snapshot.Intervals {
		if _, err := c.loadOne(s); err != nil {
			return err
		}
	}
	return nil
}

// LoadV1 upgrades a legacy array-form snapshot to V2 before loading it
// (spec §6 "V1 inbound parsing").
func (c *Collection) LoadV1(legacy []SerializedV1) error {
	intervals := make([]Serialized, 0, len(legacy))
	for _, v := range legacy {
		intervals = append(intervals, FromV1(v))
	}
	return c.Load(SerializedCollectionV2{Label: c.local.Label(), Intervals: intervals})
}

func (c *Collection) loadOne(s Serialized) (*Interval, error) {
	id := ensureSerializedID(s)
	if _, ok := c.local.GetIntervalById(id); ok {
		return nil, nil
	}
	iv, err := NewSequenceInterval(c.doc, c.local.Label(), s.Start, s.End, s.IntervalType, true, s.Stickiness, s.Properties)
	if err != nil {
		return nil, err
	}
	iv.assignID(id)
	if err := c.local.AddInterval(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// NewCollectionFromSerialized is the §6 value factory: build a fresh
// Collection from a document and populate it from a V2 snapshot in one
// step.
func NewCollectionFromSerialized(doc *mergetree.Document, label string, submit func(op any), snapshot SerializedCollectionV2) (*Collection, error) {
	c := NewCollection(doc, label, submit)
	if err := c.Load(snapshot); err != nil {
		return nil, err
	}
	return c, nil
}

// DebugDump renders every interval this Collection currently holds via
// litter, the same deep-dump tool the teacher's main.go uses for ad hoc
// inspection (SPEC_FULL.md §1).
func (c *Collection) DebugDump() string {
	return litter.Sdump(c.Serialize())
}

func NewCollection(doc *mergetree.Document, label string, submit func(op any)) *Collection {
	c := &Collection{
		doc:                   doc,
		local:                 NewLocalCollection(label, KindSequence, doc),
		submit:                submit,
		stickinessEnabled:     true,
		listeners:             map[EventType][]Listener{},
		pendingStart:          map[string][]int{},
		pendingEnd:            map[string][]int{},
		localSeqToSerialized:  map[int]Serialized{},
		convergedIDs:          map[string]bool{},
	}
	c.local.onPositionChange = func(iv, previous *Interval) {
		c.emit(EventChange, iv, previous, false)
	}
	doc.OnNormalize(c.onNormalize)
	return c
}

func (c *Collection) On(evt EventType, fn Listener) {
	c.listeners[evt] = append(c.listeners[evt], fn)
}

func (c *Collection) emit(evt EventType, iv, previous *Interval, local bool) {
	for _, fn := range c.listeners[evt] {
		fn(iv, previous, local)
	}
}

func (c *Collection) AttachIndex(idx ExtraIndex)      { c.local.AppendIndex(idx) }
func (c *Collection) DetachIndex(idx ExtraIndex) bool { return c.local.RemoveIndex(idx) }

func (c *Collection) GetIntervalById(id string) (*Interval, bool) { return c.local.GetIntervalById(id) }
func (c *Collection) All() []*Interval                            { return c.local.All() }

func (c *Collection) FindIntervalsWithStartInRange(lo, hi int) []*Interval {
	return c.local.FindIntervalsWithStartInRange(lo, hi)
}

func (c *Collection) FindIntervalsWithEndInRange(lo, hi int) []*Interval {
	return c.local.FindIntervalsWithEndInRange(lo, hi)
}

func (c *Collection) FindOverlappingIntervals(startPos, endPos int) []*Interval {
	return c.local.FindOverlappingIntervals(startPos, endPos)
}

// SetStickinessEnabled gates spec §4.2's opt-in Stickiness feature: when
// disabled, every new interval is forced to the legacy StickinessEnd
// default regardless of what the caller requests.
func (c *Collection) SetStickinessEnabled(v bool) { c.stickinessEnabled = v }

// Add creates, locally applies, and submits a new Sequence Interval (spec
// §4.5 add). The interval is immediately visible to local queries under
// StayOnRemove semantics; AckAdd later promotes it to SlideOnRemove.
func (c *Collection) Add(start, end int, intervalType IntervalType, stickiness Stickiness, props map[string]any) (*Interval, error) {
	if !c.stickinessEnabled {
		stickiness = StickinessEnd
	}
	iv, err := NewSequenceInterval(c.doc, c.local.Label(), start, end, intervalType, false, stickiness, props)
	if err != nil {
		return nil, err
	}
	iv.assignID(NewID())
	if err := c.local.AddInterval(iv); err != nil {
		return nil, err
	}

	localSeq := c.nextLocalSeq()
	s := c.serialize(iv)
	c.localSeqToSerialized[localSeq] = s
	op := AddOp{Serialized: s, LocalSeq: localSeq}
	c.pending = append(c.pending, pendingOp{name: opAdd, op: op, localSeq: localSeq})
	c.emit(EventAdd, iv, nil, true)
	if c.submit != nil {
		c.submit(op)
	}
	return iv, nil
}

// RemoveIntervalById removes an interval and submits a delete op (spec
// §4.5 removeIntervalById).
func (c *Collection) RemoveIntervalById(id string) (*Interval, error) {
	iv, ok := c.local.GetIntervalById(id)
	if !ok {
		return nil, usageErrorf("no interval with id %q", id)
	}
	c.local.RemoveExistingInterval(iv)
	localSeq := c.nextLocalSeq()
	op := DeleteOp{ID: id, LocalSeq: localSeq}
	c.emit(EventDelete, iv, nil, true)
	if c.submit != nil {
		c.submit(op)
	}
	return iv, nil
}

// Change mutates an interval's endpoints/stickiness and submits a change
// op (spec §4.5 change), pushing onto the per-endpoint pending-change FIFO
// so a concurrent remote change to the same endpoint defers to this one
// until it's acked.
func (c *Collection) Change(id string, newStart, newEnd *int, stickiness *Stickiness) (*Interval, error) {
	iv, ok := c.local.GetIntervalById(id)
	if !ok {
		return nil, usageErrorf("no interval with id %q", id)
	}
	next, err := c.local.ChangeInterval(iv, newStart, newEnd, true, stickiness)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return iv, nil
	}

	localSeq := c.nextLocalSeq()
	if newStart != nil {
		c.pendingStart[id] = append(c.pendingStart[id], localSeq)
	}
	if newEnd != nil {
		c.pendingEnd[id] = append(c.pendingEnd[id], localSeq)
	}

	op := ChangeOp{ID: id, Start: newStart, End: newEnd, Stickiness: stickiness, LocalSeq: localSeq}
	c.pending = append(c.pending, pendingOp{name: opChange, op: op, localSeq: localSeq})
	c.emit(EventChange, next, iv, true)
	if c.submit != nil {
		c.submit(op)
	}
	return next, nil
}

// ChangeProperties merges props into an interval's property bag under
// last-writer-wins-by-sequence-number semantics (spec §4.5
// changeProperties / property-manager).
func (c *Collection) ChangeProperties(id string, props map[string]any) (*Interval, error) {
	iv, ok := c.local.GetIntervalById(id)
	if !ok {
		return nil, usageErrorf("no interval with id %q", id)
	}
	deltas := iv.propMgr.ApplyProperties(props, UnassignedSeq, iv.properties)
	if len(deltas) == 0 {
		return iv, nil
	}
	localSeq := c.nextLocalSeq()
	op := ChangeOp{ID: id, Properties: deltas, LocalSeq: localSeq}
	c.emit(EventPropertyChanged, iv, nil, true)
	if c.submit != nil {
		c.submit(op)
	}
	return iv, nil
}

// AckAdd promotes a locally-created interval's endpoints from
// StayOnRemove to SlideOnRemove once the add op returns with a real
// sequence number (spec §4.5 ackInterval).
func (c *Collection) AckAdd(localSeq, seq int) error {
	s, ok := c.localSeqToSerialized[localSeq]
	if !ok {
		return nil
	}
	delete(c.localSeqToSerialized, localSeq)
	c.popPendingOp(localSeq)
	iv, ok := c.local.GetIntervalById(s.ID)
	if !ok {
		return nil
	}
	promoted, err := NewSequenceInterval(c.doc, c.local.Label(), iv.StartPos(), iv.EndPos(), iv.intervalType, true, iv.stickiness, iv.properties)
	if err != nil {
		return err
	}
	promoted.id, promoted.idSet = iv.id, true
	promoted.propMgr = iv.propMgr
	promoted.propMgr.AckPendingProperties(seq)
	c.local.RemoveExistingInterval(iv)
	if err := c.local.AddInterval(promoted); err != nil {
		return err
	}
	// §4.5 ack-slide: promotion from StayOnRemove to SlideOnRemove is a
	// local, slide-driven change even though the position didn't move.
	c.emit(EventChange, promoted, iv, true)
	return nil
}

func (c *Collection) popPendingOp(localSeq int) {
	for i, p := range c.pending {
		if p.localSeq == localSeq {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// AckChange pops the acknowledged local change off the per-endpoint
// pending FIFO it was pushed onto at submission time.
func (c *Collection) AckChange(id string, localSeq int, hasStart, hasEnd bool) {
	if hasStart {
		popPending(c.pendingStart, id, localSeq)
	}
	if hasEnd {
		popPending(c.pendingEnd, id, localSeq)
	}
	c.popPendingOp(localSeq)
}

func popPending(queues map[string][]int, id string, localSeq int) {
	q := queues[id]
	for i, s := range q {
		if s == localSeq {
			queues[id] = append(q[:i], q[i+1:]...)
			return
		}
	}
}

// AckDelete is a no-op: a delete is applied optimistically at submission
// time and its rebase is identity, so ack has nothing further to do (spec
// §4.6 "delete's rebase is identity").
func (c *Collection) AckDelete(id string) {}

// ApplyRemoteAdd applies an inbound add from another client, dispatching
// through the §6 ops map. It's a thin wrapper kept for callers that already
// know they're handling an add (main.go's relay, the tests' peer relay).
func (c *Collection) ApplyRemoteAdd(s Serialized) (*Interval, error) {
	iv, err := opHandlers[opAdd].process(c, AddOp{Serialized: s}, false)
	return iv, err
}

// ApplyRemoteDelete removes an interval by id on behalf of a remote peer.
func (c *Collection) ApplyRemoteDelete(id string) {
	_, _ = opHandlers[opDelete].process(c, DeleteOp{ID: id}, false)
}

// ApplyRemoteChange applies an inbound change, deferring to a still-pending
// local change on the same endpoint rather than overwriting it (spec
// §4.4).
func (c *Collection) ApplyRemoteChange(op ChangeOp) (*Interval, error) {
	return opHandlers[opChange].process(c, op, false)
}

// applyRemoteAdd is opAdd's process function: skip if an interval with the
// same id is already present (the local optimistic copy of this exact
// add), synthesizing a legacy id first when the wire form omitted one
// (spec §4.4/§4.5 ackAdd "ensureSerializedId").
func (c *Collection) applyRemoteAdd(s Serialized) (*Interval, error) {
	s.ID = ensureSerializedID(s)
	if _, ok := c.local.GetIntervalById(s.ID); ok {
		c.convergedIDs[s.ID] = true
		return nil, nil
	}
	iv, err := NewSequenceInterval(c.doc, c.local.Label(), s.Start, s.End, s.IntervalType, true, s.Stickiness, s.Properties)
	if err != nil {
		return nil, err
	}
	iv.assignID(s.ID)
	if err := c.local.AddInterval(iv); err != nil {
		return nil, err
	}
	c.emit(EventAdd, iv, nil, false)
	return iv, nil
}

// applyRemoteDelete is opDelete's process function.
func (c *Collection) applyRemoteDelete(id string) (*Interval, error) {
	iv, ok := c.local.GetIntervalById(id)
	if !ok {
		return nil, nil
	}
	c.local.RemoveExistingInterval(iv)
	c.emit(EventDelete, iv, nil, false)
	return iv, nil
}

// applyRemoteChange is opChange's process function.
func (c *Collection) applyRemoteChange(op ChangeOp) (*Interval, error) {
	iv, ok := c.local.GetIntervalById(op.ID)
	if !ok {
		return nil, nil
	}

	start, end := op.Start, op.End
	if start != nil && len(c.pendingStart[op.ID]) > 0 {
		start = nil
	}
	if end != nil && len(c.pendingEnd[op.ID]) > 0 {
		end = nil
	}
	if len(op.Properties) > 0 {
		iv.propMgr.ApplyProperties(op.Properties, op.LocalSeq, iv.properties)
		c.emit(EventPropertyChanged, iv, nil, false)
	}
	if start == nil && end == nil && op.Stickiness == nil {
		return iv, nil
	}
	next, err := c.local.ChangeInterval(iv, start, end, false, op.Stickiness)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return iv, nil
	}
	c.emit(EventChange, next, iv, false)
	return next, nil
}

// ensureSerializedID synthesizes the deterministic legacy id for an inbound
// Serialized value that omitted one (spec §4.4/§4.5 "ensureSerializedId").
func ensureSerializedID(s Serialized) string {
	if s.ID != "" {
		return s.ID
	}
	return LegacyID(s.Start, s.End)
}

// onNormalize rebases every locally-held interval, then every still-pending
// local op against the interval's rebased position, once the document
// reconnects (spec §4.6, fired from mergetree's "normalize" event).
func (c *Collection) onNormalize() {
	localSeq := c.doc.GetCollabWindow().LocalSeq
	for _, iv := range c.local.All() {
		rebased, err := RebaseLocalInterval(c.doc, iv, localSeq)
		if err != nil {
			continue
		}
		c.local.RemoveExistingInterval(iv)
		_ = c.local.AddInterval(rebased)
	}

	c.dropConvergedPendingAdds()

	for i, p := range c.pending {
		handler, ok := opHandlers[p.name]
		if !ok || handler.rebase == nil {
			continue
		}
		rebasedOp := handler.rebase(c, p.op)
		c.pending[i].op = rebasedOp
		if c.submit != nil {
			c.submit(rebasedOp)
		}
	}
}

// dropConvergedPendingAdds prunes any pending local add whose id a remote
// peer already converged on while this side was disconnected (recorded in
// convergedIDs, spec §4.6 "advanced over"): resubmitting it would just
// reapply a duplicate add the target branch already carries. This is a
// simple membership filter, not a commit-graph rebase — the pending queue
// isn't a branch being rebased onto a foreign target here, just a list
// with some entries now known redundant — so it doesn't go through
// RebaseBranch (see rebase_test.go for that machinery exercised directly
// against spec §8 Scenario 6's commit-graph shape).
func (c *Collection) dropConvergedPendingAdds() {
	if len(c.convergedIDs) == 0 || len(c.pending) == 0 {
		return
	}

	kept := make([]pendingOp, 0, len(c.pending))
	for _, p := range c.pending {
		add, ok := p.op.(AddOp)
		if ok && c.convergedIDs[ensureSerializedID(add.Serialized)] {
			continue
		}
		kept = append(kept, p)
	}
	c.pending = kept
	c.convergedIDs = map[string]bool{}
}

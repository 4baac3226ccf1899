package interval

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// Kind tags which of the two Interval variants a value is. Modeled as a
// tagged union rather than an inheritance hierarchy (spec §9 "Dynamic
// dispatch over interval kind"): every site that would otherwise ask "is
// this a Sequence Interval?" switches on Kind instead.
type Kind int

const (
	KindNumeric Kind = iota
	KindSequence
)

// IntervalType mirrors spec §3's interval-type enumeration.
type IntervalType int

const (
	Simple IntervalType = iota
	Nest
	SlideOnRemoveType
	TransientType
)

// Stickiness is the 2-bit bitmask from spec §3.
type Stickiness int

const (
	StickinessNone  Stickiness = 0
	StickinessStart Stickiness = 1 << 0
	StickinessEnd   Stickiness = 1 << 1
	StickinessFull  Stickiness = StickinessStart | StickinessEnd
)

// refFlags are the PositionReference flags consumed by mergetree.Reference
// as an opaque refType (spec §4.1).
type refFlags int

const (
	flagRangeBegin refFlags = 1 << iota
	flagRangeEnd
	flagNestBegin
	flagNestEnd
	flagSlideOnRemove
	flagStayOnRemove
	flagTransient
)

func (f refFlags) has(bit refFlags) bool { return f&bit != 0 }

// Endpoint is one side of an Interval: either a raw integer (Numeric
// variant) or a PositionReference (Sequence variant), tagged by kind so all
// comparators dispatch rather than type-switch on an interface.
type Endpoint struct {
	kind    Kind
	numeric int
	ref     *mergetree.Reference
	doc     *mergetree.Document
}

// Pos resolves the endpoint's current numeric position. For a detached
// Sequence endpoint this is mergetree.DetachedPosition.
func (e Endpoint) Pos() int {
	if e.kind == KindNumeric {
		return e.numeric
	}
	return e.doc.Resolve(e.ref)
}

// Ref returns the underlying PositionReference of a Sequence endpoint.
func (e Endpoint) Ref() *mergetree.Reference { return e.ref }

func endpointCompare(a, b Endpoint) int {
	pa, pb := a.Pos(), b.Pos()
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// Interval is the tagged-variant pair-of-endpoints-plus-properties (spec §3).
type Interval struct {
	kind         Kind
	id           string
	idSet        bool
	intervalType IntervalType
	stickiness   Stickiness
	start        Endpoint
	end          Endpoint
	properties   map[string]any
	propMgr      *PropertyManager
}

const (
	PropIntervalID  = "intervalId"
	PropRangeLabels = "rangeLabels"
)

// NewID returns a fresh CSPRNG-backed v4 UUID, per spec §9.
func NewID() string { return uuid.NewString() }

// LegacyID synthesizes the deterministic id used when inbound data omits
// one, so every site agrees on the id of an unlabeled legacy interval.
func LegacyID(start, end int) string { return fmt.Sprintf("legacy%d-%d", start, end) }

func (iv *Interval) Kind() Kind                 { return iv.kind }
func (iv *Interval) ID() string                 { return iv.id }
func (iv *Interval) Type() IntervalType         { return iv.intervalType }
func (iv *Interval) Stickiness() Stickiness     { return iv.stickiness }
func (iv *Interval) Start() Endpoint            { return iv.start }
func (iv *Interval) End() Endpoint              { return iv.end }
func (iv *Interval) StartPos() int              { return iv.start.Pos() }
func (iv *Interval) EndPos() int                { return iv.end.Pos() }
func (iv *Interval) Properties() map[string]any { return iv.properties }

// assignID sets the interval's id once. Invariant (2) of spec §3: id is
// present once attached to a collection and immutable thereafter.
func (iv *Interval) assignID(id string) {
	assert(!iv.idSet, "interval id reassigned after it was already set")
	iv.id = id
	iv.idSet = true
	if iv.properties == nil {
		iv.properties = map[string]any{}
	}
	iv.properties[PropIntervalID] = id
}

// Overlaps implements spec §4.2: compare(this.start,b.end)<=0 &&
// compare(this.end,b.start)>=0.
func (iv *Interval) Overlaps(b *Interval) bool {
	return endpointCompare(iv.start, b.end) <= 0 && endpointCompare(iv.end, b.start) >= 0
}

// --- Numeric variant ---

// NewNumericInterval builds a Numeric Interval; comparator is numeric
// subtraction with id lexicographic tie-break, applied by the indices.
func NewNumericInterval(start, end int, stickiness Stickiness, props map[string]any) *Interval {
	return &Interval{
		kind:       KindNumeric,
		stickiness: stickiness,
		start:      Endpoint{kind: KindNumeric, numeric: start},
		end:        Endpoint{kind: KindNumeric, numeric: end},
		properties: cloneProps(props),
		propMgr:    NewPropertyManager(),
	}
}

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// --- Sequence variant ---

func slidingPrefFor(stick Stickiness, atStart bool) mergetree.SlidingPreference {
	bit := StickinessEnd
	if atStart {
		bit = StickinessStart
	}
	if stick&bit != 0 {
		return mergetree.SlideBackward
	}
	return mergetree.SlideForward
}

// NewSequenceInterval builds a Sequence Interval per spec §4.2: the start
// and end references are created according to intervalType and whether
// this creation is from an acked op / snapshot (OR SlideOnRemove) or purely
// local (OR StayOnRemove, promoted on ack — see collection.go ackInterval).
func NewSequenceInterval(doc *mergetree.Document, label string, startPos, endPos int, intervalType IntervalType, acked bool, stickiness Stickiness, props map[string]any) (*Interval, error) {
	if intervalType == TransientType {
		startRef, err := newRef(doc, startPos, flagTransient, slidingPrefFor(stickiness, true))
		if err != nil {
			return nil, err
		}
		endRef, err := newRef(doc, endPos, flagTransient, slidingPrefFor(stickiness, false))
		if err != nil {
			return nil, err
		}
		return assembleSequenceInterval(doc, startRef, endRef, intervalType, stickiness, label, props), nil
	}

	beginFlag, endFlag := flagRangeBegin, flagRangeEnd
	if intervalType == Nest {
		beginFlag, endFlag = flagNestBegin, flagNestEnd
	}
	lifecycle := flagStayOnRemove
	if acked {
		lifecycle = flagSlideOnRemove
	}

	startRef, err := newRef(doc, startPos, beginFlag|lifecycle, slidingPrefFor(stickiness, true))
	if err != nil {
		return nil, err
	}
	endRef, err := newRef(doc, endPos, endFlag|lifecycle, slidingPrefFor(stickiness, false))
	if err != nil {
		return nil, err
	}
	return assembleSequenceInterval(doc, startRef, endRef, intervalType, stickiness, label, props), nil
}

func newRef(doc *mergetree.Document, pos int, flags refFlags, pref mergetree.SlidingPreference) (*mergetree.Reference, error) {
	seg, offset, err := doc.GetContainingSegment(pos)
	if err != nil {
		return nil, err
	}
	return doc.CreateLocalReferencePosition(seg, offset, int(flags), pref), nil
}

func assembleSequenceInterval(doc *mergetree.Document, startRef, endRef *mergetree.Reference, intervalType IntervalType, stickiness Stickiness, label string, props map[string]any) *Interval {
	merged := cloneProps(props)
	if label != "" {
		merged[PropRangeLabels] = []string{label}
	}
	return &Interval{
		kind:         KindSequence,
		intervalType: intervalType,
		stickiness:   stickiness,
		start:        Endpoint{kind: KindSequence, ref: startRef, doc: doc},
		end:          Endpoint{kind: KindSequence, ref: endRef, doc: doc},
		properties:   merged,
		propMgr:      NewPropertyManager(),
	}
}

// Modify constructs a *new* Sequence Interval reflecting the requested
// endpoint changes (spec §4.2 modify). Endpoints that aren't changing reuse
// their existing reference; changed endpoints get a fresh reference with
// the sliding preference derived from stickiness. When local (op == nil)
// the new references are forced StayOnRemove, pending ack.
func (iv *Interval) Modify(doc *mergetree.Document, newStart, newEnd *int, local bool, stickiness *Stickiness) (*Interval, error) {
	assert(iv.kind == KindSequence, "Modify called on a non-Sequence interval")

	stick := iv.stickiness
	if stickiness != nil {
		stick = *stickiness
	}

	startRef := iv.start.ref
	if newStart != nil {
		flags := refFlags(startRef.RefType())
		flags &^= flagSlideOnRemove | flagStayOnRemove
		if local {
			flags |= flagStayOnRemove
		} else {
			flags |= flagSlideOnRemove
		}
		r, err := newRef(doc, *newStart, flags, slidingPrefFor(stick, true))
		if err != nil {
			return nil, err
		}
		startRef = r
	}

	endRef := iv.end.ref
	if newEnd != nil {
		flags := refFlags(endRef.RefType())
		flags &^= flagSlideOnRemove | flagStayOnRemove
		if local {
			flags |= flagStayOnRemove
		} else {
			flags |= flagSlideOnRemove
		}
		r, err := newRef(doc, *newEnd, flags, slidingPrefFor(stick, false))
		if err != nil {
			return nil, err
		}
		endRef = r
	}

	out := &Interval{
		kind:         iv.kind,
		id:           iv.id,
		idSet:        iv.idSet,
		intervalType: iv.intervalType,
		stickiness:   stick,
		start:        Endpoint{kind: KindSequence, ref: startRef, doc: doc},
		end:          Endpoint{kind: KindSequence, ref: endRef, doc: doc},
		properties:   cloneProps(iv.properties),
		propMgr:      iv.propMgr.Clone(),
	}
	return out, nil
}

package interval

// Serialized is the wire form of an Interval (spec §4.5 "SerializedIntervalV2"
// — the primary payload; legacy V1 payloads are read through SerializedV1
// and FromV1 below). Stickiness is always carried, including the
// StickinessEnd default; it is not omitted when it equals StickinessEnd.
type Serialized struct {
	ID           string
	Label        string
	Start        int
	End          int
	IntervalType IntervalType
	Stickiness   Stickiness
	Properties   map[string]any
}

func (c *Collection) serialize(iv *Interval) Serialized {
	props := cloneProps(iv.properties)
	label := ""
	if labels, ok := props[PropRangeLabels].([]string); ok && len(labels) > 0 {
		label = labels[0]
	}
	// §6 compression rule: rangeLabels is stripped from Properties, stored
	// once in Label instead.
	delete(props, PropRangeLabels)
	s := Serialized{
		ID:           iv.id,
		Label:        label,
		Start:        iv.StartPos(),
		End:          iv.EndPos(),
		IntervalType: iv.intervalType,
		Properties:   props,
	}
	if iv.stickiness != StickinessEnd {
		s.Stickiness = iv.stickiness
	} else {
		s.Stickiness = StickinessEnd
	}
	return s
}

// SerializedCollectionV2 is the wire/snapshot form of an entire
// LocalCollection (spec §4.4 "LocalCollection.serialize() ->
// SerializedCollectionV2"): every interval's V2 payload, in no particular
// order (order is reconstructed from each Interval's own position on load).
type SerializedCollectionV2 struct {
	Label     string
	Intervals []Serialized
}

// SerializedV1 is the legacy bare-array wire form: [start, end, intervalType]
// plus whatever properties/id happened to ride along. ID may be empty, in
// which case loading synthesizes the deterministic legacy id from Start/End
// (spec §6 "V1 inbound parsing").
type SerializedV1 struct {
	ID           string
	Start        int
	End          int
	IntervalType IntervalType
	Properties   map[string]any
}

// FromV1 upgrades a legacy V1 payload to the V2 shape, synthesizing an id
// when the source omitted one and defaulting Stickiness to StickinessEnd,
// matching the legacy "stays put" behavior V1 never had a bit for.
func FromV1(v SerializedV1) Serialized {
	s := Serialized{
		ID:           v.ID,
		Start:        v.Start,
		End:          v.End,
		IntervalType: v.IntervalType,
		Stickiness:   StickinessEnd,
		Properties:   cloneProps(v.Properties),
	}
	s.ID = ensureSerializedID(s)
	return s
}

// AddOp is the wire payload for a local add, carried through ack (spec §4.5
// "add op").
type AddOp struct {
	Serialized Serialized
	LocalSeq   int
}

// DeleteOp is the wire payload for a removal by id. Rebase is the identity
// transform: a delete never needs repositioning (spec §4.6 "delete's
// rebase is identity").
type DeleteOp struct {
	ID       string
	LocalSeq int
}

// ChangeOp is the wire payload for an endpoint/stickiness/property mutation.
// Start/End/Stickiness are nil when that facet is unchanged by this op.
type ChangeOp struct {
	ID         string
	Start      *int
	End        *int
	Stickiness *Stickiness
	Properties map[string]any
	LocalSeq   int
}

// opHandler pairs the local-apply and rebase behavior of one op kind, the
// shape spec §6 describes as "an ops map registering three op handlers
// keyed by op name", each with process(collection, params, local, op,
// localOpMetadata) and rebase(collection, op, localOpMetadata). local-op
// metadata in this module is just the op value itself (AddOp/DeleteOp/
// ChangeOp already carry their own localSeq), so the signatures below
// collapse to (collection, op, local) and (collection, op).
type opHandler struct {
	process func(c *Collection, op any, local bool) (*Interval, error)
	rebase  func(c *Collection, op any) any
}

const (
	opAdd    = "add"
	opDelete = "delete"
	opChange = "change"
)

// opHandlers is the §6 ops map: every inbound op and every reconnect
// rebase of a still-pending local op is dispatched through this table
// instead of a type switch sprinkled through Collection.
var opHandlers = map[string]opHandler{
	opAdd: {
		process: func(c *Collection, op any, local bool) (*Interval, error) {
			return c.applyRemoteAdd(op.(AddOp).Serialized)
		},
		rebase: func(c *Collection, op any) any {
			a := op.(AddOp)
			iv, ok := c.local.GetIntervalById(ensureSerializedID(a.Serialized))
			if !ok {
				return a
			}
			a.Serialized = c.serialize(iv)
			return a
		},
	},
	opDelete: {
		process: func(c *Collection, op any, local bool) (*Interval, error) {
			return c.applyRemoteDelete(op.(DeleteOp).ID)
		},
		// delete's rebase is identity: removing the same id is unaffected by
		// anything that happened while disconnected (spec §4.6).
		rebase: func(c *Collection, op any) any { return op },
	},
	opChange: {
		process: func(c *Collection, op any, local bool) (*Interval, error) {
			return c.applyRemoteChange(op.(ChangeOp))
		},
		rebase: func(c *Collection, op any) any {
			ch := op.(ChangeOp)
			iv, ok := c.local.GetIntervalById(ch.ID)
			if !ok {
				return ch
			}
			if ch.Start != nil {
				p := iv.StartPos()
				ch.Start = &p
			}
			if ch.End != nil {
				p := iv.EndPos()
				ch.End = &p
			}
			return ch
		},
	},
}

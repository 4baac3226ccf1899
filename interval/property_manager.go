package interval

// UnassignedSeq marks a property value set locally but not yet acked (spec
// §4.5 changeProperties: "Unassigned sequence number").
const UnassignedSeq = -1

// PropertyManager tracks, per property key, the sequence number of the
// value currently applied, so concurrent property changes converge by
// highest-sequence-number-wins rather than op-arrival-order (spec §3
// "property-manager: tracks pending property annotations by sequence
// number").
type PropertyManager struct {
	seqs map[string]int
}

func NewPropertyManager() *PropertyManager {
	return &PropertyManager{seqs: map[string]int{}}
}

func (pm *PropertyManager) Clone() *PropertyManager {
	out := NewPropertyManager()
	for k, v := range pm.seqs {
		out.seqs[k] = v
	}
	return out
}

// ApplyProperties writes props into target, honoring the seq ordering
// rule, and returns the deltas actually applied.
func (pm *PropertyManager) ApplyProperties(props map[string]any, seq int, target map[string]any) map[string]any {
	deltas := map[string]any{}
	for k, v := range props {
		cur, known := pm.seqs[k]
		if known && seq != UnassignedSeq && seq < cur {
			continue // stale remote value behind what's already applied
		}
		target[k] = v
		deltas[k] = v
		pm.seqs[k] = seq
	}
	return deltas
}

// AckPendingProperties confirms every UnassignedSeq entry at the given
// sequence number, once the local change that set it is acked.
func (pm *PropertyManager) AckPendingProperties(seq int) {
	for k, s := range pm.seqs {
		if s == UnassignedSeq {
			pm.seqs[k] = seq
		}
	}
}

// HasPending reports whether any property is still awaiting ack.
func (pm *PropertyManager) HasPending() bool {
	for _, s := range pm.seqs {
		if s == UnassignedSeq {
			return true
		}
	}
	return false
}

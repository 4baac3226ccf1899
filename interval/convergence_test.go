package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// TestConvergence_BasicSlideAfterRemoval is spec §8 Scenario 1: removing
// text inside an interval moves its end to the same resolved position on
// both clients, and A observes the new position before B has merged.
func TestConvergence_BasicSlideAfterRemoval(t *testing.T) {
	alice := newPeer("alice")
	bob := newPeer("bob")
	connectPeers(alice, bob)

	alice.doc.LocalInsert(0, "ABCD")
	bob.doc.MergeFrom(alice.doc)

	iv, err := alice.coll.Add(1, 3, Simple, StickinessEnd, nil)
	require.NoError(t, err)

	alice.doc.LocalDelete(2, 1) // removes "C" ([2,3))

	assert.Equal(t, 1, iv.StartPos())
	assert.Equal(t, 2, iv.EndPos())

	bob.doc.MergeFrom(alice.doc)
	remote, ok := bob.coll.GetIntervalById(iv.ID())
	require.True(t, ok)
	assert.Equal(t, 1, remote.StartPos())
	assert.Equal(t, 2, remote.EndPos())
}

// TestConvergence_LocalChangeWinsAcrossInterleaving is spec §8 Scenario 3:
// alternating local/remote changes to the same interval id, where a remote
// change arriving while a local change is still unacked must be ignored
// (spec §5 guarantee 3), leaves A observing only its own two changes.
func TestConvergence_LocalChangeWinsAcrossInterleaving(t *testing.T) {
	// alice's submit does not ack, so each local change stays pending until
	// the test acks it explicitly below.
	alice := &peer{doc: mergetree.NewDocument("alice")}
	alice.coll = NewCollection(alice.doc, "comments", func(op any) {})
	alice.doc.LocalInsert(0, "0123456789")

	iv, err := NewSequenceInterval(alice.doc, "comments", 0, 0, Simple, true, StickinessEnd, nil)
	require.NoError(t, err)
	iv.assignID("I")
	require.NoError(t, alice.coll.local.AddInterval(iv))

	var observed [][2]int
	alice.coll.On(EventChange, func(cur, _ *Interval, local bool) {
		if local {
			observed = append(observed, [2]int{cur.StartPos(), cur.EndPos()})
		}
	})

	// B's first change arrives as a remote op; A has no pending change yet,
	// so it applies.
	bStart1, bEnd1 := 1, 1
	_, err = alice.coll.ApplyRemoteChange(ChangeOp{ID: "I", Start: &bStart1, End: &bEnd1})
	require.NoError(t, err)

	// A changes locally to (2,2); this is now pending-unacked.
	aStart1, aEnd1 := 2, 2
	_, err = alice.coll.Change("I", &aStart1, &aEnd1, nil)
	require.NoError(t, err)

	// B's second change arrives while A's own change is still unacked: per
	// spec §5 guarantee 3 it must be suppressed.
	bStart2, bEnd2 := 3, 3
	_, err = alice.coll.ApplyRemoteChange(ChangeOp{ID: "I", Start: &bStart2, End: &bEnd2})
	require.NoError(t, err)

	got, ok := alice.coll.GetIntervalById("I")
	require.True(t, ok)
	assert.Equal(t, 2, got.StartPos())
	assert.Equal(t, 2, got.EndPos())

	// Ack A's pending change, then A changes locally again to (4,4).
	for _, p := range alice.coll.pending {
		if ch, ok := p.op.(ChangeOp); ok && ch.ID == "I" {
			alice.coll.AckChange("I", p.localSeq, true, true)
		}
	}

	aStart2, aEnd2 := 4, 4
	_, err = alice.coll.Change("I", &aStart2, &aEnd2, nil)
	require.NoError(t, err)

	require.Len(t, observed, 2)
	assert.Equal(t, [2]int{2, 2}, observed[0])
	assert.Equal(t, [2]int{4, 4}, observed[1])
}

// TestConvergence_ReconnectRebasesPendingAdd is spec §8 Scenario 5: an
// interval created while offline is repositioned by RebaseLocalInterval
// once reconnect fires normalize, after a concurrent remote insertion
// shifted the text under its end endpoint.
func TestConvergence_ReconnectRebasesPendingAdd(t *testing.T) {
	alice := &peer{doc: mergetree.NewDocument("alice")}
	alice.coll = NewCollection(alice.doc, "comments", func(op any) {})
	alice.doc.LocalInsert(0, "hello friend")

	alice.doc.SetConnected(false)
	iv, err := alice.coll.Add(6, 8, Simple, StickinessEnd, nil)
	require.NoError(t, err)

	bob := mergetree.NewDocument("bob")
	bob.MergeFrom(alice.doc)
	bob.LocalInsert(7, "amily its my f")

	alice.doc.MergeFrom(bob)
	alice.doc.SetConnected(true)

	assert.Equal(t, 6, iv.StartPos())
	assert.Equal(t, 22, iv.EndPos())

	require.Len(t, alice.coll.pending, 1)
	rebased := alice.coll.pending[0].op.(AddOp)
	assert.Equal(t, 6, rebased.Serialized.Start)
	assert.Equal(t, 22, rebased.Serialized.End)
}

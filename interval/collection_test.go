package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// peer pairs a Document with a Collection whose submit hands ops straight
// to every connected peer, mirroring main.go's demo wiring.
type peer struct {
	doc   *mergetree.Document
	coll  *Collection
	peers []*peer
}

func newPeer(agent string) *peer {
	p := &peer{doc: mergetree.NewDocument(agent)}
	p.coll = NewCollection(p.doc, "comments", func(op any) { p.relay(op) })
	return p
}

func (p *peer) relay(op any) {
	switch o := op.(type) {
	case AddOp:
		_ = p.coll.AckAdd(o.LocalSeq, o.LocalSeq)
		for _, other := range p.peers {
			_, _ = other.coll.ApplyRemoteAdd(o.Serialized)
		}
	case DeleteOp:
		p.coll.AckDelete(o.ID)
		for _, other := range p.peers {
			other.coll.ApplyRemoteDelete(o.ID)
		}
	case ChangeOp:
		p.coll.AckChange(o.ID, o.LocalSeq, o.Start != nil, o.End != nil)
		for _, other := range p.peers {
			_, _ = other.coll.ApplyRemoteChange(o)
		}
	}
}

func connectPeers(peers ...*peer) {
	for _, p := range peers {
		for _, other := range peers {
			if other != p {
				p.peers = append(p.peers, other)
			}
		}
	}
}

func TestCollection_AddReplicatesToRemotePeer(t *testing.T) {
	alice := newPeer("alice")
	bob := newPeer("bob")
	connectPeers(alice, bob)

	alice.doc.LocalInsert(0, "hello world")
	bob.doc.MergeFrom(alice.doc)

	iv, err := alice.coll.Add(0, 4, Simple, StickinessEnd, map[string]any{"author": "alice"})
	require.NoError(t, err)

	remote, ok := bob.coll.GetIntervalById(iv.ID())
	require.True(t, ok)
	assert.Equal(t, iv.StartPos(), remote.StartPos())
	assert.Equal(t, iv.EndPos(), remote.EndPos())
}

func TestCollection_RemoteDeleteRemovesLocally(t *testing.T) {
	alice := newPeer("alice")
	bob := newPeer("bob")
	connectPeers(alice, bob)

	alice.doc.LocalInsert(0, "hello world")
	bob.doc.MergeFrom(alice.doc)

	iv, err := alice.coll.Add(0, 4, Simple, StickinessEnd, nil)
	require.NoError(t, err)

	_, err = alice.coll.RemoveIntervalById(iv.ID())
	require.NoError(t, err)

	_, ok := bob.coll.GetIntervalById(iv.ID())
	assert.False(t, ok)
}

func TestCollection_LocalChangeWinsOverConcurrentRemoteChange(t *testing.T) {
	// alice's submit does not ack, so her change below stays pending.
	alice := &peer{doc: mergetree.NewDocument("alice")}
	alice.coll = NewCollection(alice.doc, "comments", func(op any) {})
	bob := newPeer("bob")
	connectPeers(alice, bob)

	alice.doc.LocalInsert(0, "hello world")
	bob.doc.MergeFrom(alice.doc)

	iv, err := alice.coll.Add(0, 4, Simple, StickinessEnd, nil)
	require.NoError(t, err)

	// alice changes the end locally...
	newEnd := 6
	_, err = alice.coll.Change(iv.ID(), nil, &newEnd, nil)
	require.NoError(t, err)

	// ...meanwhile bob, unaware, submits a remote-looking change for the
	// same endpoint. Because alice's own change hasn't been acked yet, the
	// remote value must be ignored until ack (spec §4.4).
	staleEnd := 8
	alice.coll.ApplyRemoteChange(ChangeOp{ID: iv.ID(), End: &staleEnd, LocalSeq: 999})

	got, ok := alice.coll.GetIntervalById(iv.ID())
	require.True(t, ok)
	assert.Equal(t, newEnd, got.EndPos())
}

func TestCollection_ChangePropertiesMergesAndEmits(t *testing.T) {
	alice := newPeer("alice")
	alice.doc.LocalInsert(0, "hello world")

	iv, err := alice.coll.Add(0, 4, Simple, StickinessEnd, map[string]any{"color": "red"})
	require.NoError(t, err)

	var seen map[string]any
	alice.coll.On(EventPropertyChanged, func(cur, _ *Interval, local bool) {
		seen = cur.Properties()
	})

	_, err = alice.coll.ChangeProperties(iv.ID(), map[string]any{"color": "blue"})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "blue", seen["color"])
}

package main

import (
	"fmt"

	"github.com/kevinxiao27/mergetree-intervals/interval"
	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// site wires one peer's Document together with an interval.Collection whose
// submit callback hands the op straight to every other site, standing in
// for the network relay cmd/server provides for a real client.
type site struct {
	doc   *mergetree.Document
	coll  *interval.Collection
	peers []*site
}

func newSite(agent, label string) *site {
	s := &site{doc: mergetree.NewDocument(agent)}
	s.coll = interval.NewCollection(s.doc, label, func(op any) {
		s.broadcast(op)
	})
	return s
}

func (s *site) broadcast(op any) {
	switch o := op.(type) {
	case interval.AddOp:
		_ = s.coll.AckAdd(o.LocalSeq, o.LocalSeq)
		for _, p := range s.peers {
			_, _ = p.coll.ApplyRemoteAdd(o.Serialized)
		}
	case interval.DeleteOp:
		s.coll.AckDelete(o.ID)
		for _, p := range s.peers {
			p.coll.ApplyRemoteDelete(o.ID)
		}
	case interval.ChangeOp:
		s.coll.AckChange(o.ID, o.LocalSeq, o.Start != nil, o.End != nil)
		for _, p := range s.peers {
			_, _ = p.coll.ApplyRemoteChange(o)
		}
	}
}

func connect(sites ...*site) {
	for _, s := range sites {
		for _, other := range sites {
			if other != s {
				s.peers = append(s.peers, other)
			}
		}
	}
}

func main() {
	alice := newSite("alice", "comments")
	bob := newSite("bob", "comments")
	connect(alice, bob)

	alice.doc.LocalInsert(0, "hello world")
	bob.doc.MergeFrom(alice.doc)

	bob.doc.LocalInsert(5, ",")
	alice.doc.MergeFrom(bob.doc)

	fmt.Printf("alice: %q\n", string(alice.doc.Content()))
	fmt.Printf("bob:   %q\n", string(bob.doc.Content()))

	iv, err := alice.coll.Add(0, 4, interval.Simple, interval.StickinessEnd, map[string]any{"author": "alice"})
	if err != nil {
		fmt.Println("add failed:", err)
		return
	}
	fmt.Printf("alice created interval %s over [%d,%d]\n", iv.ID(), iv.StartPos(), iv.EndPos())

	if remote, ok := bob.coll.GetIntervalById(iv.ID()); ok {
		fmt.Printf("bob sees the same interval over [%d,%d]\n", remote.StartPos(), remote.EndPos())
	}

	alice.coll.On(interval.EventChange, func(cur, prev *interval.Interval, local bool) {
		fmt.Printf("interval %s slid to [%d,%d] (local=%v)\n", cur.ID(), cur.StartPos(), cur.EndPos(), local)
	})

	alice.doc.LocalInsert(0, ">> ")
	bob.doc.MergeFrom(alice.doc)

	fmt.Printf("alice: %q\n", string(alice.doc.Content()))
	fmt.Printf("bob:   %q\n", string(bob.doc.Content()))
}

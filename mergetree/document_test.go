package mergetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_LocalInsertAndContent(t *testing.T) {
	doc := NewDocument("alice")
	doc.LocalInsert(0, "hello")
	assert.Equal(t, "hello", string(doc.Content()))
}

func TestDocument_MergeFromConverges(t *testing.T) {
	alice := NewDocument("alice")
	bob := NewDocument("bob")

	alice.LocalInsert(0, "hi")
	bob.MergeFrom(alice)
	bob.LocalInsert(2, "!")
	alice.MergeFrom(bob)

	assert.Equal(t, string(alice.Content()), string(bob.Content()))
	assert.Equal(t, "hi!", string(alice.Content()))
}

func TestDocument_GetContainingSegment_RejectsPastEnd(t *testing.T) {
	doc := NewDocument("alice")
	doc.LocalInsert(0, "ab")

	_, _, err := doc.GetContainingSegment(2)
	assert.Error(t, err)

	_, _, err = doc.GetContainingSegment(5)
	assert.Error(t, err)
}

func TestDocument_ReferenceSlidesOnSegmentRemoval(t *testing.T) {
	doc := NewDocument("alice")
	doc.LocalInsert(0, "abc")

	seg, off, err := doc.GetContainingSegment(1) // 'b'
	require.NoError(t, err)
	ref := doc.CreateLocalReferencePosition(seg, off, 0, SlideForward)

	assert.Equal(t, 1, doc.Resolve(ref))

	doc.LocalDelete(1, 1) // remove 'b', ref should slide forward onto 'c'

	assert.Equal(t, "ac", string(doc.Content()))
	assert.False(t, ref.IsDetached())
	assert.Equal(t, 1, doc.Resolve(ref)) // 'c' is now at position 1
}

func TestDocument_ReferenceDetachesWhenNoLiveSegmentRemains(t *testing.T) {
	doc := NewDocument("alice")
	doc.LocalInsert(0, "a")

	seg, off, err := doc.GetContainingSegment(0)
	require.NoError(t, err)
	ref := doc.CreateLocalReferencePosition(seg, off, 0, SlideForward)

	doc.LocalDelete(0, 1)

	assert.True(t, ref.IsDetached())
	assert.Equal(t, DetachedPosition, doc.Resolve(ref))
}

func TestDocument_BeforeAfterSlideBalance(t *testing.T) {
	doc := NewDocument("alice")
	doc.LocalInsert(0, "ab")

	segA, offA, err := doc.GetContainingSegment(0)
	require.NoError(t, err)
	segB, offB, err := doc.GetContainingSegment(1)
	require.NoError(t, err)

	refA := doc.CreateLocalReferencePosition(segA, offA, 0, SlideForward)
	refB := doc.CreateLocalReferencePosition(segB, offB, 0, SlideBackward)

	var beforeCount, afterCount int
	cb := func() {}
	refA.SetCallbacks(func() { beforeCount++; cb() }, func() { afterCount++ })
	refB.SetCallbacks(func() { beforeCount++ }, func() { afterCount++ })

	doc.LocalDelete(0, 2) // both segments removed in a single op

	assert.Equal(t, 2, beforeCount)
	assert.Equal(t, 2, afterCount)
	assert.True(t, refA.IsDetached())
	assert.True(t, refB.IsDetached())
}

package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

func TestLocalCollection_AddAndRemoveInterval(t *testing.T) {
	doc := mergetree.NewDocument("alice")
	doc.LocalInsert(0, "hello")

	lc := NewLocalCollection("comments", KindSequence, doc)
	iv, err := NewSequenceInterval(doc, "comments", 0, 2, Simple, true, StickinessEnd, nil)
	require.NoError(t, err)

	require.NoError(t, lc.AddInterval(iv))
	assert.Equal(t, 1, lc.Count())

	got, ok := lc.GetIntervalById(iv.ID())
	require.True(t, ok)
	assert.Equal(t, iv.ID(), got.ID())

	lc.RemoveExistingInterval(iv)
	assert.Equal(t, 0, lc.Count())
}

func TestLocalCollection_SlideBurstFiresOnPositionChangeOnce(t *testing.T) {
	doc := mergetree.NewDocument("alice")
	doc.LocalInsert(0, "abc")

	lc := NewLocalCollection("comments", KindSequence, doc)
	iv, err := NewSequenceInterval(doc, "comments", 0, 2, Simple, true, StickinessEnd, nil)
	require.NoError(t, err)
	require.NoError(t, lc.AddInterval(iv))

	var fired int
	var lastPrev *Interval
	lc.onPositionChange = func(cur, prev *Interval) {
		fired++
		lastPrev = prev
	}

	// Removing the whole live range tombstones both the start and end
	// segments of iv within a single recheckout: onPositionChange must
	// fire exactly once, not twice, once the burst settles.
	doc.LocalDelete(0, 3)

	assert.Equal(t, 1, fired)
	require.NotNil(t, lastPrev)
	assert.Equal(t, iv.ID(), lastPrev.ID())
}

func TestLocalCollection_RangeLabelMismatchRejected(t *testing.T) {
	doc := mergetree.NewDocument("alice")
	doc.LocalInsert(0, "abc")

	lc := NewLocalCollection("comments", KindSequence, doc)
	iv := NewNumericInterval(0, 1, StickinessNone, map[string]any{PropRangeLabels: []string{"other-label"}})

	err := lc.AddInterval(iv)
	assert.Error(t, err)
}

package ol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalInsert_ChainsSequentialIDs(t *testing.T) {
	log := NewOpLog[rune]()
	lvs := LocalInsert(&log, "a", 0, []rune("hi"))

	require.Len(t, lvs, 2)
	assert.Equal(t, NewID("a", 0), log.Ops[lvs[0]].ID())
	assert.Equal(t, NewID("a", 1), log.Ops[lvs[1]].ID())
	assert.Equal(t, []LV{lvs[0]}, log.Ops[lvs[1]].Parents())
}

func TestLocalDelete_AppendsOnePerRemovedElement(t *testing.T) {
	log := NewOpLog[rune]()
	LocalInsert(&log, "a", 0, []rune("abc"))
	lvs := LocalDelete(&log, "a", 0, 2)

	require.Len(t, lvs, 2)
	for _, lv := range lvs {
		assert.Equal(t, Delete, log.Ops[lv].Type())
	}
}

func TestMergeInto_IsIdempotent(t *testing.T) {
	src := NewOpLog[rune]()
	LocalInsert(&src, "a", 0, []rune("hi"))

	dest := NewOpLog[rune]()
	MergeInto(&dest, &src)
	MergeInto(&dest, &src)

	assert.Len(t, dest.Ops, 2)
}

func TestMergeInto_PreservesCausalOrder(t *testing.T) {
	a := NewOpLog[rune]()
	LocalInsert(&a, "alice", 0, []rune("x"))

	b := NewOpLog[rune]()
	MergeInto(&b, &a)
	LocalInsert(&b, "bob", 1, []rune("y"))

	a2 := NewOpLog[rune]()
	MergeInto(&a2, &a)
	MergeInto(&a2, &b)

	require.Len(t, a2.Ops, 2)
	bobOp := a2.Ops[1]
	aliceLV, err := LVOf(&a2, NewID("alice", 0))
	require.NoError(t, err)
	assert.Contains(t, bobOp.Parents(), aliceLV)
}

func TestLVOf_UnknownIDErrors(t *testing.T) {
	log := NewOpLog[rune]()
	_, err := LVOf(&log, NewID("ghost", 0))
	assert.Error(t, err)
}

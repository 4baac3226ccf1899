package eg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/mergetree-intervals/ol"
)

func TestCheckout_SingleSiteInsertAndDelete(t *testing.T) {
	log := ol.NewOpLog[rune]()
	ol.LocalInsert(&log, "a", 0, []rune("hello"))
	ol.LocalDelete(&log, "a", 1, 1) // remove "e"

	res := Checkout(&log)
	assert.Equal(t, "hllo", string(res.Snapshot))
}

func TestCheckout_ConcurrentInsertsConverge(t *testing.T) {
	a := ol.NewOpLog[rune]()
	ol.LocalInsert(&a, "a", 0, []rune("hi"))

	b := ol.NewOpLog[rune]()
	ol.LocalInsert(&b, "z", 0, []rune("yoooo"))

	ol.MergeInto(&a, &b)
	ol.MergeInto(&b, &a)

	resA := Checkout(&a)
	resB := Checkout(&b)

	require.Equal(t, len(resA.Snapshot), len(resB.Snapshot))
	assert.Equal(t, string(resA.Snapshot), string(resB.Snapshot))
}

func TestCheckout_ConcurrentDeleteOfSameCharacterIsIdempotent(t *testing.T) {
	a := ol.NewOpLog[rune]()
	ol.LocalInsert(&a, "a", 0, []rune("abc"))

	b := ol.NewOpLog[rune]()
	ol.MergeInto(&b, &a)

	ol.LocalDelete(&a, "a", 1, 1)
	ol.LocalDelete(&b, "b", 1, 1)

	ol.MergeInto(&a, &b)
	ol.MergeInto(&b, &a)

	resA := Checkout(&a)
	resB := Checkout(&b)
	assert.Equal(t, "ac", string(resA.Snapshot))
	assert.Equal(t, string(resA.Snapshot), string(resB.Snapshot))
}

func TestCheckout_EmptyLogYieldsEmptyResult(t *testing.T) {
	log := ol.NewOpLog[rune]()
	res := Checkout(&log)
	assert.Empty(t, res.Snapshot)
	assert.Empty(t, res.Order)
}

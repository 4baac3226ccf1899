package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumericInterval_Overlaps(t *testing.T) {
	a := NewNumericInterval(1, 5, StickinessNone, nil)
	b := NewNumericInterval(4, 10, StickinessNone, nil)
	c := NewNumericInterval(6, 10, StickinessNone, nil)

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))
}

func TestInterval_AssignIDOnlyOnce(t *testing.T) {
	iv := NewNumericInterval(0, 1, StickinessNone, nil)
	iv.assignID("first")
	assert.Equal(t, "first", iv.ID())
	assert.Panics(t, func() { iv.assignID("second") })
}

func TestLegacyID_IsDeterministic(t *testing.T) {
	assert.Equal(t, LegacyID(1, 2), LegacyID(1, 2))
	assert.NotEqual(t, LegacyID(1, 2), LegacyID(2, 1))
}

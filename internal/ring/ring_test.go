package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendBackAt(t *testing.T) {
	r := New[int]()
	require.Equal(t, 0, r.Size())

	*r.Append() = 1
	*r.Append() = 2
	*r.Append() = 3
	assert.Equal(t, 3, r.Size())
	assert.Equal(t, 1, *r.At(0))
	assert.Equal(t, 3, *r.Back())

	r.PopFront()
	assert.Equal(t, 2, r.Size())
	assert.Equal(t, 2, *r.At(0))
}

func TestAppendPanicsWhenFull(t *testing.T) {
	r := New[int]()
	for i := 0; i < Capacity; i++ {
		r.Append()
	}
	assert.Panics(t, func() { r.Append() })
}

func TestPopFrontPanicsWhenEmpty(t *testing.T) {
	r := New[int]()
	assert.Panics(t, func() { r.PopFront() })
}

func TestAtOutOfRangePanics(t *testing.T) {
	r := New[int]()
	*r.Append() = 1
	assert.Panics(t, func() { r.At(1) })
	assert.Panics(t, func() { r.At(-1) })
}

func TestSentinelPattern(t *testing.T) {
	// Construction appends one sentinel record; size stays >= 1 thereafter.
	r := New[int]()
	*r.Append() = 0
	require.Equal(t, 1, r.Size())
	*r.Append() = 5
	*r.Append() = 6
	r.PopFront()
	assert.Equal(t, 2, r.Size())
}

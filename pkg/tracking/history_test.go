package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistory_Wraps(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(Sample{FrameIndex: uint64(i)})
	}

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())

	snap := h.Snapshot()
	got := []uint64{snap[0].FrameIndex, snap[1].FrameIndex, snap[2].FrameIndex}
	assert.Equal(t, []uint64{2, 3, 4}, got)

	latest, ok := h.Latest()
	assert.True(t, ok)
	assert.Equal(t, uint64(4), latest.FrameIndex)
}

func TestHistory_Previous(t *testing.T) {
	h := NewHistory(4)
	_, ok := h.Latest()
	assert.False(t, ok)

	h.Push(Sample{FrameIndex: 10})
	h.Push(Sample{FrameIndex: 11})

	s, ok := h.Previous(2)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), s.FrameIndex)

	_, ok = h.Previous(3)
	assert.False(t, ok)
	_, ok = h.Previous(0)
	assert.False(t, ok)
}

func TestHistory_LastClamps(t *testing.T) {
	h := NewHistory(5)
	assert.Nil(t, h.Last(3))

	h.Push(Sample{FrameIndex: 1})
	h.Push(Sample{FrameIndex: 2})

	assert.Len(t, h.Last(10), 2)
	assert.Equal(t, uint64(2), h.Last(1)[0].FrameIndex)
	assert.Nil(t, h.Last(-1))
}

func TestHistory_SnapshotIsCopy(t *testing.T) {
	h := NewHistory(2)
	h.Push(Sample{Angle: 1, Timestamp: time.Unix(1, 0)})

	snap := h.Snapshot()
	snap[0].Angle = 99

	latest, _ := h.Latest()
	assert.Equal(t, 1.0, latest.Angle)
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory(2)
	h.Push(Sample{})
	h.Push(Sample{})
	h.Reset()

	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Snapshot())
}

package xhci

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRingBase = uint64(0x10000)

func newTestRing(t *testing.T, capacity int) (*Ring, []byte) {
	t.Helper()
	region := make([]byte, capacity*TRB_SIZE)
	ring, err := NewCommandRing(region, testRingBase)
	require.NoError(t, err)
	return ring, region
}

// slotAt decodes the published TRB at slot i straight from ring memory,
// the way the controller would see it.
func slotAt(t *testing.T, region []byte, i int) RawTRB {
	t.Helper()
	raw, err := ParseRawTRB(region[i*TRB_SIZE : (i+1)*TRB_SIZE])
	require.NoError(t, err)
	return raw
}

func TestNewCommandRing_Validation(t *testing.T) {
	t.Run("misaligned base", func(t *testing.T) {
		region := make([]byte, 4*TRB_SIZE)
		require.Panics(t, func() { NewCommandRing(region, 0x1001) })
	})

	t.Run("ragged region", func(t *testing.T) {
		_, err := NewCommandRing(make([]byte, 4*TRB_SIZE+1), testRingBase)
		require.Error(t, err)
	})

	t.Run("too small", func(t *testing.T) {
		_, err := NewCommandRing(make([]byte, TRB_SIZE), testRingBase)
		require.Error(t, err)
	})

	t.Run("ok", func(t *testing.T) {
		ring, _ := newTestRing(t, 4)
		assert.Equal(t, 4, ring.Capacity())
		assert.Equal(t, 0, ring.EnqueueIndex())
		assert.True(t, ring.CycleState())
		assert.Equal(t, testRingBase, ring.Base())
	})
}

func TestRing_Enqueue(t *testing.T) {
	ring, region := newTestRing(t, 4)

	addr := ring.Enqueue(NewEnableSlot())
	assert.Equal(t, testRingBase, addr)
	assert.Equal(t, 1, ring.EnqueueIndex())

	addr = ring.Enqueue(NewNoop())
	assert.Equal(t, testRingBase+TRB_SIZE, addr)

	// both TRBs are live with the producer cycle state
	first := slotAt(t, region, 0)
	assert.Equal(t, TRB_TYPE_ENABLE_SLOT, first.Type())
	assert.True(t, first.CycleBit())

	second := slotAt(t, region, 1)
	assert.Equal(t, TRB_TYPE_NOOP_COMMAND, second.Type())
	assert.True(t, second.CycleBit())
}

func TestRing_Wraparound(t *testing.T) {
	// capacity 4: slots 0-2 hold commands, slot 3 is reserved for the Link
	ring, region := newTestRing(t, 4)

	for i := 0; i < 3; i++ {
		addr := ring.Enqueue(NewNoop())
		assert.Equal(t, testRingBase+uint64(i)*TRB_SIZE, addr)
		assert.True(t, ring.CycleState())
	}

	// the 4th command triggers the Link publish and lands back at slot 0
	addr := ring.Enqueue(NewNoop())
	assert.Equal(t, testRingBase, addr)
	assert.Equal(t, 1, ring.EnqueueIndex())
	assert.False(t, ring.CycleState())

	link, err := LinkFromRaw(slotAt(t, region, 3))
	require.NoError(t, err)
	assert.Equal(t, testRingBase, link.RingSegmentPointer())
	assert.True(t, link.ToggleCycle())
	// the Link carries the pre-flip cycle state
	assert.True(t, link.Raw().CycleBit())

	wrapped := slotAt(t, region, 0)
	assert.Equal(t, TRB_TYPE_NOOP_COMMAND, wrapped.Type())
	assert.False(t, wrapped.CycleBit())
}

func TestRing_SecondLap(t *testing.T) {
	ring, region := newTestRing(t, 4)

	// two full laps: 7 commands and 2 auto Links
	var addrs []uint64
	for i := 0; i < 7; i++ {
		addrs = append(addrs, ring.Enqueue(NewNoop()))
	}

	want := []uint64{
		testRingBase,
		testRingBase + 1*TRB_SIZE,
		testRingBase + 2*TRB_SIZE,
		testRingBase,
		testRingBase + 1*TRB_SIZE,
		testRingBase + 2*TRB_SIZE,
		testRingBase,
	}
	if diff := cmp.Diff(want, addrs); diff != "" {
		t.Errorf("slot addresses mismatch (-want +got):\n%s", diff)
	}

	// back to the reset parity after two toggles
	assert.True(t, ring.CycleState())
	// the second Link was stamped with the first lap's flipped parity
	assert.False(t, slotAt(t, region, 3).CycleBit())
}

func TestRing_Restore(t *testing.T) {
	ring, _ := newTestRing(t, 4)

	require.NoError(t, ring.Restore(2, false))
	assert.Equal(t, 2, ring.EnqueueIndex())
	assert.False(t, ring.CycleState())

	addr := ring.Enqueue(NewNoop())
	assert.Equal(t, testRingBase+2*TRB_SIZE, addr)

	require.Error(t, ring.Restore(-1, true))
	require.Error(t, ring.Restore(4, true))
}

func TestEventRing_Dequeue(t *testing.T) {
	region := make([]byte, 4*TRB_SIZE)
	ring, err := NewEventRing(region, testRingBase)
	require.NoError(t, err)

	// nothing produced yet: every slot carries the stale parity
	_, ok := ring.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, testRingBase, ring.DequeuePointer())

	// fabricate a produced event the way hardware would write it
	ev := NewCommandCompletion().
		SetCommandTRBPointer(testRingBase).
		SetCompletionCode(COMPLETION_CODE_SUCCESS).
		SetSlotID(1).
		Raw()
	ev.SetCycleBit(true)
	img := ev.Bytes()
	copy(region[:TRB_SIZE], img[:])

	got, ok := ring.Dequeue()
	require.True(t, ok)
	assert.Equal(t, ev, got)
	assert.Equal(t, testRingBase+TRB_SIZE, ring.DequeuePointer())

	// the next slot is still stale
	_, ok = ring.Dequeue()
	assert.False(t, ok)
}

func TestEventRing_WrapFlipsParity(t *testing.T) {
	region := make([]byte, 2*TRB_SIZE)
	ring, err := NewEventRing(region, testRingBase)
	require.NoError(t, err)

	produce := func(slot int, cycle bool, portID uint8) {
		ev := NewPortStatusChange().SetPortID(portID).Raw()
		ev.SetCycleBit(cycle)
		img := ev.Bytes()
		copy(region[slot*TRB_SIZE:], img[:])
	}

	produce(0, true, 1)
	produce(1, true, 2)

	for want := uint8(1); want <= 2; want++ {
		raw, ok := ring.Dequeue()
		require.True(t, ok)
		ev, err := PortStatusChangeFromRaw(raw)
		require.NoError(t, err)
		assert.Equal(t, want, ev.PortID())
	}

	// wrapped: the consumer now expects the flipped parity
	assert.False(t, ring.CycleState())
	_, ok := ring.Dequeue()
	assert.False(t, ok)

	produce(0, false, 3)
	raw, ok := ring.Dequeue()
	require.True(t, ok)
	ev, err := PortStatusChangeFromRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), ev.PortID())
}

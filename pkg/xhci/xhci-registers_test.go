package xhci

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capRegionImage builds the 32-byte capability block image as hardware
// would expose it.
func capRegionImage(caplength uint8, hciversion uint16, hcsparams1, hcsparams2, hccparams1, dboff, rtsoff uint32) []byte {
	b := make([]byte, CAP_REGS_SIZE)
	b[0] = caplength
	binary.LittleEndian.PutUint16(b[2:], hciversion)
	binary.LittleEndian.PutUint32(b[4:], hcsparams1)
	binary.LittleEndian.PutUint32(b[8:], hcsparams2)
	binary.LittleEndian.PutUint32(b[16:], hccparams1)
	binary.LittleEndian.PutUint32(b[20:], dboff)
	binary.LittleEndian.PutUint32(b[24:], rtsoff)
	return b
}

func TestCapabilityRegisters_Decode(t *testing.T) {
	// slots=32 interrupters=8 ports=8
	hcsparams1 := uint32(32 | 8<<8 | 8<<24)
	// ERST exponent 3, scratchpad hi=2 lo=1, SPR set
	hcsparams2 := uint32(3<<4 | 2<<20 | 1<<26 | 1<<27)
	// AC64, CSZ, xECP dword offset 0x220
	hccparams1 := uint32(1 | 1<<2 | 0x220<<16)

	region := capRegionImage(0x20, 0x0110, hcsparams1, hcsparams2, hccparams1, 0x88, 0x600)
	caps, err := CapabilityRegistersFromBytes(region)
	require.NoError(t, err)

	assert.Equal(t, uint8(0x20), caps.CapabilityLength())
	assert.Equal(t, uint16(0x0110), caps.HciVersion())
	assert.Equal(t, uint8(32), caps.NumberOfDeviceSlots())
	assert.Equal(t, uint8(8), caps.NumberOfPorts())
	assert.Equal(t, uint16(8), caps.NumberOfInterrupters())
	assert.Equal(t, uint16(8), caps.EventRingSegmentTableMax())
	assert.Equal(t, uint32(2<<5|1), caps.MaxScratchpadBuffers())
	assert.True(t, caps.ScratchpadRestore())
	assert.True(t, caps.ContextSize64())
	assert.True(t, caps.Addressing64())
	assert.Equal(t, uint32(0x220<<2), caps.ExtendedCapabilitiesPointer())
	assert.Equal(t, uint32(0x88), caps.DoorbellOffset())
	assert.Equal(t, uint32(0x600), caps.RuntimeRegisterSpaceOffset())

	// read-only view without a mapper
	require.NoError(t, caps.Close())
}

func TestCapabilityRegisters_ZeroXECP(t *testing.T) {
	region := capRegionImage(0x20, 0x0100, 0, 0, 0, 0, 0)
	caps, err := CapabilityRegistersFromBytes(region)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), caps.ExtendedCapabilitiesPointer())
	assert.Equal(t, uint16(1), caps.EventRingSegmentTableMax())
	assert.Equal(t, uint32(0), caps.MaxScratchpadBuffers())
	assert.False(t, caps.ContextSize64())
}

func TestCapabilityRegistersFromBytes_ShortRegion(t *testing.T) {
	_, err := CapabilityRegistersFromBytes(make([]byte, CAP_REGS_SIZE-1))
	require.Error(t, err)
}

// fakeMapper serves mappings from an in-memory image keyed by physical
// address.
type fakeMapper struct {
	image  map[uint64][]byte
	unmaps int
	mapErr error
	mapped int
}

func (m *fakeMapper) Map(phys uint64, size int) ([]byte, error) {
	if m.mapErr != nil {
		return nil, m.mapErr
	}
	region, ok := m.image[phys]
	if !ok || len(region) < size {
		return nil, fmt.Errorf("no backing for 0x%X", phys)
	}
	m.mapped++
	return region[:size], nil
}

func (m *fakeMapper) Unmap(region []byte) error {
	m.unmaps++
	return nil
}

func TestNewCapabilityRegisters_ThroughMapper(t *testing.T) {
	const mmioBase = uint64(0xFE000000)
	mapper := &fakeMapper{image: map[uint64][]byte{
		mmioBase: capRegionImage(0x20, 0x0120, 16|4<<24, 0, 0, 0x100, 0x2000),
	}}

	caps, err := NewCapabilityRegisters(mmioBase, mapper)
	require.NoError(t, err)
	assert.Equal(t, uint8(16), caps.NumberOfDeviceSlots())
	assert.Equal(t, uint8(4), caps.NumberOfPorts())

	require.NoError(t, caps.Close())
	assert.Equal(t, 1, mapper.mapped)
	assert.Equal(t, 1, mapper.unmaps)
}

func TestNewCapabilityRegisters_MisalignedBase(t *testing.T) {
	_, err := NewCapabilityRegisters(0xFE000001, &fakeMapper{})
	require.Error(t, err)
}

func TestNewCapabilityRegisters_MapFailure(t *testing.T) {
	mapper := &fakeMapper{mapErr: fmt.Errorf("denied")}
	_, err := NewCapabilityRegisters(0xFE000000, mapper)
	require.Error(t, err)
}

func TestDoorbellArray_Ring(t *testing.T) {
	region := make([]byte, 16) // 4 doorbells
	db, err := NewDoorbellArray(region)
	require.NoError(t, err)

	require.NoError(t, db.Ring(DB_SLOT_HOST_CONTROLLER, DB_TARGET_COMMAND_RING, 0))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(region[0:]))

	require.NoError(t, db.Ring(2, DB_TARGET_CONTROL_EP_RING, 0x5))
	assert.Equal(t, uint32(1|0x5<<16), binary.LittleEndian.Uint32(region[8:]))

	require.Error(t, db.Ring(4, 0, 0))
}

func TestNewDoorbellArray_Validation(t *testing.T) {
	_, err := NewDoorbellArray(nil)
	require.Error(t, err)
	_, err = NewDoorbellArray(make([]byte, 6))
	require.Error(t, err)
}

func TestWalkExtendedCapabilities(t *testing.T) {
	region := make([]byte, 0x100)
	// two-entry list: legacy support at 0x40, supported protocol at 0x60
	binary.LittleEndian.PutUint32(region[0x40:], uint32(XHCI_EXT_CAP_USB_LEGACY_SUPPORT)|(0x60-0x40)/4<<8)
	binary.LittleEndian.PutUint32(region[0x60:], uint32(XHCI_EXT_CAP_SUPPORTED_PROTOCOL)|0x0310<<16)

	caps := WalkExtendedCapabilities(region, 0x40)
	require.Len(t, caps, 2)
	assert.Equal(t, XHCI_EXT_CAP_USB_LEGACY_SUPPORT, caps[0].ID)
	assert.Equal(t, uint32(0x40), caps[0].Offset)
	assert.Equal(t, XHCI_EXT_CAP_SUPPORTED_PROTOCOL, caps[1].ID)
	assert.Equal(t, uint32(0x60), caps[1].Offset)
	assert.Equal(t, uint32(0x0310), caps[1].Header>>16)

	assert.Empty(t, WalkExtendedCapabilities(region, 0))
}

func TestCapabilityRegisters_Print(t *testing.T) {
	region := capRegionImage(0x20, 0x0110, 32|8<<24, 3<<4, 0, 0x88, 0x600)
	caps, err := CapabilityRegistersFromBytes(region)
	require.NoError(t, err)
	out := caps.Print()
	assert.Contains(t, out, "HCSPARAMS1")
	assert.Contains(t, out, "MaxSlots")
	assert.Contains(t, out, "DBOFF")
}

// This file implements the Host Controller Capability Register view and
// the Doorbell Array based on xHCI spec rev1.2 chapter 5, plus the
// address-translation boundary the ring and register views consume.

package xhci

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// Mapper translates a physical/bus address into an accessible memory
// range. The library never performs translation itself; ring memory and
// register blocks are handed in through this boundary.
type Mapper interface {
	Map(phys uint64, size int) ([]byte, error)
	Unmap(region []byte) error
}

// DevMemMapper maps physical ranges through /dev/mem. mmap is page
// granular, so the mapper maps the surrounding pages and hands out the
// sub-slice at the requested address.
type DevMemMapper struct {
	dev_mem_file *os.File
	mappings     map[*byte][]byte
}

// NewDevMemMapper opens /dev/mem for register and ring access. Requires
// root and a kernel without STRICT_DEVMEM restrictions on the range.
func NewDevMemMapper() (*DevMemMapper, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	return &DevMemMapper{dev_mem_file: f, mappings: map[*byte][]byte{}}, nil
}

func (m *DevMemMapper) Map(phys uint64, size int) ([]byte, error) {
	pageSize := uint64(unix.Getpagesize())
	alignedBase := phys &^ (pageSize - 1)
	pageOfs := int(phys - alignedBase)
	mapSize := (pageOfs + size + int(pageSize) - 1) &^ (int(pageSize) - 1)

	klog.V(DBG_LVL_INFO).InfoS("xhci-registers.Map", "phyaddr", hex(phys), "size", hex(size))
	mmap, err := unix.Mmap(int(m.dev_mem_file.Fd()), int64(alignedBase), mapSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	region := mmap[pageOfs : pageOfs+size]
	m.mappings[&region[0]] = mmap
	return region, nil
}

func (m *DevMemMapper) Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	mmap, ok := m.mappings[&region[0]]
	if !ok {
		return fmt.Errorf("xhci: region was not produced by this mapper")
	}
	delete(m.mappings, &region[0])
	return unix.Munmap(mmap)
}

// Close releases the /dev/mem handle. Outstanding mappings stay valid.
func (m *DevMemMapper) Close() error {
	return m.dev_mem_file.Close()
}

// capability_registers is the fixed MMIO layout at the start of the
// controller's register space.
type capability_registers struct {
	CAPLENGTH  uint8
	Rsvd       uint8
	HCIVERSION uint16
	HCSPARAMS1 uint32
	HCSPARAMS2 uint32
	HCSPARAMS3 uint32
	HCCPARAMS1 uint32
	DBOFF      uint32
	RTSOFF     uint32
	HCCPARAMS2 uint32
}

const CAP_REGS_SIZE = int(unsafe.Sizeof(capability_registers{}))

// Capability register bit ranges.
var (
	HCSPARAMS1_MAX_DEVICE_SLOTS  = u32field{offset: 0, bitwidth: 8}
	HCSPARAMS1_MAX_INTERRUPTERS  = u32field{offset: 8, bitwidth: 11}
	HCSPARAMS1_MAX_PORTS         = u32field{offset: 24, bitwidth: 8}
	HCSPARAMS2_IST               = u32field{offset: 0, bitwidth: 4}
	HCSPARAMS2_ERST_MAX          = u32field{offset: 4, bitwidth: 4}
	HCSPARAMS2_MAX_SCRATCHPAD_HI = u32field{offset: 20, bitwidth: 6}
	HCSPARAMS2_SPR               = u32field{offset: 26, bitwidth: 1}
	HCSPARAMS2_MAX_SCRATCHPAD_LO = u32field{offset: 27, bitwidth: 5}
	HCCPARAMS1_AC64              = u32field{offset: 0, bitwidth: 1}
	HCCPARAMS1_CSZ               = u32field{offset: 2, bitwidth: 1}
	HCCPARAMS1_XECP              = u32field{offset: 16, bitwidth: 16}
)

// CapabilityRegisters is a read-only view over the controller's
// capability register block. The block is fixed by hardware at reset;
// this view performs no writes and holds no state beyond the mapping.
//
// Construct at most once per controller: a duplicate accessor over the
// same region is undefined concurrent access, not a checked error.
type CapabilityRegisters struct {
	regs   *capability_registers
	region []byte
	mapper Mapper
}

// NewCapabilityRegisters maps the capability block at mmioBase (BAR0 of
// the controller) through mapper.
func NewCapabilityRegisters(mmioBase uint64, mapper Mapper) (*CapabilityRegisters, error) {
	if mmioBase%4 != 0 {
		return nil, fmt.Errorf("xhci: MMIO base 0x%X is not 4-byte aligned", mmioBase)
	}
	region, err := mapper.Map(mmioBase, CAP_REGS_SIZE)
	if err != nil {
		return nil, err
	}
	c, err := CapabilityRegistersFromBytes(region)
	if err != nil {
		mapper.Unmap(region)
		return nil, err
	}
	c.mapper = mapper
	klog.V(DBG_LVL_BASIC).Info("xhci-registers.CapabilityRegisters initialized")
	return c, nil
}

// CapabilityRegistersFromBytes lays the view over an already-mapped
// register block (or a snapshot of one).
func CapabilityRegistersFromBytes(region []byte) (*CapabilityRegisters, error) {
	if len(region) < CAP_REGS_SIZE {
		return nil, fmt.Errorf("xhci: capability block needs %d bytes, got %d", CAP_REGS_SIZE, len(region))
	}
	return &CapabilityRegisters{
		regs:   (*capability_registers)(unsafe.Pointer(&region[0])),
		region: region,
	}, nil
}

// Close unmaps the register block if this view owns the mapping.
func (c *CapabilityRegisters) Close() error {
	if c.mapper == nil {
		return nil
	}
	return c.mapper.Unmap(c.region)
}

// CapabilityLength returns the byte offset from the MMIO base to the
// Operational register block.
func (c *CapabilityRegisters) CapabilityLength() uint8 {
	return c.regs.CAPLENGTH
}

// HciVersion returns the BCD interface version number.
func (c *CapabilityRegisters) HciVersion() uint16 {
	return c.regs.HCIVERSION
}

// NumberOfDeviceSlots returns the number of device slots the controller
// supports.
func (c *CapabilityRegisters) NumberOfDeviceSlots() uint8 {
	return uint8(HCSPARAMS1_MAX_DEVICE_SLOTS.read(c.regs.HCSPARAMS1))
}

// NumberOfPorts returns the number of root hub ports.
func (c *CapabilityRegisters) NumberOfPorts() uint8 {
	return uint8(HCSPARAMS1_MAX_PORTS.read(c.regs.HCSPARAMS1))
}

// NumberOfInterrupters returns the number of interrupters implemented.
func (c *CapabilityRegisters) NumberOfInterrupters() uint16 {
	return uint16(HCSPARAMS1_MAX_INTERRUPTERS.read(c.regs.HCSPARAMS1))
}

// EventRingSegmentTableMax returns the maximum number of Event Ring
// Segment Table entries. The register holds the exponent; this returns
// the calculated value.
func (c *CapabilityRegisters) EventRingSegmentTableMax() uint16 {
	return 1 << HCSPARAMS2_ERST_MAX.read(c.regs.HCSPARAMS2)
}

// MaxScratchpadBuffers returns the number of scratchpad buffers the
// controller requires. The count is split across two disjoint bit
// ranges of HCSPARAMS2 and reassembled here.
func (c *CapabilityRegisters) MaxScratchpadBuffers() uint32 {
	h := HCSPARAMS2_MAX_SCRATCHPAD_HI.read(c.regs.HCSPARAMS2)
	l := HCSPARAMS2_MAX_SCRATCHPAD_LO.read(c.regs.HCSPARAMS2)
	return h<<5 | l
}

// ScratchpadRestore reports whether scratchpad contents must survive a
// power event.
func (c *CapabilityRegisters) ScratchpadRestore() bool {
	return HCSPARAMS2_SPR.read(c.regs.HCSPARAMS2) != 0
}

// ContextSize64 reports whether the controller uses 64-byte Context
// structures (false means 32-byte).
func (c *CapabilityRegisters) ContextSize64() bool {
	return HCCPARAMS1_CSZ.read(c.regs.HCCPARAMS1) != 0
}

// Addressing64 reports whether the controller supports 64-bit addressing.
func (c *CapabilityRegisters) Addressing64() bool {
	return HCCPARAMS1_AC64.read(c.regs.HCCPARAMS1) != 0
}

// ExtendedCapabilitiesPointer returns the byte offset of the extended
// capability list from the MMIO base, or 0 when the list does not exist.
// The register stores a DWORD offset; the shift happens here.
func (c *CapabilityRegisters) ExtendedCapabilitiesPointer() uint32 {
	return HCCPARAMS1_XECP.read(c.regs.HCCPARAMS1) << 2
}

// DoorbellOffset returns the byte offset of the Doorbell Array from the
// MMIO base.
func (c *CapabilityRegisters) DoorbellOffset() uint32 {
	return c.regs.DBOFF
}

// RuntimeRegisterSpaceOffset returns the byte offset of the Runtime
// registers from the MMIO base.
func (c *CapabilityRegisters) RuntimeRegisterSpaceOffset() uint32 {
	return c.regs.RTSOFF
}

// Print renders the raw parameter registers as their declared bit
// layouts, for diagnostics.
func (c *CapabilityRegisters) Print() string {
	printStr := "xhci-registers print:\n"
	printStr += "HCSPARAMS1\n" + jsonIndent(parseStruct(u32toByte([]uint32{c.regs.HCSPARAMS1}), HCSPARAMS1{}))
	printStr += "HCSPARAMS2\n" + jsonIndent(parseStruct(u32toByte([]uint32{c.regs.HCSPARAMS2}), HCSPARAMS2{}))
	printStr += "HCCPARAMS1\n" + jsonIndent(parseStruct(u32toByte([]uint32{c.regs.HCCPARAMS1}), HCCPARAMS1{}))
	printStr += fmt.Sprintf("DBOFF\n   0x%X\nRTSOFF\n   0x%X\n", c.regs.DBOFF, c.regs.RTSOFF)
	return printStr
}

func jsonIndent(table any) string {
	s, _ := json.MarshalIndent(table, "   ", "   ")
	return string(s) + "\n"
}

// Doorbell register bit ranges.
var (
	DOORBELL_DB_TARGET    = u32field{offset: 0, bitwidth: 8}
	DOORBELL_DB_STREAM_ID = u32field{offset: 16, bitwidth: 16}
)

// Command ring doorbell: slot 0, target 0.
const (
	DB_SLOT_HOST_CONTROLLER   = 0
	DB_TARGET_COMMAND_RING    = 0
	DB_TARGET_CONTROL_EP_RING = 1
)

// DoorbellArray is the fire-and-forget notification boundary: one 32-bit
// register per device slot (plus register 0 for the controller itself)
// at DBOFF from the MMIO base. Writing one tells the controller new work
// is available on the matching ring; there is no acknowledgement.
//
// Same single-accessor rule as the other register views.
type DoorbellArray struct {
	regs []uint32
}

// NewDoorbellArray lays the doorbell view over region, which must cover
// (1 + NumberOfDeviceSlots) registers starting at DBOFF.
func NewDoorbellArray(region []byte) (*DoorbellArray, error) {
	if len(region) < 4 || len(region)%4 != 0 {
		return nil, fmt.Errorf("xhci: doorbell region size %d is not a multiple of 4", len(region))
	}
	return &DoorbellArray{
		regs: unsafe.Slice((*uint32)(unsafe.Pointer(&region[0])), len(region)/4),
	}, nil
}

// Ring notifies the controller that work was enqueued for slot. For the
// Command Ring use slot DB_SLOT_HOST_CONTROLLER with target
// DB_TARGET_COMMAND_RING; for transfer rings the target selects the
// endpoint. The store is ordered after any preceding ring publish.
func (d *DoorbellArray) Ring(slot uint8, target uint8, streamID uint16) error {
	if int(slot) >= len(d.regs) {
		return fmt.Errorf("xhci: doorbell %d out of range [0,%d)", slot, len(d.regs))
	}
	var db uint32
	DOORBELL_DB_TARGET.write(&db, uint32(target))
	DOORBELL_DB_STREAM_ID.write(&db, uint32(streamID))
	atomic.StoreUint32(&d.regs[slot], db)
	klog.V(DBG_LVL_DETAIL).InfoS("xhci-registers.Ring doorbell", "slot", slot, "target", target, "streamID", streamID)
	return nil
}

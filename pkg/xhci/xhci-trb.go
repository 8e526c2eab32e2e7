// This file implements the TRB (Transfer Request Block) encoding based
// on xHCI spec rev1.2 section 6.4. A TRB is the fixed 16-byte descriptor
// exchanged with the controller over ring memory; every field lives in a
// documented bit range of one of four little-endian 32-bit words.

package xhci

import (
	"encoding/binary"
	"fmt"
)

const TRB_SIZE = 16

// TrbType is the discriminator in word 3 bits 10-15 selecting the
// TRB variant.
type TrbType uint32

const (
	TRB_TYPE_RESERVED               TrbType = 0
	TRB_TYPE_LINK                   TrbType = 6
	TRB_TYPE_ENABLE_SLOT            TrbType = 9
	TRB_TYPE_DISABLE_SLOT           TrbType = 10
	TRB_TYPE_ADDRESS_DEVICE         TrbType = 11
	TRB_TYPE_CONFIGURE_ENDPOINT     TrbType = 12
	TRB_TYPE_EVALUATE_CONTEXT       TrbType = 13
	TRB_TYPE_RESET_ENDPOINT         TrbType = 14
	TRB_TYPE_STOP_ENDPOINT          TrbType = 15
	TRB_TYPE_SET_TR_DEQUEUE_POINTER TrbType = 16
	TRB_TYPE_NOOP_COMMAND           TrbType = 23
	TRB_TYPE_TRANSFER_EVENT         TrbType = 32
	TRB_TYPE_COMMAND_COMPLETION     TrbType = 33
	TRB_TYPE_PORT_STATUS_CHANGE     TrbType = 34
)

func (t TrbType) String() string {
	switch t {
	case TRB_TYPE_LINK:
		return "Link"
	case TRB_TYPE_ENABLE_SLOT:
		return "EnableSlot"
	case TRB_TYPE_DISABLE_SLOT:
		return "DisableSlot"
	case TRB_TYPE_ADDRESS_DEVICE:
		return "AddressDevice"
	case TRB_TYPE_CONFIGURE_ENDPOINT:
		return "ConfigureEndpoint"
	case TRB_TYPE_EVALUATE_CONTEXT:
		return "EvaluateContext"
	case TRB_TYPE_RESET_ENDPOINT:
		return "ResetEndpoint"
	case TRB_TYPE_STOP_ENDPOINT:
		return "StopEndpoint"
	case TRB_TYPE_SET_TR_DEQUEUE_POINTER:
		return "SetTRDequeuePointer"
	case TRB_TYPE_NOOP_COMMAND:
		return "NoopCommand"
	case TRB_TYPE_TRANSFER_EVENT:
		return "TransferEvent"
	case TRB_TYPE_COMMAND_COMPLETION:
		return "CommandCompletion"
	case TRB_TYPE_PORT_STATUS_CHANGE:
		return "PortStatusChange"
	}
	return fmt.Sprintf("TrbType(%d)", uint32(t))
}

// Bit ranges of the TRB fields, per word. Control is word 3, status is
// word 2 on event TRBs.
var (
	TRB_CONTROL_CYCLE_BIT    = u32field{offset: 0, bitwidth: 1}
	TRB_CONTROL_TOGGLE_CYCLE = u32field{offset: 1, bitwidth: 1}
	TRB_CONTROL_TRB_TYPE     = u32field{offset: 10, bitwidth: 6}
	TRB_CONTROL_BSR          = u32field{offset: 9, bitwidth: 1}
	TRB_CONTROL_DECONFIGURE  = u32field{offset: 9, bitwidth: 1}
	TRB_CONTROL_TSP          = u32field{offset: 9, bitwidth: 1}
	TRB_CONTROL_SUSPEND      = u32field{offset: 23, bitwidth: 1}
	TRB_CONTROL_SLOT_TYPE    = u32field{offset: 16, bitwidth: 5}
	TRB_CONTROL_ENDPOINT_ID  = u32field{offset: 16, bitwidth: 5}
	TRB_CONTROL_VF_ID        = u32field{offset: 16, bitwidth: 8}
	TRB_CONTROL_SLOT_ID      = u32field{offset: 24, bitwidth: 8}

	TRB_PARAM0_DCS                 = u32field{offset: 0, bitwidth: 1}
	TRB_PARAM0_STREAM_CONTEXT_TYPE = u32field{offset: 1, bitwidth: 3}
	TRB_PARAM2_STREAM_ID           = u32field{offset: 16, bitwidth: 16}
	TRB_PARAM0_PORT_ID             = u32field{offset: 24, bitwidth: 8}

	TRB_STATUS_COMPLETION_PARAMETER = u32field{offset: 0, bitwidth: 24}
	TRB_STATUS_COMPLETION_CODE     = u32field{offset: 24, bitwidth: 8}
)

// RawTRB is the generic 16-byte TRB record as four 32-bit words, in the
// exact layout the controller consumes.
type RawTRB [4]uint32

// ParseRawTRB decodes the 16-byte wire image of a TRB.
func ParseRawTRB(b []byte) (RawTRB, error) {
	var t RawTRB
	if len(b) != TRB_SIZE {
		return t, fmt.Errorf("xhci: TRB image must be %d bytes, got %d", TRB_SIZE, len(b))
	}
	for i := range t {
		t[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return t, nil
}

// Bytes returns the 16-byte wire image of the TRB.
func (t RawTRB) Bytes() [TRB_SIZE]byte {
	var b [TRB_SIZE]byte
	for i, w := range t {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

// Type returns the TRB Type discriminator.
func (t RawTRB) Type() TrbType {
	return TrbType(TRB_CONTROL_TRB_TYPE.read(t[3]))
}

func (t *RawTRB) setType(tt TrbType) {
	TRB_CONTROL_TRB_TYPE.write(&t[3], uint32(tt))
}

// CycleBit returns the ownership flag in word 3 bit 0.
func (t RawTRB) CycleBit() bool {
	return TRB_CONTROL_CYCLE_BIT.read(t[3]) != 0
}

// SetCycleBit stamps the ownership flag. Normally the ring does this
// during enqueue; callers only touch it when reconstructing ring state.
func (t *RawTRB) SetCycleBit(b bool) {
	TRB_CONTROL_CYCLE_BIT.write(&t[3], boolToU32(b))
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// mustAligned16 enforces the invariant that 64-bit pointer-valued TRB
// fields reserve their low 4 bits for flags. A misaligned pointer would
// silently corrupt those flag bits, so this is a fatal precondition.
func mustAligned16(p uint64, field string) {
	if p%16 != 0 {
		panic(fmt.Sprintf("xhci: the %s must be 16-byte aligned, got 0x%X", field, p))
	}
}

// setPointer stores an aligned 64-bit pointer in words 0 and 1.
func (t *RawTRB) setPointer(p uint64) {
	t[0] = uint32(p)
	t[1] = uint32(p >> 32)
}

// pointer reassembles the 64-bit value spread over words 0 and 1.
func (t RawTRB) pointer() uint64 {
	return uint64(t[1])<<32 | uint64(t[0])
}

func typeMismatch(want TrbType, got RawTRB) error {
	return fmt.Errorf("xhci: cannot interpret %s TRB as %s", got.Type(), want)
}

// CommandTRB is the closed set of TRB variants legal on a Command Ring:
// the nine command-class variants plus Link. Only the types in this file
// implement it, so any other TRB kind is rejected at the type boundary.
type CommandTRB interface {
	Raw() RawTRB
	commandRing()
}

var commandFromRaw = map[TrbType]func(RawTRB) CommandTRB{
	TRB_TYPE_LINK:                   func(r RawTRB) CommandTRB { return &Link{raw: r} },
	TRB_TYPE_ENABLE_SLOT:            func(r RawTRB) CommandTRB { return &EnableSlot{raw: r} },
	TRB_TYPE_DISABLE_SLOT:           func(r RawTRB) CommandTRB { return &DisableSlot{raw: r} },
	TRB_TYPE_ADDRESS_DEVICE:         func(r RawTRB) CommandTRB { return &AddressDevice{raw: r} },
	TRB_TYPE_CONFIGURE_ENDPOINT:     func(r RawTRB) CommandTRB { return &ConfigureEndpoint{raw: r} },
	TRB_TYPE_EVALUATE_CONTEXT:       func(r RawTRB) CommandTRB { return &EvaluateContext{raw: r} },
	TRB_TYPE_RESET_ENDPOINT:         func(r RawTRB) CommandTRB { return &ResetEndpoint{raw: r} },
	TRB_TYPE_STOP_ENDPOINT:          func(r RawTRB) CommandTRB { return &StopEndpoint{raw: r} },
	TRB_TYPE_SET_TR_DEQUEUE_POINTER: func(r RawTRB) CommandTRB { return &SetTRDequeuePointer{raw: r} },
	TRB_TYPE_NOOP_COMMAND:           func(r RawTRB) CommandTRB { return &Noop{raw: r} },
}

// CommandFromRaw interprets a raw TRB as a member of the command-class
// set. TRB kinds outside the set are rejected, never reinterpreted.
func CommandFromRaw(r RawTRB) (CommandTRB, error) {
	from, ok := commandFromRaw[r.Type()]
	if !ok {
		return nil, fmt.Errorf("xhci: %s TRB is not allowed on a Command Ring", r.Type())
	}
	return from(r), nil
}

// Link TRB. Stitches ring segments together and, with Toggle Cycle set,
// tells the consumer to flip its expected cycle parity.
type Link struct{ raw RawTRB }

// NewLink returns a zeroed Link TRB with only the Type field preset.
func NewLink() *Link {
	t := &Link{}
	t.raw.setType(TRB_TYPE_LINK)
	return t
}

// LinkFromRaw is the checked cast from a raw TRB to a Link TRB.
func LinkFromRaw(r RawTRB) (*Link, error) {
	if r.Type() != TRB_TYPE_LINK {
		return nil, typeMismatch(TRB_TYPE_LINK, r)
	}
	return &Link{raw: r}, nil
}

func (t *Link) Raw() RawTRB  { return t.raw }
func (t *Link) commandRing() {}

// SetRingSegmentPointer sets the target segment base address.
// Panics if p is not 16-byte aligned.
func (t *Link) SetRingSegmentPointer(p uint64) *Link {
	mustAligned16(p, "Ring Segment Pointer")
	t.raw.setPointer(p)
	return t
}

// RingSegmentPointer returns the target segment base address.
func (t *Link) RingSegmentPointer() uint64 {
	return t.raw.pointer() &^ 0xF
}

// SetToggleCycle sets the Toggle Cycle flag.
func (t *Link) SetToggleCycle(b bool) *Link {
	TRB_CONTROL_TOGGLE_CYCLE.write(&t.raw[3], boolToU32(b))
	return t
}

// ToggleCycle returns the Toggle Cycle flag.
func (t *Link) ToggleCycle() bool {
	return TRB_CONTROL_TOGGLE_CYCLE.read(t.raw[3]) != 0
}

// Enable Slot Command TRB.
type EnableSlot struct{ raw RawTRB }

// NewEnableSlot returns a zeroed Enable Slot command with the Type preset.
func NewEnableSlot() *EnableSlot {
	t := &EnableSlot{}
	t.raw.setType(TRB_TYPE_ENABLE_SLOT)
	return t
}

// EnableSlotFromRaw is the checked cast from a raw TRB.
func EnableSlotFromRaw(r RawTRB) (*EnableSlot, error) {
	if r.Type() != TRB_TYPE_ENABLE_SLOT {
		return nil, typeMismatch(TRB_TYPE_ENABLE_SLOT, r)
	}
	return &EnableSlot{raw: r}, nil
}

func (t *EnableSlot) Raw() RawTRB  { return t.raw }
func (t *EnableSlot) commandRing() {}

// SetSlotType sets the Slot Type field.
func (t *EnableSlot) SetSlotType(s uint8) *EnableSlot {
	TRB_CONTROL_SLOT_TYPE.write(&t.raw[3], uint32(s))
	return t
}

// SlotType returns the Slot Type field.
func (t *EnableSlot) SlotType() uint8 {
	return uint8(TRB_CONTROL_SLOT_TYPE.read(t.raw[3]))
}

// Disable Slot Command TRB.
type DisableSlot struct{ raw RawTRB }

// NewDisableSlot returns a zeroed Disable Slot command with the Type preset.
func NewDisableSlot() *DisableSlot {
	t := &DisableSlot{}
	t.raw.setType(TRB_TYPE_DISABLE_SLOT)
	return t
}

// DisableSlotFromRaw is the checked cast from a raw TRB.
func DisableSlotFromRaw(r RawTRB) (*DisableSlot, error) {
	if r.Type() != TRB_TYPE_DISABLE_SLOT {
		return nil, typeMismatch(TRB_TYPE_DISABLE_SLOT, r)
	}
	return &DisableSlot{raw: r}, nil
}

func (t *DisableSlot) Raw() RawTRB  { return t.raw }
func (t *DisableSlot) commandRing() {}

// SetSlotID sets the Slot ID field.
func (t *DisableSlot) SetSlotID(i uint8) *DisableSlot {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *DisableSlot) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// Address Device Command TRB.
type AddressDevice struct{ raw RawTRB }

// NewAddressDevice returns a zeroed Address Device command with the Type preset.
func NewAddressDevice() *AddressDevice {
	t := &AddressDevice{}
	t.raw.setType(TRB_TYPE_ADDRESS_DEVICE)
	return t
}

// AddressDeviceFromRaw is the checked cast from a raw TRB.
func AddressDeviceFromRaw(r RawTRB) (*AddressDevice, error) {
	if r.Type() != TRB_TYPE_ADDRESS_DEVICE {
		return nil, typeMismatch(TRB_TYPE_ADDRESS_DEVICE, r)
	}
	return &AddressDevice{raw: r}, nil
}

func (t *AddressDevice) Raw() RawTRB  { return t.raw }
func (t *AddressDevice) commandRing() {}

// SetInputContextPointer sets the Input Context Pointer field.
// Panics if p is not 16-byte aligned.
func (t *AddressDevice) SetInputContextPointer(p uint64) *AddressDevice {
	mustAligned16(p, "Input Context Pointer")
	t.raw.setPointer(p)
	return t
}

// InputContextPointer returns the Input Context Pointer field.
func (t *AddressDevice) InputContextPointer() uint64 {
	return t.raw.pointer()
}

// SetBlockSetAddressRequest sets the Block Set Address Request field.
func (t *AddressDevice) SetBlockSetAddressRequest(b bool) *AddressDevice {
	TRB_CONTROL_BSR.write(&t.raw[3], boolToU32(b))
	return t
}

// BlockSetAddressRequest returns the Block Set Address Request field.
func (t *AddressDevice) BlockSetAddressRequest() bool {
	return TRB_CONTROL_BSR.read(t.raw[3]) != 0
}

// SetSlotID sets the Slot ID field.
func (t *AddressDevice) SetSlotID(i uint8) *AddressDevice {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *AddressDevice) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// Configure Endpoint Command TRB.
type ConfigureEndpoint struct{ raw RawTRB }

// NewConfigureEndpoint returns a zeroed Configure Endpoint command with the Type preset.
func NewConfigureEndpoint() *ConfigureEndpoint {
	t := &ConfigureEndpoint{}
	t.raw.setType(TRB_TYPE_CONFIGURE_ENDPOINT)
	return t
}

// ConfigureEndpointFromRaw is the checked cast from a raw TRB.
func ConfigureEndpointFromRaw(r RawTRB) (*ConfigureEndpoint, error) {
	if r.Type() != TRB_TYPE_CONFIGURE_ENDPOINT {
		return nil, typeMismatch(TRB_TYPE_CONFIGURE_ENDPOINT, r)
	}
	return &ConfigureEndpoint{raw: r}, nil
}

func (t *ConfigureEndpoint) Raw() RawTRB  { return t.raw }
func (t *ConfigureEndpoint) commandRing() {}

// SetInputContextPointer sets the Input Context Pointer field.
// Panics if p is not 16-byte aligned.
func (t *ConfigureEndpoint) SetInputContextPointer(p uint64) *ConfigureEndpoint {
	mustAligned16(p, "Input Context Pointer")
	t.raw.setPointer(p)
	return t
}

// InputContextPointer returns the Input Context Pointer field.
func (t *ConfigureEndpoint) InputContextPointer() uint64 {
	return t.raw.pointer()
}

// SetDeconfigure sets the Deconfigure field.
func (t *ConfigureEndpoint) SetDeconfigure(b bool) *ConfigureEndpoint {
	TRB_CONTROL_DECONFIGURE.write(&t.raw[3], boolToU32(b))
	return t
}

// Deconfigure returns the Deconfigure field.
func (t *ConfigureEndpoint) Deconfigure() bool {
	return TRB_CONTROL_DECONFIGURE.read(t.raw[3]) != 0
}

// SetSlotID sets the Slot ID field.
func (t *ConfigureEndpoint) SetSlotID(i uint8) *ConfigureEndpoint {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *ConfigureEndpoint) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// Evaluate Context Command TRB.
type EvaluateContext struct{ raw RawTRB }

// NewEvaluateContext returns a zeroed Evaluate Context command with the Type preset.
func NewEvaluateContext() *EvaluateContext {
	t := &EvaluateContext{}
	t.raw.setType(TRB_TYPE_EVALUATE_CONTEXT)
	return t
}

// EvaluateContextFromRaw is the checked cast from a raw TRB.
func EvaluateContextFromRaw(r RawTRB) (*EvaluateContext, error) {
	if r.Type() != TRB_TYPE_EVALUATE_CONTEXT {
		return nil, typeMismatch(TRB_TYPE_EVALUATE_CONTEXT, r)
	}
	return &EvaluateContext{raw: r}, nil
}

func (t *EvaluateContext) Raw() RawTRB  { return t.raw }
func (t *EvaluateContext) commandRing() {}

// SetInputContextPointer sets the Input Context Pointer field.
// Panics if p is not 16-byte aligned.
func (t *EvaluateContext) SetInputContextPointer(p uint64) *EvaluateContext {
	mustAligned16(p, "Input Context Pointer")
	t.raw.setPointer(p)
	return t
}

// InputContextPointer returns the Input Context Pointer field.
func (t *EvaluateContext) InputContextPointer() uint64 {
	return t.raw.pointer()
}

// SetSlotID sets the Slot ID field.
func (t *EvaluateContext) SetSlotID(i uint8) *EvaluateContext {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *EvaluateContext) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// Reset Endpoint Command TRB.
type ResetEndpoint struct{ raw RawTRB }

// NewResetEndpoint returns a zeroed Reset Endpoint command with the Type preset.
func NewResetEndpoint() *ResetEndpoint {
	t := &ResetEndpoint{}
	t.raw.setType(TRB_TYPE_RESET_ENDPOINT)
	return t
}

// ResetEndpointFromRaw is the checked cast from a raw TRB.
func ResetEndpointFromRaw(r RawTRB) (*ResetEndpoint, error) {
	if r.Type() != TRB_TYPE_RESET_ENDPOINT {
		return nil, typeMismatch(TRB_TYPE_RESET_ENDPOINT, r)
	}
	return &ResetEndpoint{raw: r}, nil
}

func (t *ResetEndpoint) Raw() RawTRB  { return t.raw }
func (t *ResetEndpoint) commandRing() {}

// SetTransferStatePreserve sets the Transfer State Preserve field.
func (t *ResetEndpoint) SetTransferStatePreserve(b bool) *ResetEndpoint {
	TRB_CONTROL_TSP.write(&t.raw[3], boolToU32(b))
	return t
}

// TransferStatePreserve returns the Transfer State Preserve field.
func (t *ResetEndpoint) TransferStatePreserve() bool {
	return TRB_CONTROL_TSP.read(t.raw[3]) != 0
}

// SetEndpointID sets the Endpoint ID field.
func (t *ResetEndpoint) SetEndpointID(i uint8) *ResetEndpoint {
	TRB_CONTROL_ENDPOINT_ID.write(&t.raw[3], uint32(i))
	return t
}

// EndpointID returns the Endpoint ID field.
func (t *ResetEndpoint) EndpointID() uint8 {
	return uint8(TRB_CONTROL_ENDPOINT_ID.read(t.raw[3]))
}

// SetSlotID sets the Slot ID field.
func (t *ResetEndpoint) SetSlotID(i uint8) *ResetEndpoint {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *ResetEndpoint) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// Stop Endpoint Command TRB.
type StopEndpoint struct{ raw RawTRB }

// NewStopEndpoint returns a zeroed Stop Endpoint command with the Type preset.
func NewStopEndpoint() *StopEndpoint {
	t := &StopEndpoint{}
	t.raw.setType(TRB_TYPE_STOP_ENDPOINT)
	return t
}

// StopEndpointFromRaw is the checked cast from a raw TRB.
func StopEndpointFromRaw(r RawTRB) (*StopEndpoint, error) {
	if r.Type() != TRB_TYPE_STOP_ENDPOINT {
		return nil, typeMismatch(TRB_TYPE_STOP_ENDPOINT, r)
	}
	return &StopEndpoint{raw: r}, nil
}

func (t *StopEndpoint) Raw() RawTRB  { return t.raw }
func (t *StopEndpoint) commandRing() {}

// SetEndpointID sets the Endpoint ID field.
func (t *StopEndpoint) SetEndpointID(i uint8) *StopEndpoint {
	TRB_CONTROL_ENDPOINT_ID.write(&t.raw[3], uint32(i))
	return t
}

// EndpointID returns the Endpoint ID field.
func (t *StopEndpoint) EndpointID() uint8 {
	return uint8(TRB_CONTROL_ENDPOINT_ID.read(t.raw[3]))
}

// SetSuspend sets the Suspend field.
func (t *StopEndpoint) SetSuspend(b bool) *StopEndpoint {
	TRB_CONTROL_SUSPEND.write(&t.raw[3], boolToU32(b))
	return t
}

// Suspend returns the Suspend field.
func (t *StopEndpoint) Suspend() bool {
	return TRB_CONTROL_SUSPEND.read(t.raw[3]) != 0
}

// SetSlotID sets the Slot ID field.
func (t *StopEndpoint) SetSlotID(i uint8) *StopEndpoint {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *StopEndpoint) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// Set TR Dequeue Pointer Command TRB. Relocates the consumer's read
// cursor on a Transfer Ring, abandoning everything between the old and
// new positions.
type SetTRDequeuePointer struct{ raw RawTRB }

// NewSetTRDequeuePointer returns a zeroed Set TR Dequeue Pointer command
// with the Type preset.
func NewSetTRDequeuePointer() *SetTRDequeuePointer {
	t := &SetTRDequeuePointer{}
	t.raw.setType(TRB_TYPE_SET_TR_DEQUEUE_POINTER)
	return t
}

// SetTRDequeuePointerFromRaw is the checked cast from a raw TRB.
func SetTRDequeuePointerFromRaw(r RawTRB) (*SetTRDequeuePointer, error) {
	if r.Type() != TRB_TYPE_SET_TR_DEQUEUE_POINTER {
		return nil, typeMismatch(TRB_TYPE_SET_TR_DEQUEUE_POINTER, r)
	}
	return &SetTRDequeuePointer{raw: r}, nil
}

func (t *SetTRDequeuePointer) Raw() RawTRB  { return t.raw }
func (t *SetTRDequeuePointer) commandRing() {}

// SetDequeueCycleState sets the Dequeue Cycle State field.
func (t *SetTRDequeuePointer) SetDequeueCycleState(b bool) *SetTRDequeuePointer {
	TRB_PARAM0_DCS.write(&t.raw[0], boolToU32(b))
	return t
}

// DequeueCycleState returns the Dequeue Cycle State field.
func (t *SetTRDequeuePointer) DequeueCycleState() bool {
	return TRB_PARAM0_DCS.read(t.raw[0]) != 0
}

// SetStreamContextType sets the Stream Context Type field.
func (t *SetTRDequeuePointer) SetStreamContextType(s uint8) *SetTRDequeuePointer {
	TRB_PARAM0_STREAM_CONTEXT_TYPE.write(&t.raw[0], uint32(s))
	return t
}

// StreamContextType returns the Stream Context Type field.
func (t *SetTRDequeuePointer) StreamContextType() uint8 {
	return uint8(TRB_PARAM0_STREAM_CONTEXT_TYPE.read(t.raw[0]))
}

// SetNewTRDequeuePointer sets the New TR Dequeue Pointer field. The low
// 4 bits of word 0 hold DCS and the Stream Context Type, so only bits
// 4-63 of the pointer are stored. Panics if p is not 16-byte aligned.
func (t *SetTRDequeuePointer) SetNewTRDequeuePointer(p uint64) *SetTRDequeuePointer {
	mustAligned16(p, "New TR Dequeue Pointer")
	t.raw[0] = (t.raw[0] & 0xF) | uint32(p)
	t.raw[1] = uint32(p >> 32)
	return t
}

// NewTRDequeuePointer returns the New TR Dequeue Pointer field, with the
// low 4 flag bits masked off.
func (t *SetTRDequeuePointer) NewTRDequeuePointer() uint64 {
	return t.raw.pointer() &^ 0xF
}

// SetStreamID sets the Stream ID field.
func (t *SetTRDequeuePointer) SetStreamID(i uint16) *SetTRDequeuePointer {
	TRB_PARAM2_STREAM_ID.write(&t.raw[2], uint32(i))
	return t
}

// StreamID returns the Stream ID field.
func (t *SetTRDequeuePointer) StreamID() uint16 {
	return uint16(TRB_PARAM2_STREAM_ID.read(t.raw[2]))
}

// SetEndpointID sets the Endpoint ID field.
func (t *SetTRDequeuePointer) SetEndpointID(i uint8) *SetTRDequeuePointer {
	TRB_CONTROL_ENDPOINT_ID.write(&t.raw[3], uint32(i))
	return t
}

// EndpointID returns the Endpoint ID field.
func (t *SetTRDequeuePointer) EndpointID() uint8 {
	return uint8(TRB_CONTROL_ENDPOINT_ID.read(t.raw[3]))
}

// SetSlotID sets the Slot ID field.
func (t *SetTRDequeuePointer) SetSlotID(i uint8) *SetTRDequeuePointer {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *SetTRDequeuePointer) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// No Op Command TRB.
type Noop struct{ raw RawTRB }

// NewNoop returns a zeroed No Op command with the Type preset.
func NewNoop() *Noop {
	t := &Noop{}
	t.raw.setType(TRB_TYPE_NOOP_COMMAND)
	return t
}

// NoopFromRaw is the checked cast from a raw TRB.
func NoopFromRaw(r RawTRB) (*Noop, error) {
	if r.Type() != TRB_TYPE_NOOP_COMMAND {
		return nil, typeMismatch(TRB_TYPE_NOOP_COMMAND, r)
	}
	return &Noop{raw: r}, nil
}

func (t *Noop) Raw() RawTRB  { return t.raw }
func (t *Noop) commandRing() {}

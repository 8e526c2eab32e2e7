// This file implements the Command Ring and Event Ring cycle-bit
// protocol based on xHCI spec rev1.2 section 4.9. A ring is a circular
// buffer of 16-byte TRB slots shared with the controller; ownership of
// each slot is signalled by a single cycle bit, and a Link TRB in the
// reserved final slot marks wraparound and flips the consumer's expected
// parity. There is no head/tail exchange and no lock: the producer and
// the controller synchronize through the cycle bit alone.

package xhci

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"k8s.io/klog/v2"
)

// Ring is a single-producer Command Ring. Software is the only writer;
// the controller consumes asynchronously via DMA. Concurrent producers
// on one ring require an external lock and are outside this contract.
type Ring struct {
	slots []RawTRB
	base  uint64
	enq   int
	cycle bool
}

// slotsOf lays a TRB slot view over a backing region obtained from a
// Mapper. The region's physical base must be 16-byte aligned; a
// misaligned base would corrupt the flag bits of every pointer the
// controller reads back, so this is a fatal precondition.
func slotsOf(region []byte, base uint64) ([]RawTRB, error) {
	mustAligned16(base, "ring segment base")
	if len(region)%TRB_SIZE != 0 {
		return nil, fmt.Errorf("xhci: ring region size %d is not a multiple of %d", len(region), TRB_SIZE)
	}
	capacity := len(region) / TRB_SIZE
	if capacity < 2 {
		return nil, fmt.Errorf("xhci: ring needs at least 2 slots, region holds %d", capacity)
	}
	return unsafe.Slice((*RawTRB)(unsafe.Pointer(&region[0])), capacity), nil
}

// NewCommandRing lays a Command Ring over region, whose physical (bus)
// address is base. Capacity is fixed at len(region)/16 for the ring's
// lifetime; the final slot is reserved for the Link TRB. The ring starts
// with cycle state true, matching the controller's reset expectation.
//
// Construct at most once per region: a second producer over the same
// memory is a data race with this one and with the controller.
func NewCommandRing(region []byte, base uint64) (*Ring, error) {
	slots, err := slotsOf(region, base)
	if err != nil {
		return nil, err
	}
	klog.V(DBG_LVL_INFO).InfoS("xhci-ring.NewCommandRing", "base", hex(base), "capacity", len(slots))
	return &Ring{slots: slots, base: base, cycle: true}, nil
}

// Capacity returns the total slot count, including the reserved Link slot.
func (r *Ring) Capacity() int { return len(r.slots) }

// EnqueueIndex returns the slot the next command will land in.
func (r *Ring) EnqueueIndex() int { return r.enq }

// CycleState returns the ring's current logical cycle state. Every
// just-enqueued TRB carries this value.
func (r *Ring) CycleState() bool { return r.cycle }

// Base returns the segment's physical base address.
func (r *Ring) Base() uint64 { return r.base }

// Restore rewinds the producer cursor and cycle state, e.g. after a
// restart, to the position derived from the last acknowledged command
// completion. It does not touch ring memory.
func (r *Ring) Restore(enqueueIndex int, cycleState bool) error {
	if enqueueIndex < 0 || enqueueIndex >= len(r.slots) {
		return fmt.Errorf("xhci: enqueue index %d out of range [0,%d)", enqueueIndex, len(r.slots))
	}
	r.enq = enqueueIndex
	r.cycle = cycleState
	return nil
}

// Enqueue stamps cmd with the ring's cycle state and publishes it to the
// controller. When the cursor sits on the reserved final slot, a Link
// TRB targeting the segment base, with Toggle Cycle set, is published
// first and the ring's cycle state flips before the command lands at
// slot 0. The returned value is the physical address of the slot the
// command landed in; a later Command Completion event carries it back as
// the only correlation key, so callers must retain it per outstanding
// command. Enqueued TRBs cannot be withdrawn.
//
// Enqueue does not ring a doorbell. Notify the controller through the
// doorbell/runtime layer after it returns.
func (r *Ring) Enqueue(cmd CommandTRB) uint64 {
	if r.enq == len(r.slots)-1 {
		r.enqueueLink()
	}
	addr := r.base + uint64(r.enq)*TRB_SIZE
	r.publish(r.enq, cmd.Raw())
	klog.V(DBG_LVL_DETAIL).InfoS("xhci-ring.Enqueue", "type", cmd.Raw().Type().String(), "index", r.enq, "addr", hex(addr), "cycle", r.cycle)
	r.enq++
	return addr
}

// enqueueLink publishes the wraparound Link TRB into the reserved final
// slot, stamped with the pre-flip cycle state, then flips the logical
// cycle state and rewinds the cursor.
func (r *Ring) enqueueLink() {
	link := NewLink().SetRingSegmentPointer(r.base).SetToggleCycle(true)
	r.publish(len(r.slots)-1, link.Raw())
	r.cycle = !r.cycle
	r.enq = 0
}

// publish writes the TRB body first and releases word 3 — carrying the
// cycle bit — last, so the controller can never observe a half-written
// descriptor behind a live cycle bit. The same store ordering covers any
// doorbell write issued after Enqueue returns.
func (r *Ring) publish(i int, raw RawTRB) {
	raw.SetCycleBit(r.cycle)
	slot := &r.slots[i]
	slot[0] = raw[0]
	slot[1] = raw[1]
	slot[2] = raw[2]
	atomic.StoreUint32(&slot[3], raw[3])
}

// EventRing is the consumer side of the same slot layout: the controller
// produces event TRBs and software dequeues them by parity. Event
// segments carry no Link TRBs; the consumer wraps at the segment end and
// flips its expected parity itself.
type EventRing struct {
	slots []RawTRB
	base  uint64
	deq   int
	cycle bool
}

// NewEventRing lays an Event Ring consumer over region at physical
// address base. The same single-accessor rule applies as for
// NewCommandRing.
func NewEventRing(region []byte, base uint64) (*EventRing, error) {
	slots, err := slotsOf(region, base)
	if err != nil {
		return nil, err
	}
	klog.V(DBG_LVL_INFO).InfoS("xhci-ring.NewEventRing", "base", hex(base), "capacity", len(slots))
	return &EventRing{slots: slots, base: base, cycle: true}, nil
}

// Capacity returns the segment's slot count.
func (r *EventRing) Capacity() int { return len(r.slots) }

// CycleState returns the parity the next produced event must carry.
func (r *EventRing) CycleState() bool { return r.cycle }

// DequeuePointer returns the physical address of the next slot to
// consume, suitable for writing back to the interrupter's ERDP register.
func (r *EventRing) DequeuePointer() uint64 {
	return r.base + uint64(r.deq)*TRB_SIZE
}

// Dequeue returns the next event published by the controller. It reports
// ok=false when the current slot's cycle bit still carries the stale
// parity, meaning hardware has not produced past this point. Word 3 is
// loaded with acquire ordering before the body is read, mirroring the
// producer-side release.
func (r *EventRing) Dequeue() (RawTRB, bool) {
	slot := &r.slots[r.deq]
	w3 := atomic.LoadUint32(&slot[3])
	if (TRB_CONTROL_CYCLE_BIT.read(w3) != 0) != r.cycle {
		return RawTRB{}, false
	}
	trb := RawTRB{slot[0], slot[1], slot[2], w3}
	r.deq++
	if r.deq == len(r.slots) {
		r.deq = 0
		r.cycle = !r.cycle
	}
	klog.V(DBG_LVL_DETAIL).InfoS("xhci-ring.Dequeue", "type", trb.Type().String(), "index", r.deq, "cycle", r.cycle)
	return trb, true
}

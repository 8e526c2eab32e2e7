// This file implements the bitfield handling for the xHCI binary
// structures. Register blocks are declared as plain structs of
// bit-sized fields and decoded from their raw byte image, which keeps
// the layout tables readable and avoids packed-struct assumptions.

package xhci

import (
	"encoding/binary"
	"errors"
	"io"
	"reflect"

	"k8s.io/klog/v2"
)

// Bit-sized field types. The declared width drives the decode, the
// underlying integer only has to be wide enough to hold the value.
type bitfield_1b uint8
type bitfield_2b uint8
type bitfield_3b uint8
type bitfield_4b uint8
type bitfield_5b uint8
type bitfield_6b uint8
type bitfield_8b uint8
type bitfield_11b uint16
type bitfield_12b uint16
type bitfield_13b uint16
type bitfield_16b uint16
type bitfield_28b uint32

var bitfieldWidths = map[reflect.Type]int{
	reflect.TypeOf(bitfield_1b(0)):  1,
	reflect.TypeOf(bitfield_2b(0)):  2,
	reflect.TypeOf(bitfield_3b(0)):  3,
	reflect.TypeOf(bitfield_4b(0)):  4,
	reflect.TypeOf(bitfield_5b(0)):  5,
	reflect.TypeOf(bitfield_6b(0)):  6,
	reflect.TypeOf(bitfield_8b(0)):  8,
	reflect.TypeOf(bitfield_11b(0)): 11,
	reflect.TypeOf(bitfield_12b(0)): 12,
	reflect.TypeOf(bitfield_13b(0)): 13,
	reflect.TypeOf(bitfield_16b(0)): 16,
	reflect.TypeOf(bitfield_28b(0)): 28,
}

// bitSizeOfArray returns the bit width of every leaf field of v, in
// declaration order.
func bitSizeOfArray(v reflect.Value) []int {
	t := v.Type()
	if w, ok := bitfieldWidths[t]; ok {
		return []int{w}
	}

	switch t.Kind() {
	case reflect.Array, reflect.Slice:
		widths := []int{}
		for i, n := 0, v.Len(); i < n; i++ {
			widths = append(widths, bitSizeOfArray(v.Index(i))...)
		}
		return widths

	case reflect.Struct:
		widths := []int{}
		for i, n := 0, t.NumField(); i < n; i++ {
			widths = append(widths, bitSizeOfArray(v.Field(i))...)
		}
		return widths

	case reflect.Bool,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []int{int(t.Size()) * 8}
	}

	klog.V(2).InfoS("bitfield.bitSizeOfArray unsupported kind", "kind", t.Kind().String())
	return []int{}
}

// dataSize returns the number of bytes the decoded value of v occupies
// in the staging buffer (full storage bytes per field, not packed bits).
func dataSize(v reflect.Value) int {
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		if v.Len() == 0 {
			return 0
		}
		if s := dataSize(v.Index(0)); s >= 0 {
			return s * v.Len()
		}
		return -1

	case reflect.Struct:
		sum := 0
		for i, n := 0, v.NumField(); i < n; i++ {
			s := dataSize(v.Field(i))
			if s < 0 {
				return -1
			}
			sum += s
		}
		return sum

	default:
		return int(v.Type().Size())
	}
}

// readByBit unpacks the packed bit image in rBuf into buf, one field
// per widths entry, each widened to its storage size.
func readByBit(rBuf []byte, buf []byte, widths []int) {
	bitOfs := 0
	i := 0
	for _, width := range widths {
		endBit := bitOfs + width - 1
		startByte := bitOfs >> 3
		endByte := endBit >> 3
		bitShift := bitOfs - startByte*8
		mask := uint64(1<<width - 1)

		if endByte-startByte >= 8 {
			klog.Fatal("bitfield: unsupported field width")
		}
		val := uint64(0)
		for iShift := 0; iShift <= endByte-startByte; iShift++ {
			val |= uint64(rBuf[startByte+iShift]) << (8 * iShift)
		}
		val = (val >> uint64(bitShift)) & mask

		dataBytes := (width - 1) >> 3
		for iShift := 0; iShift <= dataBytes; iShift++ {
			buf[i+iShift] = byte(val >> (8 * iShift))
		}
		i += 1 + dataBytes
		bitOfs += width
	}
}

// BitFieldRead reads the packed binary image from r into data, which
// must be a pointer to a fixed-size struct of bitfield and unsigned
// integer fields. xHCI registers are little endian.
func BitFieldRead(r io.Reader, data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer {
		return errors.New("bitfield.BitFieldRead: data must be a pointer, got " + reflect.TypeOf(data).String())
	}
	v = v.Elem()
	size := dataSize(v)
	if size < 0 {
		return errors.New("bitfield.BitFieldRead: invalid type " + reflect.TypeOf(data).String())
	}
	widths := bitSizeOfArray(v)

	packedBits := 0
	for _, w := range widths {
		packedBits += w
	}
	rBuf := make([]byte, (packedBits+7)/8)
	if _, err := io.ReadFull(r, rBuf); err != nil {
		return err
	}

	d := &decoder{buf: make([]byte, size)}
	readByBit(rBuf, d.buf, widths)
	d.value(v)
	return nil
}

type decoder struct {
	buf    []byte
	offset int
}

func (d *decoder) uint8() uint8 {
	x := d.buf[d.offset]
	d.offset++
	return x
}

func (d *decoder) uint16() uint16 {
	x := binary.LittleEndian.Uint16(d.buf[d.offset : d.offset+2])
	d.offset += 2
	return x
}

func (d *decoder) uint32() uint32 {
	x := binary.LittleEndian.Uint32(d.buf[d.offset : d.offset+4])
	d.offset += 4
	return x
}

func (d *decoder) uint64() uint64 {
	x := binary.LittleEndian.Uint64(d.buf[d.offset : d.offset+8])
	d.offset += 8
	return x
}

func (d *decoder) value(v reflect.Value) {
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		for i, l := 0, v.Len(); i < l; i++ {
			d.value(v.Index(i))
		}

	case reflect.Struct:
		t := v.Type()
		for i, l := 0, v.NumField(); i < l; i++ {
			if f := v.Field(i); f.CanSet() || t.Field(i).Name != "_" {
				d.value(f)
			} else {
				d.offset += dataSize(f)
			}
		}

	case reflect.Bool:
		v.SetBool(d.uint8() != 0)

	case reflect.Uint8:
		v.SetUint(uint64(d.uint8()))
	case reflect.Uint16:
		v.SetUint(uint64(d.uint16()))
	case reflect.Uint32:
		v.SetUint(uint64(d.uint32()))
	case reflect.Uint64:
		v.SetUint(d.uint64())

	case reflect.Int8:
		v.SetInt(int64(int8(d.uint8())))
	case reflect.Int16:
		v.SetInt(int64(int16(d.uint16())))
	case reflect.Int32:
		v.SetInt(int64(int32(d.uint32())))
	case reflect.Int64:
		v.SetInt(int64(d.uint64()))
	}
}

// u32field/u64field name a bit range inside a live hardware register or
// TRB word. Reads and writes are confined to the named range.
type u32field struct {
	offset   int
	bitwidth int
}

func (u *u32field) mask() uint32 {
	return (1<<u.bitwidth - 1) << u.offset
}

func (u *u32field) read(reg uint32) uint32 {
	return (reg >> u.offset) & (1<<u.bitwidth - 1)
}

func (u *u32field) write(reg *uint32, val uint32) {
	*reg = (*reg &^ u.mask()) | ((val << u.offset) & u.mask())
}

type u64field struct {
	offset   int
	bitwidth int
}

func (u *u64field) mask() uint64 {
	return (1<<u.bitwidth - 1) << u.offset
}

func (u *u64field) read(reg uint64) uint64 {
	return (reg >> u.offset) & (1<<u.bitwidth - 1)
}

func (u *u64field) write(reg *uint64, val uint64) {
	*reg = (*reg &^ u.mask()) | ((val << u.offset) & u.mask())
}

package xhci

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU32Field_ReadWrite(t *testing.T) {
	tests := []struct {
		name  string
		field u32field
		val   uint32
	}{
		{"cycle bit", u32field{offset: 0, bitwidth: 1}, 1},
		{"trb type", u32field{offset: 10, bitwidth: 6}, 33},
		{"slot id", u32field{offset: 24, bitwidth: 8}, 0xAB},
		{"stream id", u32field{offset: 16, bitwidth: 16}, 0x1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reg uint32
			tt.field.write(&reg, tt.val)
			assert.Equal(t, tt.val, tt.field.read(reg))
		})
	}
}

func TestU32Field_WriteIsolation(t *testing.T) {
	// a write must not disturb bits outside the named range
	field := u32field{offset: 10, bitwidth: 6}
	reg := uint32(0xFFFFFFFF)
	field.write(&reg, 0)
	assert.Equal(t, ^field.mask(), reg)

	reg = 0
	field.write(&reg, 0x3F)
	assert.Equal(t, field.mask(), reg)
}

func TestU32Field_WriteTruncatesValue(t *testing.T) {
	field := u32field{offset: 4, bitwidth: 4}
	var reg uint32
	field.write(&reg, 0x1FF) // wider than 4 bits
	assert.Equal(t, uint32(0xF), field.read(reg))
	assert.Equal(t, uint32(0xF0), reg)
}

func TestU64Field_ReadWrite(t *testing.T) {
	field := u64field{offset: 4, bitwidth: 60}
	var reg uint64
	field.write(&reg, 0x0FFF_FFFF_FFFF_FFF0>>4)
	assert.Equal(t, uint64(0x0FFF_FFFF_FFFF_FFF0>>4), field.read(reg))

	low := u64field{offset: 0, bitwidth: 4}
	assert.Equal(t, uint64(0), low.read(reg))
}

func TestBitFieldRead_HCSPARAMS2(t *testing.T) {
	// ERST_Max=3, Max_Scratchpad_Hi=2, SPR=1, Max_Scratchpad_Lo=1
	raw := uint32(3<<4 | 2<<20 | 1<<26 | 1<<27)
	got := parseStruct(u32toByte([]uint32{raw}), HCSPARAMS2{})

	assert.Equal(t, bitfield_4b(0), got.IST)
	assert.Equal(t, bitfield_4b(3), got.ERST_Max)
	assert.Equal(t, bitfield_6b(2), got.Max_Scratchpad_Hi)
	assert.Equal(t, bitfield_1b(1), got.SPR)
	assert.Equal(t, bitfield_5b(1), got.Max_Scratchpad_Lo)
}

func TestBitFieldRead_MixedWidths(t *testing.T) {
	type sample struct {
		A bitfield_4b
		B bitfield_12b
		C uint16
		D [2]uint8
	}
	// packed image: A=0xA, B=0x123, C=0xBEEF, D={1,2}
	img := []byte{0x3A, 0x12, 0xEF, 0xBE, 0x01, 0x02}
	var got sample
	require.NoError(t, BitFieldRead(bytes.NewReader(img), &got))

	assert.Equal(t, bitfield_4b(0xA), got.A)
	assert.Equal(t, bitfield_12b(0x123), got.B)
	assert.Equal(t, uint16(0xBEEF), got.C)
	assert.Equal(t, [2]uint8{1, 2}, got.D)
}

func TestBitFieldRead_RequiresPointer(t *testing.T) {
	err := BitFieldRead(bytes.NewReader(make([]byte, 4)), HCSPARAMS2{})
	require.Error(t, err)
}

func TestBitFieldRead_ShortInput(t *testing.T) {
	var got HCSPARAMS2
	err := BitFieldRead(bytes.NewReader([]byte{0x01}), &got)
	require.Error(t, err)
}

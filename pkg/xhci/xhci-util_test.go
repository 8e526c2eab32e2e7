package xhci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBDF_AddrToBDF(t *testing.T) {
	tests := []struct {
		addr     string
		expected BDF
	}{
		{"0000:00:14.0", BDF{Domain: 0, Bus: 0, Device: 0x14, Function: 0}},
		{"0000:3a:00.1", BDF{Domain: 0, Bus: 0x3A, Device: 0, Function: 1}},
		{"0001:ff:1f.7", BDF{Domain: 1, Bus: 0xFF, Device: 0x1F, Function: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			bdf := BDF{}
			bdf.addrToBDF(tt.addr)
			assert.Equal(t, tt.expected, bdf)
		})
	}
}

func TestXhciDev_BdfStrings(t *testing.T) {
	dev := XhciDev{Bdf: &BDF{Domain: 0, Bus: 0x3A, Device: 0, Function: 1}}
	assert.Equal(t, "3A:00.1", dev.GetBdfString())
	assert.Equal(t, "0000:3a:00.1", dev.GetBdfSysfsString())
}

func TestHexToInt(t *testing.T) {
	assert.Equal(t, uint64(0xFE000000), hexToInt("fe000000"))
	assert.Equal(t, uint64(0x1F), hexToInt("1F"))
	assert.Equal(t, uint64(0), hexToInt("not hex"))
}

func TestHex(t *testing.T) {
	assert.Equal(t, "FF", hex(uint64(255)))
	assert.Equal(t, "1000", hex(0x1000))
}

func TestU32ToByte(t *testing.T) {
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, u32toByte([]uint32{0x12345678}))
	assert.Len(t, u32toByte([]uint32{1, 2, 3}), 12)
}

func TestUintToBool(t *testing.T) {
	assert.True(t, UintToBool(1))
	assert.False(t, UintToBool(0))
}

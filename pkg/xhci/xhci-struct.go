// This file implements the xHCI related structures based on xHCI spec rev1.2
package xhci

import "encoding/binary"

const XHCI_PCI_CLASS_CODE = 0x0C0330
const XECP_NEXT_DWORD_SHIFT = 2

// define for PCIE config space struct
type PCIE_CLASS_CODE struct {
	Prog_if         uint8
	Sub_Class_Code  uint8
	Base_Class_Code uint8
}

type BAR struct {
	Region_Type  bitfield_1b
	Locatable    bitfield_2b
	Prefetchable bitfield_1b
	Base_Address bitfield_28b
}

type PCIE_CONFIG_HDR struct {
	Vendor_ID              uint16
	Device_ID              uint16
	Command                uint16
	Status                 int16
	Rev_ID                 uint8
	Class_Code             PCIE_CLASS_CODE
	Misc                   uint32
	Base_Address_Registers [6]BAR
	Misc2                  [6]int32
}

// Structural Parameters 1
type HCSPARAMS1 struct {
	MaxSlots bitfield_8b
	MaxIntrs bitfield_11b
	Rsvd     bitfield_5b
	MaxPorts bitfield_8b
}

// Structural Parameters 2. The scratchpad count is split across two
// disjoint bit ranges.
type HCSPARAMS2 struct {
	IST               bitfield_4b
	ERST_Max          bitfield_4b
	Rsvd              bitfield_12b
	Max_Scratchpad_Hi bitfield_6b
	SPR               bitfield_1b
	Max_Scratchpad_Lo bitfield_5b
}

// Capability Parameters 1
type HCCPARAMS1 struct {
	AC64       bitfield_1b
	BNC        bitfield_1b
	CSZ        bitfield_1b
	PPC        bitfield_1b
	PIND       bitfield_1b
	LHRC       bitfield_1b
	LTC        bitfield_1b
	NSS        bitfield_1b
	PAE        bitfield_1b
	SPC        bitfield_1b
	SEC        bitfield_1b
	CFC        bitfield_1b
	MaxPSASize bitfield_4b
	XECP       bitfield_16b
}

type xhci_ext_cap_id uint8

const (
	XHCI_EXT_CAP_RESERVED           xhci_ext_cap_id = iota // 0
	XHCI_EXT_CAP_USB_LEGACY_SUPPORT                        // 1
	XHCI_EXT_CAP_SUPPORTED_PROTOCOL                        // 2
	XHCI_EXT_CAP_EXTENDED_PM                               // 3
	XHCI_EXT_CAP_IO_VIRTUALIZATION                         // 4
	XHCI_EXT_CAP_MESSAGE_INTERRUPT                         // 5
	XHCI_EXT_CAP_LOCAL_MEMORY                              // 6
)

const (
	XHCI_EXT_CAP_USB_DEBUG    xhci_ext_cap_id = 10
	XHCI_EXT_CAP_EXTENDED_MSI xhci_ext_cap_id = 17
)

func (x xhci_ext_cap_id) String() string {
	switch x {
	case XHCI_EXT_CAP_USB_LEGACY_SUPPORT:
		return "USB_LEGACY_SUPPORT"
	case XHCI_EXT_CAP_SUPPORTED_PROTOCOL:
		return "SUPPORTED_PROTOCOL"
	case XHCI_EXT_CAP_EXTENDED_PM:
		return "EXTENDED_PM"
	case XHCI_EXT_CAP_IO_VIRTUALIZATION:
		return "IO_VIRTUALIZATION"
	case XHCI_EXT_CAP_MESSAGE_INTERRUPT:
		return "MESSAGE_INTERRUPT"
	case XHCI_EXT_CAP_LOCAL_MEMORY:
		return "LOCAL_MEMORY"
	case XHCI_EXT_CAP_USB_DEBUG:
		return "USB_DEBUG"
	case XHCI_EXT_CAP_EXTENDED_MSI:
		return "EXTENDED_MSI"
	}
	return "unknown"
}

// ExtendedCapability is one decoded entry of the extended capability
// list rooted at HCCPARAMS1.xECP.
type ExtendedCapability struct {
	ID     xhci_ext_cap_id
	Offset uint32 // byte offset from the MMIO base
	Header uint32 // raw first DWORD, capability-specific bits 16:31
}

// WalkExtendedCapabilities decodes the extended capability list from a
// snapshot of the MMIO space. region starts at the MMIO base;
// xecpByteOfs is the byte offset from ExtendedCapabilitiesPointer, 0
// meaning no list. The Next field of each header is a DWORD offset
// relative to the current capability; 0 terminates.
func WalkExtendedCapabilities(region []byte, xecpByteOfs uint32) []ExtendedCapability {
	caps := []ExtendedCapability{}
	ofs := xecpByteOfs
	for ofs != 0 && int(ofs)+4 <= len(region) {
		hdr := binary.LittleEndian.Uint32(region[ofs:])
		caps = append(caps, ExtendedCapability{
			ID:     xhci_ext_cap_id(hdr & 0xFF),
			Offset: ofs,
			Header: hdr,
		})
		next := (hdr >> 8) & 0xFF
		if next == 0 {
			break
		}
		ofs += next << XECP_NEXT_DWORD_SHIFT
	}
	return caps
}

// This file implements the API functions of the xhci library
package xhci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jaypipes/pcidb"
	"k8s.io/klog/v2"
)

const (
	DBG_LVL_DEFAUILT    = iota //0
	DBG_LVL_BASIC              //1
	DBG_LVL_INFO               //2
	DBG_LVL_DETAIL             //3
	DBG_LVL_DEEP_DETAIL        //4
)

var (
	pciDB     *pcidb.PCIDB
	pciDBOnce sync.Once
)

// lookupPciDB loads the pci.ids database on first use. Lookup callers
// fall back to "Unkown Vendor" style strings when the host has no
// database installed.
func lookupPciDB() *pcidb.PCIDB {
	pciDBOnce.Do(func() {
		db, err := pcidb.New()
		if err != nil {
			klog.V(DBG_LVL_BASIC).InfoS("xhci-util.lookupPciDB pci.ids unavailable", "err", err)
			return
		}
		pciDB = db
	})
	return pciDB
}

// XhciDev is one USB3 host controller found on the PCI bus.
type XhciDev struct {
	Bdf      *BDF   `json:"BDF"`
	PCIE     []byte `json:"-"`
	MmioBase uint64 `json:"MmioBase"`
}

// initialize the structure based on BDF value
func (x *XhciDev) init(b *BDF) error {
	if b == nil {
		return fmt.Errorf("bdf is empty")
	}
	x.Bdf = b
	if err := x.updatePcieConfig(); err != nil {
		return err
	}
	base, err := readMmioBase(x.GetBdfSysfsString())
	if err != nil {
		return err
	}
	x.MmioBase = base
	return nil
}

// Update local copy of the pcie config .
func (x *XhciDev) updatePcieConfig() error {
	path := fmt.Sprintf("/sys/bus/pci/devices/%s/config", x.GetBdfSysfsString())
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	x.PCIE = fileBytes
	return nil
}

// return the BDF as string BUS:DEV.FUN
func (x *XhciDev) GetBdfString() string {
	return fmt.Sprintf("%02X:%02X.%1X", x.Bdf.Bus, x.Bdf.Device, x.Bdf.Function)
}

// return the BDF in the sysfs directory format DOMAIN:BUS:DEV.FUN
func (x *XhciDev) GetBdfSysfsString() string {
	return fmt.Sprintf("%04x:%02x:%02x.%1x", x.Bdf.Domain, x.Bdf.Bus, x.Bdf.Device, x.Bdf.Function)
}

// return the pcie header struct
func (x *XhciDev) GetPcieHdr() *PCIE_CONFIG_HDR {
	pcieHeader := parseStruct(x.PCIE, PCIE_CONFIG_HDR{})
	return &pcieHeader
}

// return the Vendor Info of the PCIe device
func (x *XhciDev) GetVendorInfo() string {
	pcieHeader := parseStruct(x.PCIE, PCIE_CONFIG_HDR{})
	if db := lookupPciDB(); db != nil {
		if vendor, ok := db.Vendors[fmt.Sprintf("%04x", pcieHeader.Vendor_ID)]; ok {
			return vendor.Name
		}
	}
	return "Unkown Vendor"
}

// return the Device Info of the PCIe device
func (x *XhciDev) GetDeviceInfo() string {
	pcieHeader := parseStruct(x.PCIE, PCIE_CONFIG_HDR{})
	if db := lookupPciDB(); db != nil {
		if vendor, ok := db.Vendors[fmt.Sprintf("%04x", pcieHeader.Vendor_ID)]; ok {
			for _, product := range vendor.Products {
				if product.ID == fmt.Sprintf("%04x", pcieHeader.Device_ID) {
					return product.Name
				}
			}
		}
	}
	return fmt.Sprintf("0x%X", pcieHeader.Device_ID)
}

// NewCapabilityView maps the controller's capability register block
// through mapper. One view per controller.
func (x *XhciDev) NewCapabilityView(mapper Mapper) (*CapabilityRegisters, error) {
	return NewCapabilityRegisters(x.MmioBase, mapper)
}

// obtain a list of xHCI host controllers on the host
func InitXhciDevList() map[string]*XhciDev {
	XhciDevMap := make(map[string]*XhciDev)

	pcieDevPath := "/sys/bus/pci/devices"
	links, err := os.ReadDir(pcieDevPath)
	if err != nil {
		klog.Fatal(err)
	}
	for _, link := range links {
		// Convert the Linux fs format to structure
		bdf := BDF{}
		bdf.addrToBDF(link.Name())
		if checkXhciDevClass(link.Name()) {
			new_XhciDev := XhciDev{}
			err = new_XhciDev.init(&bdf)
			if err == nil {
				klog.V(DBG_LVL_INFO).InfoS("xhci-util.InitXhciDevList Device found", "Link", link.Name())
				XhciDevMap[new_XhciDev.GetBdfString()] = &new_XhciDev
			}
		}
	}
	return XhciDevMap
}

func checkXhciDevClass(link string) bool {
	path := fmt.Sprintf("/sys/bus/pci/devices/%s/class", link)
	fileBytes, err := os.ReadFile(path)
	klog.V(DBG_LVL_DETAIL).InfoS("xhci-util.checkXhciDevClass", "Link", path, "file", fileBytes)
	if fileBytes != nil && err == nil {
		// 0x0C serial bus, 0x03 USB, prog-if 0x30 xHCI
		if string(fileBytes) == "0x0c0330\n" {
			return true
		}
	}

	return false
}

// readMmioBase: return the BAR0 base from the sysfs resource file
func readMmioBase(addr string) (uint64, error) {
	path := fmt.Sprintf("/sys/bus/pci/devices/%s/resource", addr)
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	// line 0 is BAR0: "start end flags" in hex
	lines := strings.Split(string(fileBytes), "\n")
	if len(lines) == 0 {
		return 0, fmt.Errorf("resource file is empty")
	}
	fields := strings.Fields(lines[0])
	if len(fields) < 2 {
		return 0, fmt.Errorf("resource line format error. Expect $start $end $flags")
	}
	base := hexToInt(strings.TrimPrefix(fields[0], "0x"))
	if base == 0 {
		return 0, fmt.Errorf("BAR0 is not assigned")
	}
	return base, nil
}

// parse binary array into struct.
func parseStruct[T any](b []byte, s T) T {
	buf := &bytes.Buffer{}
	buf.Write(b)
	newStruct := s
	err := BitFieldRead(buf, &newStruct)
	if err != nil {
		klog.Fatal(err)
	}
	return newStruct
}

type BDF struct {
	Domain   uint16 `json:"Domain"`
	Bus      uint8  `json:"Bus"`
	Device   uint8  `json:"Device"`
	Function uint8  `json:"Function"`
}

func (b *BDF) addrToBDF(addr string) {
	bdfStringList := strings.Split(strings.ToLower(addr), ":")
	if len(bdfStringList) != 3 {
		klog.Fatal(fmt.Errorf("address format error. Expect $domain:$bus:$dev.$func"))
	}
	dfStringList := strings.Split(bdfStringList[2], ".")
	if len(dfStringList) != 2 {
		klog.Fatal(fmt.Errorf("address format error. Expect $domain:$bus:$dev.$func"))
	}

	b.Domain = uint16(hexToInt(bdfStringList[0]))
	b.Bus = uint8(hexToInt(bdfStringList[1]))
	b.Device = uint8(hexToInt(dfStringList[0]))
	b.Function = uint8(hexToInt(dfStringList[1]))
}

func hexToInt(hexStr string) uint64 {
	// base 16 for hexadecimal
	result, _ := strconv.ParseUint(hexStr, 16, 64)
	return result
}

// Wrapper function to shorten int to hex convertion call
func hex(a any) string {
	return fmt.Sprintf("%X", a)
}

// convert integer to bool
func UintToBool(i bitfield_1b) bool {
	if i == 1 {
		return true
	} else {
		return false
	}
}

func u32toByte(words []uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

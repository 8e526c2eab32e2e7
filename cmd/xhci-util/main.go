package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"xhcilib/pkg/xhci"

	"k8s.io/klog/v2"
)

var Version = "1.0.0"

// This variable is filled in during the linker step - -ldflags "-X main.buildTime=`date -u '+%Y-%m-%dT%H:%M:%S'`"
var buildTime = ""

var helptxt = `
xhci-util is a command line tool to discover and display xHCI host controller information from the host server.

Usage:
./xhci-util [--version] [--help] [--list] [--PCIE=BUS:DEV.FUN] [--caps] [--extcaps] [--verbosity=0]

Which:
	version            : Print the version of this application and exit
	help               : Print the help text and exit
	list               : List all xHCI host controllers on the host
	PCIE=BUS[:DEV.FUN] : Print PCIE config space info to stdout for the controller at the BUS:DEV.FUN
	caps               : Print the capability registers to stdout. Need to use with --PCIE
	extcaps            : Print the extended capability list to stdout. Need to use with --PCIE
	verbosity          : Set the log level verbosity, where 0 is no longing and 4 is very verbose
`

const (
	DefaultVerbosity = "0" // Default log level
)

type Settings struct {
	Version   bool   // Print the version of this application and exit if true
	Verbosity string // The log level verbosity, where 0 is no longing and 4 is very verbose
	Help      bool   // Print the help text and exit
	List      bool   // List all xHCI host controllers on the host
	PCIE      string // Print PCIE config space info to stdout
	Caps      bool   // Print capability registers to stdout
	ExtCaps   bool   // Print extended capability list to stdout
}

// InitFlags: initialize the configuration data using command line args, ENV, or a file
func (s *Settings) InitContext(args []string, ctx context.Context) (error, context.Context) {

	newContext := ctx

	flags := flag.NewFlagSet(args[0], flag.ExitOnError)

	var (
		version   = flags.Bool("version", false, "Display version and exit")
		verbosity = flags.String("verbosity", DefaultVerbosity, "Log level verbosity")
		help      = flags.Bool("help", false, "Print the help text")
		list      = flags.Bool("list", false, "List all xHCI host controllers on the host")
		pcie      = flags.String("PCIE", "", "Print the PCIE config space info for the device on the BUS value inputed")
		caps      = flags.Bool("caps", false, "Print the capability registers. Need to use with --PCIE")
		extcaps   = flags.Bool("extcaps", false, "Print the extended capability list. Need to use with --PCIE")
	)

	// Parse 1) command line arguments, 2) env variables, 3) config file settings, and 4) defaults (in this order)
	err := flags.Parse(args[1:])
	if err != nil {
		return err, newContext
	}

	// Update the configuration object with the parsed values
	s.Version = *version
	s.Verbosity = *verbosity
	s.Help = *help
	s.List = *list
	s.PCIE = *pcie
	s.Caps = *caps
	s.ExtCaps = *extcaps

	if len(args) == 1 {
		s.Help = true
	}

	return nil, newContext
}

func PrintTableToStdout(table any, prefix, indent string) {
	s, _ := json.MarshalIndent(table, prefix, indent)
	fmt.Print(string(s), "\n")
}

func main() {

	// Extract settings and initialize context using command line args, env, config file, or defaults
	settings := Settings{}
	ctx := context.Background()
	var err error
	err, ctx = settings.InitContext(os.Args, ctx)

	if err != nil {
		fmt.Printf("ERROR: parsing parameters, err=%v\n", err)
		os.Exit(1)
	}

	// Set verbosity level according to the 'verbosity' flag
	var l klog.Level
	l.Set(settings.Verbosity)

	// xhci-util banner
	args := strings.Join(os.Args[1:], " ")
	klog.V(1).InfoS("xhci-util", "args", args)
	klog.V(2).InfoS("xhci-util", "settings", settings)

	if settings.Version {
		fmt.Println("[] xhci-util", "version", Version, "build", buildTime)
		os.Exit(0)
	}

	if settings.Help {
		fmt.Print(helptxt)
		os.Exit(0)
	}

	devList := xhci.InitXhciDevList()
	if settings.List {
		prFmt := "%12s | %20s | %30s | %12s \n"
		fmt.Printf("Print the list of xHCI host controllers. Total devices found: %d\n", len(devList))
		fmt.Printf(prFmt, "BUS:DEV.FUN", "Vendor", "Device", "MMIO Base")
		for _, dev := range devList {
			vendorName := dev.GetVendorInfo()
			if len(vendorName) > 15 {
				vendorName = vendorName[:15] + "..."
			}
			deviceName := dev.GetDeviceInfo()
			if len(deviceName) > 25 {
				deviceName = deviceName[:25] + "..."
			}
			fmt.Printf(prFmt, dev.GetBdfString(), vendorName, deviceName, "0x"+fmt.Sprintf("%X", dev.MmioBase))
		}
	}

	if settings.PCIE != "" {
		fmt.Printf("\n\nPrint the info of xHCI host controller: %s\n", settings.PCIE)
		bdfStringList := strings.Split(settings.PCIE, ":")
		if len(bdfStringList) == 1 {
			settings.PCIE = settings.PCIE + ":00.0"
		}

		dev, ok := devList[settings.PCIE]
		if ok {
			// print the pcie header to stdout
			fmt.Printf("\nPCIE Config Space Header:\n")
			PrintTableToStdout(dev.GetPcieHdr(), "", "   ")

			if settings.Caps || settings.ExtCaps {
				mapper, err := xhci.NewDevMemMapper()
				if err != nil {
					fmt.Printf("ERROR: opening /dev/mem, err=%v\n", err)
					os.Exit(1)
				}
				defer mapper.Close()

				capRegs, err := dev.NewCapabilityView(mapper)
				if err != nil {
					fmt.Printf("ERROR: mapping capability registers, err=%v\n", err)
					os.Exit(1)
				}
				defer capRegs.Close()

				if settings.Caps {
					fmt.Printf("\nCapability Registers:\n")
					fmt.Printf("   CAPLENGTH   0x%X\n", capRegs.CapabilityLength())
					fmt.Printf("   HCIVERSION  0x%X\n", capRegs.HciVersion())
					fmt.Printf("   Slots %d Ports %d Interrupters %d\n",
						capRegs.NumberOfDeviceSlots(), capRegs.NumberOfPorts(), capRegs.NumberOfInterrupters())
					fmt.Printf("   ERST Max %d Scratchpad %d CSZ64 %v AC64 %v\n",
						capRegs.EventRingSegmentTableMax(), capRegs.MaxScratchpadBuffers(),
						capRegs.ContextSize64(), capRegs.Addressing64())
					fmt.Print(capRegs.Print())
				}

				if settings.ExtCaps {
					xecp := capRegs.ExtendedCapabilitiesPointer()
					if xecp == 0 {
						fmt.Printf("\nNo extended capabilities.\n")
					} else {
						// the list can extend past the capability block; map a generous window
						region, err := mapper.Map(dev.MmioBase, 0x1000)
						if err != nil {
							fmt.Printf("ERROR: mapping MMIO space, err=%v\n", err)
							os.Exit(1)
						}
						defer mapper.Unmap(region)
						fmt.Printf("\nExtended Capabilities:\n")
						for _, cap := range xhci.WalkExtendedCapabilities(region, xecp) {
							fmt.Printf("   %s [ID:%d] at offset 0x%X\n", cap.ID.String(), cap.ID, cap.Offset)
						}
					}
				}
			}
		} else {
			fmt.Printf("No xHCI host controller on BDF %s \n", settings.PCIE)
		}
	}

}

// This file implements the Event TRB views delivered by the controller
// on the Event Ring, based on xHCI spec rev1.2 section 6.4.2. Events are
// written by hardware; software only decodes them, so the setters here
// exist for fabricating events in tests and simulators.

package xhci

// CompletionCode is the hardware-reported outcome in word 2 bits 24-31
// of an event TRB. The library surfaces it as data and performs no
// recovery; retry policy belongs to the driver layer.
type CompletionCode uint8

const (
	COMPLETION_CODE_INVALID              CompletionCode = 0
	COMPLETION_CODE_SUCCESS              CompletionCode = 1
	COMPLETION_CODE_TRB_ERROR            CompletionCode = 5
	COMPLETION_CODE_STALL_ERROR          CompletionCode = 6
	COMPLETION_CODE_RESOURCE_ERROR       CompletionCode = 7
	COMPLETION_CODE_NO_SLOTS_AVAILABLE   CompletionCode = 9
	COMPLETION_CODE_SLOT_NOT_ENABLED     CompletionCode = 11
	COMPLETION_CODE_CONTEXT_STATE_ERROR  CompletionCode = 19
	COMPLETION_CODE_COMMAND_RING_STOPPED CompletionCode = 24
	COMPLETION_CODE_COMMAND_ABORTED      CompletionCode = 25
)

// Completion code names, indexed by code, per xHCI table 6-90.
var TrbCompletionCode = [37]string{
	"Invalid",                          //00h
	"Success",                          //01h
	"Data Buffer Error",                //02h
	"Babble Detected Error",            //03h
	"USB Transaction Error",            //04h
	"TRB Error",                        //05h
	"Stall Error",                      //06h
	"Resource Error",                   //07h
	"Bandwidth Error",                  //08h
	"No Slots Available Error",         //09h
	"Invalid Stream Type Error",        //0Ah
	"Slot Not Enabled Error",           //0Bh
	"Endpoint Not Enabled Error",       //0Ch
	"Short Packet",                     //0Dh
	"Ring Underrun",                    //0Eh
	"Ring Overrun",                     //0Fh
	"VF Event Ring Full Error",         //10h
	"Parameter Error",                  //11h
	"Bandwidth Overrun Error",          //12h
	"Context State Error",              //13h
	"No Ping Response Error",           //14h
	"Event Ring Full Error",            //15h
	"Incompatible Device Error",        //16h
	"Missed Service Error",             //17h
	"Command Ring Stopped",             //18h
	"Command Aborted",                  //19h
	"Stopped",                          //1Ah
	"Stopped - Length Invalid",         //1Bh
	"Stopped - Short Packet",           //1Ch
	"Max Exit Latency Too Large Error", //1Dh
	"Reserved",                         //1Eh
	"Isoch Buffer Overrun",             //1Fh
	"Event Lost Error",                 //20h
	"Undefined Error",                  //21h
	"Invalid Stream ID Error",          //22h
	"Secondary Bandwidth Error",        //23h
	"Split Transaction Error",          //24h
}

func (c CompletionCode) String() string {
	if int(c) < len(TrbCompletionCode) {
		return TrbCompletionCode[c]
	}
	return "Vendor Defined"
}

// Success reports whether the completion code indicates success.
func (c CompletionCode) Success() bool {
	return c == COMPLETION_CODE_SUCCESS
}

// Command Completion Event TRB. Words 0 and 1 carry the physical address
// of the command slot the event completes; it is the only correlation
// key, so callers must retain the address returned by Ring.Enqueue.
type CommandCompletion struct{ raw RawTRB }

// NewCommandCompletion returns a zeroed Command Completion event with
// the Type preset.
func NewCommandCompletion() *CommandCompletion {
	t := &CommandCompletion{}
	t.raw.setType(TRB_TYPE_COMMAND_COMPLETION)
	return t
}

// CommandCompletionFromRaw is the checked cast from a raw TRB.
func CommandCompletionFromRaw(r RawTRB) (*CommandCompletion, error) {
	if r.Type() != TRB_TYPE_COMMAND_COMPLETION {
		return nil, typeMismatch(TRB_TYPE_COMMAND_COMPLETION, r)
	}
	return &CommandCompletion{raw: r}, nil
}

func (t *CommandCompletion) Raw() RawTRB { return t.raw }

// SetCommandTRBPointer sets the address of the completed command slot.
// Panics if p is not 16-byte aligned.
func (t *CommandCompletion) SetCommandTRBPointer(p uint64) *CommandCompletion {
	mustAligned16(p, "Command TRB Pointer")
	t.raw.setPointer(p)
	return t
}

// CommandTRBPointer returns the address of the completed command slot.
func (t *CommandCompletion) CommandTRBPointer() uint64 {
	return t.raw.pointer() &^ 0xF
}

// SetCompletionCode sets the Completion Code field.
func (t *CommandCompletion) SetCompletionCode(c CompletionCode) *CommandCompletion {
	TRB_STATUS_COMPLETION_CODE.write(&t.raw[2], uint32(c))
	return t
}

// CompletionCode returns the Completion Code field.
func (t *CommandCompletion) CompletionCode() CompletionCode {
	return CompletionCode(TRB_STATUS_COMPLETION_CODE.read(t.raw[2]))
}

// SetCommandCompletionParameter sets the command-dependent parameter field.
func (t *CommandCompletion) SetCommandCompletionParameter(p uint32) *CommandCompletion {
	TRB_STATUS_COMPLETION_PARAMETER.write(&t.raw[2], p)
	return t
}

// CommandCompletionParameter returns the command-dependent parameter field.
func (t *CommandCompletion) CommandCompletionParameter() uint32 {
	return TRB_STATUS_COMPLETION_PARAMETER.read(t.raw[2])
}

// SetVFID sets the Virtual Function ID field.
func (t *CommandCompletion) SetVFID(i uint8) *CommandCompletion {
	TRB_CONTROL_VF_ID.write(&t.raw[3], uint32(i))
	return t
}

// VFID returns the Virtual Function ID field.
func (t *CommandCompletion) VFID() uint8 {
	return uint8(TRB_CONTROL_VF_ID.read(t.raw[3]))
}

// SetSlotID sets the Slot ID field.
func (t *CommandCompletion) SetSlotID(i uint8) *CommandCompletion {
	TRB_CONTROL_SLOT_ID.write(&t.raw[3], uint32(i))
	return t
}

// SlotID returns the Slot ID field.
func (t *CommandCompletion) SlotID() uint8 {
	return uint8(TRB_CONTROL_SLOT_ID.read(t.raw[3]))
}

// Port Status Change Event TRB.
type PortStatusChange struct{ raw RawTRB }

// NewPortStatusChange returns a zeroed Port Status Change event with the
// Type preset.
func NewPortStatusChange() *PortStatusChange {
	t := &PortStatusChange{}
	t.raw.setType(TRB_TYPE_PORT_STATUS_CHANGE)
	return t
}

// PortStatusChangeFromRaw is the checked cast from a raw TRB.
func PortStatusChangeFromRaw(r RawTRB) (*PortStatusChange, error) {
	if r.Type() != TRB_TYPE_PORT_STATUS_CHANGE {
		return nil, typeMismatch(TRB_TYPE_PORT_STATUS_CHANGE, r)
	}
	return &PortStatusChange{raw: r}, nil
}

func (t *PortStatusChange) Raw() RawTRB { return t.raw }

// SetPortID sets the Port ID field.
func (t *PortStatusChange) SetPortID(i uint8) *PortStatusChange {
	TRB_PARAM0_PORT_ID.write(&t.raw[0], uint32(i))
	return t
}

// PortID returns the Port ID field.
func (t *PortStatusChange) PortID() uint8 {
	return uint8(TRB_PARAM0_PORT_ID.read(t.raw[0]))
}

// SetCompletionCode sets the Completion Code field.
func (t *PortStatusChange) SetCompletionCode(c CompletionCode) *PortStatusChange {
	TRB_STATUS_COMPLETION_CODE.write(&t.raw[2], uint32(c))
	return t
}

// CompletionCode returns the Completion Code field.
func (t *PortStatusChange) CompletionCode() CompletionCode {
	return CompletionCode(TRB_STATUS_COMPLETION_CODE.read(t.raw[2]))
}

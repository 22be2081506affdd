package hda

// NodeAddr addresses a single node within a codec on the link.
type NodeAddr struct {
	Codec uint8 // link address, 0..14
	Node  uint8 // node id, 0 is the codec's root node
}

// Command is an encoded CORB entry: codec address in bits 31:28, node id
// in 27:20 and the verb with its payload in the low 20 bits.
type Command uint32

// Verb identifies a codec command. Most verbs use a 12-bit id with an
// 8-bit payload, the wide ones a 4-bit id with a 16-bit payload.
type Verb uint16

const (
	VerbSetConverterFormat Verb = 0x2 // wide
	VerbSetAmpGain         Verb = 0x3 // wide
	VerbSetPowerState      Verb = 0x705
	VerbSetChannelStream   Verb = 0x706
	VerbSetPinControl      Verb = 0x707
	VerbSetEAPD            Verb = 0x70c
	VerbGetParameter       Verb = 0xf00
	VerbGetConnListEntry   Verb = 0xf02
	VerbGetConfigDefault   Verb = 0xf1c
)

func (v Verb) wide() bool {
	return v == VerbSetConverterFormat || v == VerbSetAmpGain
}

func cmd(addr NodeAddr, verb Verb, payload uint8) Command {
	return Command(uint32(addr.Codec&0xf)<<28 | uint32(addr.Node)<<20 |
		uint32(verb)<<8 | uint32(payload))
}

func cmdWide(addr NodeAddr, verb Verb, payload uint16) Command {
	return Command(uint32(addr.Codec&0xf)<<28 | uint32(addr.Node)<<20 |
		uint32(verb)<<16 | uint32(payload))
}

// Addr returns the codec node a command addresses.
func (c Command) Addr() NodeAddr {
	return NodeAddr{uint8(c >> 28 & 0xf), uint8(c >> 20)}
}

// Verb returns the verb id of a command.
func (c Command) Verb() Verb {
	if v := Verb(c >> 16 & 0xf); v.wide() {
		return v
	}
	return Verb(c >> 8 & 0xfff)
}

// Payload returns the verb's payload, 16 bits for wide verbs, 8 bits
// otherwise.
func (c Command) Payload() uint16 {
	if c.Verb().wide() {
		return uint16(c)
	}
	return uint16(c & 0xff)
}

// Param selects a read-only capability of a node, queried via GetParameter.
type Param uint8

const (
	ParamVendorID     Param = 0x00
	ParamRevisionID   Param = 0x02
	ParamNodeCount    Param = 0x04
	ParamFunctionType Param = 0x05
	ParamAFGCaps      Param = 0x08
	ParamWidgetCaps   Param = 0x09
	ParamPCMSupport   Param = 0x0a
	ParamPinCaps      Param = 0x0c
	ParamInAmpCaps    Param = 0x0d
	ParamConnListLen  Param = 0x0e
	ParamPowerStates  Param = 0x0f
	ParamOutAmpCaps   Param = 0x12
)

func GetParameter(addr NodeAddr, p Param) Command {
	return cmd(addr, VerbGetParameter, uint8(p))
}

// GetConnListEntry reads the connection list of a node starting at entry
// offset. The response packs several adjacent entries, see
// Response.ConnEntries.
func GetConnListEntry(addr NodeAddr, offset uint8) Command {
	return cmd(addr, VerbGetConnListEntry, offset)
}

func GetConfigDefault(addr NodeAddr) Command {
	return cmd(addr, VerbGetConfigDefault, 0)
}

// SetPowerState requests a node power state, 0 being fully on (D0).
func SetPowerState(addr NodeAddr, state uint8) Command {
	return cmd(addr, VerbSetPowerState, state)
}

// SetChannelStream binds a converter to a stream tag, starting at the
// given lowest channel of the stream.
func SetChannelStream(addr NodeAddr, tag, chn uint8) Command {
	return cmd(addr, VerbSetChannelStream, tag<<4|chn&0xf)
}

func SetConverterFormat(addr NodeAddr, f StreamFormat) Command {
	return cmdWide(addr, VerbSetConverterFormat, uint16(f))
}

// AmpGain is the SetAmpGain payload: target amplifiers in the high bits,
// mute flag and gain in the low byte.
type AmpGain uint16

const (
	AmpOutput AmpGain = 1 << 15
	AmpInput  AmpGain = 1 << 14
	AmpLeft   AmpGain = 1 << 13
	AmpRight  AmpGain = 1 << 12
	AmpMute   AmpGain = 1 << 7
)

// Gain returns g with the gain field set to the given amplifier step.
func (g AmpGain) Gain(step uint8) AmpGain {
	return g&^0x7f | AmpGain(step)&0x7f
}

func SetAmpGain(addr NodeAddr, gain AmpGain) Command {
	return cmdWide(addr, VerbSetAmpGain, uint16(gain))
}

// PinCtl enables a pin complex's port drivers.
type PinCtl uint8

const (
	PinCtlIn        PinCtl = 1 << 5
	PinCtlOut       PinCtl = 1 << 6
	PinCtlHeadphone PinCtl = 1 << 7
)

func SetPinControl(addr NodeAddr, ctl PinCtl) Command {
	return cmd(addr, VerbSetPinControl, uint8(ctl))
}

// SetEAPD enables the external amplifier attached to a pin, a no-op on
// pins without one.
func SetEAPD(addr NodeAddr) Command {
	return cmd(addr, VerbSetEAPD, 1<<1)
}

// Response is the 32-bit response word a codec returned for a single
// command. Its layout depends on the verb that produced it, the accessors
// decode the common ones.
type Response uint32

// SubNodes decodes a GetParameter(ParamNodeCount) response into the first
// child node id and the number of children.
func (r Response) SubNodes() (start uint8, count int) {
	return uint8(r >> 16), int(r & 0xff)
}

// FunctionType decodes a GetParameter(ParamFunctionType) response.
func (r Response) FunctionType() FunctionType {
	return FunctionType(r & 0xff)
}

// WidgetCaps decodes a GetParameter(ParamWidgetCaps) response.
func (r Response) WidgetCaps() WidgetCaps { return WidgetCaps(r) }

// PinCaps decodes a GetParameter(ParamPinCaps) response.
func (r Response) PinCaps() PinCaps { return PinCaps(r) }

// AmpCaps decodes a GetParameter(ParamOutAmpCaps) response.
func (r Response) AmpCaps() AmpCaps { return AmpCaps(r) }

// ConfigDefault decodes a GetConfigDefault response.
func (r Response) ConfigDefault() ConfigDefault { return ConfigDefault(r) }

// ConnListLen decodes a GetParameter(ParamConnListLen) response into the
// number of connection list entries and whether the list uses the
// long form encoding.
func (r Response) ConnListLen() (n int, long bool) {
	return int(r & 0x7f), r&0x80 != 0
}

// ConnEntries decodes the node ids packed into a GetConnListEntry
// response: four 8-bit ids in short form or two 16-bit ids in long form.
// A zero id terminates the list. Long form ids are returned unnarrowed,
// they can exceed the 8-bit node address range and callers must reject
// those instead of aliasing them onto a low node id.
func (r Response) ConnEntries(long bool) []uint16 {
	var ids []uint16
	if long {
		for i := 0; i < 32; i += 16 {
			v := uint16(r >> i)
			if v == 0 {
				break
			}
			ids = append(ids, v)
		}
	} else {
		for i := 0; i < 32; i += 8 {
			v := uint8(r >> i)
			if v == 0 {
				break
			}
			ids = append(ids, uint16(v))
		}
	}
	return ids
}

type FunctionType uint8

const (
	FunctionAudio FunctionType = 0x01
	FunctionModem FunctionType = 0x02
)

// WidgetCaps describes an audio widget, most importantly its type.
type WidgetCaps uint32

func (c WidgetCaps) Type() WidgetType { return WidgetType(c >> 20 & 0xf) }
func (c WidgetCaps) Stereo() bool { return c&1 != 0 }
func (c WidgetCaps) InAmp() bool { return c&(1<<1) != 0 }
func (c WidgetCaps) OutAmp() bool { return c&(1<<2) != 0 }
func (c WidgetCaps) HasConnList() bool { return c&(1<<8) != 0 }
func (c WidgetCaps) PowerCtl() bool { return c&(1<<10) != 0 }

type WidgetType uint8

const (
	WidgetAudioOut WidgetType = 0x0
	WidgetAudioIn  WidgetType = 0x1
	WidgetMixer    WidgetType = 0x2
	WidgetSelector WidgetType = 0x3
	WidgetPin      WidgetType = 0x4
	WidgetPower    WidgetType = 0x5
	WidgetVolume   WidgetType = 0x6
	WidgetBeep     WidgetType = 0x7
)

// PinCaps describes the abilities of a pin complex.
type PinCaps uint32

func (c PinCaps) Output() bool { return c&(1<<4) != 0 }
func (c PinCaps) Input() bool { return c&(1<<5) != 0 }
func (c PinCaps) EAPD() bool { return c&(1<<16) != 0 }

// AmpCaps describes an input or output amplifier's gain range.
type AmpCaps uint32

func (c AmpCaps) Offset() uint8 { return uint8(c) & 0x7f } // 0 dB step
func (c AmpCaps) NumSteps() uint8 { return uint8(c>>8) & 0x7f }
func (c AmpCaps) StepSize() uint8 { return uint8(c>>16) & 0x7f }
func (c AmpCaps) CanMute() bool { return c&(1<<31) != 0 }

// ConfigDefault is the board designer's description of what a pin complex
// is wired to.
type ConfigDefault uint32

func (c ConfigDefault) Device() DefaultDevice { return DefaultDevice(c >> 20 & 0xf) }
func (c ConfigDefault) Connectivity() Connectivity { return Connectivity(c >> 30) }

type DefaultDevice uint8

const (
	DeviceLineOut   DefaultDevice = 0x0
	DeviceSpeaker   DefaultDevice = 0x1
	DeviceHeadphone DefaultDevice = 0x2
	DeviceCD        DefaultDevice = 0x3
	DeviceSPDIFOut  DefaultDevice = 0x4
	DeviceLineIn    DefaultDevice = 0x8
	DeviceAuxIn     DefaultDevice = 0x9
	DeviceMicIn     DefaultDevice = 0xa
	DeviceSPDIFIn   DefaultDevice = 0xc
)

type Connectivity uint8

const (
	ConnJack     Connectivity = 0x0
	ConnNothing  Connectivity = 0x1 // port is not physically connected
	ConnIntegral Connectivity = 0x2
	ConnBoth     Connectivity = 0x3
)

package hdatest

import (
	"github.com/clktmr/hda/pc/hda"
)

// Default capability words for model widgets.
const (
	wcapStereo   = 1 << 0
	wcapOutAmp   = 1 << 2
	wcapConnList = 1 << 8

	pcapOutput = 1 << 4
	pcapInput  = 1 << 5
	pcapEAPD   = 1 << 16

	// mutable, step size 3, 0x4a steps with 0 dB at step 0x4a
	defaultAmpCaps = 1<<31 | 3<<16 | 0x4a<<8 | 0x4a
)

// Codec models one codec's node graph. Build the graph with the Add
// methods and pass the codec to NewController. Node 0 is the root,
// function groups and widgets get sequential ids starting at 1, so all
// widgets of a group must be added before starting the next group.
type Codec struct {
	Addr  uint8
	Nodes map[uint8]*Node
	next  uint8
}

// Node is a single node of the model. Configuration verbs sent by the
// driver record their effects in the exported fields, tests assert on
// them after the fact.
type Node struct {
	Children []uint8
	FnType   hda.FunctionType
	Caps     uint32 // widget capabilities word
	PinCaps  uint32
	AmpCaps  uint32
	Config   uint32
	Conn     []uint8
	LongForm bool // encode the connection list in long form

	Format    uint16
	StreamTag uint8
	Channel   uint8
	Gains     []uint16
	PinCtl    uint8
	Power     uint8
	Powered   bool // a power state verb arrived
	EAPD      bool
}

func NewCodec(addr uint8) *Codec {
	return &Codec{Addr: addr, Nodes: map[uint8]*Node{0: {}}, next: 1}
}

// OutputCodec returns the smallest useful codec: one audio function group
// with a DAC wired straight to a speaker pin, resembling QEMU's
// hda-output device.
func OutputCodec(addr uint8) *Codec {
	c := NewCodec(addr)
	fg := c.AddAudioGroup()
	dac := c.AddDAC(fg)
	c.AddPin(fg, hda.DeviceSpeaker, hda.ConnIntegral, dac)
	return c
}

func (c *Codec) add(parent uint8, n *Node) uint8 {
	id := c.next
	c.next++
	c.Nodes[id] = n
	p := c.Nodes[parent]
	p.Children = append(p.Children, id)
	return id
}

// AddAudioGroup adds an audio function group under the root node.
func (c *Codec) AddAudioGroup() uint8 {
	return c.add(0, &Node{FnType: hda.FunctionAudio})
}

// AddModemGroup adds a modem function group. Discovery must skip it and
// everything below it.
func (c *Codec) AddModemGroup() uint8 {
	return c.add(0, &Node{FnType: hda.FunctionModem})
}

// AddDAC adds an audio output converter to a function group.
func (c *Codec) AddDAC(fg uint8) uint8 {
	return c.add(fg, &Node{
		Caps:    caps(hda.WidgetAudioOut) | wcapOutAmp | wcapStereo,
		AmpCaps: defaultAmpCaps,
	})
}

// AddMixer adds a summing mixer fed by the given source nodes.
func (c *Codec) AddMixer(fg uint8, sources ...uint8) uint8 {
	return c.add(fg, &Node{
		Caps: caps(hda.WidgetMixer) | wcapConnList | wcapStereo,
		Conn: sources,
	})
}

// AddSelector adds an input selector. Playback discovery ignores it.
func (c *Codec) AddSelector(fg uint8, sources ...uint8) uint8 {
	return c.add(fg, &Node{
		Caps: caps(hda.WidgetSelector) | wcapConnList | wcapStereo,
		Conn: sources,
	})
}

// AddPin adds an output capable pin complex with the given default device
// and connectivity.
func (c *Codec) AddPin(fg uint8, dev hda.DefaultDevice, conn hda.Connectivity, sources ...uint8) uint8 {
	return c.add(fg, &Node{
		Caps:    caps(hda.WidgetPin) | wcapConnList | wcapStereo,
		PinCaps: pcapOutput | pcapEAPD,
		Config:  uint32(conn)<<30 | uint32(dev)<<20,
		Conn:    sources,
	})
}

// AddInputPin adds a capture only pin complex. Playback discovery must
// drop it.
func (c *Codec) AddInputPin(fg uint8) uint8 {
	return c.add(fg, &Node{
		Caps:    caps(hda.WidgetPin) | wcapStereo,
		PinCaps: pcapInput,
		Config:  uint32(hda.ConnJack)<<30 | uint32(hda.DeviceMicIn)<<20,
	})
}

func caps(t hda.WidgetType) uint32 { return uint32(t) << 20 }

func (c *Codec) exec(cmd hda.Command) uint32 {
	n, ok := c.Nodes[cmd.Addr().Node]
	if !ok {
		return 0
	}
	payload := cmd.Payload()
	switch cmd.Verb() {
	case hda.VerbGetParameter:
		return c.param(n, hda.Param(payload))
	case hda.VerbGetConfigDefault:
		return n.Config
	case hda.VerbGetConnListEntry:
		return connEntry(n, int(payload))
	case hda.VerbSetChannelStream:
		n.StreamTag = uint8(payload) >> 4
		n.Channel = uint8(payload) & 0xf
	case hda.VerbSetConverterFormat:
		n.Format = payload
	case hda.VerbSetAmpGain:
		n.Gains = append(n.Gains, payload)
	case hda.VerbSetPinControl:
		n.PinCtl = uint8(payload)
	case hda.VerbSetPowerState:
		n.Power = uint8(payload)
		n.Powered = true
	case hda.VerbSetEAPD:
		n.EAPD = payload&2 != 0
	}
	return 0
}

func (c *Codec) param(n *Node, p hda.Param) uint32 {
	switch p {
	case hda.ParamNodeCount:
		if len(n.Children) == 0 {
			return 0
		}
		return uint32(n.Children[0])<<16 | uint32(len(n.Children))
	case hda.ParamFunctionType:
		return uint32(n.FnType)
	case hda.ParamWidgetCaps:
		return n.Caps
	case hda.ParamPinCaps:
		return n.PinCaps
	case hda.ParamOutAmpCaps:
		return n.AmpCaps
	case hda.ParamConnListLen:
		l := uint32(len(n.Conn))
		if n.LongForm {
			l |= 0x80
		}
		return l
	}
	return 0
}

// connEntry packs adjacent connection list entries into a response, four
// 8-bit ids in short form or two 16-bit ids in long form. Missing entries
// read as zero.
func connEntry(n *Node, off int) uint32 {
	var r uint32
	if n.LongForm {
		for i := range 2 {
			if off+i < len(n.Conn) {
				r |= uint32(n.Conn[off+i]) << (16 * i)
			}
		}
	} else {
		for i := range 4 {
			if off+i < len(n.Conn) {
				r |= uint32(n.Conn[off+i]) << (8 * i)
			}
		}
	}
	return r
}

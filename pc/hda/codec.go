package hda

import (
	"errors"
	"fmt"
)

var (
	ErrNoOutputPin = errors.New("hda: no speaker pin connected")
	ErrNoConverter = errors.New("hda: no output converter")
	ErrNoRoute     = errors.New("hda: no DAC reachable from speaker pin")
)

// Widget is a codec graph node relevant for playback routing. Only audio
// output converters (DACs), mixers and output capable pin complexes are
// kept during discovery, everything else never carries output samples.
type Widget struct {
	Addr    NodeAddr
	Type    WidgetType
	Caps    WidgetCaps
	Conn    []NodeAddr // upstream sources, in selector order
	Config  ConfigDefault
	PinCaps PinCaps // pins only
	OutAmp  AmpCaps
}

// Topology is the playback relevant view of all codecs on the link, in
// discovery order.
type Topology struct {
	Pins   []*Widget
	DACs   []*Widget
	Mixers []*Widget
	AFGs   []NodeAddr // audio function group nodes, for power control
}

// Discover walks the node graph of every codec: root node, function
// groups, then the widgets of each audio function group.
func Discover(cdr *Commander, codecs []uint8) (*Topology, error) {
	t := &Topology{}
	for _, ca := range codecs {
		root := NodeAddr{Codec: ca}
		resp, err := cdr.Exec(GetParameter(root, ParamNodeCount))
		if err != nil {
			return nil, err
		}
		start, n := resp.SubNodes()
		for i := range n {
			fg := NodeAddr{ca, start + uint8(i)}
			resp, err := cdr.Exec(GetParameter(fg, ParamFunctionType))
			if err != nil {
				return nil, err
			}
			if resp.FunctionType() != FunctionAudio {
				continue
			}
			t.AFGs = append(t.AFGs, fg)
			if err := t.addWidgets(cdr, fg); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (t *Topology) addWidgets(cdr *Commander, fg NodeAddr) error {
	resp, err := cdr.Exec(GetParameter(fg, ParamNodeCount))
	if err != nil {
		return err
	}
	start, n := resp.SubNodes()
	for i := range n {
		addr := NodeAddr{fg.Codec, start + uint8(i)}
		resp, err := cdr.Exec(GetParameter(addr, ParamWidgetCaps))
		if err != nil {
			return err
		}
		caps := resp.WidgetCaps()
		w := &Widget{Addr: addr, Type: caps.Type(), Caps: caps}

		switch caps.Type() {
		case WidgetAudioOut:
			t.DACs = append(t.DACs, w)
		case WidgetMixer:
			t.Mixers = append(t.Mixers, w)
		case WidgetPin:
			resp, err = cdr.Exec(GetParameter(addr, ParamPinCaps))
			if err != nil {
				return err
			}
			w.PinCaps = resp.PinCaps()
			if !w.PinCaps.Output() {
				continue
			}
			resp, err = cdr.Exec(GetConfigDefault(addr))
			if err != nil {
				return err
			}
			w.Config = resp.ConfigDefault()
			if w.Config.Connectivity() == ConnNothing {
				continue
			}
			t.Pins = append(t.Pins, w)
		default:
			continue
		}

		if caps.HasConnList() {
			w.Conn, err = connList(cdr, addr)
			if err != nil {
				return err
			}
		}
		if caps.OutAmp() {
			resp, err = cdr.Exec(GetParameter(addr, ParamOutAmpCaps))
			if err != nil {
				return err
			}
			w.OutAmp = resp.AmpCaps()
		}
	}
	return nil
}

// connList reads a widget's full connection list. Entries come back packed
// four (short form) or two (long form) per response, a zero id ends the
// list early.
func connList(cdr *Commander, addr NodeAddr) ([]NodeAddr, error) {
	resp, err := cdr.Exec(GetParameter(addr, ParamConnListLen))
	if err != nil {
		return nil, err
	}
	n, long := resp.ConnListLen()
	per := 4
	if long {
		per = 2
	}
	var conn []NodeAddr
	for off := 0; off < n; off += per {
		resp, err := cdr.Exec(GetConnListEntry(addr, uint8(off)))
		if err != nil {
			return nil, err
		}
		ids := resp.ConnEntries(long)
		for _, id := range ids {
			// The command encoding addresses nodes with 8 bits, a
			// wider id cannot be reached and must not alias.
			if id > 0xff {
				return nil, fmt.Errorf("hda: node %d:%d connection entry %#x out of range",
					addr.Codec, addr.Node, id)
			}
			conn = append(conn, NodeAddr{addr.Codec, uint8(id)})
		}
		if len(ids) < per {
			break
		}
	}
	return conn, nil
}

// PlaybackPath selects the default playback route: the first speaker pin
// and the first DAC reachable from it, either directly or through a
// single mixer. Pins reported as unconnected were already dropped during
// discovery.
func (t *Topology) PlaybackPath() (pin, dac *Widget, err error) {
	if len(t.DACs) == 0 {
		return nil, nil, ErrNoConverter
	}
	for _, p := range t.Pins {
		if p.Config.Device() == DeviceSpeaker {
			pin = p
			break
		}
	}
	if pin == nil {
		return nil, nil, ErrNoOutputPin
	}
	for _, src := range pin.Conn {
		if dac = find(t.DACs, src); dac != nil {
			return pin, dac, nil
		}
		if m := find(t.Mixers, src); m != nil {
			for _, src := range m.Conn {
				if dac = find(t.DACs, src); dac != nil {
					return pin, dac, nil
				}
			}
		}
	}
	return nil, nil, ErrNoRoute
}

func find(ws []*Widget, addr NodeAddr) *Widget {
	for _, w := range ws {
		if w.Addr == addr {
			return w
		}
	}
	return nil
}

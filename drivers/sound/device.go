// Package sound plays PCM clips through an Intel HD Audio controller.
//
// The device plays a single clip at a time, there is no mixing. Clips are
// fixed to the controller's native stream format, 44.1 kHz signed 16-bit
// stereo. What happens when a clip ends is chosen per playback: stop the
// stream or replay it from the beginning, see [OnEnd].
//
// Typical use:
//
//	dev := sound.Probe()
//	if dev == nil {
//		// no HDA function on this machine
//	}
//	err := dev.Start()
//	// ...
//	err = dev.Play(clip, sound.StopOnEnd)
package sound

import (
	"errors"

	"embedded/rtos"

	"github.com/clktmr/hda/debug"
	"github.com/clktmr/hda/pc/cpu"
	"github.com/clktmr/hda/pc/hda"
	"github.com/clktmr/hda/pc/irq"
	"github.com/clktmr/hda/pc/pci"
)

const (
	classMultimedia = 0x04
	subclassHDA     = 0x03
)

var (
	ErrTooFewStreams = errors.New("sound: controller has less than two output streams")
	ErrNotPlaying    = errors.New("sound: no sound playing")
)

// OnEnd selects what happens when the clip finished one complete pass.
type OnEnd uint8

const (
	StopOnEnd   OnEnd = iota // stop the stream
	ReplayOnEnd              // restart the clip from the beginning
)

// Device is a sound device backed by an HDA controller: the command rings,
// the discovered codec topology, one chosen playback path and one output
// stream.
type Device struct {
	ctl *hda.Controller
	cdr *hda.Commander
	top *hda.Topology
	pin *hda.Widget
	dac *hda.Widget

	strm    *hda.OutputStream
	playing *Sound            // kept alive until the next Play or Stop
	onEnd   OnEnd             // read by the completion handler
	hook    irq.Handle        // armed completion handler, zero while idle

	// Played signals each time a clip finished one complete pass,
	// regardless of the OnEnd policy.
	Played rtos.Cond
}

// Probe searches the PCI bus for an HDA function. Returns nil if the
// machine has none.
func Probe() *Device {
	fn := pci.FindClass(classMultimedia, subclassHDA)
	if fn == nil {
		return nil
	}
	fn.EnableBusMaster()
	fn.SetInterruptLine(uint8(irq.LineHDA))
	return New(fn.BAR(0))
}

// New returns a device driving the controller register block at base. Use
// Probe to locate the controller on the PCI bus.
func New(base cpu.Addr) *Device {
	return &Device{ctl: hda.NewController(base)}
}

// Start brings the controller out of reset, discovers the codec topology
// and configures the default playback path: the first speaker pin and a
// DAC feeding it. Must be called once before Play.
func (d *Device) Start() error {
	if err := d.ctl.Reset(); err != nil {
		return err
	}
	if d.ctl.Caps().OutputStreams() < 2 {
		return ErrTooFewStreams
	}
	cdr, err := d.ctl.InitCommander()
	if err != nil {
		return err
	}
	d.cdr = cdr

	d.top, err = hda.Discover(cdr, d.ctl.Codecs())
	if err != nil {
		return err
	}
	d.pin, d.dac, err = d.top.PlaybackPath()
	if err != nil {
		return err
	}

	d.strm = d.ctl.OutputStream(0)
	if err := d.strm.Reset(); err != nil {
		return err
	}
	d.strm.Init()

	if err := d.wakePath(); err != nil {
		return err
	}
	if err := d.routePath(); err != nil {
		return err
	}

	d.ctl.ClearSync()
	d.ctl.EnableInterrupts(0)
	return nil
}

// wakePath moves the function groups and the chosen path's widgets to
// full power.
func (d *Device) wakePath() error {
	for _, fg := range d.top.AFGs {
		if _, err := d.cdr.Exec(hda.SetPowerState(fg, 0)); err != nil {
			return err
		}
	}
	for _, w := range []*hda.Widget{d.dac, d.pin} {
		if !w.Caps.PowerCtl() {
			continue
		}
		if _, err := d.cdr.Exec(hda.SetPowerState(w.Addr, 0)); err != nil {
			return err
		}
	}
	return nil
}

// routePath configures the codec for playback: enable the pin's output
// driver, bind the DAC to this stream and unmute both widgets at 0 dB.
func (d *Device) routePath() error {
	amps := hda.AmpOutput | hda.AmpLeft | hda.AmpRight
	cmds := []hda.Command{
		hda.SetPinControl(d.pin.Addr, hda.PinCtlOut),
		hda.SetChannelStream(d.dac.Addr, d.strm.Tag(), 0),
		hda.SetConverterFormat(d.dac.Addr, hda.PCMFormat),
		hda.SetAmpGain(d.dac.Addr, amps.Gain(d.dac.OutAmp.Offset())),
	}
	if d.pin.Caps.OutAmp() {
		cmds = append(cmds, hda.SetAmpGain(d.pin.Addr, amps.Gain(d.pin.OutAmp.Offset())))
	}
	if d.pin.PinCaps.EAPD() {
		cmds = append(cmds, hda.SetEAPD(d.pin.Addr))
	}
	for _, c := range cmds {
		if _, err := d.cdr.Exec(c); err != nil {
			return err
		}
	}
	return nil
}

// Play starts playback of s, replacing whatever plays right now. Each
// playback arms its own completion hook, so a finished StopOnEnd session
// leaves no handler behind. The device keeps a reference to s until the
// next Play or Stop.
func (d *Device) Play(s *Sound, onEnd OnEnd) error {
	irq.Disable(irq.Sound)
	defer irq.Enable(irq.Sound)

	irq.Unhook(d.hook) // no-op when already removed
	d.hook = irq.Handle{}
	d.playing = nil
	if d.strm.Running() {
		if err := d.strm.Stop(); err != nil {
			return err
		}
	}
	d.strm.Ack() // drop a completion that raced the stop

	// Stream registers don't reliably survive across sessions on all
	// controllers, reprogram them from scratch for every playback.
	if err := d.strm.Reset(); err != nil {
		return err
	}
	d.strm.Init()
	if err := d.strm.Setup(s.addr(), s.size()); err != nil {
		return err
	}
	d.playing = s
	d.onEnd = onEnd
	d.hook = irq.Hook(irq.Sound, d.handle)
	d.strm.Start()
	return nil
}

// Stop halts playback before the clip's end, resets the stream and removes
// the completion hook. Returns ErrNotPlaying when nothing plays, which
// usually indicates confused bookkeeping in the caller.
func (d *Device) Stop() error {
	irq.Disable(irq.Sound)
	defer irq.Enable(irq.Sound)

	if d.Playing() == nil {
		return ErrNotPlaying
	}
	irq.Unhook(d.hook)
	d.hook = irq.Handle{}
	d.playing = nil
	if err := d.strm.Stop(); err != nil {
		return err
	}
	d.strm.Ack()
	return d.strm.Reset()
}

// Playing returns the currently playing clip, nil if none. A clip whose
// StopOnEnd playback completed no longer counts as playing.
func (d *Device) Playing() *Sound {
	if !d.strm.Running() {
		return nil
	}
	return d.playing
}

// Topology returns the codec graph discovered during Start.
func (d *Device) Topology() *hda.Topology { return d.top }

// Stream returns the output stream engine the device plays through.
func (d *Device) Stream() *hda.OutputStream { return d.strm }

// handle runs on the sound interrupt while a playback session is armed.
// It runs in handler mode on real hardware: registers, plain fields, the
// cond and bounded spins only, no allocation.
//
//go:nosplit
//go:nowritebarrierrec
func (d *Device) handle() {
	if !d.strm.Completed() {
		return
	}
	d.strm.Ack()
	switch d.onEnd {
	case StopOnEnd:
		d.strm.Halt()
		irq.Unhook(d.hook)
		d.hook = irq.Handle{}
	case ReplayOnEnd:
		d.replay()
	}
	d.Played.Signal()
}

// replay restarts the current clip from its first sample. The engine would
// keep cycling the descriptor list on its own, but its registers don't
// reliably survive a completed buffer cycle on all controllers, so the
// stream is rebuilt from scratch like for any other playback.
//
//go:nosplit
//go:nowritebarrierrec
func (d *Device) replay() {
	err := d.strm.Stop()
	if err == nil {
		err = d.strm.Reset()
	}
	if err == nil {
		d.strm.Init()
		err = d.strm.Setup(d.playing.addr(), d.playing.size())
	}
	if err != nil {
		// Wedged engine. Give up on this session, audio stays usable
		// through the next Play.
		d.strm.Halt()
		irq.Unhook(d.hook)
		d.hook = irq.Handle{}
		return
	}
	debug.Assert(d.strm.Initialized(), "replay with incomplete stream")
	d.strm.Start()
}

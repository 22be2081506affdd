// Package hdatest simulates an HDA controller in ordinary memory.
//
// It backs the hda and sound package tests.
//
// The simulation provides a register file that the hda package can drive
// like a real device: a background goroutine plays the controller's part,
// answering commands from configurable codec models and walking stream
// descriptor lists. It covers what the driver needs, not the full
// controller feature set.
//
// Response and completion delivery rely on the driver yielding in its
// register polls, no real interrupt line is involved. Completion events
// are injected through irq.Dispatch.
package hdatest

import (
	"math/bits"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"embedded/mmio"

	"github.com/clktmr/hda/pc/cpu"
	"github.com/clktmr/hda/pc/hda"
	"github.com/clktmr/hda/pc/irq"
)

// The simulated controller advertises a fixed stream split.
const (
	NumInputStreams  = 4
	NumOutputStreams = 4
)

// regfile mirrors the controller's register layout. The driver maps its
// own view over this memory, both sides see the same bytes.
type regfile struct {
	gcap       mmio.U16
	vmin       mmio.U8
	vmaj       mmio.U8
	outpay     mmio.U16
	inpay      mmio.U16
	gctl       mmio.U32
	wakeen     mmio.U16
	statests   mmio.U16
	gsts       mmio.U16
	_          [3]mmio.U16
	outstrmpay mmio.U16
	instrmpay  mmio.U16
	_          mmio.U32
	intctl     mmio.U32
	intsts     mmio.U32
	_          [2]mmio.U32
	walclk     mmio.U32
	_          mmio.U32
	ssync      mmio.U32
	_          mmio.U32
	corb       corbRegs
	rirb       rirbRegs
	icoi       mmio.U32
	icii       mmio.U32
	icis       mmio.U16
	_          [3]mmio.U16
	dplbase    mmio.U32
	dpubase    mmio.U32
	_          [2]mmio.U32
	stream     [30]streamRegs
}

type corbRegs struct {
	lbase mmio.U32
	ubase mmio.U32
	wp    mmio.U16
	rp    mmio.U16
	ctl   mmio.U8
	sts   mmio.U8
	size  mmio.U8
	_     mmio.U8
}

type rirbRegs struct {
	lbase   mmio.U32
	ubase   mmio.U32
	wp      mmio.U16
	rintcnt mmio.U16
	ctl     mmio.U8
	sts     mmio.U8
	size    mmio.U8
	_       mmio.U8
}

type streamRegs struct {
	ctl   mmio.U16
	tag   mmio.U8
	sts   mmio.U8
	lpib  mmio.U32
	cbl   mmio.U32
	lvi   mmio.U16
	_     mmio.U16
	fifos mmio.U16
	fmt   mmio.U16
	_     mmio.U32
	bdpl  mmio.U32
	bdpu  mmio.U32
}

type bdlEntry struct {
	addr uint64
	len  uint32
	ioc  uint32
}

const (
	crst    = 1 << 0
	ringRun = 1 << 1
	wpReset = 1 << 15
	srRun   = 1 << 1
	bcis    = 1 << 2
	gie     = 1 << 31
)

// Controller is a simulated HDA controller. All codec communication and
// stream activity is recorded for assertions.
type Controller struct {
	regs    *regfile
	codecs  []*Codec
	in, out int
	pin     cpu.Pinner
	closed  atomic.Bool
	manual  atomic.Bool

	corbRP int
	rirbWP int
	walk   [NumOutputStreams]int
	ran    [NumOutputStreams]bool

	mu         sync.Mutex
	plays      int
	lastPlayed []byte
	used       int
}

// NewController starts a controller simulation with the given codecs
// attached. Close frees it again.
func NewController(codecs ...*Codec) *Controller {
	c := &Controller{
		regs:   &regfile{},
		codecs: codecs,
		in:     NumInputStreams,
		out:    NumOutputStreams,
	}
	c.pin.Pin(c.regs)

	c.regs.gcap.Store(NumOutputStreams<<12 | NumInputStreams<<8 | 1)
	c.regs.vmaj.Store(1)
	c.regs.corb.size.Store(0x70) // 2, 16 and 256 entries supported
	c.regs.rirb.size.Store(0x70)
	var present uint16
	for _, cd := range codecs {
		present |= 1 << cd.Addr
	}
	c.regs.statests.Store(present)

	go c.run()
	return c
}

// BaseAddr returns the address the driver should map its register block
// at, in place of a PCI BAR.
func (c *Controller) BaseAddr() cpu.Addr {
	return cpu.PhysicalAddress(uintptr(unsafe.Pointer(c.regs)))
}

// SetRingCaps limits the advertised ring sizes. Valid entry counts are 2,
// 16 and 256. Must be called before the driver initializes its rings.
func (c *Controller) SetRingCaps(corb, rirb int) {
	c.regs.corb.size.Store(sizeCap(corb))
	c.regs.rirb.size.Store(sizeCap(rirb))
}

// SetStreams changes the advertised stream split. Must be called before
// the driver reads the capability register.
func (c *Controller) SetStreams(in, out int) {
	if in > NumInputStreams || out > NumOutputStreams {
		panic("hdatest: too many streams")
	}
	c.in, c.out = in, out
	c.regs.gcap.Store(uint16(out)<<12 | uint16(in)<<8 | 1)
}

// Manual stops the automatic walking of stream descriptor lists. Streams
// then advance only on Complete calls, giving tests exact control over
// when completion interrupts fire. Command processing stays automatic.
func (c *Controller) Manual(on bool) {
	c.manual.Store(on)
}

// Complete advances every running output stream by one descriptor entry on
// the calling goroutine, raising the completion interrupt for entries that
// ask for it. Reports whether any completion fired.
func (c *Controller) Complete() bool {
	fired := false
	for i := range c.out {
		if c.step(i) {
			fired = true
		}
	}
	return fired
}

// CORBWritePointer returns the command ring index last published by the
// driver, as seen by the hardware.
func (c *Controller) CORBWritePointer() int {
	return int(c.regs.corb.wp.Load() & 0xff)
}

func sizeCap(entries int) uint8 {
	switch entries {
	case 256:
		return 0x40
	case 16:
		return 0x20
	case 2:
		return 0x10
	}
	panic("hdatest: invalid ring size")
}

// Plays returns how many buffer completion interrupts were raised.
func (c *Controller) Plays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

// LastPlayed returns a copy of the most recently played sample region.
func (c *Controller) LastPlayed() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(c.lastPlayed))
	copy(buf, c.lastPlayed)
	return buf
}

// StreamsUsed returns how many distinct output engines were ever started.
func (c *Controller) StreamsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bits.OnesCount(uint(c.used))
}

// Close stops the simulation goroutine.
func (c *Controller) Close() {
	c.closed.Store(true)
}

func (c *Controller) run() {
	for !c.closed.Load() {
		if c.regs.gctl.Load()&crst != 0 {
			c.stepCommands()
			if !c.manual.Load() {
				c.stepStreams()
			}
		}
		runtime.Gosched()
	}
	c.pin.Unpin()
}

// stepCommands consumes new CORB entries and posts one response each.
func (c *Controller) stepCommands() {
	corb, rirb := &c.regs.corb, &c.regs.rirb
	if corb.ctl.Load()&ringRun == 0 || rirb.ctl.Load()&ringRun == 0 {
		return
	}
	if rirb.wp.Load()&wpReset != 0 {
		rirb.wp.Store(0)
		c.rirbWP = 0
	}

	wp := int(corb.wp.Load() & 0xff)
	for c.corbRP != wp {
		n := ringSize(corb.size.Load())
		c.corbRP = (c.corbRP + 1) % n
		base := cpu.Addr(corb.lbase.Load()) | cpu.Addr(corb.ubase.Load())<<32
		cmd := memSlice[uint32](base, n)[c.corbRP]
		resp := c.exec(hda.Command(cmd))

		rn := ringSize(rirb.size.Load())
		c.rirbWP = (c.rirbWP + 1) % rn
		rbase := cpu.Addr(rirb.lbase.Load()) | cpu.Addr(rirb.ubase.Load())<<32
		entry := &memSlice[[2]uint32](rbase, rn)[c.rirbWP]
		entry[0] = resp
		entry[1] = uint32(cmd >> 28 & 0xf)
		rirb.wp.Store(uint16(c.rirbWP))
		corb.rp.Store(uint16(c.corbRP))
	}
}

func (c *Controller) exec(cmd hda.Command) uint32 {
	for _, cd := range c.codecs {
		if cd.Addr == cmd.Addr().Codec {
			return cd.exec(cmd)
		}
	}
	return 0
}

// stepStreams advances every running output engine by one descriptor
// entry per call.
func (c *Controller) stepStreams() {
	for i := range c.out {
		c.step(i)
	}
}

// step advances the i-th output engine by one descriptor entry. Reports
// whether the entry raised a completion interrupt.
func (c *Controller) step(i int) bool {
	sr := &c.regs.stream[c.in+i]
	if sr.ctl.Load()&srRun == 0 {
		c.walk[i] = 0
		c.ran[i] = false
		return false
	}
	if !c.ran[i] {
		c.ran[i] = true
		c.mu.Lock()
		c.used |= 1 << i
		c.mu.Unlock()
	}

	n := int(sr.lvi.Load()) + 1
	base := cpu.Addr(sr.bdpl.Load()) | cpu.Addr(sr.bdpu.Load())<<32
	if base == 0 {
		return false
	}
	if c.walk[i] >= n {
		c.walk[i] = 0
	}
	e := memSlice[bdlEntry](base, n)[c.walk[i]]
	c.walk[i]++
	sr.lpib.Store(e.len)

	if e.len > 0 {
		buf := make([]byte, e.len)
		copy(buf, memSlice[byte](cpu.Addr(e.addr), int(e.len)))
		c.mu.Lock()
		c.lastPlayed = buf
		c.mu.Unlock()
	}
	if e.ioc&1 == 0 {
		return false
	}
	c.mu.Lock()
	c.plays++
	c.mu.Unlock()
	sr.sts.Store(sr.sts.Load() | bcis)
	intctl := c.regs.intctl.Load()
	if intctl&gie != 0 && intctl&(1<<(c.in+i)) != 0 {
		irq.Dispatch(irq.Sound)
		// The dispatched handler acked by storing the status bit,
		// which is write-1-to-clear on real hardware but a plain
		// store here.
		sr.sts.Store(sr.sts.Load() &^ bcis)
	}
	return true
}

func memSlice[T any](addr cpu.Addr, n int) []T {
	return unsafe.Slice((*T)(unsafe.Pointer(uintptr(addr))), n)
}

func ringSize(s uint8) int {
	switch s & 0x3 {
	case 1:
		return 16
	case 2:
		return 256
	}
	return 2
}

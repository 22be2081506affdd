package hda

import (
	"embedded/mmio"
)

// registers mirrors the controller's memory mapped register block, located
// through the device's first memory BAR. Offsets and bit positions are
// fixed by the HDA specification.
type registers struct {
	gcap       mmio.R16[GlobalCaps] // 0x00
	vmin       mmio.U8              // 0x02
	vmaj       mmio.U8              // 0x03
	outpay     mmio.U16             // 0x04
	inpay      mmio.U16             // 0x06
	gctl       mmio.R32[GlobalCtl]  // 0x08
	wakeen     mmio.U16             // 0x0c
	statests   mmio.U16             // 0x0e, codec state change, write 1 to clear
	gsts       mmio.U16             // 0x10
	_          [3]mmio.U16          // 0x12
	outstrmpay mmio.U16             // 0x18
	instrmpay  mmio.U16             // 0x1a
	_          mmio.U32             // 0x1c
	intctl     mmio.R32[IntCtl]     // 0x20
	intsts     mmio.R32[IntCtl]     // 0x24
	_          [2]mmio.U32          // 0x28
	walclk     mmio.U32             // 0x30
	_          mmio.U32             // 0x34
	ssync      mmio.U32             // 0x38, blocks stream DMA while set
	_          mmio.U32             // 0x3c
	corb       corbRegs             // 0x40
	rirb       rirbRegs             // 0x50
	icoi       mmio.U32             // 0x60, immediate command interface
	icii       mmio.U32             // 0x64
	icis       mmio.U16             // 0x68
	_          [3]mmio.U16          // 0x6a
	dplbase    mmio.U32             // 0x70, DMA position buffer
	dpubase    mmio.U32             // 0x74
	_          [2]mmio.U32          // 0x78
	stream     [30]streamRegs       // 0x80, input streams first, then output
}

type corbRegs struct {
	lbase mmio.U32          // 0x40
	ubase mmio.U32          // 0x44
	wp    mmio.U16          // 0x48, last valid command index in bits 7:0
	rp    mmio.R16[RingPtr] // 0x4a, hardware read index, reset handshake in bit 15
	ctl   mmio.R8[RingCtl]  // 0x4c
	sts   mmio.U8           // 0x4d
	size  mmio.R8[RingSize] // 0x4e
	_     mmio.U8           // 0x4f
}

type rirbRegs struct {
	lbase   mmio.U32          // 0x50
	ubase   mmio.U32          // 0x54
	wp      mmio.R16[RingPtr] // 0x58, hardware write index, write bit 15 to reset
	rintcnt mmio.U16          // 0x5a, responses per interrupt
	ctl     mmio.R8[RingCtl]  // 0x5c
	sts     mmio.U8           // 0x5d
	size    mmio.R8[RingSize] // 0x5e
	_       mmio.U8           // 0x5f
}

type streamRegs struct {
	ctl   mmio.R16[StreamCtl]    // +0x00
	tag   mmio.U8                // +0x02, stream number in bits 7:4
	sts   mmio.R8[StreamSts]     // +0x03, write 1 to clear
	lpib  mmio.U32               // +0x04, link position in current cycle
	cbl   mmio.U32               // +0x08, cyclic buffer length
	lvi   mmio.U16               // +0x0c, last valid BDL index
	_     mmio.U16               // +0x0e
	fifos mmio.U16               // +0x10
	fmt   mmio.R16[StreamFormat] // +0x12
	_     mmio.U32               // +0x14
	bdpl  mmio.U32               // +0x18
	bdpu  mmio.U32               // +0x1c
}

// GlobalCaps describes the controller's stream and link resources.
type GlobalCaps uint16

func (c GlobalCaps) OutputStreams() int { return int(c>>12) & 0xf }
func (c GlobalCaps) InputStreams() int { return int(c>>8) & 0xf }
func (c GlobalCaps) BidiStreams() int { return int(c>>3) & 0x1f }
func (c GlobalCaps) Addr64() bool { return c&1 != 0 }

type GlobalCtl uint32

const (
	gctlReset GlobalCtl = 1 << 0 // CRST, writing 0 holds the controller in reset
	gctlFlush GlobalCtl = 1 << 1
	gctlUnsol GlobalCtl = 1 << 8 // forward unsolicited responses to the RIRB
)

type IntCtl uint32

const (
	intController IntCtl = 1 << 30 // CIE
	intGlobal     IntCtl = 1 << 31 // GIE
)

// intStream returns the interrupt enable/status bit of a stream register
// index (input streams first, then output).
func intStream(n int) IntCtl { return 1 << n }

// RingPtr is the CORB read pointer or RIRB write pointer.
type RingPtr uint16

const ptrReset RingPtr = 1 << 15

// Index returns the entry index the hardware last processed.
func (p RingPtr) Index() int { return int(p & 0xff) }

type RingCtl uint8

const (
	ringIntEn RingCtl = 1 << 0 // memory error/response interrupts
	ringRun   RingCtl = 1 << 1 // DMA engine enable
)

// RingSize holds the configured ring size in bits 1:0 and the sizes the
// hardware supports as a mask in bits 7:4.
type RingSize uint8

const (
	size2   RingSize = 0x0
	size16  RingSize = 0x1
	size256 RingSize = 0x2
)

func (s RingSize) sizeCap() RingSize { return s >> 4 }

// entries returns the largest entry count advertised by the capability
// bits along with the matching size select value.
func (s RingSize) entries() (int, RingSize) {
	switch {
	case s.sizeCap()&0x4 != 0:
		return 256, size256
	case s.sizeCap()&0x2 != 0:
		return 16, size16
	default:
		return 2, size2
	}
}

type StreamCtl uint16

const (
	strmReset    StreamCtl = 1 << 0 // SRST, enter stream reset
	strmRun      StreamCtl = 1 << 1
	strmIntDone  StreamCtl = 1 << 2 // IOCE, interrupt on buffer completion
	strmIntFIFO  StreamCtl = 1 << 3
	strmIntDescr StreamCtl = 1 << 4
)

type StreamSts uint8

const (
	stsDone    StreamSts = 1 << 2 // BCIS, buffer completion
	stsFIFOErr StreamSts = 1 << 3
	stsDescErr StreamSts = 1 << 4
	stsFIFORdy StreamSts = 1 << 5
)

// StreamFormat is the converter/stream format word shared between the
// stream descriptor FMT register and the SetConverterFormat verb.
type StreamFormat uint16

const (
	fmtBase44k1 StreamFormat = 1 << 14 // base rate 44.1 kHz instead of 48 kHz
	fmtBits16   StreamFormat = 1 << 4  // 16 bits per sample
	fmtChan2    StreamFormat = 1       // channel count - 1
)

// PCMFormat is the only format the driver streams: 44.1 kHz base rate, x1
// multiplier, 16-bit samples, 2 channels. There is no format negotiation.
const PCMFormat = fmtBase44k1 | fmtBits16 | fmtChan2

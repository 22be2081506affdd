package hda

import (
	"github.com/clktmr/hda/debug"
	"github.com/clktmr/hda/pc/cpu"
)

// OutputStream is a single output DMA engine. It fetches samples through
// its buffer descriptor list and raises an interrupt whenever an entry
// with the interrupt flag finishes playing.
//
// The usual lifecycle is Reset, Init, Setup, Start. After a completion
// interrupt the engine keeps cycling through the descriptor list until
// stopped.
type OutputStream struct {
	regs *streamRegs
	bdl  *BufferDescriptorList
	tag  uint8
}

func newOutputStream(regs *streamRegs, tag uint8) *OutputStream {
	return &OutputStream{regs: regs, bdl: newBDL(), tag: tag}
}

// Tag returns the stream number presented on the link. Converters bound to
// this tag pick up the stream's samples.
func (s *OutputStream) Tag() uint8 { return s.tag }

// Reset takes the engine through its reset handshake and drops the
// descriptor list. Afterwards the stream needs Init and Setup again.
//
// Safe in handler mode, the handshake is a bounded spin.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Reset() error {
	s.regs.ctl.SetBits(strmReset)
	err := spin(streamSpins, func() bool {
		return s.regs.ctl.LoadBits(strmReset) != 0
	})
	if err != nil {
		return err
	}
	s.regs.ctl.ClearBits(strmReset)
	err = spin(streamSpins, func() bool {
		return s.regs.ctl.LoadBits(strmReset) == 0
	})
	if err != nil {
		return err
	}
	s.bdl.Reset()
	return nil
}

// Init programs the fixed PCM sample format, binds the engine to its
// stream tag, enables the completion interrupt and publishes the
// descriptor list's base address. The engine stays stopped.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Init() {
	s.regs.fmt.Store(PCMFormat)
	s.regs.tag.Store(s.tag << 4)
	s.regs.ctl.SetBits(strmIntDone)
	base := s.bdl.base()
	s.regs.bdpl.Store(uint32(base))
	s.regs.bdpu.Store(uint32(base >> 32))
}

// Setup publishes a single sample region as the stream's cyclic buffer.
// The engine requires at least two descriptor entries, so the region is
// queued twice, raising the completion interrupt after each pass.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Setup(addr cpu.Addr, n uint32) error {
	debug.Assert(s.bdl.Len() == 0, "stream already set up")
	if err := s.bdl.Append(addr, n, true); err != nil {
		return err
	}
	if err := s.bdl.Append(addr, n, true); err != nil {
		return err
	}
	s.regs.cbl.Store(s.bdl.Bytes())
	s.regs.lvi.Store(uint16(s.bdl.Len() - 1))
	return nil
}

// BDL exposes the stream's descriptor list for multi region setups.
// Callers must program the cyclic buffer length and last valid index
// themselves afterwards, see Setup for the single region case.
func (s *OutputStream) BDL() *BufferDescriptorList { return s.bdl }

// Commit programs the cyclic buffer length and last valid index from the
// current descriptor list.
func (s *OutputStream) Commit() {
	s.regs.cbl.Store(s.bdl.Bytes())
	s.regs.lvi.Store(uint16(s.bdl.Len() - 1))
}

// Start sets the run flag. The engine begins fetching at the first
// descriptor entry.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Start() {
	s.regs.ctl.SetBits(strmRun)
}

// Stop clears the run flag and waits for the engine to acknowledge. Safe
// in handler mode.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Stop() error {
	s.Halt()
	return spin(streamSpins, func() bool {
		return s.regs.ctl.LoadBits(strmRun) == 0
	})
}

// Halt clears the run flag without waiting for the engine to stop.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Halt() {
	s.regs.ctl.ClearBits(strmRun)
}

// Running reports whether the DMA engine is enabled.
func (s *OutputStream) Running() bool {
	return s.regs.ctl.LoadBits(strmRun) != 0
}

// Initialized reports whether the stream has left reset and holds a
// complete descriptor list.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Initialized() bool {
	return s.regs.ctl.LoadBits(strmReset) == 0 && s.bdl.Len() == 2
}

// Position returns the link position in the current buffer cycle.
func (s *OutputStream) Position() uint32 {
	return s.regs.lpib.Load()
}

// Completed reports whether a descriptor entry with the interrupt flag
// finished since the last Ack. Called from interrupt context to identify
// the source.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Completed() bool {
	return s.regs.sts.LoadBits(stsDone) != 0
}

// Ack clears the completion status, write one to clear.
//
//go:nosplit
//go:nowritebarrierrec
func (s *OutputStream) Ack() {
	s.regs.sts.Store(stsDone)
}

package hda

import (
	"embedded/mmio"

	"github.com/clktmr/hda/pc/cpu"
)

// CORB, RIRB and buffer descriptor lists must not cross a 128 byte
// boundary at the start.
const dmaAlign = 128

// rirbEntry is a single RIRB slot as written by the controller: the
// codec's response word and controller supplied metadata.
type rirbEntry struct {
	resp uint32
	ex   uint32
}

// Commander drives the command outbound ring (CORB) and response inbound
// ring (RIRB). All codec communication goes through here, one response per
// command, in order.
type Commander struct {
	regs *registers
	corb []Command
	rirb []rirbEntry
	wp   int // last CORB entry handed to the hardware
	rp   int // last RIRB entry consumed
	pin  cpu.Pinner
}

// InitCommander allocates both command rings at the largest size the
// hardware supports and starts their DMA engines. Requires a prior Reset.
func (c *Controller) InitCommander() (*Commander, error) {
	cdr := &Commander{regs: c.regs}
	corb := &c.regs.corb
	rirb := &c.regs.rirb

	n, sel := corb.size.Load().entries()
	cdr.corb = cpu.MakePaddedSliceAligned[Command](n, dmaAlign)
	cdr.pin.Pin(&cdr.corb[0])

	if err := stopRing(&corb.ctl); err != nil {
		return nil, err
	}
	corb.size.Store(corb.size.Load()&^0x3 | sel)
	base := cpu.PhysicalAddressSlice(cdr.corb)
	corb.lbase.Store(uint32(base))
	corb.ubase.Store(uint32(base >> 32))
	corb.wp.Store(0)

	// Read pointer reset handshake. Both edges must be read back.
	corb.rp.Store(ptrReset)
	err := poll(pollTimeout, func() bool {
		return corb.rp.LoadBits(ptrReset) != 0
	})
	if err != nil {
		return nil, err
	}
	corb.rp.Store(0)
	err = poll(pollTimeout, func() bool {
		return corb.rp.LoadBits(ptrReset) == 0
	})
	if err != nil {
		return nil, err
	}

	n, sel = rirb.size.Load().entries()
	cdr.rirb = cpu.MakePaddedSliceAligned[rirbEntry](n, dmaAlign)
	cdr.pin.Pin(&cdr.rirb[0])

	if err := stopRing(&rirb.ctl); err != nil {
		return nil, err
	}
	rirb.size.Store(rirb.size.Load()&^0x3 | sel)
	base = cpu.PhysicalAddressSlice(cdr.rirb)
	rirb.lbase.Store(uint32(base))
	rirb.ubase.Store(uint32(base >> 32))
	rirb.wp.Store(ptrReset) // write only, reads back as zero
	rirb.rintcnt.Store(1)

	if err := startRing(&corb.ctl); err != nil {
		return nil, err
	}
	if err := startRing(&rirb.ctl); err != nil {
		return nil, err
	}
	return cdr, nil
}

func stopRing(ctl *mmio.R8[RingCtl]) error {
	ctl.ClearBits(ringRun)
	return poll(pollTimeout, func() bool { return ctl.LoadBits(ringRun) == 0 })
}

func startRing(ctl *mmio.R8[RingCtl]) error {
	ctl.SetBits(ringRun)
	return poll(pollTimeout, func() bool { return ctl.LoadBits(ringRun) != 0 })
}

// Running reports whether both ring DMA engines are enabled.
func (cdr *Commander) Running() bool {
	return cdr.regs.corb.ctl.LoadBits(ringRun) != 0 &&
		cdr.regs.rirb.ctl.LoadBits(ringRun) != 0
}

// Stop halts both ring DMA engines and releases the ring memory for
// garbage collection.
func (cdr *Commander) Stop() error {
	if err := stopRing(&cdr.regs.corb.ctl); err != nil {
		return err
	}
	if err := stopRing(&cdr.regs.rirb.ctl); err != nil {
		return err
	}
	cdr.pin.Unpin()
	return nil
}

// Add queues a single command without waiting for its response. The write
// pointer always names the last valid entry, so the first command of a run
// lands at index 1.
func (cdr *Commander) Add(c Command) error {
	if !cdr.Running() {
		return ErrNotRunning
	}
	cdr.wp = (cdr.wp + 1) % len(cdr.corb)
	cdr.corb[cdr.wp] = c
	cdr.regs.corb.wp.Store(uint16(cdr.wp))
	return nil
}

// Response dequeues the next response, waiting for the codec to post it if
// necessary.
func (cdr *Commander) Response() (Response, error) {
	if !cdr.Running() {
		return 0, ErrNotRunning
	}
	err := poll(pollTimeout, func() bool {
		return cdr.regs.rirb.wp.Load().Index() != cdr.rp
	})
	if err != nil {
		return 0, err
	}
	cdr.rp = (cdr.rp + 1) % len(cdr.rirb)
	idx := cdr.rp
	if idx == len(cdr.rirb)-1 {
		// Reset the write pointer before the hardware reaches the
		// end of the ring, it doesn't wrap reliably on all
		// controllers. Restart our read index to stay in lockstep.
		cdr.regs.rirb.wp.Store(ptrReset)
		cdr.rp = 0
	}
	return Response(cdr.rirb[idx].resp), nil
}

// Exec queues cmd and waits for its response.
func (cdr *Commander) Exec(c Command) (Response, error) {
	if err := cdr.Add(c); err != nil {
		return 0, err
	}
	return cdr.Response()
}

// Package hda implements an Intel High Definition Audio controller driver.
//
// The controller exposes three independent pieces which this package models
// separately: a command ring pair (CORB/RIRB) used to talk to the codecs on
// the link (Commander), the codec node graph discovered through it
// (Topology), and the stream descriptor engines that fetch sample data via
// cyclic buffer descriptor lists (OutputStream).
//
// All register state changes are verified by reading back where the
// specification requires it. Polls are bounded and fail with ErrTimeout
// instead of hanging, since a wedged controller must not stall the whole
// system.
package hda

import (
	"errors"
	"runtime"
	"time"

	"github.com/clktmr/hda/pc/cpu"
)

var (
	ErrTimeout    = errors.New("hda: register poll timed out")
	ErrNoCodec    = errors.New("hda: no codec present on the link")
	ErrNotRunning = errors.New("hda: command engine not running")
)

// Polls on command responses and reset handshakes. Generous, QEMU acks
// most of these in the same store.
const pollTimeout = 250 * time.Millisecond

// poll spins until cond returns true, yielding between probes so that
// other goroutines (and the register file simulation in tests) make
// progress. Returns ErrTimeout if cond doesn't hold within d.
func poll(d time.Duration, cond func() bool) error {
	start := time.Now()
	for !cond() {
		if time.Since(start) > d {
			return ErrTimeout
		}
		runtime.Gosched()
	}
	return nil
}

// Stream engine handshakes ack within a few register reads.
const streamSpins = 1000

// spin is a poll bounded by probe count instead of wall time. It never
// yields and never reads the clock, so it's usable in handler mode, where
// the completion hook restarts streams.
//
//go:nosplit
//go:nowritebarrierrec
func spin(n int, cond func() bool) error {
	for range n {
		if cond() {
			return nil
		}
	}
	return ErrTimeout
}

// Controller is an open handle to a single HDA function's register block.
// It owns the command ring pair and hands out stream engines. Multiple
// controllers can be driven independently.
type Controller struct {
	regs   *registers
	caps   GlobalCaps
	codecs uint16 // STATESTS snapshot taken after reset
}

// NewController returns a driver for the register block mapped at base,
// usually the device's first memory BAR. The controller is left untouched
// until Reset is called.
func NewController(base cpu.Addr) *Controller {
	return &Controller{regs: cpu.MMIO[registers](base)}
}

// Reset takes the controller through a full link reset and records which
// codec addresses reported presence afterwards. Must be called before any
// other operation.
func (c *Controller) Reset() error {
	regs := c.regs

	// Assert reset first in case firmware left the link running.
	regs.gctl.ClearBits(gctlReset)
	err := poll(pollTimeout, func() bool {
		return regs.gctl.LoadBits(gctlReset) == 0
	})
	if err != nil {
		return err
	}

	regs.gctl.SetBits(gctlReset)
	err = poll(pollTimeout, func() bool {
		return regs.gctl.LoadBits(gctlReset) != 0
	})
	if err != nil {
		return err
	}

	// Codecs have 521 us after reset deassertion to request a state
	// change. Give them some extra slack, then require at least one.
	time.Sleep(time.Millisecond)
	err = poll(pollTimeout, func() bool {
		return regs.statests.Load() != 0
	})
	if err != nil {
		return ErrNoCodec
	}

	c.caps = regs.gcap.Load()
	c.codecs = regs.statests.Load()
	return nil
}

// Codecs returns the link addresses that signaled presence during Reset.
func (c *Controller) Codecs() []uint8 {
	var addrs []uint8
	for i := range uint8(15) {
		if c.codecs&(1<<i) != 0 {
			addrs = append(addrs, i)
		}
	}
	return addrs
}

// Caps returns the controller's capability word.
func (c *Controller) Caps() GlobalCaps { return c.caps }

// EnableInterrupts unmasks the global and controller interrupt sources
// plus the given output stream's completion interrupt.
func (c *Controller) EnableInterrupts(stream int) {
	c.regs.intctl.SetBits(intGlobal | intController | intStream(c.caps.InputStreams()+stream))
}

// DisableInterrupts masks all interrupt sources of this function.
func (c *Controller) DisableInterrupts() {
	c.regs.intctl.Store(0)
}

// ClearSync releases the per-stream sync gate. Some controllers come out
// of reset with streams blocked here, which silently stalls all DMA.
func (c *Controller) ClearSync() {
	c.regs.ssync.Store(0)
}

// OutputStream returns the n-th output stream engine, counted from 0.
// Output descriptors follow the input descriptors in the register block.
func (c *Controller) OutputStream(n int) *OutputStream {
	if n < 0 || n >= c.caps.OutputStreams() {
		panic("hda: no such output stream")
	}
	return newOutputStream(&c.regs.stream[c.caps.InputStreams()+n], uint8(n)+1)
}

// Version returns the controller's major and minor specification version.
func (c *Controller) Version() (major, minor uint8) {
	return c.regs.vmaj.Load(), c.regs.vmin.Load()
}

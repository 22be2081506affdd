package hda

import (
	"errors"

	"github.com/clktmr/hda/pc/cpu"
)

// ErrBDLFull is returned when a buffer descriptor list has reached the
// maximum number of entries the hardware can address.
var ErrBDLFull = errors.New("hda: buffer descriptor list full")

const maxBDLEntries = 256

// bdlEntry layout is hardware dictated: 16 bytes per entry, sample regions
// must start on a 128 byte boundary.
type bdlEntry struct {
	addr cpu.Addr
	len  uint32
	ioc  uint32 // bit 0: raise the completion interrupt after this entry
}

// BufferDescriptorList describes a stream's cyclic sample buffer as an
// ordered list of memory regions. The engine walks the entries in order
// and wraps back to the first after the last valid one.
//
// The backing array stays at full hardware capacity for the list's whole
// lifetime and the fill level lives in a plain counter. The completion
// hook rebuilds the list in handler mode, where a slice header store
// would emit a write barrier.
type BufferDescriptorList struct {
	entries []bdlEntry
	n       int
	pin     cpu.Pinner
}

func newBDL() *BufferDescriptorList {
	l := &BufferDescriptorList{
		entries: cpu.MakePaddedSliceAligned[bdlEntry](maxBDLEntries, dmaAlign),
	}
	l.pin.Pin(&l.entries[0])
	return l
}

// Append adds a region of n bytes at addr. If intr is set the stream
// raises its completion interrupt once the region finished playing.
//
//go:nosplit
//go:nowritebarrierrec
func (l *BufferDescriptorList) Append(addr cpu.Addr, n uint32, intr bool) error {
	if l.n >= maxBDLEntries {
		return ErrBDLFull
	}
	e := &l.entries[l.n]
	e.addr = addr
	e.len = n
	e.ioc = 0
	if intr {
		e.ioc = 1
	}
	l.n++
	return nil
}

// Reset drops all entries.
//
//go:nosplit
//go:nowritebarrierrec
func (l *BufferDescriptorList) Reset() { l.n = 0 }

// Len returns the number of entries.
func (l *BufferDescriptorList) Len() int { return l.n }

// Bytes returns the summed length of all regions, the value the cyclic
// buffer length register expects.
func (l *BufferDescriptorList) Bytes() uint32 {
	var n uint32
	for _, e := range l.entries[:l.n] {
		n += e.len
	}
	return n
}

func (l *BufferDescriptorList) base() cpu.Addr {
	return cpu.PhysicalAddressSlice(l.entries[:1])
}

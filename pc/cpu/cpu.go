// Package cpu provides memory and port I/O primitives for the x86-64 CPU.
//
// All code assumes the boot environment set up by the loader: long mode
// with the whole physical address space identity mapped, MMIO ranges
// mapped uncached via PAT, and the data cache coherent with bus masters
// (x86 DMA snoops the cache, so there are no writeback/invalidate ops
// here).
package cpu

import "unsafe"

// Addr represents a physical memory address.
type Addr uint64

// PhysicalAddress returns the physical address of a virtual address.
// The loader identity maps all of RAM, so this is the identity.
func PhysicalAddress(addr uintptr) Addr {
	return Addr(addr)
}

// Same as [PhysicalAddress] but for slices.
func PhysicalAddressSlice[T any](s []T) Addr {
	return PhysicalAddress(uintptr(unsafe.Pointer(unsafe.SliceData(s))))
}

// MMIO returns a typed view on a memory mapped register block at physical
// address addr. The region must have been mapped uncached by the loader.
func MMIO[T any](addr Addr) *T {
	return (*T)(unsafe.Pointer(uintptr(addr)))
}

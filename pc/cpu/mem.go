package cpu

import "unsafe"

const CacheLineSize = 64

// DMA engines on the bus snoop the cache, but descriptors shared with a
// bus master should still not share a cache line with unrelated data: the
// CPU may merge writes within a line while the device reads it. Pad
// structs with CacheLinePad at the beginning and end.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// A slice that is safe to hand to a bus master. Its start is aligned to
// CacheLineSize and the end is padded to fill the cache line. Note that
// using append() might corrupt the padding.
func MakePaddedSlice[T any](size int) []T {
	var t T
	cls := CacheLineSize / int(unsafe.Sizeof(t))
	buf := make([]T, 0, cls+size+cls)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	shift := (CacheLineSize - int(addr)%CacheLineSize) / int(unsafe.Sizeof(t))
	return buf[shift : shift+size]
}

// Ensure a slice is padded. Might copy the slice if necessary.
func PaddedSlice[T any](slice []T) []T {
	if IsPadded(slice) == false {
		buf := MakePaddedSlice[T](len(slice))
		copy(buf, slice)
		return buf
	}
	return slice
}

// Same as MakePaddedSlice with extra alignment requirements. The HDA
// controller requires 128 byte alignment for ring buffers, buffer
// descriptor lists and sample buffers.
func MakePaddedSliceAligned[T any](size int, align uintptr) []T {
	var t T
	if align <= CacheLineSize || align <= unsafe.Alignof(t) {
		return MakePaddedSlice[T](size)
	}

	buf := MakePaddedSlice[T](size + int(align/unsafe.Sizeof(t)))
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	shift := (align - addr%align) / unsafe.Sizeof(t)
	return buf[shift : shift+uintptr(size)]
}

// Returns true if p is aligned to and padded out to full cache lines.
func IsPadded[T any](p []T) bool {
	var t T
	cls := CacheLineSize / int(unsafe.Sizeof(t))

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	return addr%CacheLineSize == 0 && cap(p)-len(p) >= cls-len(p)%cls
}

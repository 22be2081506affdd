package cpu_test

import (
	"testing"
	"unsafe"

	"github.com/clktmr/hda/pc/cpu"
	hdatesting "github.com/clktmr/hda/testing"
)

func TestMain(m *testing.M) { hdatesting.TestMain(m) }

func assertPadded[T any](t *testing.T, slice []T, length int, align uintptr) {
	t.Helper()
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(slice)))
	if len(slice) != length {
		t.Fatalf("wrong length: expected %v, got %v", length, len(slice))
	}
	if !cpu.IsPadded(slice) {
		t.Fatalf("got unpadded slice for len=%v: addr=0x%x, cap=%v", length, addr, cap(slice))
	}
	if addr%align != 0 {
		t.Fatalf("got unaligned slice for len=%v: addr=0x%x, align=%v", length, addr, align)
	}
}

func testMakePaddedSlice[T any](t *testing.T) {
	for i := range 64 {
		slice := cpu.MakePaddedSlice[T](i)
		assertPadded(t, slice, i, cpu.CacheLineSize)
	}
}

func TestMakePaddedSlice(t *testing.T) {
	t.Run("byte", testMakePaddedSlice[uint8])
	t.Run("uint16", testMakePaddedSlice[uint16])
	t.Run("uint32", testMakePaddedSlice[uint32])
	t.Run("uint64", testMakePaddedSlice[uint64])
}

func testMakePaddedSliceAligned[T any](t *testing.T) {
	for i := range 64 {
		for _, align := range []uintptr{2, 4, 8, 16, 32, 64, 128, 256} {
			slice := cpu.MakePaddedSliceAligned[T](i, align)
			assertPadded(t, slice, i, align)
		}
	}
}

func TestMakePaddedSliceAligned(t *testing.T) {
	t.Run("byte", testMakePaddedSliceAligned[uint8])
	t.Run("uint16", testMakePaddedSliceAligned[uint16])
	t.Run("uint32", testMakePaddedSliceAligned[uint32])
	t.Run("uint64", testMakePaddedSliceAligned[uint64])
}

func TestPaddedSlice(t *testing.T) {
	testdata := []byte("Hello everybody, I'm Bonzo!")

	padded := cpu.PaddedSlice(testdata)
	assertPadded(t, padded, len(testdata), cpu.CacheLineSize)
	for i := range testdata {
		if padded[i] != testdata[i] {
			t.Fatal("content mismatch after copy at", i)
		}
	}

	// Already padded slices must be returned as is.
	again := cpu.PaddedSlice(padded)
	if unsafe.SliceData(again) != unsafe.SliceData(padded) {
		t.Error("padded slice was copied")
	}
}

func TestPinner(t *testing.T) {
	var pin cpu.Pinner
	buf := cpu.MakePaddedSlice[byte](64)
	pin.Pin(&buf[0])
	pin.Pin(&buf[0]) // pinning twice must be a no-op
	cpu.PinSlice(&pin, buf)
	pin.Unpin()
}

func TestPhysicalAddressSlice(t *testing.T) {
	buf := cpu.MakePaddedSliceAligned[byte](64, 128)
	addr := cpu.PhysicalAddressSlice(buf)
	if addr != cpu.PhysicalAddress(uintptr(unsafe.Pointer(&buf[0]))) {
		t.Error("address mismatch between slice and first element")
	}
	if addr%128 != 0 {
		t.Errorf("expected 128 byte alignment, got 0x%x", addr)
	}
}

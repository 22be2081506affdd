package pci_test

import (
	"testing"

	"github.com/clktmr/hda/pc/pci"
	hdatesting "github.com/clktmr/hda/testing"
)

func TestMain(m *testing.M) { hdatesting.TestMain(m) }

func TestTagLayout(t *testing.T) {
	tag := pci.NewTag(0xab, 0x1f, 0x7)
	if uint32(tag)&(1<<31) == 0 {
		t.Error("enable bit not set")
	}
	if tag.Bus() != 0xab || tag.Device() != 0x1f || tag.Function() != 0x7 {
		t.Errorf("field mismatch: %02x:%02x.%d", tag.Bus(), tag.Device(), tag.Function())
	}
	if tag.String() != "ab:1f.7" {
		t.Errorf("expected ab:1f.7, got %s", tag)
	}

	// Out of range device and function numbers must not leak into
	// neighbouring fields.
	tag = pci.NewTag(0, 0x3f, 0xf)
	if tag.Bus() != 0 || tag.Device() != 0x1f || tag.Function() != 0x7 {
		t.Errorf("field overflow: %02x:%02x.%d", tag.Bus(), tag.Device(), tag.Function())
	}
}

// TestFindClass expects the HDA function the test runner attaches to the
// virtual machine.
func TestFindClass(t *testing.T) {
	fn := pci.FindClass(0x04, 0x03)
	if fn == nil {
		t.Skip("no HDA function on this machine")
	}
	if fn.VendorID == pci.VendorInvalid || fn.VendorID == 0 {
		t.Errorf("implausible vendor id %04x", fn.VendorID)
	}
	if fn.Class != 0x04 || fn.Subclass != 0x03 {
		t.Errorf("wrong class %02x:%02x", fn.Class, fn.Subclass)
	}
	if fn.BAR(0) == 0 {
		t.Error("first BAR not programmed")
	}

	fn.SetInterruptLine(11)
	if got := fn.InterruptLine(); got != 11 {
		t.Errorf("interrupt line readback: expected 11, got %d", got)
	}
}

func TestFindClassAbsent(t *testing.T) {
	// Class 0xff is reserved, no device reports it.
	if fn := pci.FindClass(0xff, 0xff); fn != nil {
		t.Errorf("found nonexistent device %s", fn.Tag)
	}
}

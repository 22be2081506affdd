// Package pci provides access to the PCI configuration space via the
// legacy 0xCF8/0xCFC port pair.
//
// It implements just enough to locate a device by class and hand its
// resources to a driver. It's not a general purpose PCI subsystem: no
// capability walking, no bridge handling, no hotplug.
package pci

import (
	"fmt"

	"github.com/clktmr/hda/pc/cpu"
)

const (
	portAddr uint16 = 0x0cf8
	portData uint16 = 0x0cfc
)

// Configuration space header offsets (type 0).
const (
	regVendorID  = 0x00
	regDeviceID  = 0x02
	regCommand   = 0x04
	regStatus    = 0x06
	regClass     = 0x08 // revision:8, progif:8, subclass:8, class:8
	regHeader    = 0x0e
	regBAR0      = 0x10
	regIntrLine  = 0x3c
	regIntrPin   = 0x3d
)

// Command register bits.
const (
	cmdIOSpace uint16 = 1 << iota
	cmdMemSpace
	cmdBusMaster
)

// VendorInvalid is returned for the vendor id word of unpopulated
// bus/device/function combinations.
const VendorInvalid = 0xffff

// Tag addresses a single function in configuration space. Its layout
// matches the CONFIG_ADDRESS register: enable:1, bus:8, device:5,
// function:3, with the register offset filled in per access.
type Tag uint32

func NewTag(bus, device, fn uint8) Tag {
	return Tag(1<<31 | uint32(bus)<<16 | uint32(device&0x1f)<<11 | uint32(fn&0x7)<<8)
}

func (t Tag) Bus() uint8      { return uint8(t >> 16) }
func (t Tag) Device() uint8   { return uint8(t>>11) & 0x1f }
func (t Tag) Function() uint8 { return uint8(t>>8) & 0x7 }

func (t Tag) String() string {
	return fmt.Sprintf("%02x:%02x.%d", t.Bus(), t.Device(), t.Function())
}

// ReadConfig32 reads a dword from configuration space. Each access is an
// address cycle on 0xCF8 followed by a data cycle on 0xCFC.
func ReadConfig32(tag Tag, off uint8) uint32 {
	cpu.Out32(portAddr, uint32(tag)|uint32(off&0xfc))
	return cpu.In32(portData)
}

func WriteConfig32(tag Tag, off uint8, data uint32) {
	cpu.Out32(portAddr, uint32(tag)|uint32(off&0xfc))
	cpu.Out32(portData, data)
}

func ReadConfig16(tag Tag, off uint8) uint16 {
	return uint16(ReadConfig32(tag, off) >> ((off & 0x2) * 8))
}

func WriteConfig16(tag Tag, off uint8, data uint16) {
	shift := (off & 0x2) * 8
	v := ReadConfig32(tag, off) &^ (0xffff << shift)
	WriteConfig32(tag, off, v|uint32(data)<<shift)
}

func ReadConfig8(tag Tag, off uint8) uint8 {
	return uint8(ReadConfig32(tag, off) >> ((off & 0x3) * 8))
}

func WriteConfig8(tag Tag, off uint8, data uint8) {
	shift := (off & 0x3) * 8
	v := ReadConfig32(tag, off) &^ (0xff << shift)
	WriteConfig32(tag, off, v|uint32(data)<<shift)
}

// Device is the identity snapshot of a discovered function.
type Device struct {
	Tag      Tag
	VendorID uint16
	DeviceID uint16
	Class    uint8
	Subclass uint8
}

// FindClass scans the whole bus/device/function space for the first
// function matching class and subclass. Returns nil if none is present.
func FindClass(class, subclass uint8) *Device {
	for bus := range 256 {
		for device := range 32 {
			for fn := range 8 {
				tag := NewTag(uint8(bus), uint8(device), uint8(fn))
				vendor := ReadConfig16(tag, regVendorID)
				if vendor == VendorInvalid {
					continue
				}
				code := ReadConfig32(tag, regClass)
				if uint8(code>>24) != class || uint8(code>>16) != subclass {
					continue
				}
				return &Device{
					Tag:      tag,
					VendorID: vendor,
					DeviceID: ReadConfig16(tag, regDeviceID),
					Class:    class,
					Subclass: subclass,
				}
			}
		}
	}
	return nil
}

// BAR returns the physical address in the n-th base address register.
// 64-bit memory BARs consume two registers; the caller must know the
// device's layout and pass the index of the low dword.
func (d *Device) BAR(n int) cpu.Addr {
	off := uint8(regBAR0 + 4*n)
	lo := ReadConfig32(d.Tag, off)
	addr := cpu.Addr(lo &^ 0xf)
	if lo&0x6 == 0x4 { // 64-bit memory BAR
		addr |= cpu.Addr(ReadConfig32(d.Tag, off+4)) << 32
	}
	return addr
}

// EnableBusMaster allows the device to master the bus and decode memory
// space accesses. Required before any of its DMA engines are started.
func (d *Device) EnableBusMaster() {
	cmd := ReadConfig16(d.Tag, regCommand)
	WriteConfig16(d.Tag, regCommand, cmd|cmdMemSpace|cmdBusMaster)
}

// InterruptLine returns the interrupt line the firmware routed the
// device's INTx# pin to.
func (d *Device) InterruptLine() uint8 {
	return ReadConfig8(d.Tag, regIntrLine)
}

// SetInterruptLine records line in the device's configuration header.
// The register is scratch space for software, writing it documents the
// routing chosen by the kernel.
func (d *Device) SetInterruptLine(line uint8) {
	WriteConfig8(d.Tag, regIntrLine, line)
}

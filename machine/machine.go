// Package machine is imported by the runtime and allows the target to
// implement some hooks, most importantly rt0.
package machine

import "unsafe"

// Values left in the BIOS data area by the firmware.
var (
	// COM1 is the first serial port's I/O base, 0 if the firmware found
	// none. Almost universally 0x3f8.
	COM1 uint16 = *(*uint16)(unsafe.Pointer(uintptr(0x0400)))

	// LowMemory is the number of KiB of conventional memory below the
	// EBDA.
	LowMemory uint16 = *(*uint16)(unsafe.Pointer(uintptr(0x0413)))
)

func init() {
	if COM1 == 0 {
		COM1 = 0x3f8
	}
	initConsole()
}

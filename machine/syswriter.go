package machine

import (
	_ "unsafe" // for linkname

	"github.com/clktmr/hda/pc/cpu"
)

// 16550 register offsets from the port base.
const (
	uartData    = 0 // also divisor low byte while DLAB is set
	uartIntrEn  = 1 // divisor high byte while DLAB is set
	uartFIFO    = 2
	uartLineCtl = 3
	uartModem   = 4
	uartLineSts = 5
)

const (
	lineCtl8N1  = 0x03
	lineCtlDLAB = 0x80

	fifoSetup = 0xc7 // enable, clear both FIFOs, deepest trigger

	modemReady = 0x0b // DTR, RTS, OUT2 (gates the interrupt line)

	stsTxEmpty = 1 << 5
)

// initConsole programs COM1 to 115200 8N1. DefaultWrite works without
// this, relying on the firmware's setup, but reprogramming gets us a
// known baud rate.
func initConsole() {
	cpu.Out8(COM1+uartLineCtl, lineCtlDLAB)
	cpu.Out8(COM1+uartData, 1) // 115200
	cpu.Out8(COM1+uartIntrEn, 0)
	cpu.Out8(COM1+uartLineCtl, lineCtl8N1)
	cpu.Out8(COM1+uartFIFO, fifoSetup)
	cpu.Out8(COM1+uartModem, modemReady)
}

// Writes to the first serial port, regardless if one is present or not.
// Rather slow since it spins on the transmitter with interrupts unused.
// Only intended as a fail safe logger in very early boot and for panics.
//
//go:nowritebarrierrec
//go:nosplit
//go:linkname DefaultWrite runtime.defaultWrite
func DefaultWrite(fd int, p []byte) int {
	for _, c := range p {
		for cpu.In8(COM1+uartLineSts)&stsTxEmpty == 0 {
		}
		cpu.Out8(COM1+uartData, c)
	}
	return len(p)
}

type defaultWriter int

const DefaultWriter defaultWriter = 0

func (v defaultWriter) Write(p []byte) (int, error) {
	return DefaultWrite(int(v), p), nil
}

// Package testing provides utilities for writing tests that run on the
// bare PC target.
package testing

import (
	"embedded/rtos"
	"os"
	"syscall"
	"testing"

	"github.com/clktmr/hda/machine"
	"github.com/clktmr/hda/pc/cpu"

	"github.com/embeddedgo/fs/termfs"
)

// QEMU's isa-debug-exit device, set up by the test runner. Writing val
// terminates the VM with status (val<<1)|1.
const (
	debugExitPort    = 0x501
	debugExitSuccess = 0x10 // exit status 0x21
	debugExitFailure = 0x11 // exit status 0x23
)

// TestMain should be used as TestMain for tests that run on the metal.
func TestMain(m *testing.M) {
	var err error

	// Redirect stdout and stderr to the first serial port.
	fs := termfs.NewLight("termfs", nil, machine.DefaultWriter)
	rtos.Mount(fs, "/dev/console")
	os.Stdout, err = os.OpenFile("/dev/console", syscall.O_WRONLY, 0)
	if err != nil {
		panic(err)
	}
	os.Stderr = os.Stdout

	// TODO find a way to pass these from the 'go test' command
	os.Args = append(os.Args, "-test.v")
	os.Args = append(os.Args, "-test.bench=.")
	os.Args = append(os.Args, "-test.benchmem")

	code := m.Run()

	if code == 0 {
		cpu.Out8(debugExitPort, debugExitSuccess)
	} else {
		cpu.Out8(debugExitPort, debugExitFailure)
	}
	os.Exit(code) // reached only without the debug-exit device
}

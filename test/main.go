// Smoke check for the sound device on the real controller, run under
// QEMU with an emulated output codec:
//
//	go tool hdago qemu -test test.img
//
// The package tests cover the driver against a simulated controller,
// this program checks the same paths against actual hardware register
// semantics and interrupt delivery.
package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"syscall"
	"time"

	"embedded/rtos"

	"github.com/clktmr/hda/drivers/sound"
	"github.com/clktmr/hda/machine"
	"github.com/clktmr/hda/pc/cpu"

	"github.com/embeddedgo/fs/termfs"
)

const (
	debugExitPort    = 0x501
	debugExitSuccess = 0x10
	debugExitFailure = 0x11
)

func init() {
	var err error

	console := termfs.NewLight("termfs", nil, machine.DefaultWriter)
	rtos.Mount(console, "/dev/console")
	os.Stdout, err = os.OpenFile("/dev/console", syscall.O_WRONLY, 0)
	if err != nil {
		panic(err)
	}
	os.Stderr = os.Stdout
}

var failed bool

func check(name string, ok bool) {
	if ok {
		fmt.Println("ok", name)
	} else {
		fmt.Println("not ok", name)
		failed = true
	}
}

func tone(frames int) []int16 {
	s := make([]int16, 2*frames)
	for i := range frames {
		v := int16(0.25 * math.MaxInt16 * math.Sin(2*math.Pi*440*float64(i)/44100))
		s[2*i], s[2*i+1] = v, v
	}
	return s
}

func main() {
	dev := sound.Probe()
	check("probe", dev != nil)
	if dev == nil {
		verdict()
	}

	err := dev.Start()
	check("start", err == nil)
	if err != nil {
		fmt.Println("start:", err)
		verdict()
	}
	check("codec", len(dev.Topology().Pins) > 0 && len(dev.Topology().DACs) > 0)

	clip := sound.NewSound(tone(4410)) // 100 ms

	// One shot playback must stop itself and signal completion.
	dev.Played.Clear()
	check("play", dev.Play(clip, sound.StopOnEnd) == nil)
	check("completion interrupt", dev.Played.Wait(time.Second))
	check("stopped on end", dev.Playing() == nil && !dev.Stream().Running())
	check("stop after end", errors.Is(dev.Stop(), sound.ErrNotPlaying))

	// Replaying playback must signal every pass until stopped.
	check("replay", dev.Play(clip, sound.ReplayOnEnd) == nil)
	passes := 0
	for range 3 {
		dev.Played.Clear()
		if !dev.Played.Wait(time.Second) {
			break
		}
		passes++
	}
	check("replay passes", passes == 3)
	check("still playing", dev.Playing() == clip)
	check("stop", dev.Stop() == nil)
	check("idle after stop", dev.Playing() == nil && !dev.Stream().Running())
	check("double stop", errors.Is(dev.Stop(), sound.ErrNotPlaying))

	verdict()
}

func verdict() {
	code := 0
	if failed {
		fmt.Println("FAIL")
		cpu.Out8(debugExitPort, debugExitFailure)
		code = 1
	} else {
		fmt.Println("PASS")
		cpu.Out8(debugExitPort, debugExitSuccess)
	}
	os.Exit(code) // reached only without the debug-exit device
}

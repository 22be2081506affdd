// Package qemu boots disk images under QEMU with an emulated HDA codec
// and the serial console on a pty.
package qemu

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/aymanbagabas/go-pty"
	"github.com/buildkite/shellwords"
)

const usageString = `Boot a disk image under QEMU.

Usage: %s [flags] <image>

`

var (
	flags = flag.NewFlagSet("qemu", flag.ExitOnError)

	command = flags.String("command", "qemu-system-x86_64", "QEMU command, may include arguments")
	test    = flags.Bool("test", false, "scan the console for test results and exit")
	timeout = flags.Duration("timeout", 10*time.Minute, "kill the VM after this long")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "qemu")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}

	argv, err := shellwords.Split(*command)
	if err != nil {
		log.Fatalln("command:", err)
	}
	argv = append(argv,
		"-machine", "q35",
		"-m", "512M",
		"-device", "intel-hda", "-device", "hda-output",
		"-display", "none",
		"-monitor", "none",
		"-serial", "stdio",
		"-no-reboot",
		"-drive", "format=raw,file="+flags.Arg(0),
	)
	if *test {
		argv = append(argv, "-device", "isa-debug-exit,iobase=0x501,iosize=1")
	}

	// QEMU is run on a pty to keep the guest console line buffered and
	// interactive, same as a real serial terminal.
	ptmx, err := pty.New()
	if err != nil {
		log.Fatalln("open pty:", err)
	}
	defer ptmx.Close()

	cmd := ptmx.Command(argv[0], argv[1:]...)
	err = cmd.Start()
	if err != nil {
		log.Fatalln("start qemu:", err)
	}

	sigintr := make(chan os.Signal, 1)
	signal.Notify(sigintr, os.Interrupt)
	go func() {
		select {
		case <-sigintr:
		case <-time.After(*timeout):
			log.Println("timeout")
		}
		cmd.Process.Kill()
	}()

	code := 0
	exiting := false
	scanner := bufio.NewScanner(ptmx)
	for scanner.Scan() {
		line := scanner.Text()
		log.Println(line)
		if !*test || exiting {
			continue
		}
		switch {
		case strings.HasPrefix(line, "fatal error:"), strings.HasPrefix(line, "panic:"):
			fallthrough
		case line == "FAIL":
			code = 1
			fallthrough
		case line == "PASS":
			exiting = true
			go func() {
				// give panic() time to print the stacktrace
				time.Sleep(500 * time.Millisecond)
				cmd.Process.Kill()
			}()
		}
	}
	cmd.Wait()
	os.Exit(code)
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clktmr/hda/tools/mkimg"
	"github.com/clktmr/hda/tools/qemu"
)

const usageString = `hdago is a tool for building and running HDA driver images.

Usage:

	%s <command> [arguments]

The commands are:

	img      build a bootable FAT32 image from a manifest
	qemu     boot an image under QEMU with an emulated codec
`

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "img":
		mkimg.Main(flag.Args())
	case "qemu":
		qemu.Main(flag.Args())
	default:
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}

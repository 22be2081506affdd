// Package mkimg builds bootable FAT32 disk images from a manifest.
package mkimg

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/go-audio/wav"
)

const usageString = `Build a bootable FAT32 image from a manifest.

Usage: %s [flags] <manifest.toml>

All paths in the manifest are relative to the manifest file.

`

// A manifest names the kernel and the assets that go into the image:
//
//	kernel = "hda.elf"
//	label = "HDABOOT"
//	size = 64 # MiB
//
//	[[sound]]
//	src = "assets/chime.wav"
//	dst = "CHIME.WAV"
type manifest struct {
	Kernel string
	Label  string
	Size   int64
	Sound  []asset
}

type asset struct {
	Src string
	Dst string
}

var (
	flags = flag.NewFlagSet("img", flag.ExitOnError)

	out = flags.String("o", "", "output path, defaults to the manifest's name with .img")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "img")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}
	manifestPath := flags.Arg(0)

	var m manifest
	if _, err := toml.DecodeFile(manifestPath, &m); err != nil {
		log.Fatalln(err)
	}
	if m.Kernel == "" {
		log.Fatalln("manifest: no kernel")
	}
	if m.Label == "" {
		m.Label = "HDABOOT"
	}
	if m.Size == 0 {
		m.Size = 64 // FAT32 needs at least 33 MiB
	}

	outfile := *out
	if outfile == "" {
		outfile, _ = strings.CutSuffix(manifestPath, ".toml")
		outfile += ".img"
	}

	dir := filepath.Dir(manifestPath)

	img, err := diskfs.Create(outfile, m.Size<<20, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		log.Fatalln(err)
	}
	fs, err := img.CreateFilesystem(disk.FilesystemSpec{
		Partition:   0,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: m.Label,
	})
	if err != nil {
		log.Fatalln(err)
	}

	err = copyFile(fs, filepath.Join(dir, m.Kernel), "/KERNEL.ELF")
	if err != nil {
		log.Fatalln(err)
	}

	for _, snd := range m.Sound {
		src := filepath.Join(dir, snd.Src)
		if err := checkWAV(src); err != nil {
			log.Fatalf("%s: %v", snd.Src, err)
		}
		dst := snd.Dst
		if dst == "" {
			dst = strings.ToUpper(filepath.Base(snd.Src))
		}
		if err := copyFile(fs, src, "/"+dst); err != nil {
			log.Fatalln(err)
		}
	}

	log.Println("wrote", outfile)
}

func copyFile(fs filesystem.FileSystem, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	return err
}

// checkWAV rejects assets the playback path can't handle. The stream
// format is fixed, there is no resampling on the target.
func checkWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return errors.New("not a wav file")
	}
	if dec.SampleRate != 44100 || dec.BitDepth != 16 || dec.NumChans != 2 {
		return fmt.Errorf("want 44.1kHz 16bit stereo, got %dHz %dbit %dch",
			dec.SampleRate, dec.BitDepth, dec.NumChans)
	}
	return nil
}

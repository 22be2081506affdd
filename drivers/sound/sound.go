package sound

import (
	"errors"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/clktmr/hda/debug"
	"github.com/clktmr/hda/pc/cpu"
)

// Sample regions referenced by stream descriptors must start on a 128
// byte boundary.
const bufAlign = 128

const sampleRate = 44100

// ErrFormat is returned for clips that don't match the device's native
// stream format. There is no resampling.
var ErrFormat = errors.New("sound: need 44.1 kHz 16-bit stereo PCM")

// Sound is an immutable clip in the device's native format, interleaved
// left/right frames. Its sample memory is allocated DMA suitable and
// stays pinned for the clip's lifetime.
type Sound struct {
	samples []int16
	pin     cpu.Pinner
}

// NewSound copies samples into a clip. The samples are interleaved stereo
// frames, so their count must be even.
func NewSound(samples []int16) *Sound {
	debug.Assert(len(samples) != 0, "empty sound")
	debug.Assert(len(samples)%2 == 0, "incomplete stereo frame")
	s := &Sound{samples: cpu.MakePaddedSliceAligned[int16](len(samples), bufAlign)}
	copy(s.samples, samples)
	s.pin.Pin(&s.samples[0])
	return s
}

// LoadSound reads a RIFF WAV clip, which must already hold samples in the
// native format.
func LoadSound(r io.ReadSeeker) (*Sound, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, err
		}
		return nil, ErrFormat
	}
	if dec.SampleRate != sampleRate || dec.BitDepth != 16 || dec.NumChans != 2 {
		return nil, ErrFormat
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if len(buf.Data) == 0 || len(buf.Data)%2 != 0 {
		return nil, ErrFormat
	}
	return NewSound(samples16(buf)), nil
}

// samples16 narrows the decoder's samples back to their source width. The
// buffer already holds interleaved frames, FullPCMBuffer keeps the data
// chunk's layout.
func samples16(buf *audio.IntBuffer) []int16 {
	s := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		s[i] = int16(v)
	}
	return s
}

// Duration returns the clip's playback time.
func (s *Sound) Duration() time.Duration {
	frames := len(s.samples) / 2
	return time.Duration(frames) * time.Second / sampleRate
}

func (s *Sound) addr() cpu.Addr {
	return cpu.PhysicalAddressSlice(s.samples)
}

func (s *Sound) size() uint32 {
	return uint32(len(s.samples) * 2)
}

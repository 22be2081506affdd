package sound_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clktmr/hda/drivers/sound"
	hdatesting "github.com/clktmr/hda/testing"
)

func TestMain(m *testing.M) { hdatesting.TestMain(m) }

// square returns n stereo frames of a full scale square wave.
func square(frames int) []int16 {
	s := make([]int16, 2*frames)
	for i := range s {
		if i%4 < 2 {
			s[i] = 0x4000
		} else {
			s[i] = -0x4000
		}
	}
	return s
}

// ramp returns n stereo frames of a rising sawtooth.
func ramp(frames int) []int16 {
	s := make([]int16, 2*frames)
	for i := range s {
		s[i] = int16(i * 64)
	}
	return s
}

// pcmBytes returns samples as the little endian byte stream the DMA
// engine fetches from memory.
func pcmBytes(samples []int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return buf
}

// waveFile encodes raw sample data as a single chunk RIFF WAV file.
func waveFile(rate uint32, bits, channels uint16, data []byte) []byte {
	var b bytes.Buffer
	byteRate := rate * uint32(channels) * uint32(bits) / 8
	blockAlign := channels * bits / 8

	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, channels)
	binary.Write(&b, binary.LittleEndian, rate)
	binary.Write(&b, binary.LittleEndian, byteRate)
	binary.Write(&b, binary.LittleEndian, blockAlign)
	binary.Write(&b, binary.LittleEndian, bits)
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func TestNewSound(t *testing.T) {
	s := sound.NewSound(square(441))
	assert.Equal(t, 10*time.Millisecond, s.Duration())
}

func TestLoadSound(t *testing.T) {
	samples := square(441)
	w := waveFile(44100, 16, 2, pcmBytes(samples))

	s, err := sound.LoadSound(bytes.NewReader(w))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, s.Duration())
}

func TestLoadSoundRejects(t *testing.T) {
	pcm := pcmBytes(square(64))
	testCases := []struct {
		name string
		wav  []byte
	}{
		{"Rate48k", waveFile(48000, 16, 2, pcm)},
		{"Bits8", waveFile(44100, 8, 2, pcm)},
		{"Mono", waveFile(44100, 16, 1, pcm)},
		{"Empty", waveFile(44100, 16, 2, nil)},
		{"OddSamples", waveFile(44100, 16, 2, pcm[:2])},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sound.LoadSound(bytes.NewReader(tc.wav))
			assert.ErrorIs(t, err, sound.ErrFormat)
		})
	}

	_, err := sound.LoadSound(bytes.NewReader([]byte("not a riff file")))
	assert.Error(t, err)
}

package hda_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clktmr/hda/pc/cpu"
	"github.com/clktmr/hda/pc/hda"
	"github.com/clktmr/hda/pc/hda/hdatest"
)

// newStream returns a reset output stream engine on a fresh controller.
func newStream(t *testing.T, manual bool) (*hda.OutputStream, *hdatest.Controller) {
	t.Helper()
	sim := hdatest.NewController(hdatest.OutputCodec(0))
	sim.Manual(manual)
	t.Cleanup(sim.Close)

	ctl := hda.NewController(sim.BaseAddr())
	require.NoError(t, ctl.Reset())
	strm := ctl.OutputStream(0)
	require.NoError(t, strm.Reset())
	return strm, sim
}

// sampleBuf allocates a DMA suitable buffer filled with a recognizable
// pattern.
func sampleBuf(n int, seed byte) []byte {
	buf := cpu.MakePaddedSliceAligned[byte](n, 128)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	return buf
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	start := time.Now()
	for !cond() {
		if time.Since(start) > time.Second {
			t.Fatal("condition not reached")
		}
		runtime.Gosched()
	}
}

func TestStreamLifecycle(t *testing.T) {
	strm, _ := newStream(t, true)
	assert.False(t, strm.Initialized())
	assert.False(t, strm.Running())

	strm.Init()
	buf := sampleBuf(256, 0)
	require.NoError(t, strm.Setup(cpu.PhysicalAddressSlice(buf), 256))
	assert.True(t, strm.Initialized())
	assert.Equal(t, 2, strm.BDL().Len())
	assert.Equal(t, uint32(512), strm.BDL().Bytes())

	strm.Start()
	assert.True(t, strm.Running())
	require.NoError(t, strm.Stop())
	assert.False(t, strm.Running())

	// Reset drops the descriptor list along with the engine state.
	require.NoError(t, strm.Reset())
	assert.Equal(t, 0, strm.BDL().Len())
	assert.False(t, strm.Initialized())
}

// TestStreamCompletion single-steps the engine through its two descriptor
// entries. Each entry carries the interrupt flag, each pass must raise a
// completion.
func TestStreamCompletion(t *testing.T) {
	strm, sim := newStream(t, true)
	strm.Init()
	buf := sampleBuf(512, 0x30)
	require.NoError(t, strm.Setup(cpu.PhysicalAddressSlice(buf), 512))
	strm.Start()

	for i := range 4 {
		assert.True(t, sim.Complete(), "entry %d", i)
	}
	assert.Equal(t, 4, sim.Plays())
	assert.Equal(t, buf, sim.LastPlayed())
	assert.Equal(t, uint32(512), strm.Position())
	assert.True(t, strm.Completed())

	require.NoError(t, strm.Stop())
}

// TestStreamMultiRegion plays a descriptor list of three distinct regions
// with the interrupt flag only on the last one. The engine must deliver
// the regions in order, raise a single completion per cycle and wrap back
// to the first entry.
func TestStreamMultiRegion(t *testing.T) {
	strm, sim := newStream(t, true)
	strm.Init()

	bufs := [][]byte{sampleBuf(128, 0), sampleBuf(256, 0x40), sampleBuf(384, 0x80)}
	bdl := strm.BDL()
	for i, b := range bufs {
		last := i == len(bufs)-1
		require.NoError(t, bdl.Append(cpu.PhysicalAddressSlice(b), uint32(len(b)), last))
	}
	strm.Commit()
	strm.Start()

	assert.False(t, sim.Complete())
	assert.Equal(t, bufs[0], sim.LastPlayed())
	assert.False(t, sim.Complete())
	assert.Equal(t, bufs[1], sim.LastPlayed())
	assert.True(t, sim.Complete())
	assert.Equal(t, bufs[2], sim.LastPlayed())

	// Wrap around to the first entry.
	assert.False(t, sim.Complete())
	assert.Equal(t, bufs[0], sim.LastPlayed())
	assert.Equal(t, 1, sim.Plays())

	require.NoError(t, strm.Stop())
}

// TestStreamPlays lets the simulation walk the descriptor list on its own,
// the way the engine behaves on hardware.
func TestStreamPlays(t *testing.T) {
	strm, sim := newStream(t, false)
	strm.Init()
	buf := sampleBuf(1024, 0x11)
	require.NoError(t, strm.Setup(cpu.PhysicalAddressSlice(buf), 1024))
	strm.Start()

	waitFor(t, func() bool { return sim.Plays() >= 2 })
	assert.Equal(t, buf, sim.LastPlayed())

	require.NoError(t, strm.Stop())
	plays := sim.Plays()
	runtime.Gosched()
	assert.Equal(t, plays, sim.Plays(), "stopped engine kept playing")
}

package hda_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clktmr/hda/pc/cpu"
	"github.com/clktmr/hda/pc/hda"
	"github.com/clktmr/hda/pc/hda/hdatest"
)

// TestBDLCapacity fills a descriptor list to the hardware limit of 256
// entries. The entry after that must be rejected without growing the
// list.
func TestBDLCapacity(t *testing.T) {
	sim := hdatest.NewController(hdatest.OutputCodec(0))
	defer sim.Close()

	ctl := hda.NewController(sim.BaseAddr())
	require.NoError(t, ctl.Reset())
	strm := ctl.OutputStream(0)
	require.NoError(t, strm.Reset())

	buf := cpu.MakePaddedSliceAligned[byte](512, 128)
	addr := cpu.PhysicalAddressSlice(buf)

	bdl := strm.BDL()
	for i := range 256 {
		require.NoError(t, bdl.Append(addr, 512, false), "entry %d", i)
	}
	assert.Equal(t, 256, bdl.Len())
	assert.Equal(t, uint32(256*512), bdl.Bytes())

	assert.ErrorIs(t, bdl.Append(addr, 512, false), hda.ErrBDLFull)
	assert.Equal(t, 256, bdl.Len())

	bdl.Reset()
	assert.Equal(t, 0, bdl.Len())
	assert.Zero(t, bdl.Bytes())
}

// TestBDLRebuild empties and refills a descriptor list, as the completion
// hook does on every replay. Entries from the previous session must not
// leak into the rebuilt list.
func TestBDLRebuild(t *testing.T) {
	sim := hdatest.NewController(hdatest.OutputCodec(0))
	defer sim.Close()

	ctl := hda.NewController(sim.BaseAddr())
	require.NoError(t, ctl.Reset())
	strm := ctl.OutputStream(0)
	require.NoError(t, strm.Reset())

	buf := cpu.MakePaddedSliceAligned[byte](512, 128)
	addr := cpu.PhysicalAddressSlice(buf)

	bdl := strm.BDL()
	require.NoError(t, bdl.Append(addr, 512, false))
	require.NoError(t, bdl.Append(addr, 256, true))

	bdl.Reset()
	require.NoError(t, bdl.Append(addr, 128, true))
	assert.Equal(t, 1, bdl.Len())
	assert.Equal(t, uint32(128), bdl.Bytes())

	// The rebuilt list has the full capacity available again.
	bdl.Reset()
	for i := range 256 {
		require.NoError(t, bdl.Append(addr, 512, false), "entry %d", i)
	}
	assert.ErrorIs(t, bdl.Append(addr, 512, false), hda.ErrBDLFull)
	assert.Equal(t, uint32(256*512), bdl.Bytes())
}

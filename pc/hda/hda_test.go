package hda_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clktmr/hda/pc/hda"
	"github.com/clktmr/hda/pc/hda/hdatest"
	hdatesting "github.com/clktmr/hda/testing"
)

func TestMain(m *testing.M) { hdatesting.TestMain(m) }

func TestReset(t *testing.T) {
	sim := hdatest.NewController(hdatest.OutputCodec(0), hdatest.OutputCodec(3))
	defer sim.Close()

	ctl := hda.NewController(sim.BaseAddr())
	require.NoError(t, ctl.Reset())

	assert.Equal(t, []uint8{0, 3}, ctl.Codecs())
	assert.Equal(t, hdatest.NumInputStreams, ctl.Caps().InputStreams())
	assert.Equal(t, hdatest.NumOutputStreams, ctl.Caps().OutputStreams())
	assert.True(t, ctl.Caps().Addr64())

	major, minor := ctl.Version()
	assert.Equal(t, uint8(1), major)
	assert.Equal(t, uint8(0), minor)
}

func TestResetNoCodec(t *testing.T) {
	sim := hdatest.NewController()
	defer sim.Close()

	ctl := hda.NewController(sim.BaseAddr())
	assert.ErrorIs(t, ctl.Reset(), hda.ErrNoCodec)
}

func TestOutputStreamRange(t *testing.T) {
	sim := hdatest.NewController(hdatest.OutputCodec(0))
	sim.SetStreams(2, 3)
	defer sim.Close()

	ctl := hda.NewController(sim.BaseAddr())
	require.NoError(t, ctl.Reset())
	assert.Equal(t, 2, ctl.Caps().InputStreams())
	assert.Equal(t, 3, ctl.Caps().OutputStreams())

	// Stream tags start at 1, tag 0 means unbound.
	for n := range 3 {
		assert.Equal(t, uint8(n)+1, ctl.OutputStream(n).Tag())
	}
	assert.Panics(t, func() { ctl.OutputStream(3) })
	assert.Panics(t, func() { ctl.OutputStream(-1) })
}

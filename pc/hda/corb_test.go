package hda_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clktmr/hda/pc/hda"
	"github.com/clktmr/hda/pc/hda/hdatest"
)

// newCommander boots a controller on a simulated register file and hands
// out its command rings.
func newCommander(t *testing.T, codecs ...*hdatest.Codec) (*hda.Commander, *hdatest.Controller) {
	t.Helper()
	if len(codecs) == 0 {
		codecs = []*hdatest.Codec{hdatest.OutputCodec(0)}
	}
	sim := hdatest.NewController(codecs...)
	t.Cleanup(sim.Close)

	ctl := hda.NewController(sim.BaseAddr())
	require.NoError(t, ctl.Reset())
	cdr, err := ctl.InitCommander()
	require.NoError(t, err)
	return cdr, sim
}

func TestExec(t *testing.T) {
	cdr, _ := newCommander(t)

	// Walk the first links of the model graph: the root node has one
	// function group, the group two widgets.
	resp, err := cdr.Exec(hda.GetParameter(hda.NodeAddr{0, 0}, hda.ParamNodeCount))
	require.NoError(t, err)
	start, n := resp.SubNodes()
	assert.Equal(t, uint8(1), start)
	assert.Equal(t, 1, n)

	resp, err = cdr.Exec(hda.GetParameter(hda.NodeAddr{0, 1}, hda.ParamFunctionType))
	require.NoError(t, err)
	assert.Equal(t, hda.FunctionAudio, resp.FunctionType())

	resp, err = cdr.Exec(hda.GetParameter(hda.NodeAddr{0, 1}, hda.ParamNodeCount))
	require.NoError(t, err)
	start, n = resp.SubNodes()
	assert.Equal(t, uint8(2), start)
	assert.Equal(t, 2, n)
}

// TestResponseOrder queues several commands before collecting any
// response. Responses must come back one per command, in command order.
func TestResponseOrder(t *testing.T) {
	cdr, _ := newCommander(t)

	cmds := []hda.Command{
		hda.GetParameter(hda.NodeAddr{0, 2}, hda.ParamWidgetCaps),
		hda.GetParameter(hda.NodeAddr{0, 3}, hda.ParamWidgetCaps),
		hda.GetConfigDefault(hda.NodeAddr{0, 3}),
	}
	for _, c := range cmds {
		require.NoError(t, cdr.Add(c))
	}

	caps := make([]hda.Response, len(cmds))
	for i := range caps {
		resp, err := cdr.Response()
		require.NoError(t, err)
		caps[i] = resp
	}

	assert.Equal(t, hda.WidgetAudioOut, caps[0].WidgetCaps().Type())
	assert.Equal(t, hda.WidgetPin, caps[1].WidgetCaps().Type())
	assert.Equal(t, hda.DeviceSpeaker, caps[2].ConfigDefault().Device())
}

// TestRingWraparound exercises both rings across their wrap point for
// every ring size the hardware can offer. The write pointer published
// after the k-th command must be k modulo the ring size.
func TestRingWraparound(t *testing.T) {
	for _, size := range []int{2, 16, 256} {
		t.Run(fmt.Sprintf("size%d", size), func(t *testing.T) {
			sim := hdatest.NewController(hdatest.OutputCodec(0))
			sim.SetRingCaps(size, size)
			t.Cleanup(sim.Close)

			ctl := hda.NewController(sim.BaseAddr())
			require.NoError(t, ctl.Reset())
			cdr, err := ctl.InitCommander()
			require.NoError(t, err)

			cmd := hda.GetParameter(hda.NodeAddr{0, 0}, hda.ParamNodeCount)
			for k := 1; k <= 2*size+3; k++ {
				_, err := cdr.Exec(cmd)
				require.NoError(t, err)
				require.Equal(t, k%size, sim.CORBWritePointer(), "command %d", k)
			}
		})
	}
}

func TestNotRunning(t *testing.T) {
	cdr, _ := newCommander(t)
	require.True(t, cdr.Running())
	require.NoError(t, cdr.Stop())
	require.False(t, cdr.Running())

	cmd := hda.GetParameter(hda.NodeAddr{0, 0}, hda.ParamNodeCount)
	assert.ErrorIs(t, cdr.Add(cmd), hda.ErrNotRunning)
	_, err := cdr.Response()
	assert.ErrorIs(t, err, hda.ErrNotRunning)
	_, err = cdr.Exec(cmd)
	assert.ErrorIs(t, err, hda.ErrNotRunning)
}

// Absent codecs don't answer, the controller posts an all-zero response
// in their place.
func TestExecAbsentCodec(t *testing.T) {
	cdr, _ := newCommander(t)

	resp, err := cdr.Exec(hda.GetParameter(hda.NodeAddr{5, 0}, hda.ParamNodeCount))
	require.NoError(t, err)
	assert.Zero(t, resp)
}

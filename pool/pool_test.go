package pool

import (
	"testing"

	"github.com/pidato/speexconv/speex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	for _, mode := range []speex.Mode{speex.Narrowband, speex.Wideband, speex.UltraWideband} {
		for _, channels := range []int{1, 2} {
			p, err := Of(mode, channels)
			require.NoError(t, err)
			assert.Equal(t, mode, p.Mode)
			assert.Equal(t, channels, p.Channels)
			assert.Equal(t, mode.FrameSize()*channels, p.PCM.FrameSize)
			assert.Equal(t, FrameSizeOf(mode, channels), p.Float.FrameSize)

			pcm := p.PCM.Get()
			assert.Len(t, pcm, p.PCM.FrameSize)
			p.PCM.Release(pcm[:1])

			f := p.Float.Get()
			assert.Len(t, f, p.Float.FrameSize)
			p.Float.Release(f)
		}
	}
}

func TestOfUnsupported(t *testing.T) {
	_, err := Of(speex.Narrowband, 3)
	assert.ErrorIs(t, err, speex.ErrUnsupported)
	_, err = Of(speex.Mode(5), 1)
	assert.ErrorIs(t, err, speex.ErrUnsupported)
	assert.Equal(t, 0, FrameSizeOf(speex.ModeAuto, 1))
}

func TestReleaseShortBuffer(t *testing.T) {
	p, err := Of(speex.Wideband, 1)
	require.NoError(t, err)
	p.PCM.Release(make([]int16, 10))
	assert.Len(t, p.PCM.Get(), 320)
}

func TestPacketPool(t *testing.T) {
	p, err := Of(speex.Narrowband, 1)
	require.NoError(t, err)
	b := p.Packet.Get()
	assert.Len(t, b, 0)
	assert.GreaterOrEqual(t, cap(b), PacketCap)
	b = append(b, 1, 2, 3)
	p.Packet.Release(b)
}

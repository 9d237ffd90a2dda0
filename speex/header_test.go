package speex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHeaderLayout(t *testing.T) {
	b := BuildHeader(16000, Wideband, 2, true, 3)
	require.Len(t, b, HeaderSize)

	assert.Equal(t, "Speex   ", string(b[0:8]))
	assert.Equal(t, "speex-1.0", string(b[8:17]))
	assert.Equal(t, make([]byte, 11), b[17:28], "version field is zero padded to 20 bytes")
	assert.Equal(t, []byte{1, 0, 0, 0}, b[28:32])
	assert.Equal(t, []byte{80, 0, 0, 0}, b[32:36])
	assert.Equal(t, []byte{0x80, 0x3e, 0, 0}, b[36:40])
	assert.Equal(t, []byte{1, 0, 0, 0}, b[40:44])
	assert.Equal(t, []byte{4, 0, 0, 0}, b[44:48])
	assert.Equal(t, []byte{2, 0, 0, 0}, b[48:52])
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, b[52:56])
	assert.Equal(t, []byte{0x40, 0x01, 0, 0}, b[56:60])
	assert.Equal(t, []byte{1, 0, 0, 0}, b[60:64])
	assert.Equal(t, []byte{3, 0, 0, 0}, b[64:68])
	assert.Equal(t, make([]byte, 12), b[68:80])
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, rate := range []int{8000, 11025, 16000, 22050, 32000, 44100} {
		for _, mode := range []Mode{Narrowband, Wideband, UltraWideband} {
			for _, channels := range []int{1, 2, 6} {
				for _, vbr := range []bool{false, true} {
					for _, nframes := range []int{1, 2, 10} {
						h, err := ParseHeader(BuildHeader(rate, mode, channels, vbr, nframes))
						require.NoError(t, err)
						assert.Equal(t, rate, h.SampleRate)
						assert.Equal(t, mode, h.Mode)
						assert.Equal(t, channels, h.Channels)
						assert.Equal(t, vbr, h.VBR)
						assert.Equal(t, nframes, h.FramesPerPacket)
						assert.Equal(t, -1, h.Bitrate)
					}
				}
			}
		}
	}
}

func TestParseHeaderRejects(t *testing.T) {
	good := BuildHeader(8000, Narrowband, 1, false, 1)

	_, err := ParseHeader(good[:79])
	assert.ErrorIs(t, err, ErrFormat)

	_, err = ParseHeader(append(append([]byte{}, good...), 0))
	assert.ErrorIs(t, err, ErrFormat)

	bad := append([]byte{}, good...)
	bad[5] = 'X'
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrFormat)

	bad = append([]byte{}, good...)
	bad[40] = 3
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrFormat)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "speex header", e.Component)
	assert.Equal(t, int64(40), e.Offset)
}

func TestComment(t *testing.T) {
	b := BuildComment("Encoded with: speexconv")
	assert.Len(t, b, 8+len("Encoded with: speexconv"))
	assert.Equal(t, []byte{23, 0, 0, 0}, b[0:4])
	assert.Equal(t, []byte{0, 0, 0, 0}, b[len(b)-4:])

	vendor, err := ParseComment(b)
	require.NoError(t, err)
	assert.Equal(t, "Encoded with: speexconv", vendor)

	vendor, err = ParseComment(BuildComment(""))
	require.NoError(t, err)
	assert.Empty(t, vendor)

	b[len(b)-4] = 2
	_, err = ParseComment(b)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = ParseComment([]byte{50, 0, 0, 0, 'a', 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSampleSizeIsFormatError(t *testing.T) {
	assert.ErrorIs(t, ErrSampleSize, ErrFormat)
	err := Errorf("wave", 20, ErrSampleSize, "%d bits", 8)
	assert.ErrorIs(t, err, ErrSampleSize)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "wave: offset 20")
}

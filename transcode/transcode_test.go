package transcode

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pidato/speexconv/speex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerForPath(t *testing.T) {
	tests := map[string]Container{
		"a.spx":          ContainerOgg,
		"a.OGG":          ContainerOgg,
		"dir/a.oga":      ContainerOgg,
		"a.wav":          ContainerWave,
		"a.wave":         ContainerWave,
		"a.raw":          ContainerRaw,
		"a.pcm":          ContainerRaw,
		"a.sw":           ContainerRaw,
		"capture.rtp":    ContainerRTP,
		"a.rtpdump":      ContainerRTP,
		"song.mp3":       ContainerMP3,
		"noext":          ContainerAuto,
		"archive.tar.gz": ContainerAuto,
	}
	for path, want := range tests {
		assert.Equal(t, want, ContainerForPath(path), path)
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		data string
		want Container
	}{
		{"OggS\x00\x02", ContainerOgg},
		{"RIFF\x10\x00\x00\x00WAVE", ContainerWave},
		{"ID3\x04\x00", ContainerMP3},
		{"\x01\x02\x03\x04", ContainerRaw},
		{"Og", ContainerRaw},
		{"", ContainerRaw},
	}
	for _, tt := range tests {
		br := bufio.NewReader(bytes.NewReader([]byte(tt.data)))
		assert.Equal(t, tt.want, sniff(br), "%q", tt.data)
		// sniffing must not consume input
		rest, _ := br.Peek(len(tt.data))
		assert.Equal(t, tt.data, string(rest))
	}
}

func TestContainerText(t *testing.T) {
	for _, c := range []Container{ContainerAuto, ContainerOgg, ContainerWave, ContainerRaw, ContainerRTP, ContainerMP3} {
		text, err := c.MarshalText()
		require.NoError(t, err)
		var got Container
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, c, got)
	}
	_, err := ParseContainer("flac")
	assert.ErrorIs(t, err, speex.ErrUnsupported)
	assert.Equal(t, "container(42)", Container(42).String())
}

func TestTailPolicyText(t *testing.T) {
	for in, want := range map[string]TailPolicy{"": TailPad, "pad": TailPad, "Truncate": TailTruncate, "drop": TailTruncate, "reject": TailReject} {
		got, err := ParseTailPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseTailPolicy("stretch")
	assert.ErrorIs(t, err, speex.ErrUnsupported)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, speex.ModeAuto, opts.Mode)
	assert.Equal(t, 8, opts.Quality)
	assert.Equal(t, 3, opts.Complexity)
	assert.Equal(t, float32(-1), opts.VBRQuality)
	assert.Equal(t, 1, opts.FramesPerPacket)
	assert.True(t, opts.Enhanced)
	assert.Equal(t, TailPad, opts.Tail)
	assert.NoError(t, opts.validate())
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speexconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: wideband
quality: 5
vbr: true
frames_per_packet: 3
sample_rate: 16
loss: 10
seed: 99
tail: truncate
input: raw
output: wav
comment: field recording
`), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, speex.Wideband, opts.Mode)
	assert.Equal(t, 5, opts.Quality)
	assert.True(t, opts.VBR)
	assert.Equal(t, 3, opts.FramesPerPacket)
	assert.Equal(t, 16000, opts.sampleRate())
	assert.Equal(t, 10, opts.Loss)
	assert.Equal(t, uint64(99), opts.Seed)
	assert.Equal(t, TailTruncate, opts.Tail)
	assert.Equal(t, ContainerRaw, opts.Input)
	assert.Equal(t, ContainerWave, opts.Output)
	assert.Equal(t, "field recording", opts.Comment)
	// fields missing from the file keep their defaults
	assert.Equal(t, 3, opts.Complexity)
	assert.True(t, opts.Enhanced)
}

func TestLoadOptionsErrors(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: superwideband\n"), 0o644))
	_, err = LoadOptions(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Options){
		"quality":  func(o *Options) { o.Quality = 11 },
		"loss":     func(o *Options) { o.Loss = 101 },
		"channels": func(o *Options) { o.Channels = 3 },
		"nframes":  func(o *Options) { o.FramesPerPacket = -1 },
		"mode":     func(o *Options) { o.Mode = speex.Mode(7) },
	}
	for name, mutate := range tests {
		opts := DefaultOptions()
		mutate(&opts)
		assert.ErrorIs(t, opts.validate(), speex.ErrUnsupported, name)
	}
}

func TestSaturate(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.5, 2},
		{-0.4, 0},
		{-0.5, -1},
		{-1.5, -2},
		{32766.6, 32767},
		{40000, 32767},
		{-32767.7, -32768},
		{-40000, -32768},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, saturate(tt.in), "%v", tt.in)
	}
}

func TestStreamHeader(t *testing.T) {
	opts := DefaultOptions()
	h := opts.streamHeader()
	assert.Equal(t, speex.NewHeader(8000, speex.Narrowband, 1, false, 1), h)

	opts.SampleRate = 32
	opts.Channels = 2
	opts.FramesPerPacket = 2
	h = opts.streamHeader()
	assert.Equal(t, speex.NewHeader(32000, speex.UltraWideband, 2, false, 2), h)

	opts = DefaultOptions()
	opts.Mode = speex.Wideband
	h = opts.streamHeader()
	assert.Equal(t, 16000, h.SampleRate)
	assert.Equal(t, speex.Wideband, h.Mode)
}

package wave

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFile(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	return f
}

func TestPCMWriter(t *testing.T) {
	f := createFile(t, "pcm.wav")
	w, err := NewPCMWriter(f, 8000, 2)
	require.NoError(t, err)

	samples := []int16{0, 1, -1, 32767, -32768, 1234}
	require.NoError(t, w.WriteSamples(samples[:4]))
	require.NoError(t, w.WriteSamples(samples[4:]))
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), os.ErrClosed)

	b, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.Len(t, b, 44+12)
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, uint32(len(b)-8), binio.Uint32(b, 4))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, "fmt ", string(b[12:16]))
	assert.Equal(t, uint32(16), binio.Uint32(b, 16))
	assert.Equal(t, uint16(TagPCM), binio.Uint16(b, 20))
	assert.Equal(t, "data", string(b[36:40]))
	assert.Equal(t, uint32(12), binio.Uint32(b, 40))

	r, err := NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	format := r.Format()
	assert.Equal(t, uint16(TagPCM), format.Tag)
	assert.Equal(t, 2, format.Channels)
	assert.Equal(t, 8000, format.SampleRate)
	assert.Equal(t, 16, format.BitsPerSample)
	assert.Equal(t, 4, format.BlockAlign)
	assert.Equal(t, 32000, format.AvgBytesPerSec)
	assert.Nil(t, format.Header)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, data, 12)
	for i, s := range samples {
		assert.Equal(t, s, int16(binio.Uint16(data, 2*i)))
	}
}

func TestPCMWriterEmpty(t *testing.T) {
	f := createFile(t, "empty.wav")
	w, err := NewPCMWriter(f, 16000, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.Len(t, b, 44)
	assert.Equal(t, uint32(36), binio.Uint32(b, 4))
	assert.Equal(t, uint32(0), binio.Uint32(b, 40))

	r, err := NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	_, err = r.Read(make([]byte, 2))
	assert.Equal(t, io.EOF, err)
}

type writeOnly struct{ io.Writer }

func TestWritersNeedSeeker(t *testing.T) {
	_, err := NewPCMWriter(writeOnly{io.Discard}, 8000, 1)
	assert.ErrorIs(t, err, ErrNotSeekable)
	_, err = NewSpeexWriter(writeOnly{io.Discard}, speex.NewHeader(8000, speex.Narrowband, 1, false, 2), 8, "")
	assert.ErrorIs(t, err, ErrNotSeekable)
}

func TestSpeexWriter(t *testing.T) {
	for _, comment := range []string{"", "odd", "even"} {
		t.Run("comment="+comment, func(t *testing.T) {
			h := speex.NewHeader(8000, speex.Narrowband, 1, false, 2)
			f := createFile(t, "speex.wav")
			w, err := NewSpeexWriter(f, h, 8, comment)
			require.NoError(t, err)
			assert.Equal(t, 75, w.BlockAlign())

			require.NoError(t, w.WritePacket(bytes.Repeat([]byte{0xAA}, 75)))
			require.NoError(t, w.WritePacket([]byte{1, 2, 3}))
			assert.ErrorIs(t, w.WritePacket(make([]byte, 76)), speex.ErrUnsupported)
			require.NoError(t, w.Close())

			b, err := os.ReadFile(f.Name())
			require.NoError(t, err)

			fmtSize := 18 + 2 + 80 + len(comment)
			assert.Equal(t, uint32(fmtSize), binio.Uint32(b, 16))
			fmtBody := b[20:]
			assert.Equal(t, uint16(TagSpeex), binio.Uint16(fmtBody, 0))
			assert.Equal(t, uint16(1), binio.Uint16(fmtBody, 2))
			assert.Equal(t, uint32(8000), binio.Uint32(fmtBody, 4))
			assert.Equal(t, uint32((15000+7)>>3), binio.Uint32(fmtBody, 8))
			assert.Equal(t, uint16(75), binio.Uint16(fmtBody, 12))
			assert.Equal(t, uint16(8), binio.Uint16(fmtBody, 14))
			assert.Equal(t, uint16(2+80+len(comment)), binio.Uint16(fmtBody, 16))
			assert.Equal(t, []byte{1, 0}, fmtBody[18:20])
			assert.Equal(t, h.Marshal(), fmtBody[20:100])

			dataAt := 20 + fmtSize + fmtSize&1
			assert.Equal(t, "data", string(b[dataAt:dataAt+4]))
			assert.Equal(t, uint32(150), binio.Uint32(b, dataAt+4))
			assert.Equal(t, uint32(len(b)-8), binio.Uint32(b, 4))
			assert.Len(t, b, dataAt+8+150)

			r, err := NewReader(bytes.NewReader(b))
			require.NoError(t, err)
			format := r.Format()
			require.True(t, format.IsSpeex())
			require.NotNil(t, format.Header)
			assert.Equal(t, h, *format.Header)
			assert.Equal(t, comment, format.Comment)
			assert.Equal(t, 75, format.BlockAlign)

			p, err := r.ReadPacket()
			require.NoError(t, err)
			assert.Equal(t, bytes.Repeat([]byte{0xAA}, 75), p)
			p, err = r.ReadPacket()
			require.NoError(t, err)
			assert.Equal(t, []byte{1, 2, 3}, p[:3])
			assert.Equal(t, make([]byte, 72), p[3:])
			_, err = r.ReadPacket()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestSpeexWriterOddDataChunk(t *testing.T) {
	h := speex.NewHeader(8000, speex.Narrowband, 1, false, 2)
	f := createFile(t, "odd.wav")
	w, err := NewSpeexWriter(f, h, 8, "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.WritePacket(bytes.Repeat([]byte{byte(i + 1)}, 75)))
	}
	require.NoError(t, w.Close())

	b, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	dataAt := 20 + 100
	assert.Equal(t, uint32(225), binio.Uint32(b, dataAt+4))
	require.Len(t, b, dataAt+8+225+1)
	assert.Equal(t, byte(0), b[len(b)-1])
	assert.Equal(t, uint32(len(b)-8), binio.Uint32(b, 4))

	r, err := NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, int64(225), r.DataSize())
	for i := 0; i < 3; i++ {
		p, err := r.ReadPacket()
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte(i + 1)}, 75), p)
	}
	_, err = r.ReadPacket()
	assert.Equal(t, io.EOF, err)
}

func TestReaderOddDataChunkStopsBeforePad(t *testing.T) {
	b := buildWave("WAVE",
		chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 16)},
		chunk{"data", []byte{1, 2, 3, 4, 5}},
		chunk{"LIST", []byte("info")},
	)
	r, err := NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.DataSize())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, data)
}

func TestSpeexWriterRejectsBadQuality(t *testing.T) {
	f := createFile(t, "bad.wav")
	defer f.Close()
	_, err := NewSpeexWriter(f, speex.NewHeader(8000, speex.Narrowband, 1, false, 1), 11, "")
	assert.ErrorIs(t, err, speex.ErrUnsupported)
}

type chunk struct {
	id   string
	body []byte
}

func buildWave(form string, chunks ...chunk) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binio.WriteUint32(&b, 0)
	b.WriteString(form)
	for _, c := range chunks {
		b.WriteString(c.id)
		_ = binio.WriteUint32(&b, uint32(len(c.body)))
		b.Write(c.body)
		if len(c.body)%2 == 1 {
			b.WriteByte(0)
		}
	}
	out := b.Bytes()
	binio.PutUint32(out, 4, uint32(len(out)-8))
	return out
}

func pcmFormat(tag uint16, channels, rate, bits int) []byte {
	b := make([]byte, 16)
	binio.PutUint16(b, 0, tag)
	binio.PutUint16(b, 2, uint16(channels))
	binio.PutUint32(b, 4, uint32(rate))
	binio.PutUint32(b, 8, uint32(rate*channels*bits/8))
	binio.PutUint16(b, 12, uint16(channels*bits/8))
	binio.PutUint16(b, 14, uint16(bits))
	return b
}

func TestReaderSkipsUnknownChunks(t *testing.T) {
	b := buildWave("WAVE",
		chunk{"LIST", []byte("odd")},
		chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 16)},
		chunk{"junk", make([]byte, 10)},
		chunk{"data", []byte{1, 0, 2, 0}},
	)
	r, err := NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.DataSize())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, data)
}

func TestReaderRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, speex.ErrFormat},
		{"not riff", append([]byte("RIFX"), make([]byte, 40)...), speex.ErrFormat},
		{"not wave", buildWave("AVI ", chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 16)}), speex.ErrFormat},
		{"8 bit", buildWave("WAVE", chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 8)}, chunk{"data", nil}), speex.ErrSampleSize},
		{"24 bit is a format error", buildWave("WAVE", chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 24)}, chunk{"data", nil}), speex.ErrFormat},
		{"float", buildWave("WAVE", chunk{"fmt ", pcmFormat(3, 1, 8000, 32)}, chunk{"data", nil}), speex.ErrUnsupported},
		{"no data", buildWave("WAVE", chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 16)}), speex.ErrFormat},
		{"data first", buildWave("WAVE", chunk{"data", nil}, chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 16)}), speex.ErrFormat},
		{"short fmt", buildWave("WAVE", chunk{"fmt ", make([]byte, 8)}, chunk{"data", nil}), speex.ErrFormat},
		{"short speex fmt", buildWave("WAVE", chunk{"fmt ", pcmFormat(TagSpeex, 1, 8000, 8)}, chunk{"data", nil}), speex.ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReaderTrailingPartialBlock(t *testing.T) {
	h := speex.NewHeader(8000, speex.Narrowband, 1, false, 1)
	body := make([]byte, 100)
	binio.PutUint16(body, 0, TagSpeex)
	binio.PutUint16(body, 2, 1)
	binio.PutUint32(body, 4, 8000)
	binio.PutUint16(body, 12, 20)
	binio.PutUint16(body, 14, 3)
	binio.PutUint16(body, 16, 82)
	body[18] = 1
	copy(body[20:], h.Marshal())

	data := append(bytes.Repeat([]byte{7}, 20), 1, 2, 3, 4, 5, 6)
	b := buildWave("WAVE", chunk{"fmt ", body}, chunk{"data", data})

	r, err := NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	p, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Len(t, p, 20)
	_, err = r.ReadPacket()
	assert.Equal(t, io.EOF, err)
}

func TestReadPacketNeedsSpeex(t *testing.T) {
	b := buildWave("WAVE", chunk{"fmt ", pcmFormat(TagPCM, 1, 8000, 16)}, chunk{"data", nil})
	r, err := NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	_, err = r.ReadPacket()
	assert.ErrorIs(t, err, speex.ErrUnsupported)
}

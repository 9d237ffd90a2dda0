package wave

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCMWriter writes 16-bit PCM samples. The RIFF and data lengths are patched
// on Close.
type PCMWriter struct {
	ws     io.WriteSeeker
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	closed bool
}

// NewPCMWriter writes the RIFF, fmt and data chunk headers right away, so a
// file with no samples is still a valid WAVE file.
func NewPCMWriter(w io.Writer, sampleRate, channels int) (*PCMWriter, error) {
	ws, err := writeSeeker(w)
	if err != nil {
		return nil, err
	}
	pw := &PCMWriter{
		ws:  ws,
		enc: wav.NewEncoder(ws, sampleRate, 16, channels, TagPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
	if err := pw.enc.Write(pw.buf); err != nil {
		return nil, err
	}
	return pw, nil
}

// WriteSamples appends interleaved samples.
func (w *PCMWriter) WriteSamples(pcm []int16) error {
	if w.closed {
		return os.ErrClosed
	}
	if cap(w.buf.Data) < len(pcm) {
		w.buf.Data = make([]int, len(pcm))
	}
	w.buf.Data = w.buf.Data[:len(pcm)]
	for i, s := range pcm {
		w.buf.Data[i] = int(s)
	}
	return w.enc.Write(w.buf)
}

// Close patches the lengths and closes the sink when it is an io.Closer.
func (w *PCMWriter) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	err := w.enc.Close()
	if c, ok := w.ws.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Package wave reads and writes RIFF/WAVE files holding either 16-bit PCM or
// Speex packets (format tag 0xA109).
package wave

import (
	"errors"
	"io"

	"github.com/pidato/speexconv/speex"
)

const (
	TagPCM   = 0x0001
	TagSpeex = 0xA109
)

// ErrNotSeekable is returned by the writers when the sink cannot seek back to
// patch the chunk lengths.
var ErrNotSeekable = errors.New("wave: output is not seekable")

const (
	riffHeaderSize   = 12
	chunkHeaderSize  = 8
	pcmFmtSize       = 16
	waveFormatExSize = 18
	acmVersionSize   = 2
)

// Format is the content of the fmt chunk.
type Format struct {
	Tag            uint16
	Channels       int
	SampleRate     int
	AvgBytesPerSec int
	BlockAlign     int
	BitsPerSample  int

	// Header and Comment are set for Speex files only.
	Header  *speex.Header
	Comment string
}

func (f Format) IsSpeex() bool { return f.Tag == TagSpeex }

func writeSeeker(w io.Writer) (io.WriteSeeker, error) {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return nil, ErrNotSeekable
	}
	return ws, nil
}

package wave

import (
	"io"
	"os"

	"github.com/go-audio/riff"
	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
)

// SpeexWriter writes Speex packets as fixed-size blocks of a WAVE data chunk.
//
// The fmt chunk follows the SpeexACM layout: a WAVEFORMATEX whose bits per
// sample field carries the quality, then the ACM version, the 80 byte
// identification header and the comment.
type SpeexWriter struct {
	ws         io.WriteSeeker
	blockAlign int
	block      []byte

	// dataSizeOffset depends on the comment length.
	dataSizeOffset int64
	written        int64
	dataSize       uint32
	closed         bool
}

func NewSpeexWriter(w io.Writer, h speex.Header, quality int, comment string) (*SpeexWriter, error) {
	ws, err := writeSeeker(w)
	if err != nil {
		return nil, err
	}
	qi, err := h.Mode.QualityInfo(h.Channels, quality)
	if err != nil {
		return nil, err
	}

	extra := acmVersionSize + speex.HeaderSize + len(comment)
	fmtSize := waveFormatExSize + extra
	fmtPadded := fmtSize + fmtSize&1

	b := make([]byte, riffHeaderSize+chunkHeaderSize+fmtPadded+chunkHeaderSize)
	copy(b[0:4], riff.RiffID[:])
	copy(b[8:12], riff.WavFormatID[:])
	copy(b[12:16], riff.FmtID[:])
	binio.PutUint32(b, 16, uint32(fmtSize))

	f := b[riffHeaderSize+chunkHeaderSize:]
	binio.PutUint16(f, 0, TagSpeex)
	binio.PutUint16(f, 2, uint16(h.Channels))
	binio.PutUint32(f, 4, uint32(h.SampleRate))
	binio.PutUint32(f, 8, uint32((qi.EffectiveBitrate()+7)>>3))
	binio.PutUint16(f, 12, uint16(qi.BlockSize()))
	binio.PutUint16(f, 14, uint16(quality))
	binio.PutUint16(f, 16, uint16(extra))
	f[18] = 1 // ACM major version
	f[19] = 0
	copy(f[20:20+speex.HeaderSize], h.Marshal())
	copy(f[20+speex.HeaderSize:], comment)

	d := b[riffHeaderSize+chunkHeaderSize+fmtPadded:]
	copy(d[0:4], riff.DataFormatID[:])

	if _, err := ws.Write(b); err != nil {
		return nil, err
	}
	return &SpeexWriter{
		ws:             ws,
		blockAlign:     qi.BlockSize(),
		block:          make([]byte, qi.BlockSize()),
		dataSizeOffset: int64(len(b) - 4),
		written:        int64(len(b)),
	}, nil
}

// BlockAlign is the size every packet is padded to.
func (w *SpeexWriter) BlockAlign() int { return w.blockAlign }

// WritePacket writes one packet zero-padded to the block size. Packets larger
// than a block are rejected with ErrUnsupported.
func (w *SpeexWriter) WritePacket(packet []byte) error {
	if w.closed {
		return os.ErrClosed
	}
	if len(packet) > w.blockAlign {
		return speex.Errorf("wave writer", w.written, speex.ErrUnsupported,
			"packet of %d bytes exceeds block of %d", len(packet), w.blockAlign)
	}
	n := copy(w.block, packet)
	clear(w.block[n:])
	if _, err := w.ws.Write(w.block); err != nil {
		return err
	}
	w.written += int64(w.blockAlign)
	w.dataSize += uint32(w.blockAlign)
	return nil
}

// Close pads an odd data chunk, patches the RIFF length at offset 4 and the
// data chunk length, then closes the sink when it is an io.Closer.
func (w *SpeexWriter) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	err := w.pad()
	if err == nil {
		err = w.patch()
	}
	if c, ok := w.ws.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// pad word-aligns a data chunk of odd length. The pad byte is counted in the
// RIFF length but not in the data length.
func (w *SpeexWriter) pad() error {
	if w.dataSize%2 == 0 {
		return nil
	}
	if _, err := w.ws.Write([]byte{0}); err != nil {
		return err
	}
	w.written++
	return nil
}

func (w *SpeexWriter) patch() error {
	if _, err := w.ws.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binio.WriteUint32(w.ws, uint32(w.written-8)); err != nil {
		return err
	}
	if _, err := w.ws.Seek(w.dataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	if err := binio.WriteUint32(w.ws, w.dataSize); err != nil {
		return err
	}
	_, err := w.ws.Seek(0, io.SeekEnd)
	return err
}

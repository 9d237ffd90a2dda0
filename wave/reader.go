package wave

import (
	"errors"
	"io"

	"github.com/go-audio/riff"
	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
)

// Reader walks the chunks of a WAVE file up to the data chunk and then
// streams its content.
type Reader struct {
	src    io.Reader
	parser *riff.Parser
	format Format

	data     io.Reader
	dataSize int64
	offset   int64

	packet []byte
}

// NewReader parses the RIFF header and every chunk preceding data. Unknown
// chunks are skipped.
func NewReader(r io.Reader) (*Reader, error) {
	wr := &Reader{src: r, parser: riff.New(r)}
	if err := wr.parser.ParseHeaders(); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, speex.Errorf("wave reader", 0, speex.ErrFormat, "truncated RIFF header")
		}
		return nil, speex.Errorf("wave reader", 0, speex.ErrFormat, "%v", err)
	}
	if wr.parser.ID != riff.RiffID {
		return nil, speex.Errorf("wave reader", 0, speex.ErrFormat, "missing RIFF id, got %q", wr.parser.ID[:])
	}
	if wr.parser.Format != riff.WavFormatID {
		return nil, speex.Errorf("wave reader", 8, speex.ErrFormat, "missing WAVE id, got %q", wr.parser.Format[:])
	}
	wr.offset = riffHeaderSize
	if err := wr.readChunks(); err != nil {
		return nil, err
	}
	return wr, nil
}

// readChunks walks chunk headers with the declared sizes. riff's NextChunk
// rounds odd sizes up, which would let a data chunk run into its pad byte.
func (r *Reader) readChunks() error {
	haveFormat := false
	for {
		start := r.offset
		id, size, err := r.parser.IDnSize()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return speex.Errorf("wave reader", start, speex.ErrFormat, "missing data chunk")
			}
			return err
		}
		r.offset += chunkHeaderSize

		switch id {
		case riff.FmtID:
			body := make([]byte, size)
			n, err := io.ReadFull(r.src, body)
			r.offset += int64(n)
			if err != nil {
				return speex.Errorf("wave reader", start, speex.ErrFormat, "truncated fmt chunk")
			}
			if err := r.parseFormat(start, body); err != nil {
				return err
			}
			if err := r.skipPad(start, id, size); err != nil {
				return err
			}
			haveFormat = true
		case riff.DataFormatID:
			if !haveFormat {
				return speex.Errorf("wave reader", start, speex.ErrFormat, "data chunk before fmt chunk")
			}
			r.dataSize = int64(size)
			r.data = io.LimitReader(r.src, r.dataSize)
			return nil
		default:
			n, err := io.CopyN(io.Discard, r.src, int64(size))
			r.offset += n
			if err != nil {
				return speex.Errorf("wave reader", start, speex.ErrFormat, "truncated %q chunk", id[:])
			}
			if err := r.skipPad(start, id, size); err != nil {
				return err
			}
		}
	}
}

// skipPad consumes the byte that word-aligns a chunk of odd size.
func (r *Reader) skipPad(start int64, id [4]byte, size uint32) error {
	if size%2 == 0 {
		return nil
	}
	n, err := io.CopyN(io.Discard, r.src, 1)
	r.offset += n
	if err != nil {
		return speex.Errorf("wave reader", start, speex.ErrFormat, "missing pad byte of %q chunk", id[:])
	}
	return nil
}

func (r *Reader) parseFormat(start int64, b []byte) error {
	if len(b) < pcmFmtSize {
		return speex.Errorf("wave reader", start, speex.ErrFormat, "fmt chunk of %d bytes", len(b))
	}
	f := Format{
		Tag:            binio.Uint16(b, 0),
		Channels:       int(binio.Uint16(b, 2)),
		SampleRate:     int(binio.Uint32(b, 4)),
		AvgBytesPerSec: int(binio.Uint32(b, 8)),
		BlockAlign:     int(binio.Uint16(b, 12)),
		BitsPerSample:  int(binio.Uint16(b, 14)),
	}
	body := start + chunkHeaderSize
	switch f.Tag {
	case TagPCM:
		if f.BitsPerSample != 16 {
			return speex.Errorf("wave reader", body+14, speex.ErrSampleSize, "%d bits per sample", f.BitsPerSample)
		}
	case TagSpeex:
		if len(b) < waveFormatExSize+acmVersionSize+speex.HeaderSize {
			return speex.Errorf("wave reader", start, speex.ErrFormat, "speex fmt chunk of %d bytes", len(b))
		}
		end := waveFormatExSize + int(binio.Uint16(b, 16))
		if end > len(b) || end < waveFormatExSize+acmVersionSize+speex.HeaderSize {
			return speex.Errorf("wave reader", body+16, speex.ErrFormat, "extra size %d", end-waveFormatExSize)
		}
		hdrStart := waveFormatExSize + acmVersionSize
		h, err := speex.ParseHeader(b[hdrStart : hdrStart+speex.HeaderSize])
		if err != nil {
			return speex.Errorf("wave reader", body+int64(hdrStart), speex.ErrFormat, "embedded header: %v", err)
		}
		if f.BlockAlign < 1 {
			return speex.Errorf("wave reader", body+12, speex.ErrFormat, "block align %d", f.BlockAlign)
		}
		f.Header = &h
		f.Comment = string(b[hdrStart+speex.HeaderSize : end])
	default:
		return speex.Errorf("wave reader", body, speex.ErrUnsupported, "format tag %#04x", f.Tag)
	}
	if f.Channels < 1 {
		return speex.Errorf("wave reader", body+2, speex.ErrFormat, "%d channels", f.Channels)
	}
	r.format = f
	return nil
}

func (r *Reader) Format() Format { return r.format }

// DataSize is the length of the data chunk as declared by its header.
func (r *Reader) DataSize() int64 { return r.dataSize }

// Read streams the data chunk.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	r.offset += int64(n)
	return n, err
}

// ReadPacket returns the next block of a Speex data chunk. The returned slice
// is reused by the next call. A trailing partial block is padding and ends the
// stream.
func (r *Reader) ReadPacket() ([]byte, error) {
	if !r.format.IsSpeex() {
		return nil, speex.Errorf("wave reader", -1, speex.ErrUnsupported, "packets from format tag %#04x", r.format.Tag)
	}
	if r.packet == nil {
		r.packet = make([]byte, r.format.BlockAlign)
	}
	n, err := io.ReadFull(r.data, r.packet)
	r.offset += int64(n)
	if err == io.ErrUnexpectedEOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return r.packet, nil
}

// Close closes the source when it is an io.Closer.
func (r *Reader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

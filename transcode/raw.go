package transcode

import (
	"bufio"
	"io"
	"os"

	"github.com/pidato/speexconv/binio"
)

// rawPacketWriter concatenates packets with no framing.
type rawPacketWriter struct {
	w io.Writer
}

func (w *rawPacketWriter) WritePacket(packet []byte) error {
	_, err := w.w.Write(packet)
	return err
}

func (w *rawPacketWriter) Close() error {
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// rawPacketReader cuts a headerless stream into packets of a fixed size. A
// trailing partial packet ends the stream.
type rawPacketReader struct {
	r      io.Reader
	packet []byte
}

func newRawPacketReader(r io.Reader, size int) *rawPacketReader {
	return &rawPacketReader{r: r, packet: make([]byte, size)}
}

func (r *rawPacketReader) ReadPacket() ([]byte, error) {
	_, err := io.ReadFull(r.r, r.packet)
	if err == io.ErrUnexpectedEOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return r.packet, nil
}

func (r *rawPacketReader) Close() error { return nil }

// rawSampleWriter writes samples as 16-bit little-endian PCM.
type rawSampleWriter struct {
	dst    io.Writer
	w      *bufio.Writer
	closed bool
}

func newRawSampleWriter(w io.Writer) *rawSampleWriter {
	return &rawSampleWriter{dst: w, w: bufio.NewWriter(w)}
}

func (w *rawSampleWriter) WriteSamples(pcm []int16) error {
	if w.closed {
		return os.ErrClosed
	}
	var b [2]byte
	for _, s := range pcm {
		binio.PutUint16(b[:], 0, uint16(s))
		if _, err := w.w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func (w *rawSampleWriter) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	err := w.w.Flush()
	if c, ok := w.dst.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

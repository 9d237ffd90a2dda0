package ogg

import (
	"io"
	"math/rand/v2"
	"os"

	"github.com/gobwas/pool/pbytes"
	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
)

type writerState int

const (
	stateIdle writerState = iota
	stateStreaming
	stateClosed
)

type WriterOption func(*Writer)

// WithSerial fixes the stream serial number instead of picking a random one.
func WithSerial(serial uint32) WriterOption {
	return func(w *Writer) { w.serial = serial }
}

// Writer pages Speex packets into an Ogg stream. Pages are built in memory and
// written to the sink whole.
type Writer struct {
	w      io.Writer
	header speex.Header
	serial uint32
	state  writerState

	data    []byte
	lacing  []byte
	packets int

	granulePos uint64
	pageSeq    uint32
}

func NewWriter(w io.Writer, h speex.Header, opts ...WriterOption) *Writer {
	ow := &Writer{
		w:      w,
		header: h,
		serial: rand.Uint32(),
		data:   pbytes.GetCap(PacketsPerPage * MaxPacketSize),
		lacing: make([]byte, 0, PacketsPerPage),
	}
	for _, opt := range opts {
		opt(ow)
	}
	return ow
}

func (w *Writer) Serial() uint32       { return w.serial }
func (w *Writer) GranulePos() uint64   { return w.granulePos }
func (w *Writer) PageSequence() uint32 { return w.pageSeq }
func (w *Writer) Header() speex.Header { return w.header }

// WriteHeaders writes the identification header page (BOS) and the comment
// header page.
func (w *Writer) WriteHeaders(comment string) error {
	switch w.state {
	case stateClosed:
		return os.ErrClosed
	case stateStreaming:
		return speex.Errorf("ogg writer", -1, speex.ErrUnsupported, "headers already written")
	}
	comm := speex.BuildComment(comment)
	if len(comm) > MaxPacketSize {
		return speex.Errorf("ogg writer", -1, speex.ErrUnsupported, "comment header of %d bytes", len(comm))
	}
	if err := w.writeSinglePacketPage(FlagBOS, w.header.Marshal()); err != nil {
		return err
	}
	if err := w.writeSinglePacketPage(0, comm); err != nil {
		return err
	}
	w.state = stateStreaming
	return nil
}

func (w *Writer) writeSinglePacketPage(flags byte, packet []byte) error {
	p := &Page{
		HeaderType: flags,
		Serial:     w.serial,
		Sequence:   w.pageSeq,
		Segments:   []byte{byte(len(packet))},
		Payload:    packet,
	}
	if _, err := w.w.Write(p.Marshal()); err != nil {
		return err
	}
	w.pageSeq++
	return nil
}

// WritePacket buffers one packet into the current page.
func (w *Writer) WritePacket(packet []byte) error {
	switch w.state {
	case stateClosed:
		return os.ErrClosed
	case stateIdle:
		return speex.Errorf("ogg writer", -1, speex.ErrUnsupported, "packet before headers")
	}
	if len(packet) > MaxPacketSize {
		return speex.Errorf("ogg writer", -1, speex.ErrUnsupported, "packet of %d bytes", len(packet))
	}
	if w.packets >= PacketsPerPage {
		if err := w.Flush(false); err != nil {
			return err
		}
	}
	w.data = append(w.data, packet...)
	w.lacing = append(w.lacing, byte(len(packet)))
	w.packets++
	w.granulePos += uint64(w.header.PacketSamples())
	return nil
}

// Flush writes the buffered packets as one page, even when there are none.
func (w *Writer) Flush(eos bool) error {
	if w.state == stateClosed {
		return os.ErrClosed
	}
	var flags byte
	if eos {
		flags = FlagEOS
	}
	p := &Page{
		HeaderType: flags,
		GranulePos: w.granulePos,
		Serial:     w.serial,
		Sequence:   w.pageSeq,
		Segments:   w.lacing,
	}
	hdr := p.header()
	crc := Checksum(0, hdr, 0, len(hdr))
	crc = Checksum(crc, w.data, 0, len(w.data))
	binio.PutUint32(hdr, checksumOffset, crc)

	if _, err := w.w.Write(hdr); err != nil {
		return err
	}
	if _, err := w.w.Write(w.data); err != nil {
		return err
	}
	w.data = w.data[:0]
	w.lacing = w.lacing[:0]
	w.packets = 0
	w.pageSeq++
	return nil
}

// Close flushes the last page with the EOS flag and closes the sink when it
// is an io.Closer. A writer closed before its headers writes nothing.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return os.ErrClosed
	}
	var err error
	if w.state == stateStreaming {
		err = w.Flush(true)
	}
	w.state = stateClosed
	pbytes.Put(w.data)
	w.data = nil
	if c, ok := w.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

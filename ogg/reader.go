package ogg

import (
	"bytes"
	"errors"
	"io"

	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
)

// Reader reads and verifies pages. A page is handed out only after its
// checksum matched.
type Reader struct {
	r      io.Reader
	offset int64
	hdr    [pageHeaderSize]byte

	page    *Page
	pending [][]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

// Page is the page the last ReadPacket call took its packet from.
func (r *Reader) Page() *Page { return r.page }

// ReadPage returns io.EOF when the stream ends on a page boundary.
func (r *Reader) ReadPage() (*Page, error) {
	start := r.offset
	n, err := io.ReadFull(r.r, r.hdr[:])
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, r.truncated(start, err)
	}
	if !bytes.Equal(r.hdr[0:4], []byte(capturePattern)) {
		return nil, speex.Errorf("ogg reader", start, speex.ErrFormat, "missing capture pattern, got %q", r.hdr[0:4])
	}
	if r.hdr[4] != 0 {
		return nil, speex.Errorf("ogg reader", start+4, speex.ErrUnsupported, "stream structure version %d", r.hdr[4])
	}

	p := &Page{
		HeaderType: r.hdr[5],
		GranulePos: binio.Uint64(r.hdr[:], 6),
		Serial:     binio.Uint32(r.hdr[:], 14),
		Sequence:   binio.Uint32(r.hdr[:], 18),
		Checksum:   binio.Uint32(r.hdr[:], checksumOffset),
		Segments:   make([]byte, r.hdr[segmentsOffset]),
		Offset:     start,
	}
	n, err = io.ReadFull(r.r, p.Segments)
	r.offset += int64(n)
	if err != nil {
		return nil, r.truncated(start, err)
	}
	size := 0
	for _, s := range p.Segments {
		size += int(s)
	}
	p.Payload = make([]byte, size)
	n, err = io.ReadFull(r.r, p.Payload)
	r.offset += int64(n)
	if err != nil {
		return nil, r.truncated(start, err)
	}

	binio.PutUint32(r.hdr[:], checksumOffset, 0)
	crc := Checksum(0, r.hdr[:], 0, pageHeaderSize)
	crc = Checksum(crc, p.Segments, 0, len(p.Segments))
	crc = Checksum(crc, p.Payload, 0, len(p.Payload))
	if crc != p.Checksum {
		return nil, speex.Errorf("ogg reader", start, speex.ErrChecksum,
			"page %d: stored %08x, computed %08x", p.Sequence, p.Checksum, crc)
	}
	return p, nil
}

func (r *Reader) truncated(start int64, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return speex.Errorf("ogg reader", start, speex.ErrFormat, "truncated page")
	}
	return err
}

// ReadPacket returns the next packet, reading pages as needed. Pages without
// packets are skipped.
func (r *Reader) ReadPacket() ([]byte, error) {
	for len(r.pending) == 0 {
		p, err := r.ReadPage()
		if err != nil {
			return nil, err
		}
		packets, err := p.Packets()
		if err != nil {
			return nil, err
		}
		r.page = p
		r.pending = packets
	}
	packet := r.pending[0]
	r.pending = r.pending[1:]
	return packet, nil
}

// Close closes the source when it is an io.Closer.
func (r *Reader) Close() error {
	r.pending = nil
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Package transport carries Speex packets over RTP.
//
// A dump file is a sequence of records, each a little-endian uint16 length
// followed by one marshaled RTP packet.
package transport

import (
	"io"
	"math/rand/v2"
	"os"

	"github.com/gobwas/pool/pbytes"
	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
	"github.com/pion/rtp"
)

// DefaultPayloadType is the dynamic payload type used when none is set.
const DefaultPayloadType = 97

// Packetizer stamps payloads with RTP headers. The timestamp advances by the
// number of samples each payload carries, at the stream sample rate.
type Packetizer struct {
	PayloadType uint8
	SSRC        uint32
	Sequencer   rtp.Sequencer
	Timestamp   uint32

	started bool
}

func NewPacketizer(payloadType uint8, ssrc uint32, sequencer rtp.Sequencer) *Packetizer {
	return &Packetizer{
		PayloadType: payloadType,
		SSRC:        ssrc,
		Sequencer:   sequencer,
	}
}

// Packetize builds the packet for payload. The first packet carries the
// marker bit.
func (p *Packetizer) Packetize(payload []byte, samples int) *rtp.Packet {
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         !p.started,
			PayloadType:    p.PayloadType,
			SequenceNumber: p.Sequencer.NextSequenceNumber(),
			Timestamp:      p.Timestamp,
			SSRC:           p.SSRC,
		},
		Payload: payload,
	}
	p.started = true
	p.Timestamp += uint32(samples)
	return packet
}

type WriterOption func(*Writer)

func WithPayloadType(pt uint8) WriterOption {
	return func(w *Writer) { w.p.PayloadType = pt }
}

func WithSSRC(ssrc uint32) WriterOption {
	return func(w *Writer) { w.p.SSRC = ssrc }
}

func WithSequencer(s rtp.Sequencer) WriterOption {
	return func(w *Writer) { w.p.Sequencer = s }
}

// Writer writes a dump file of one RTP stream.
type Writer struct {
	w       io.Writer
	p       *Packetizer
	samples int
	closed  bool
	packets int
}

// NewWriter writes packets carrying h.FramesPerPacket frames each. The SSRC
// and the first sequence number are random unless set by an option.
func NewWriter(w io.Writer, h speex.Header, opts ...WriterOption) *Writer {
	rw := &Writer{
		w:       w,
		p:       NewPacketizer(DefaultPayloadType, rand.Uint32(), rtp.NewRandomSequencer()),
		samples: h.PacketSamples(),
	}
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

func (w *Writer) Packets() int { return w.packets }

func (w *Writer) SSRC() uint32 { return w.p.SSRC }

func (w *Writer) WritePacket(packet []byte) error {
	if w.closed {
		return os.ErrClosed
	}
	rp := w.p.Packetize(packet, w.samples)
	size := rp.MarshalSize()
	if size > 0xFFFF {
		return speex.Errorf("rtp writer", -1, speex.ErrUnsupported, "packet of %d bytes", size)
	}
	buf := pbytes.GetLen(2 + size)
	defer pbytes.Put(buf)
	binio.PutUint16(buf, 0, uint16(size))
	if _, err := rp.MarshalTo(buf[2:]); err != nil {
		return err
	}
	if _, err := w.w.Write(buf); err != nil {
		return err
	}
	w.packets++
	return nil
}

// Close closes the sink when it is an io.Closer.
func (w *Writer) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

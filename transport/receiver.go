package transport

import (
	"errors"
	"io"

	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
	"github.com/pion/rtp"
)

// MaxPacketLoss is the largest sequence gap that is concealed. A larger jump
// is taken as a restart of the sender and resynchronizes the receiver.
const MaxPacketLoss = 100

// Stats counts what a Receiver has seen. Lost counts missing sequence numbers.
type Stats struct {
	Received int
	Lost     int
	Dropped  int
	Resyncs  int
}

// Receiver reads a dump file and restores packet order information. The
// first packet fixes the SSRC; packets of other streams are dropped, as are
// duplicates and packets arriving after a later one.
type Receiver struct {
	r      io.Reader
	offset int64

	started  bool
	ssrc     uint32
	expected uint16

	lost int
	held []byte

	packet rtp.Packet
	buf    []byte
	stats  Stats
}

func NewReceiver(r io.Reader) *Receiver {
	return &Receiver{r: r, buf: make([]byte, 0xFFFF)}
}

func (r *Receiver) Stats() Stats { return r.stats }

// SSRC is the source the receiver locked onto.
func (r *Receiver) SSRC() uint32 { return r.ssrc }

// ReadPacket returns the next payload in sequence order. Each missing sequence
// number yields a nil packet with a nil error, so the decoder can conceal it.
// The payload is valid until the next call.
func (r *Receiver) ReadPacket() ([]byte, error) {
	if r.lost > 0 {
		r.lost--
		return nil, nil
	}
	if r.held != nil {
		p := r.held
		r.held = nil
		return p, nil
	}
	for {
		p, err := r.next()
		if err != nil {
			return nil, err
		}
		h := &r.packet.Header
		if !r.started {
			r.started = true
			r.ssrc = h.SSRC
			r.expected = h.SequenceNumber + 1
			r.stats.Received++
			return p, nil
		}
		if h.SSRC != r.ssrc {
			r.stats.Dropped++
			continue
		}
		gap := int16(h.SequenceNumber - r.expected)
		switch {
		case gap < 0:
			r.stats.Dropped++
			continue
		case gap == 0:
		case gap <= MaxPacketLoss:
			r.stats.Lost += int(gap)
			r.lost = int(gap) - 1
			r.held = p
			p = nil
		default:
			r.stats.Resyncs++
		}
		r.expected = h.SequenceNumber + 1
		r.stats.Received++
		return p, nil
	}
}

func (r *Receiver) next() ([]byte, error) {
	start := r.offset
	size, err := binio.ReadUint16(r.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, r.truncated(start, err)
	}
	r.offset += 2
	b := r.buf[:size]
	n, err := io.ReadFull(r.r, b)
	r.offset += int64(n)
	if err != nil {
		return nil, r.truncated(start, err)
	}
	if err := r.packet.Unmarshal(b); err != nil {
		return nil, speex.Errorf("rtp receiver", start, speex.ErrFormat, "%v", err)
	}
	return r.packet.Payload, nil
}

func (r *Receiver) truncated(start int64, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return speex.Errorf("rtp receiver", start, speex.ErrFormat, "truncated record")
	}
	return err
}

// Close closes the source when it is an io.Closer.
func (r *Receiver) Close() error {
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Package codectest provides a deterministic frame codec for exercising the
// containers and the pipeline without the real Speex mathematics.
//
// Every frame is coded as four bytes: the mean of its samples as a
// little-endian int16, then a little-endian frame counter. Decoding fills the
// whole frame with the mean, scaled by Gain.
package codectest

import (
	"errors"
	"sync"

	"github.com/pidato/speexconv/binio"
	"github.com/pidato/speexconv/speex"
)

const (
	Name      = "test"
	FrameSize = 4
)

var ErrShortPacket = errors.New("codectest: packet shorter than a frame")

// Codec counts what its encoders and decoders did.
type Codec struct {
	// Gain scales decoded samples. Zero means 1.
	Gain float32

	mu sync.Mutex
	Counters
}

type Counters struct {
	Encoded   int
	Decoded   int
	Concealed int
	Packets   int
}

func (c *Codec) Stats() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Counters
}

func (c *Codec) NewEncoder(mode speex.Mode, channels int, o speex.EncoderOptions) (speex.Encoder, error) {
	if !mode.Valid() {
		return nil, speex.ErrUnsupported
	}
	return &Encoder{codec: c, frameSize: mode.FrameSize(), channels: channels}, nil
}

func (c *Codec) NewDecoder(mode speex.Mode, channels int, enhanced bool) (speex.Decoder, error) {
	if !mode.Valid() {
		return nil, speex.ErrUnsupported
	}
	gain := c.Gain
	if gain == 0 {
		gain = 1
	}
	return &Decoder{codec: c, frameSize: mode.FrameSize(), channels: channels, gain: gain}, nil
}

type Encoder struct {
	codec     *Codec
	frameSize int
	channels  int
	counter   uint16
	pending   []byte
}

func (e *Encoder) FrameSize() int { return e.frameSize }
func (e *Encoder) Channels() int  { return e.channels }

func (e *Encoder) Encode(pcm []int16) error {
	var sum int
	for _, s := range pcm {
		sum += int(s)
	}
	mean := 0
	if len(pcm) > 0 {
		mean = sum / len(pcm)
	}
	var frame [FrameSize]byte
	binio.PutUint16(frame[:], 0, uint16(int16(mean)))
	binio.PutUint16(frame[:], 2, e.counter)
	e.counter++
	e.pending = append(e.pending, frame[:]...)

	e.codec.mu.Lock()
	e.codec.Encoded++
	e.codec.mu.Unlock()
	return nil
}

func (e *Encoder) Flush(dst []byte) []byte {
	dst = append(dst, e.pending...)
	e.pending = e.pending[:0]
	return dst
}

type Decoder struct {
	codec     *Codec
	frameSize int
	channels  int
	gain      float32

	bits []byte
}

func (d *Decoder) FrameSize() int { return d.frameSize }
func (d *Decoder) Channels() int  { return d.channels }

func (d *Decoder) Decode(packet []byte, pcm []float32) error {
	if packet == nil {
		d.bits = nil
		d.conceal(pcm)
		return nil
	}
	if len(packet) < FrameSize {
		return ErrShortPacket
	}
	d.bits = packet
	d.codec.mu.Lock()
	d.codec.Packets++
	d.codec.mu.Unlock()
	return d.DecodeNext(false, pcm)
}

func (d *Decoder) DecodeNext(lost bool, pcm []float32) error {
	if lost || len(d.bits) < FrameSize {
		d.conceal(pcm)
		return nil
	}
	v := float32(int16(binio.Uint16(d.bits, 0))) * d.gain
	d.bits = d.bits[FrameSize:]
	for i := range pcm {
		pcm[i] = v
	}
	d.codec.mu.Lock()
	d.codec.Decoded++
	d.codec.mu.Unlock()
	return nil
}

func (d *Decoder) conceal(pcm []float32) {
	clear(pcm)
	d.codec.mu.Lock()
	d.codec.Concealed++
	d.codec.mu.Unlock()
}

var registerOnce sync.Once

// Register makes a shared Codec available under Name.
func Register() *Codec {
	registerOnce.Do(func() {
		speex.Register(Name, shared)
	})
	return shared
}

var shared = &Codec{}

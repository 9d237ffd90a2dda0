package transcode

import (
	"fmt"
	"io"

	"github.com/pidato/speexconv/binio"
	resampling "github.com/tphakala/go-audio-resampling"
)

// chunkFrames is the number of source frames converted per read.
const chunkFrames = 4096

// converter reads 16-bit little-endian PCM and converts its rate and channel
// count. A trailing partial frame of the source is dropped.
type converter struct {
	src io.Reader

	srcRate, srcChannels int
	dstRate, dstChannels int

	// one mono resampler per output channel
	resamplers []resampling.Resampler
	readBuf    []byte
	samples    []int16
	planes     [][]float64
	leftover   []byte
	eof        bool
}

func newConverter(src io.Reader, srcRate, srcChannels, dstRate, dstChannels int) (*converter, error) {
	if srcChannels < 1 || srcChannels > 2 || dstChannels < 1 || dstChannels > 2 {
		return nil, fmt.Errorf("convert %d to %d channels: unsupported", srcChannels, dstChannels)
	}
	c := &converter{
		src:         src,
		srcRate:     srcRate,
		srcChannels: srcChannels,
		dstRate:     dstRate,
		dstChannels: dstChannels,
		readBuf:     make([]byte, chunkFrames*srcChannels*2),
	}
	if srcRate != dstRate {
		for ch := 0; ch < dstChannels; ch++ {
			rs, err := resampling.New(&resampling.Config{
				InputRate:  float64(srcRate),
				OutputRate: float64(dstRate),
				Channels:   1,
				Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create resampler: %w", err)
			}
			c.resamplers = append(c.resamplers, rs)
		}
		c.planes = make([][]float64, dstChannels)
	}
	return c, nil
}

func (c *converter) Read(p []byte) (int, error) {
	for len(c.leftover) == 0 {
		if c.eof {
			return 0, io.EOF
		}
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.leftover)
	c.leftover = c.leftover[n:]
	return n, nil
}

// fill converts the next chunk of the source into leftover.
func (c *converter) fill() error {
	n, err := io.ReadFull(c.src, c.readBuf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		c.eof = true
	default:
		return err
	}
	frameBytes := 2 * c.srcChannels
	frames := n / frameBytes

	c.samples = c.samples[:0]
	for i := 0; i < frames; i++ {
		off := i * frameBytes
		switch {
		case c.srcChannels == c.dstChannels:
			for ch := 0; ch < c.srcChannels; ch++ {
				c.samples = append(c.samples, int16(binio.Uint16(c.readBuf, off+2*ch)))
			}
		case c.srcChannels == 2:
			l := int32(int16(binio.Uint16(c.readBuf, off)))
			r := int32(int16(binio.Uint16(c.readBuf, off+2)))
			c.samples = append(c.samples, int16((l+r)/2))
		default:
			s := int16(binio.Uint16(c.readBuf, off))
			c.samples = append(c.samples, s, s)
		}
	}

	if c.resamplers == nil {
		c.leftover = appendSamples(c.leftover[:0], c.samples)
		return nil
	}

	for ch := range c.planes {
		c.planes[ch] = c.planes[ch][:0]
	}
	for i, s := range c.samples {
		ch := i % c.dstChannels
		c.planes[ch] = append(c.planes[ch], float64(s)/32768.0)
	}
	out := make([][]float64, c.dstChannels)
	for ch, rs := range c.resamplers {
		o, err := rs.Process(c.planes[ch])
		if err != nil {
			return fmt.Errorf("resample error: %w", err)
		}
		if c.eof {
			tail, err := rs.Flush()
			if err != nil {
				return fmt.Errorf("resample flush error: %w", err)
			}
			o = append(o, tail...)
		}
		out[ch] = o
	}

	// channels are interleaved up to the shortest plane
	frames = len(out[0])
	for _, o := range out[1:] {
		frames = min(frames, len(o))
	}
	c.leftover = c.leftover[:0]
	for i := 0; i < frames; i++ {
		for _, o := range out {
			v := saturate(float32(o[i] * 32768.0))
			c.leftover = append(c.leftover, byte(v), byte(v>>8))
		}
	}
	return nil
}

func appendSamples(dst []byte, pcm []int16) []byte {
	for _, s := range pcm {
		dst = append(dst, byte(s), byte(s>>8))
	}
	return dst
}

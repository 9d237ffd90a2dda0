package speex

import (
	"fmt"
	"sort"
	"sync"
)

// Encoder turns fixed-size PCM frames into bits. Encode appends one frame of
// FrameSize()*Channels() interleaved samples to the pending bitstream, Flush
// drains the pending bits as bytes appended to dst.
type Encoder interface {
	FrameSize() int
	Channels() int
	Encode(pcm []int16) error
	Flush(dst []byte) []byte
}

// Decoder turns packets back into frames of FrameSize()*Channels() samples.
//
// Decode loads packet as the current bitstream and decodes its first frame; a
// nil packet is lost and the frame is concealed. DecodeNext decodes the next
// frame from the bitstream already loaded, or conceals it when lost is set.
type Decoder interface {
	FrameSize() int
	Channels() int
	Decode(packet []byte, pcm []float32) error
	DecodeNext(lost bool, pcm []float32) error
}

type EncoderOptions struct {
	Quality    int
	Complexity int
	Bitrate    int
	VBR        bool
	VBRQuality float32
	VAD        bool
	DTX        bool
}

func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{
		Quality:    8,
		Complexity: 3,
		Bitrate:    -1,
		VBRQuality: -1,
	}
}

// Codec builds encoders and decoders for a mode.
type Codec interface {
	NewEncoder(mode Mode, channels int, o EncoderOptions) (Encoder, error)
	NewDecoder(mode Mode, channels int, enhanced bool) (Decoder, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = make(map[string]Codec)
)

// Register makes a codec available by name. It panics if the name is taken.
func Register(name string, c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	if c == nil {
		panic("speex: Register codec is nil")
	}
	if _, dup := codecs[name]; dup {
		panic("speex: Register called twice for codec " + name)
	}
	codecs[name] = c
}

// Lookup returns the named codec. An empty name selects the only registered
// codec.
func Lookup(name string) (Codec, error) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	if name == "" {
		if len(codecs) == 1 {
			for _, c := range codecs {
				return c, nil
			}
		}
		if len(codecs) == 0 {
			return nil, ErrNoCodec
		}
		return nil, fmt.Errorf("%w: %d codecs registered, pick one of %v", ErrNoCodec, len(codecs), codecNamesLocked())
	}
	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoCodec, name)
	}
	return c, nil
}

func Codecs() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	return codecNamesLocked()
}

func codecNamesLocked() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

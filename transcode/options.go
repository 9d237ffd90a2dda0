package transcode

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pidato/speexconv/speex"
)

// TailPolicy decides what happens to a final block of PCM too short to fill a
// whole packet.
type TailPolicy int

const (
	// TailPad zero-pads the block to a whole packet.
	TailPad TailPolicy = iota
	// TailTruncate drops the block.
	TailTruncate
	// TailReject fails with speex.ErrSampleSize.
	TailReject
)

func (t TailPolicy) String() string {
	switch t {
	case TailPad:
		return "pad"
	case TailTruncate:
		return "truncate"
	case TailReject:
		return "reject"
	}
	return fmt.Sprintf("tail(%d)", int(t))
}

func ParseTailPolicy(s string) (TailPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pad":
		return TailPad, nil
	case "truncate", "drop":
		return TailTruncate, nil
	case "reject":
		return TailReject, nil
	}
	return TailPad, fmt.Errorf("%w: tail policy %q", speex.ErrUnsupported, s)
}

func (t TailPolicy) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TailPolicy) UnmarshalText(text []byte) error {
	v, err := ParseTailPolicy(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Options configures one encode or decode operation. The encoder settings
// apply to Encode; Loss and Enhanced apply to Decode. Mode, SampleRate,
// Channels and FramesPerPacket describe the stream for sources that carry no
// header.
type Options struct {
	Mode            speex.Mode `yaml:"mode"`
	Quality         int        `yaml:"quality"`
	Complexity      int        `yaml:"complexity"`
	Bitrate         int        `yaml:"bitrate"`
	VBR             bool       `yaml:"vbr"`
	VBRQuality      float32    `yaml:"vbr_quality"`
	VAD             bool       `yaml:"vad"`
	DTX             bool       `yaml:"dtx"`
	FramesPerPacket int        `yaml:"frames_per_packet"`

	SampleRate int  `yaml:"sample_rate"`
	Channels   int  `yaml:"channels"`
	Resample   bool `yaml:"resample"`

	// Loss is the percentage of packets dropped on purpose while decoding.
	Loss     int    `yaml:"loss"`
	Seed     uint64 `yaml:"seed"`
	Enhanced bool   `yaml:"enhanced"`

	Comment string     `yaml:"comment"`
	Codec   string     `yaml:"codec"`
	Tail    TailPolicy `yaml:"tail"`
	// Serial fixes the Ogg stream serial number. Zero picks a random one.
	Serial uint32 `yaml:"serial"`
	// PacketSize is the size of every packet of a raw Speex source.
	PacketSize int  `yaml:"packet_size"`
	Verbose    bool `yaml:"verbose"`

	Input  Container `yaml:"input"`
	Output Container `yaml:"output"`

	// FrameCodec overrides the registry lookup by Codec.
	FrameCodec speex.Codec `yaml:"-"`
	// Logger receives progress records. Nil discards them.
	Logger *slog.Logger `yaml:"-"`
	// Rand drives the loss simulation. Nil seeds one from Seed, or randomly
	// when Seed is zero.
	Rand *rand.Rand `yaml:"-"`
	// Done is called once when the operation ends, successfully or not.
	Done func(Result, error) `yaml:"-"`
}

const defaultComment = "Encoded with speexconv"

func DefaultOptions() Options {
	eo := speex.DefaultEncoderOptions()
	return Options{
		Mode:            speex.ModeAuto,
		Quality:         eo.Quality,
		Complexity:      eo.Complexity,
		Bitrate:         eo.Bitrate,
		VBRQuality:      eo.VBRQuality,
		FramesPerPacket: 1,
		Enhanced:        true,
		Comment:         defaultComment,
	}
}

// LoadOptions reads a YAML file on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options %s: %w", path, err)
	}
	return opts, nil
}

func (o *Options) validate() error {
	if o.Quality < speex.MinQuality || o.Quality > speex.MaxQuality {
		return fmt.Errorf("%w: quality %d", speex.ErrUnsupported, o.Quality)
	}
	if o.Loss < 0 || o.Loss > 100 {
		return fmt.Errorf("%w: loss %d%%", speex.ErrUnsupported, o.Loss)
	}
	if o.Channels < 0 || o.Channels > 2 {
		return fmt.Errorf("%w: %d channels", speex.ErrUnsupported, o.Channels)
	}
	if o.FramesPerPacket < 0 {
		return fmt.Errorf("%w: %d frames per packet", speex.ErrUnsupported, o.FramesPerPacket)
	}
	if o.Mode != speex.ModeAuto && !o.Mode.Valid() {
		return fmt.Errorf("%w: mode %d", speex.ErrUnsupported, int(o.Mode))
	}
	return nil
}

func (o *Options) encoderOptions() speex.EncoderOptions {
	return speex.EncoderOptions{
		Quality:    o.Quality,
		Complexity: o.Complexity,
		Bitrate:    o.Bitrate,
		VBR:        o.VBR,
		VBRQuality: o.VBRQuality,
		VAD:        o.VAD,
		DTX:        o.DTX,
	}
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o *Options) rand() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	if o.Seed != 0 {
		return rand.New(rand.NewPCG(o.Seed, o.Seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (o *Options) codec() (speex.Codec, error) {
	if o.FrameCodec != nil {
		return o.FrameCodec, nil
	}
	return speex.Lookup(o.Codec)
}

// sampleRate applies the kHz shorthand: rates below 100 are multiplied by
// 1000.
func (o *Options) sampleRate() int {
	if o.SampleRate > 0 && o.SampleRate < 100 {
		return o.SampleRate * 1000
	}
	return o.SampleRate
}

// Result summarizes a finished operation.
type Result struct {
	Input   Container
	Output  Container
	Header  speex.Header
	Comment string

	// Packets counts packets written by Encode, or taken from the source by
	// Decode including the ones lost in transit.
	Packets int
	// Lost counts packets Decode concealed, simulated or missing.
	Lost int
	// Skipped counts payloads ignored while looking for the stream header.
	Skipped int
	// Dropped counts RTP packets discarded as late, duplicate or foreign.
	Dropped int
	// Samples counts samples per channel consumed or produced.
	Samples int64
}
